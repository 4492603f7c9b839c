// Package cache stores derived values, such as claim embeddings, that are
// expensive to recompute.
package cache

import (
	"encoding/hex"
	"time"

	"github.com/zeebo/blake3"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey derives a namespaced key from arbitrary input. The input itself
// (complaint-derived text) never appears in the key.
func CacheKey(namespace, input string) string {
	sum := blake3.Sum256([]byte(input))
	return "docket:v1:" + namespace + ":" + hex.EncodeToString(sum[:])
}
