package embedding

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/ppiankov/docket/internal/cache"
	"github.com/ppiankov/docket/internal/metrics"
)

// CachedEngine memoizes embeddings of identical texts
type CachedEngine struct {
	Engine
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedEngine wraps engine with a cache; entries live for ttl
func NewCachedEngine(engine Engine, c cache.Cache, ttl time.Duration) *CachedEngine {
	return &CachedEngine{
		Engine: engine,
		cache:  c,
		ttl:    ttl,
	}
}

// Embed returns the cached vector for text, computing it on a miss
func (e *CachedEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.key(text)
	if raw, ok := e.cache.Get(key); ok {
		if vec, err := decodeVector(raw); err == nil {
			metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
			return vec, nil
		}
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()

	vec, err := e.Engine.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	// A failed cache write only costs a recomputation later
	_ = e.cache.Set(key, encodeVector(vec), e.ttl)
	return vec, nil
}

func (e *CachedEngine) key(text string) string {
	return cache.CacheKey("embed", e.Engine.Name()+"\x00"+text)
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, fmt.Errorf("invalid cached vector length %d", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}
