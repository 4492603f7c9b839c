package ratelimit

import (
	"crypto/subtle"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"github.com/zeebo/blake3"
)

// Verifier reports whether a bearer credential belongs to a known caller
type Verifier func(credential string) bool

// KeySet returns a Verifier accepting exactly keys. Only digests are kept.
// An empty set verifies nothing.
func KeySet(keys []string) Verifier {
	digests := make([][32]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			digests = append(digests, blake3.Sum256([]byte(k)))
		}
	}
	if len(digests) == 0 {
		return nil
	}
	return func(credential string) bool {
		sum := blake3.Sum256([]byte(credential))
		for _, d := range digests {
			if subtle.ConstantTimeCompare(sum[:], d[:]) == 1 {
				return true
			}
		}
		return false
	}
}

// Identifier derives the rate-limit identifier for a request
type Identifier struct {
	verify Verifier
}

// NewIdentifier creates an identifier. A nil verifier keys every request
// on its client address.
func NewIdentifier(verify Verifier) *Identifier {
	return &Identifier{verify: verify}
}

// Identify prefers a verified bearer credential, stored only as a BLAKE3
// digest. Unverified or absent credentials fall back to the client address,
// so rotating tokens cannot mint fresh windows.
func (id *Identifier) Identify(r *http.Request) string {
	if id != nil && id.verify != nil {
		if token := bearerToken(r.Header.Get("Authorization")); token != "" && id.verify(token) {
			return CredentialKey(token)
		}
	}
	return "ip:" + clientIP(r.RemoteAddr)
}

// Identify keys r on its client address
func Identify(r *http.Request) string {
	return NewIdentifier(nil).Identify(r)
}

// CredentialKey hashes a caller credential into a non-reversible identifier
func CredentialKey(credential string) string {
	sum := blake3.Sum256([]byte(credential))
	return "cred:" + hex.EncodeToString(sum[:16])
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
