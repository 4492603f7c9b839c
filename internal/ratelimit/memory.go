package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// DefaultSweepProbability is the chance that a check also evicts expired entries
const DefaultSweepProbability = 0.01

// MemoryStore keeps window state in process memory
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
	sweepP  float64
	roll    func() float64
}

// NewMemoryStore creates a new in-memory store. sweepProbability <= 0 selects
// DefaultSweepProbability.
func NewMemoryStore(sweepProbability float64) *MemoryStore {
	if sweepProbability <= 0 {
		sweepProbability = DefaultSweepProbability
	}
	return &MemoryStore{
		entries: make(map[string]*Entry),
		sweepP:  sweepProbability,
		roll:    rand.Float64,
	}
}

// Take applies the fixed-window rule for key
func (s *MemoryStore) Take(_ context.Context, key string, policy Policy, now time.Time) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.roll() < s.sweepP {
		s.sweepLocked(now)
	}

	entry, ok := s.entries[key]
	if !ok || now.After(entry.ResetTime) {
		s.entries[key] = &Entry{Count: 1, ResetTime: now.Add(policy.Window)}
		return Decision{
			Allowed:   true,
			Remaining: policy.MaxRequests - 1,
			ResetIn:   policy.Window,
		}, nil
	}

	resetIn := entry.ResetTime.Sub(now)
	if entry.Count >= policy.MaxRequests {
		return Decision{Allowed: false, Remaining: 0, ResetIn: resetIn}, nil
	}

	entry.Count++
	return Decision{
		Allowed:   true,
		Remaining: policy.MaxRequests - entry.Count,
		ResetIn:   resetIn,
	}, nil
}

// Sweep removes every entry whose window has elapsed
func (s *MemoryStore) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
}

// Len returns the number of tracked identifiers
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for key, entry := range s.entries {
		if now.After(entry.ResetTime) {
			delete(s.entries, key)
		}
	}
}
