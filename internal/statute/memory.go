package statute

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/ppiankov/docket/internal/model"
)

// MemoryRepository implements Repository with a brute-force cosine scan.
// Suitable for development corpora and tests.
type MemoryRepository struct {
	mu         sync.RWMutex
	provisions map[string]model.Provision // keyed by source key
}

// NewMemoryRepository creates a new in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{provisions: make(map[string]model.Provision)}
}

// Search returns up to q.Limit provisions with similarity >= q.Threshold, best first
func (r *MemoryRepository) Search(ctx context.Context, q Query) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(q.Embedding) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []Match
	for _, p := range r.provisions {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if len(p.Embedding) != len(q.Embedding) {
			continue
		}
		sim := cosineSimilarity(q.Embedding, p.Embedding)
		if sim < q.Threshold {
			continue
		}
		matches = append(matches, Match{
			ArticleNumber: p.ArticleNumber,
			Category:      p.Category,
			Content:       p.Content,
			Similarity:    sim,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Content < matches[j].Content
	})

	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

// Upsert stores provisions, replacing any with the same source key
func (r *MemoryRepository) Upsert(ctx context.Context, provisions []model.Provision) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range provisions {
		if len(p.Embedding) == 0 {
			return fmt.Errorf("provision %s has no embedding", p.SourceKey())
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		r.provisions[p.SourceKey()] = p
	}
	return nil
}

// Len returns the number of stored provisions
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.provisions)
}
