// Package statute stores legal provisions and searches them by vector similarity.
package statute

import (
	"context"

	"github.com/ppiankov/docket/internal/model"
)

// Query is a similarity search over stored provisions
type Query struct {
	Embedding []float32
	Threshold float64 // Minimum cosine similarity, inclusive
	Limit     int     // Maximum matches returned
	Category  string  // Empty means every category
}

// Match is a provision returned by a search, best first
type Match struct {
	ArticleNumber *string
	Category      string
	Content       string
	Similarity    float64
}

// Repository searches and stores provisions
type Repository interface {
	Search(ctx context.Context, q Query) ([]Match, error)
	Upsert(ctx context.Context, provisions []model.Provision) error
}
