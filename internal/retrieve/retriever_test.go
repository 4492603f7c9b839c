package retrieve

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/ppiankov/docket/internal/model"
	"github.com/ppiankov/docket/internal/statute"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// stubEngine maps each query to a vector; queries listed in fail return an error
type stubEngine struct {
	mu      sync.Mutex
	vectors map[string][]float32
	fail    map[string]bool
	seen    []string
}

func (e *stubEngine) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, text)
	if e.fail[text] {
		return nil, errors.New("embedding service unavailable")
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (e *stubEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *stubEngine) Dimensions() int { return 3 }
func (e *stubEngine) Name() string    { return "stub" }

// fixedRepo returns the same results for every search and records queries
type fixedRepo struct {
	mu      sync.Mutex
	matches []statute.Match
	queries []statute.Query
}

func (r *fixedRepo) Search(_ context.Context, q statute.Query) ([]statute.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, q)
	return r.matches, nil
}

func (r *fixedRepo) Upsert(context.Context, []model.Provision) error { return nil }

func seededRepo(t *testing.T) *statute.MemoryRepository {
	t.Helper()
	repo := statute.NewMemoryRepository()
	require.NoError(t, repo.Upsert(context.Background(), []model.Provision{
		{ArticleNumber: strPtr("140"), Category: "labor", Content: "Wages are paid on the day of dismissal.", Embedding: []float32{1, 0, 0}},
		{ArticleNumber: strPtr("81"), Category: "labor", Content: "Dismissal requires notice.", Embedding: []float32{0.9, 0.1, 0}},
		{ArticleNumber: strPtr("15"), Category: "civil", Content: "Damages are recoverable in full.", Embedding: []float32{0, 1, 0}},
		{ArticleNumber: strPtr("330"), Category: "civil", Content: "Penalties may be reduced.", Embedding: []float32{0.1, 0.9, 0}},
	}))
	return repo
}

func TestRetrieve_AggregatesInClaimOrder(t *testing.T) {
	claims := []model.Claim{
		{ClaimType: "unpaid_wages", Description: "salary not paid"},
		{ClaimType: "damages", Description: "lost income"},
	}
	engine := &stubEngine{vectors: map[string][]float32{
		claims[0].Query(): {1, 0, 0},
		claims[1].Query(): {0, 1, 0},
	}}

	r := NewRetriever(engine, seededRepo(t), DefaultOptions())
	matches, err := r.Retrieve(context.Background(), claims)
	require.NoError(t, err)
	require.Len(t, matches, 4)

	assert.Equal(t, "unpaid_wages", matches[0].ClaimType)
	assert.Equal(t, "unpaid_wages", matches[1].ClaimType)
	assert.Equal(t, "damages", matches[2].ClaimType)
	assert.Equal(t, "damages", matches[3].ClaimType)
	assert.Equal(t, "140", matches[0].Article())
	assert.Equal(t, "15", matches[2].Article())

	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Similarity, 0.4)
		assert.LessOrEqual(t, m.Similarity, 1.0)
	}
}

func TestRetrieve_SkipsFailedClaim(t *testing.T) {
	claims := []model.Claim{
		{ClaimType: "unpaid_wages", Description: "salary not paid"},
		{ClaimType: "harassment", Description: "hostile workplace"},
		{ClaimType: "damages", Description: "lost income"},
	}
	engine := &stubEngine{
		vectors: map[string][]float32{
			claims[0].Query(): {1, 0, 0},
			claims[2].Query(): {0, 1, 0},
		},
		fail: map[string]bool{claims[1].Query(): true},
	}

	r := NewRetriever(engine, seededRepo(t), DefaultOptions())
	matches, err := r.Retrieve(context.Background(), claims)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	types := map[string]bool{}
	for _, m := range matches {
		types[m.ClaimType] = true
	}
	assert.True(t, types["unpaid_wages"])
	assert.True(t, types["damages"])
	assert.False(t, types["harassment"])
	assert.Equal(t, "unpaid_wages", matches[0].ClaimType)
	assert.Equal(t, "damages", matches[len(matches)-1].ClaimType)
}

func TestRetrieve_TotalOutage(t *testing.T) {
	claims := []model.Claim{{ClaimType: "a", Description: "x"}, {ClaimType: "b", Description: "y"}}
	engine := &stubEngine{fail: map[string]bool{claims[0].Query(): true, claims[1].Query(): true}}

	r := NewRetriever(engine, seededRepo(t), DefaultOptions())
	_, err := r.Retrieve(context.Background(), claims)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrievalOutage)
}

func TestRetrieve_SingleClaimFailureIsNotFatal(t *testing.T) {
	claims := []model.Claim{model.SentinelClaim("My employer never paid me")}
	engine := &stubEngine{fail: map[string]bool{claims[0].Query(): true}}

	r := NewRetriever(engine, seededRepo(t), DefaultOptions())
	matches, err := r.Retrieve(context.Background(), claims)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestRetrieve_NoClaims(t *testing.T) {
	r := NewRetriever(&stubEngine{}, statute.NewMemoryRepository(), DefaultOptions())
	matches, err := r.Retrieve(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestRetrieve_ClampsSimilarityAndTruncates(t *testing.T) {
	repo := &fixedRepo{matches: []statute.Match{
		{ArticleNumber: strPtr("1"), Category: "labor", Content: strings.Repeat("я", 20), Similarity: 1.0000000000000002},
		{ArticleNumber: strPtr("2"), Category: "labor", Content: "solid", Similarity: 0.9},
		{ArticleNumber: strPtr("3"), Category: "labor", Content: "broken", Similarity: math.NaN()},
		{ArticleNumber: strPtr("4"), Category: "labor", Content: "weak", Similarity: 0.2},
	}}
	opts := DefaultOptions()
	opts.ContentLimit = 5

	r := NewRetriever(&stubEngine{}, repo, opts)
	matches, err := r.Retrieve(context.Background(), []model.Claim{{ClaimType: "wages", Description: "x"}})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "1", matches[0].Article())
	assert.Equal(t, 1.0, matches[0].Similarity)
	assert.Equal(t, strings.Repeat("я", 5), matches[0].Content)
	assert.Equal(t, "2", matches[1].Article())

	require.Len(t, repo.queries, 1)
	assert.Equal(t, 3, repo.queries[0].Limit)
	assert.Equal(t, 0.4, repo.queries[0].Threshold)
	assert.Empty(t, repo.queries[0].Category)
}

func TestRetrieve_KeepsExactMatches(t *testing.T) {
	vectors := [][]float32{
		{0.33, 0.33, 0.33},
		{0.1, 0.7, 0.2},
		{0.9, 0.05, 0.05},
		{0.577, 0.577, 0.577},
		{0.3, 0.3, 0.4},
	}

	repo := statute.NewMemoryRepository()
	var provisions []model.Provision
	for i, v := range vectors {
		provisions = append(provisions, model.Provision{
			ArticleNumber: strPtr(fmt.Sprint(i)),
			Category:      "labor",
			Content:       fmt.Sprintf("provision %d", i),
			Embedding:     v,
		})
	}
	require.NoError(t, repo.Upsert(context.Background(), provisions))

	for i, v := range vectors {
		claim := model.Claim{ClaimType: fmt.Sprintf("claim_%d", i), Description: "x"}
		engine := &stubEngine{vectors: map[string][]float32{claim.Query(): v}}

		r := NewRetriever(engine, repo, DefaultOptions())
		matches, err := r.Retrieve(context.Background(), []model.Claim{claim})
		require.NoError(t, err)
		require.NotEmpty(t, matches, "vector %d found no match for itself", i)

		var found bool
		for _, m := range matches {
			assert.LessOrEqual(t, m.Similarity, 1.0)
			if m.Article() == fmt.Sprint(i) {
				found = true
			}
		}
		assert.True(t, found, "vector %d: exact provision missing", i)
	}
}

func TestRetrieve_Dedupe(t *testing.T) {
	repo := &fixedRepo{matches: []statute.Match{
		{ArticleNumber: strPtr("140"), Category: "labor", Content: "wages", Similarity: 0.8},
	}}
	claims := []model.Claim{{ClaimType: "a", Description: "x"}, {ClaimType: "b", Description: "y"}}

	r := NewRetriever(&stubEngine{}, repo, DefaultOptions())
	matches, err := r.Retrieve(context.Background(), claims)
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	opts := DefaultOptions()
	opts.Dedupe = true
	r = NewRetriever(&stubEngine{}, repo, opts)
	matches, err = r.Retrieve(context.Background(), claims)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].ClaimType)
}

func TestRetrieve_BoundedConcurrency(t *testing.T) {
	claims := make([]model.Claim, 12)
	for i := range claims {
		claims[i] = model.Claim{ClaimType: fmt.Sprintf("claim_%d", i), Description: "x"}
	}
	engine := &stubEngine{}
	opts := DefaultOptions()
	opts.Workers = 2

	r := NewRetriever(engine, &fixedRepo{matches: []statute.Match{{Category: "c", Content: "x", Similarity: 0.5}}}, opts)
	matches, err := r.Retrieve(context.Background(), claims)
	require.NoError(t, err)
	require.Len(t, matches, len(claims))
	for i, m := range matches {
		assert.Equal(t, claims[i].ClaimType, m.ClaimType)
	}
	assert.Len(t, engine.seen, len(claims))
}

func TestRetrieve_RoutesCategory(t *testing.T) {
	router, err := NewCategoryRouter([]model.CategoryRule{
		{Category: "labor", When: `claim.claim_type.contains("wage")`},
		{Category: "civil", When: `claim.amount_claimed > 1000.0`},
	})
	require.NoError(t, err)

	repo := &fixedRepo{}
	r := NewRetriever(&stubEngine{}, repo, DefaultOptions(), WithRouter(router))
	big := 5000.0
	_, err = r.Retrieve(context.Background(), []model.Claim{
		{ClaimType: "unpaid_wages", Description: "x"},
	})
	require.NoError(t, err)
	_, err = r.Retrieve(context.Background(), []model.Claim{
		{ClaimType: "damages", Description: "x", AmountClaimed: &big},
	})
	require.NoError(t, err)
	_, err = r.Retrieve(context.Background(), []model.Claim{
		{ClaimType: "other", Description: "x"},
	})
	require.NoError(t, err)

	require.Len(t, repo.queries, 3)
	assert.Equal(t, "labor", repo.queries[0].Category)
	assert.Equal(t, "civil", repo.queries[1].Category)
	assert.Equal(t, "", repo.queries[2].Category)
}

func TestNewCategoryRouter_Invalid(t *testing.T) {
	_, err := NewCategoryRouter([]model.CategoryRule{{Category: "labor", When: `claim.claim_type ==`}})
	assert.Error(t, err)

	_, err = NewCategoryRouter([]model.CategoryRule{{When: `true`}})
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "abc", truncate("abc", 0))
}
