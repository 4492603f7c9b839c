// Package retrieve finds the legal provisions relevant to each extracted claim.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ppiankov/docket/internal/embedding"
	"github.com/ppiankov/docket/internal/metrics"
	"github.com/ppiankov/docket/internal/model"
	"github.com/ppiankov/docket/internal/statute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrRetrievalOutage means retrieval failed for every one of several claims
var ErrRetrievalOutage = errors.New("statute retrieval unavailable")

// Options tunes retrieval
type Options struct {
	MatchCount   int     // Matches per claim (default 3)
	Threshold    float64 // Minimum similarity (default 0.4)
	ContentLimit int     // Content runes kept per match (default 500)
	Workers      int     // Concurrent claims (default 4)
	Dedupe       bool    // Drop repeated (article_number, category) pairs
}

// DefaultOptions returns the standard retrieval settings
func DefaultOptions() Options {
	return Options{MatchCount: 3, Threshold: 0.4, ContentLimit: 500, Workers: 4}
}

// Retriever embeds claims and searches the statute repository
type Retriever struct {
	engine embedding.Engine
	repo   statute.Repository
	router *CategoryRouter
	opts   Options
	logger *zap.Logger
}

// Option configures a Retriever
type Option func(*Retriever)

// WithRouter enables category filtering by rule
func WithRouter(router *CategoryRouter) Option {
	return func(r *Retriever) { r.router = router }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRetriever creates a retriever. Zero-valued options take their defaults.
func NewRetriever(engine embedding.Engine, repo statute.Repository, opts Options, options ...Option) *Retriever {
	def := DefaultOptions()
	if opts.MatchCount <= 0 {
		opts.MatchCount = def.MatchCount
	}
	if opts.Threshold <= 0 {
		opts.Threshold = def.Threshold
	}
	if opts.ContentLimit <= 0 {
		opts.ContentLimit = def.ContentLimit
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}

	r := &Retriever{engine: engine, repo: repo, opts: opts, logger: zap.NewNop()}
	for _, o := range options {
		o(r)
	}
	return r
}

type slot struct {
	matches []model.StatuteMatch
	err     error
}

// Retrieve returns matches for claims, aggregated in claim order.
// Claims whose embedding or search fails are skipped. Only when two or more
// claims were requested and all of them failed does the error wrap
// ErrRetrievalOutage; a lone failed claim yields no matches.
func (r *Retriever) Retrieve(ctx context.Context, claims []model.Claim) ([]model.StatuteMatch, error) {
	if len(claims) == 0 {
		return []model.StatuteMatch{}, nil
	}

	slots := make([]slot, len(claims))

	var g errgroup.Group
	g.SetLimit(r.opts.Workers)
	for i, claim := range claims {
		g.Go(func() error {
			matches, err := r.retrieveClaim(ctx, claim)
			slots[i] = slot{matches: matches, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}

	var (
		out      = []model.StatuteMatch{}
		failures int
		lastErr  error
	)
	for i, s := range slots {
		if s.err != nil {
			failures++
			lastErr = s.err
			metrics.RetrievalFailuresTotal.Inc()
			r.logger.Warn("statute retrieval failed for claim, skipping",
				zap.Int("claim_index", i),
				zap.String("claim_type", claims[i].ClaimType),
				zap.Error(s.err))
			continue
		}
		out = append(out, s.matches...)
	}

	if failures == len(claims) && len(claims) > 1 {
		return nil, fmt.Errorf("%w: %d of %d claims failed: %w", ErrRetrievalOutage, failures, len(claims), lastErr)
	}

	if r.opts.Dedupe {
		out = dedupe(out)
	}

	metrics.RetrievedStatutes.Observe(float64(len(out)))
	r.logger.Debug("statutes retrieved",
		zap.Int("claims", len(claims)),
		zap.Int("failed_claims", failures),
		zap.Int("matches", len(out)))

	return out, nil
}

func (r *Retriever) retrieveClaim(ctx context.Context, claim model.Claim) ([]model.StatuteMatch, error) {
	vector, err := r.engine.Embed(ctx, claim.Query())
	if err != nil {
		return nil, fmt.Errorf("embed claim %q: %w", claim.ClaimType, err)
	}

	found, err := r.repo.Search(ctx, statute.Query{
		Embedding: vector,
		Threshold: r.opts.Threshold,
		Limit:     r.opts.MatchCount,
		Category:  r.router.Route(claim),
	})
	if err != nil {
		return nil, fmt.Errorf("search statutes for %q: %w", claim.ClaimType, err)
	}

	matches := make([]model.StatuteMatch, 0, len(found))
	for _, m := range found {
		// Cosine of identical vectors can round just past 1
		if math.IsNaN(m.Similarity) || m.Similarity < r.opts.Threshold {
			continue
		}
		matches = append(matches, model.StatuteMatch{
			ClaimType:     claim.ClaimType,
			ArticleNumber: m.ArticleNumber,
			Category:      m.Category,
			Content:       truncate(m.Content, r.opts.ContentLimit),
			Similarity:    math.Min(1, m.Similarity),
		})
		if len(matches) == r.opts.MatchCount {
			break
		}
	}
	return matches, nil
}

// truncate keeps at most limit runes of s
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// dedupe keeps the highest-similarity match per (article_number, category),
// at the position of its first occurrence
func dedupe(matches []model.StatuteMatch) []model.StatuteMatch {
	type key struct{ article, category string }

	index := make(map[key]int, len(matches))
	out := make([]model.StatuteMatch, 0, len(matches))
	for _, m := range matches {
		k := key{m.Article(), m.Category}
		if m.ArticleNumber == nil {
			k.article = "\x00" + m.Content
		}
		if i, ok := index[k]; ok {
			if m.Similarity > out[i].Similarity {
				out[i] = m
			}
			continue
		}
		index[k] = len(out)
		out = append(out, m)
	}
	return out
}
