package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/docket/internal/cache"
	"github.com/ppiankov/docket/internal/embedding"
	"github.com/ppiankov/docket/internal/extract"
	"github.com/ppiankov/docket/internal/gap"
	"github.com/ppiankov/docket/internal/llm"
	"github.com/ppiankov/docket/internal/model"
	"github.com/ppiankov/docket/internal/pipeline"
	"github.com/ppiankov/docket/internal/ratelimit"
	"github.com/ppiankov/docket/internal/retrieve"
	"github.com/ppiankov/docket/internal/server"
	"github.com/ppiankov/docket/internal/statute"
	"github.com/ppiankov/docket/internal/verdict"
	"github.com/ppiankov/docket/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app holds the components built from configuration
type app struct {
	pipeline *pipeline.Pipeline
	governor *ratelimit.Governor
	identity *ratelimit.Identifier
	checks   map[string]server.HealthCheck
	closers  []func() error
}

// Close releases every connection opened by build
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildApp wires the pipeline and its supporting infrastructure from c
func buildApp(ctx context.Context, c *model.Config, logger *zap.Logger, opts ...pipeline.Option) (_ *app, err error) {
	a := &app{checks: make(map[string]server.HealthCheck)}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	var rdb *redis.Client
	if c.RateLimit.Backend == "redis" || (c.Cache.Enabled && c.Cache.Backend == "layered") {
		rdb = redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		a.closers = append(a.closers, rdb.Close)
		a.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	limiter := worker.NewLimiter(c.LLM.RequestsPerSecond, c.LLM.Burst)

	llmCfg := llm.ConfigFromModel(c.LLM)
	llmCfg.Logger = logger
	provider, err := llm.NewProvider(ctx, llmCfg)
	if err != nil {
		return nil, fmt.Errorf("reasoning provider: %w", err)
	}
	provider = llm.WithLimiter(provider, limiter)
	logger.Info("reasoning provider ready", zap.String("provider", provider.Name()))

	engine, err := buildEmbedder(ctx, c, rdb, logger)
	if err != nil {
		return nil, err
	}

	repo, err := a.buildRepository(ctx, c, engine, logger)
	if err != nil {
		return nil, err
	}

	var retrieveOpts []retrieve.Option
	retrieveOpts = append(retrieveOpts, retrieve.WithLogger(logger))
	if len(c.Statutes.CategoryRules) > 0 {
		router, err := retrieve.NewCategoryRouter(c.Statutes.CategoryRules)
		if err != nil {
			return nil, fmt.Errorf("category rules: %w", err)
		}
		retrieveOpts = append(retrieveOpts, retrieve.WithRouter(router))
	}
	retriever := retrieve.NewRetriever(engine, repo, retrieve.Options{
		MatchCount:   c.Statutes.MatchCount,
		Threshold:    c.Statutes.Threshold,
		ContentLimit: c.Statutes.ContentLimit,
		Workers:      c.Pipeline.RetrievalWorkers,
		Dedupe:       c.Statutes.Dedupe,
	}, retrieveOpts...)

	a.pipeline = pipeline.NewPipeline(
		extract.NewClaimExtractor(provider, logger),
		retriever,
		gap.NewAnalyzer(provider, logger),
		verdict.NewEngine(provider, logger),
		pipeline.Options{
			MaxRelevantLaws: c.Pipeline.MaxRelevantLaws,
			RequestTimeout:  c.Pipeline.RequestTimeout,
			EvidenceLimit:   c.Pipeline.EvidenceLimit,
		},
		append([]pipeline.Option{pipeline.WithLogger(logger)}, opts...)...,
	)

	if c.RateLimit.Enabled {
		a.governor, err = ratelimit.NewGovernor(rateLimitStore(c, rdb), ratelimit.Policy{
			Window:      c.RateLimit.Window,
			MaxRequests: c.RateLimit.MaxRequests,
		})
		if err != nil {
			return nil, err
		}
		a.identity = ratelimit.NewIdentifier(ratelimit.KeySet(c.RateLimit.TrustedKeys))
	}

	return a, nil
}

// rateLimitStore selects the governor's window store
func rateLimitStore(c *model.Config, rdb redis.Scripter) ratelimit.Store {
	if c.RateLimit.Backend == "redis" {
		return ratelimit.NewRedisStore(rdb, c.Redis.KeyPrefix)
	}
	return ratelimit.NewMemoryStore(c.RateLimit.SweepProbability)
}

func buildEmbedder(ctx context.Context, c *model.Config, rdb *redis.Client, logger *zap.Logger) (embedding.Engine, error) {
	engine, err := embedding.NewEngine(ctx, embedding.Config{
		Provider:   c.Embedding.Provider,
		Model:      c.Embedding.Model,
		APIKey:     c.Embedding.APIKey,
		BaseURL:    c.Embedding.BaseURL,
		Dimensions: c.Embedding.Dimensions,
		Timeout:    c.Embedding.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding engine: %w", err)
	}
	if !c.Cache.Enabled {
		return engine, nil
	}

	var store cache.Cache = cache.NewMemoryCache(c.Cache.TTL, 10*time.Minute)
	if c.Cache.Backend == "layered" {
		store = cache.NewLayeredCache(store, cache.NewRedisCache(rdb, c.Redis.KeyPrefix, c.Cache.TTL))
	}
	logger.Debug("embedding cache enabled",
		zap.String("backend", c.Cache.Backend),
		zap.Duration("ttl", c.Cache.TTL))
	return embedding.NewCachedEngine(engine, store, c.Cache.TTL), nil
}

func (a *app) buildRepository(ctx context.Context, c *model.Config, engine embedding.Engine, logger *zap.Logger) (statute.Repository, error) {
	switch c.Statutes.Backend {
	case "memory":
		provisions, err := statute.LoadSeedFile(c.Statutes.SeedFile)
		if err != nil {
			return nil, err
		}
		repo := statute.NewMemoryRepository()
		n, err := statute.Import(ctx, repo, engine, provisions)
		if err != nil {
			return nil, fmt.Errorf("seed statutes: %w", err)
		}
		logger.Info("statutes loaded", zap.String("backend", "memory"), zap.Int("provisions", n))
		return repo, nil

	default:
		db, err := statute.Open(ctx, c.Statutes.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.checks["statutes"] = dbCheck(db)
		return statute.NewPostgresRepository(db), nil
	}
}

func dbCheck(db *sql.DB) server.HealthCheck {
	return func(ctx context.Context) error { return db.PingContext(ctx) }
}
