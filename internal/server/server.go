// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/ppiankov/docket/internal/model"
	"github.com/ppiankov/docket/internal/pipeline"
	"github.com/ppiankov/docket/internal/ratelimit"
	"github.com/ppiankov/docket/internal/validate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// AnalysisIDHeader carries the per-request analysis ID
const AnalysisIDHeader = "X-Analysis-ID"

const rateLimitedMessage = "Too many requests. Please try again later."

// Analyzer runs one analysis
type Analyzer interface {
	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error)
}

// HealthCheck reports whether a dependency is usable
type HealthCheck func(ctx context.Context) error

// Server is the HTTP front end of the pipeline
type Server struct {
	analyzer Analyzer
	governor *ratelimit.Governor // nil disables rate limiting
	identity *ratelimit.Identifier
	cfg      model.ServerConfig
	logger   *zap.Logger
	checks   map[string]HealthCheck
	router   *chi.Mux
}

// Option configures a Server
type Option func(*Server)

// WithGovernor enables per-caller rate limiting on analysis requests
func WithGovernor(g *ratelimit.Governor) Option {
	return func(s *Server) { s.governor = g }
}

// WithIdentifier sets how callers are keyed for rate limiting
func WithIdentifier(id *ratelimit.Identifier) Option {
	return func(s *Server) {
		if id != nil {
			s.identity = id
		}
	}
}

// WithHealthCheck adds a named dependency check to the health endpoint
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server and its routes
func New(analyzer Analyzer, cfg model.ServerConfig, opts ...Option) *Server {
	s := &Server{
		analyzer: analyzer,
		cfg:      cfg,
		logger:   zap.NewNop(),
		checks:   make(map[string]HealthCheck),
		identity: ratelimit.NewIdentifier(nil),
	}
	for _, o := range opts {
		o(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if s.cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	if s.cfg.WriteTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.WriteTimeout))
	}

	r.Get("/api/v1/health", s.handleHealth)
	r.Post("/api/v1/analyze", s.handleAnalyze)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on cfg.Addr until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	deps := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			deps[name] = err.Error()
			continue
		}
		deps[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	respondJSON(w, status, map[string]any{
		"status":       state,
		"dependencies": deps,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	analysisID := uuid.NewString()
	w.Header().Set(AnalysisIDHeader, analysisID)
	logger := s.logger.With(
		zap.String("analysis_id", analysisID),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)

	if s.governor != nil {
		decision, err := s.governor.Check(r.Context(), s.identity.Identify(r))
		if err != nil {
			logger.Warn("rate governor unavailable, allowing request", zap.Error(err))
		} else if !decision.Allowed {
			retryAfter := decision.RetryAfterSeconds()
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			respondJSON(w, http.StatusTooManyRequests, model.FailureResponse{
				Success:    false,
				Error:      rateLimitedMessage,
				RetryAfter: retryAfter,
			})
			return
		}
	}

	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}

	var req model.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := validate.Request(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), req)
	if err != nil {
		status := pipeline.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			logger.Error("analysis failed", zap.Error(err))
		} else {
			logger.Warn("analysis rejected", zap.Int("status", status), zap.Error(err))
		}
		respondError(w, status, pipeline.UserMessage(err))
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, model.FailureResponse{Success: false, Error: message})
}

// requestLogger logs one line per request with zap
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("elapsed", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
