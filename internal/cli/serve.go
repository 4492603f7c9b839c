package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ppiankov/docket/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis HTTP service",
	Long: `Serve exposes the analysis pipeline over HTTP:

  POST /api/v1/analyze   analyze a complaint (rate limited per caller)
  GET  /api/v1/health    dependency health
  GET  /metrics          Prometheus metrics

Example:
  docket serve
  docket serve --addr :9090
  DOCKET_RATE_LIMIT_BACKEND=redis docket serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	bindFlag(serveCmd, "addr", "server.addr")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close resources", zap.Error(err))
		}
	}()

	opts := []server.Option{server.WithLogger(logger)}
	if a.governor != nil {
		opts = append(opts, server.WithGovernor(a.governor), server.WithIdentifier(a.identity))
		policy := a.governor.Policy()
		logger.Info("rate governor enabled",
			zap.String("backend", cfg.RateLimit.Backend),
			zap.Duration("window", policy.Window),
			zap.Int("max_requests", policy.MaxRequests),
			zap.Int("trusted_keys", len(cfg.RateLimit.TrustedKeys)))
	}
	for name, check := range a.checks {
		opts = append(opts, server.WithHealthCheck(name, check))
	}

	return server.New(a.pipeline, cfg.Server, opts...).Run(ctx)
}
