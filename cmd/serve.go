package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"yqhp/quality-gate/api/rest"
	"yqhp/quality-gate/internal/config"
	"yqhp/quality-gate/internal/qualitygate"
	"yqhp/quality-gate/pkg/logger"
)

type serveOptions struct {
	address string
}

func newServeCmd(g *globalOptions) *cobra.Command {
	o := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the quality gate REST API",
		Long: `Serve exposes the evaluation engines over HTTP:

  POST /api/v1/quality-gate/evaluate   full evaluation and verdict
  POST /api/v1/quality-gate/sla        SLA thresholds only
  POST /api/v1/quality-gate/baseline   baseline comparison only
  POST /api/v1/quality-gate/scoped     UI thresholds against page samples
  GET  /health, /ready, /metrics`,
		Example: `  quality-gate serve --address :8080
  quality-gate serve --config config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, g)
		},
	}

	cmd.Flags().StringVar(&o.address, "address", "", "HTTP listen address (overrides server.address)")
	return cmd
}

// restConfig maps the service configuration onto the server.
func restConfig(cfg *config.Config) *rest.Config {
	return &rest.Config{
		Address:       cfg.Server.Address,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		EnableCORS:    cfg.Server.EnableCORS,
		EnableMetrics: cfg.Server.EnableMetrics,
		BodyLimit:     cfg.Server.BodyLimit,
		APIKey:        cfg.Server.APIKey,
		Defaults: rest.Defaults{
			ComparisonMetric: cfg.Evaluation.ComparisonMetric,
			AddGreen:         cfg.Evaluation.AddGreen,
			Debug:            cfg.Evaluation.Debug,
			UseDefaults:      cfg.Evaluation.UseDefaults,
			DataErrorPolicy:  qualitygate.ParseDataErrorPolicy(cfg.Evaluation.DataErrorPolicy),
			Limits:           cfg.QualityGateLimits(),
		},
	}
}

func (o *serveOptions) run(cmd *cobra.Command, g *globalOptions) error {
	cfg := g.cfg
	if o.address != "" {
		cfg.Server.Address = o.address
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []rest.Option
	client, err := newPlatformClient(cfg)
	if err != nil {
		return err
	}
	if client != nil {
		opts = append(opts, rest.WithPlatform(client))
	}

	manager, err := newReportManager(ctx, cfg, false, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	opts = append(opts, rest.WithReporters(manager))

	server := rest.NewServer(restConfig(cfg), opts...)

	if !g.quiet {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, Banner, Version)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  HTTP address: %s\n", cfg.Server.Address)
		fmt.Fprintf(out, "  Platform: %v\n", client != nil)
		fmt.Fprintf(out, "  Reporters: %s\n", reporterNames(manager))
		fmt.Fprintln(out)
	}
	logger.Info("Starting REST API", "address", cfg.Server.Address)

	serveErr := server.StartWithContext(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := manager.Close(closeCtx); err != nil {
		logger.Warn("Closing reporters failed", "error", err)
	}

	if serveErr != nil {
		return fmt.Errorf("serve: %w", serveErr)
	}
	logger.Info("REST API stopped")
	return nil
}
