package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"yqhp/quality-gate/internal/config"
	"yqhp/quality-gate/internal/platform"
	"yqhp/quality-gate/internal/reporter"
	"yqhp/quality-gate/internal/reporter/console"
)

// newReportManager creates the configured reporters. When withConsole is
// set and no console reporter is configured, one writing to out is added.
func newReportManager(ctx context.Context, cfg *config.Config, withConsole bool, out io.Writer) (*reporter.Manager, error) {
	registry, err := reporter.NewDefaultRegistry()
	if err != nil {
		return nil, err
	}
	manager := reporter.NewManager(registry)

	if err := manager.AddReportersFromConfig(ctx, cfg.Reporters); err != nil {
		return nil, err
	}

	if withConsole && !hasConsole(cfg.Reporters) {
		c := console.New(&console.Config{
			ShowGreen:    cfg.Evaluation.AddGreen,
			ShowBaseline: true,
			ColorOutput:  true,
			Writer:       out,
		})
		if err := c.Init(ctx, nil); err != nil {
			return nil, err
		}
		if err := manager.AddReporter(c); err != nil {
			return nil, err
		}
	}

	if err := manager.Start(ctx); err != nil {
		return nil, err
	}
	return manager, nil
}

// reporterNames lists the active reporters for the serve banner.
func reporterNames(m *reporter.Manager) string {
	names := make([]string, 0, m.GetReporterCount())
	for _, r := range m.GetReporters() {
		names = append(names, r.Name())
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

func hasConsole(configs []reporter.ReporterConfig) bool {
	for _, c := range configs {
		if c.Enabled && c.Type == reporter.ReporterTypeConsole {
			return true
		}
	}
	return false
}

// newPlatformClient returns nil when no platform is configured.
func newPlatformClient(cfg *config.Config) (*platform.Client, error) {
	pc := cfg.PlatformClientConfig()
	if !pc.Enabled() {
		return nil, nil
	}
	client, err := platform.New(pc)
	if err != nil {
		return nil, fmt.Errorf("platform client: %w", err)
	}
	return client, nil
}
