package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"yqhp/quality-gate/internal/parser"
	"yqhp/quality-gate/internal/qualitygate"
	"yqhp/quality-gate/pkg/logger"
	"yqhp/quality-gate/pkg/types"
)

type evaluateOptions struct {
	metricsPath     string
	samplesPath     string
	duration        time.Duration
	thresholdsPath  string
	baselinePath    string
	qualityGatePath string

	testName    string
	environment string

	comparisonMetric string
	addGreen         bool
	dataErrorPolicy  string
	useDefaults      bool

	missedThresholdsRate float64
	degradationRate      float64
	errorRate            float64

	fetch   bool
	outJSON string
	noFail  bool
}

func newEvaluateCmd(g *globalOptions) *cobra.Command {
	o := &evaluateOptions{}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a test run against SLA thresholds and a baseline",
		Long: `Evaluate reads the aggregated metrics of one run and checks them against
SLA thresholds and a baseline run. The verdict fails when a configured
limit on the missed thresholds rate, the degradation rate or the error
rate is exceeded; the command then exits with status 2.

Thresholds and baseline are read from files, or fetched from the platform
with --fetch when no file is given.`,
		Example: `  # SLA and baseline from files
  quality-gate evaluate --metrics results.json --thresholds thresholds.json \
    --baseline baseline.json --quality-gate gate.yaml --missed-thresholds-rate 20

  # Thresholds and baseline from the platform
  quality-gate evaluate --metrics results.json --quality-gate gate.yaml \
    --test checkout --env staging --fetch --set platform.url=https://perf.example.com \
    --set platform.project_id=3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, g)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.metricsPath, "metrics", "", "aggregated metrics of the current run (JSON or YAML)")
	f.StringVar(&o.samplesPath, "samples", "", "raw response samples, aggregated before evaluation")
	f.DurationVar(&o.duration, "duration", 0, "test duration used for throughput with --samples")
	f.StringVar(&o.thresholdsPath, "thresholds", "", "SLA thresholds file")
	f.StringVar(&o.baselinePath, "baseline", "", "baseline metrics file")
	f.StringVar(&o.qualityGatePath, "quality-gate", "", "quality gate settings file")
	f.StringVar(&o.testName, "test", "", "test name")
	f.StringVar(&o.environment, "env", "", "test environment")
	f.StringVar(&o.comparisonMetric, "comparison-metric", "", "response time aggregation to compare (mean, pct50, pct75, pct90, pct95, pct99)")
	f.BoolVar(&o.addGreen, "add-green", false, "record passing checks too")
	f.StringVar(&o.dataErrorPolicy, "data-error-policy", "", "rows with missing fields: abort or skip")
	f.BoolVar(&o.useDefaults, "use-defaults", false, "mark the SLA result as using default thresholds")
	f.Float64Var(&o.missedThresholdsRate, "missed-thresholds-rate", 0, "allowed SLA violation rate in percent")
	f.Float64Var(&o.degradationRate, "degradation-rate", 0, "allowed baseline degradation rate in percent")
	f.Float64Var(&o.errorRate, "error-rate", 0, "allowed error rate in percent")
	f.BoolVar(&o.fetch, "fetch", false, "fetch missing thresholds and baseline from the platform")
	f.StringVar(&o.outJSON, "out-json", "", "write the report to a JSON file")
	f.BoolVar(&o.noFail, "no-fail", false, "exit 0 even when the verdict fails")
	cmd.MarkFlagsOneRequired("metrics", "samples")
	cmd.MarkFlagsMutuallyExclusive("metrics", "samples")

	return cmd
}

// input assembles the engine input from files, the platform and flags.
func (o *evaluateOptions) input(ctx context.Context, cmd *cobra.Command, g *globalOptions) (qualitygate.Input, []parser.ConfigIssue, error) {
	cfg := g.cfg
	in := qualitygate.Input{
		TestName:         o.testName,
		Environment:      o.environment,
		ComparisonMetric: cfg.Evaluation.ComparisonMetric,
		AddGreen:         cfg.Evaluation.AddGreen,
		Debug:            cfg.Evaluation.Debug,
		UseDefaults:      cfg.Evaluation.UseDefaults,
		DataErrorPolicy:  qualitygate.ParseDataErrorPolicy(cfg.Evaluation.DataErrorPolicy),
		Limits:           cfg.QualityGateLimits(),
	}

	flags := cmd.Flags()
	if flags.Changed("comparison-metric") {
		in.ComparisonMetric = o.comparisonMetric
	}
	if flags.Changed("add-green") {
		in.AddGreen = o.addGreen
	}
	if flags.Changed("use-defaults") {
		in.UseDefaults = o.useDefaults
	}
	if flags.Changed("data-error-policy") {
		if o.dataErrorPolicy != string(qualitygate.DataErrorAbort) && o.dataErrorPolicy != string(qualitygate.DataErrorSkip) {
			return in, nil, fmt.Errorf("invalid --data-error-policy %q, must be abort or skip", o.dataErrorPolicy)
		}
		in.DataErrorPolicy = qualitygate.DataErrorPolicy(o.dataErrorPolicy)
	}
	if flags.Changed("missed-thresholds-rate") {
		in.Limits.MissedThresholdsRate = &o.missedThresholdsRate
	}
	if flags.Changed("degradation-rate") {
		in.Limits.DegradationRate = &o.degradationRate
	}
	if flags.Changed("error-rate") {
		in.Limits.ErrorRate = &o.errorRate
	}

	var err error
	if o.samplesPath != "" {
		in.Records, err = aggregateSamples(o.samplesPath, o.duration)
	} else {
		in.Records, err = parser.ReadRecordsFile(o.metricsPath)
	}
	if err != nil {
		return in, nil, err
	}
	if o.thresholdsPath != "" {
		if in.Thresholds, err = parser.ReadThresholdsFile(o.thresholdsPath); err != nil {
			return in, nil, err
		}
	}
	if o.baselinePath != "" {
		if in.Baseline, err = parser.ReadBaselineFile(o.baselinePath); err != nil {
			return in, nil, err
		}
	}

	var issues []parser.ConfigIssue
	if o.qualityGatePath != "" {
		if in.Config, issues, err = parser.ReadQualityGateConfigFile(o.qualityGatePath); err != nil {
			return in, nil, err
		}
	}

	if o.fetch {
		if err := o.fetchMissing(ctx, g, &in); err != nil {
			return in, nil, err
		}
	}
	return in, issues, nil
}

func (o *evaluateOptions) fetchMissing(ctx context.Context, g *globalOptions, in *qualitygate.Input) error {
	client, err := newPlatformClient(g.cfg)
	if err != nil {
		return err
	}
	if client == nil {
		return fmt.Errorf("--fetch requires platform.url and platform.project_id")
	}

	if o.thresholdsPath == "" {
		if in.Thresholds, err = client.FetchThresholds(ctx, o.testName, o.environment); err != nil {
			return err
		}
	}
	if o.baselinePath == "" {
		if in.Baseline, err = client.FetchBaseline(ctx, o.testName, o.environment); err != nil {
			return err
		}
	}
	return nil
}

func (o *evaluateOptions) run(cmd *cobra.Command, g *globalOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	in, issues, err := o.input(ctx, cmd, g)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		logger.Debug("Quality gate setting defaulted", "issue", issue.String())
	}

	report, err := qualitygate.NewEngine().Run(in)
	if err != nil {
		return err
	}

	manager, err := newReportManager(ctx, g.cfg, !g.quiet, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	reportErr := manager.Report(ctx, report)
	if err := manager.Close(ctx); err != nil && reportErr == nil {
		reportErr = err
	}
	if reportErr != nil {
		logger.Warn("Reporting failed", "error", reportErr)
	}

	if o.outJSON != "" {
		if err := writeJSON(o.outJSON, report); err != nil {
			return err
		}
	}

	if report.Verdict.Status == types.StatusFailed && !o.noFail {
		return ErrGateFailed
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
