package cmd

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"yqhp/quality-gate/internal/aggregator"
	"yqhp/quality-gate/internal/parser"
	"yqhp/quality-gate/pkg/metrics"
	"yqhp/quality-gate/pkg/output"
	"yqhp/quality-gate/pkg/types"
)

type aggregateOptions struct {
	samplesPath string
	duration    time.Duration
	outJSON     string
}

func newAggregateCmd(g *globalOptions) *cobra.Command {
	o := &aggregateOptions{}

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Summarize raw response samples into metric records",
		Long: `Aggregate reads raw response samples and writes one record per request
plus the "All" row, in the format evaluate --metrics accepts. Throughput
uses --duration, or the span between the first and last sample time.`,
		Example: `  quality-gate aggregate --samples samples.json --duration 10m --out-json results.json`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := aggregateSamples(o.samplesPath, o.duration)
			if err != nil {
				return err
			}
			if o.outJSON != "" {
				return writeJSON(o.outJSON, records)
			}
			data, err := sonic.MarshalIndent(records, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal records: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.samplesPath, "samples", "", "raw response samples (JSON or YAML)")
	f.DurationVar(&o.duration, "duration", 0, "test duration used for throughput")
	f.StringVar(&o.outJSON, "out-json", "", "write the records to a JSON file")
	_ = cmd.MarkFlagRequired("samples")

	return cmd
}

// aggregateSamples streams the samples in path through an aggregator.
func aggregateSamples(path string, duration time.Duration) ([]types.MetricRecord, error) {
	samples, err := parser.ReadSamplesFile(path)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%s: no samples", path)
	}

	agg := aggregator.New()
	if err := agg.Start(); err != nil {
		return nil, err
	}
	agg.AddMetricSamples([]metrics.SampleContainer{metrics.Samples(samples)})
	if duration > 0 {
		agg.SetRunStatus(output.RunStatus{Duration: duration, Status: output.StatusCompleted})
	}
	if err := agg.Stop(); err != nil {
		return nil, err
	}
	return agg.Records(), nil
}
