package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/duke-git/lancet/v2/maputil"
	"github.com/spf13/cobra"

	"yqhp/quality-gate/internal/parser"
	"yqhp/quality-gate/internal/thresholds"
	"yqhp/quality-gate/pkg/types"
)

type scopedOptions struct {
	thresholdsPath string
	stepsPath      string
	allPath        string
	reportID       string
	testName       string
	environment    string
	outJSON        string
	noFail         bool
}

func newScopedCmd(g *globalOptions) *cobra.Command {
	o := &scopedOptions{}

	cmd := &cobra.Command{
		Use:   "scoped",
		Short: "Evaluate UI thresholds against per-page samples",
		Long: `Scoped evaluates thresholds whose scope is "all", "every" or a page name
against raw per-page sample lists. "every" thresholds apply to each page,
page thresholds to their page only, and "all" thresholds to whole-test
values. The command exits with status 2 when any threshold fails.`,
		Example: `  quality-gate scoped --thresholds thresholds.json --steps results.json \
    --all all.json --test home --env prod

  # thresholds from the platform
  quality-gate scoped --report-id 42 --steps results.json --test home --env prod`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, g)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.thresholdsPath, "thresholds", "", "thresholds file")
	f.StringVar(&o.stepsPath, "steps", "", "per-page sample lists")
	f.StringVar(&o.allPath, "all", "", "whole-test metric values")
	f.StringVar(&o.reportID, "report-id", "", "fetch thresholds for this UI report from the platform")
	f.StringVar(&o.testName, "test", "", "test name")
	f.StringVar(&o.environment, "env", "", "test environment")
	f.StringVar(&o.outJSON, "out-json", "", "write the result to a JSON file")
	f.BoolVar(&o.noFail, "no-fail", false, "exit 0 even when thresholds fail")
	_ = cmd.MarkFlagRequired("steps")

	return cmd
}

func (o *scopedOptions) loadThresholds(ctx context.Context, g *globalOptions) ([]types.ThresholdDefinition, error) {
	if o.thresholdsPath != "" {
		return parser.ReadThresholdsFile(o.thresholdsPath)
	}
	if o.reportID == "" {
		return nil, fmt.Errorf("either --thresholds or --report-id is required")
	}
	client, err := newPlatformClient(g.cfg)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("--report-id requires platform.url and platform.project_id")
	}
	return client.FetchUIThresholds(ctx, o.reportID)
}

func (o *scopedOptions) run(cmd *cobra.Command, g *globalOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ths, err := o.loadThresholds(ctx, g)
	if err != nil {
		return err
	}
	steps, err := parser.ReadStepsFile(o.stepsPath)
	if err != nil {
		return err
	}
	var all map[string]float64
	if o.allPath != "" {
		if all, err = parser.ReadAllResultsFile(o.allPath); err != nil {
			return err
		}
	}

	result := thresholds.NewEngine().Evaluate(ths, o.testName, o.environment, steps, all)

	if !g.quiet {
		groups := thresholds.GroupByScope(thresholds.FilterByTestAndEnv(ths, o.testName, o.environment))
		printScoped(cmd.OutOrStdout(), result, groups)
	}
	if o.outJSON != "" {
		if err := writeJSON(o.outJSON, result); err != nil {
			return err
		}
	}

	if result.Failed > 0 && !o.noFail {
		return ErrGateFailed
	}
	return nil
}

func printScoped(w io.Writer, res *types.ScopedResult, groups map[string][]types.ThresholdDefinition) {
	scopes := maputil.Keys(groups)
	sort.Strings(scopes)
	counts := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		counts = append(counts, fmt.Sprintf("%s=%d", scope, len(groups[scope])))
	}
	fmt.Fprintf(w, "Scopes: %s\n", strings.Join(counts, " "))
	fmt.Fprintf(w, "Thresholds: %d checked, %d failed\n", res.Total, res.Failed)
	for _, f := range res.FailedThresholds {
		where := f.Scope
		if f.Page != "" {
			where = f.Scope + "/" + f.Page
		}
		agg := f.Aggregation
		if agg == "" {
			agg = "-"
		}
		fmt.Fprintf(w, "  %s %s %s: %s %s %s\n",
			where, f.Target, agg,
			strconv.FormatFloat(f.ActualValue, 'f', -1, 64),
			f.Comparison,
			strconv.FormatFloat(f.Value, 'f', -1, 64))
	}
}
