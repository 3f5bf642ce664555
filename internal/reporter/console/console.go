// Package console renders quality gate reports as terminal tables.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"yqhp/quality-gate/pkg/types"
)

// Config holds configuration for the console reporter.
type Config struct {
	// ShowGreen lists passing checks as well as violations.
	ShowGreen bool `yaml:"show_green"`
	// ShowBaseline renders the baseline degradation table.
	ShowBaseline bool `yaml:"show_baseline"`
	// ColorOutput enables colored output.
	ColorOutput bool `yaml:"color_output"`
	// Writer is the output writer (defaults to os.Stdout).
	Writer io.Writer `yaml:"-"`
}

// DefaultConfig returns the default console reporter configuration.
func DefaultConfig() *Config {
	return &Config{
		ShowGreen:    false,
		ShowBaseline: true,
		ColorOutput:  true,
		Writer:       os.Stdout,
	}
}

var (
	colorGreen = lipgloss.Color("#2ECC71")
	colorRed   = lipgloss.Color("#E74C3C")
	colorTitle = lipgloss.Color("#20B9B4")
)

// Reporter prints one block per report.
type Reporter struct {
	config   *Config
	writer   io.Writer
	renderer *lipgloss.Renderer

	mu          sync.Mutex
	reported    int
	failed      int
	initialized bool
}

// New creates a new console reporter.
func New(config *Config) *Reporter {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	return &Reporter{
		config:   config,
		writer:   config.Writer,
		renderer: lipgloss.NewRenderer(config.Writer),
	}
}

// NewFactory returns a factory function for creating console reporters.
func NewFactory() func(config map[string]any) (interface{ Name() string }, error) {
	return func(config map[string]any) (interface{ Name() string }, error) {
		cfg := DefaultConfig()
		if config != nil {
			if v, ok := config["show_green"].(bool); ok {
				cfg.ShowGreen = v
			}
			if v, ok := config["show_baseline"].(bool); ok {
				cfg.ShowBaseline = v
			}
			if v, ok := config["color_output"].(bool); ok {
				cfg.ColorOutput = v
			}
		}
		return New(cfg), nil
	}
}

// Name returns the reporter name.
func (r *Reporter) Name() string {
	return "console"
}

// Init initializes the reporter.
func (r *Reporter) Init(ctx context.Context, config map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return fmt.Errorf("reporter already initialized")
	}
	r.initialized = true
	return nil
}

// Report prints the report.
func (r *Reporter) Report(ctx context.Context, report *types.QualityGateReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return fmt.Errorf("reporter not initialized")
	}
	if report == nil {
		return nil
	}

	r.reported++
	if report.Verdict.Status != types.StatusSuccess {
		r.failed++
	}
	_, err := io.WriteString(r.writer, r.Render(report))
	return err
}

// Flush is a no-op; output is unbuffered.
func (r *Reporter) Flush(ctx context.Context) error {
	return nil
}

// Close prints a one-line summary when more than one report was printed.
func (r *Reporter) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return nil
	}
	if r.reported > 1 {
		fmt.Fprintf(r.writer, "Reports: %d, failed: %d\n", r.reported, r.failed)
	}
	r.initialized = false
	return nil
}

// Render formats a report: header, SLA table, baseline table, verdict.
func (r *Reporter) Render(report *types.QualityGateReport) string {
	var b strings.Builder

	title := "Quality Gate"
	if report.TestName != "" {
		title += ": " + report.TestName
		if report.Environment != "" {
			title += " (" + report.Environment + ")"
		}
	}
	b.WriteString(r.style(colorTitle).Bold(r.config.ColorOutput).Render(title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Comparison metric: %s\n", report.ComparisonMetric)

	if sla := report.SLA; sla != nil && sla.Configured {
		fmt.Fprintf(&b, "\nSLA: %d checked, %d violated (%s%%)\n",
			sla.TotalChecked, sla.TotalViolated, formatFloat(sla.ViolationRate))
		if rows := r.slaRows(sla); len(rows) > 0 {
			b.WriteString(r.table(
				[]string{"Request", "Target", "Agg", "Metric", "Op", "Threshold", "Result"},
				rows, 6))
			b.WriteString("\n")
		}
		if len(sla.MissingTargets) > 0 {
			missing := make([]string, len(sla.MissingTargets))
			for i, t := range sla.MissingTargets {
				missing[i] = string(t)
			}
			fmt.Fprintf(&b, "No thresholds configured for: %s\n", strings.Join(missing, ", "))
		}
	} else {
		b.WriteString("\nSLA: not configured\n")
	}

	if bl := report.Baseline; bl != nil && bl.Configured && r.config.ShowBaseline {
		fmt.Fprintf(&b, "\nBaseline: %d compared, %d degraded (%s%%)\n",
			bl.TotalComparisons, bl.TotalViolated, formatFloat(bl.DegradationRate))
		if len(bl.Degradations) > 0 {
			rows := make([][]string, 0, len(bl.Degradations))
			for _, d := range bl.Degradations {
				rows = append(rows, []string{
					d.RequestName,
					string(d.Metric),
					formatFloat(d.Current),
					formatFloat(d.Baseline),
					formatFloat(d.BaselineWithDeviation),
					formatFloat(d.PercentChange) + "%",
				})
			}
			b.WriteString(r.table(
				[]string{"Request", "Metric", "Current", "Baseline", "Limit", "Change"},
				rows, -1))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(r.verdict(report.Verdict))
	b.WriteString("\n")
	return b.String()
}

func (r *Reporter) slaRows(sla *types.SLAResult) [][]string {
	rows := make([][]string, 0, len(sla.Violations))
	for _, v := range sla.Violations {
		if v.Color == types.ColorGreen && !r.config.ShowGreen {
			continue
		}
		rows = append(rows, []string{
			v.RequestName,
			string(v.Target),
			v.Aggregation,
			formatFloat(v.Metric),
			string(v.Comparison),
			formatFloat(v.Threshold),
			string(v.Color),
		})
	}
	return rows
}

// table renders rows; colorCol, when not negative, holds a red/green value
// used to color that cell.
func (r *Reporter) table(headers []string, rows [][]string, colorCol int) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := r.renderer.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(r.config.ColorOutput)
			}
			if col == colorCol && r.config.ColorOutput && row >= 0 && row < len(rows) {
				switch rows[row][col] {
				case string(types.ColorRed):
					return s.Foreground(colorRed)
				case string(types.ColorGreen):
					return s.Foreground(colorGreen)
				}
			}
			return s
		})
	return t.String()
}

func (r *Reporter) verdict(v types.Verdict) string {
	color := colorGreen
	if v.Status != types.StatusSuccess {
		color = colorRed
	}
	line := fmt.Sprintf("Status: %s (error rate %s%%)", v.Status, formatFloat(v.ErrorRate))
	out := r.style(color).Bold(r.config.ColorOutput).Render(line) + "\n"
	for _, reason := range v.FailedReasons {
		out += "  - " + reason + "\n"
	}
	return out
}

func (r *Reporter) style(color lipgloss.Color) lipgloss.Style {
	s := r.renderer.NewStyle()
	if r.config.ColorOutput {
		s = s.Foreground(color)
	}
	return s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
