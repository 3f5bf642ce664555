package file

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"yqhp/quality-gate/pkg/types"
)

// CSVConfig holds configuration for the CSV reporter.
type CSVConfig struct {
	// FilePath is the output file path.
	FilePath string `yaml:"file_path"`
	// Delimiter is the field delimiter (default: comma).
	Delimiter rune `yaml:"delimiter"`
	// IncludeHeader writes a header row.
	IncludeHeader bool `yaml:"include_header"`
	// BufferSize is the number of rows held before writing.
	BufferSize int `yaml:"buffer_size"`
}

// DefaultCSVConfig returns the default CSV reporter configuration.
func DefaultCSVConfig() *CSVConfig {
	return &CSVConfig{
		FilePath:      "quality-gate.csv",
		Delimiter:     ',',
		IncludeHeader: true,
		BufferSize:    100,
	}
}

// CSVReporter writes one row per SLA check and per baseline degradation.
type CSVReporter struct {
	config *CSVConfig
	file   *os.File
	writer *csv.Writer
	buffer [][]string
	mu     sync.Mutex

	initialized bool
}

// NewCSVReporter creates a new CSV reporter.
func NewCSVReporter(config *CSVConfig) *CSVReporter {
	if config == nil {
		config = DefaultCSVConfig()
	}
	if config.Delimiter == 0 {
		config.Delimiter = ','
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 100
	}
	return &CSVReporter{
		config: config,
		buffer: make([][]string, 0, config.BufferSize),
	}
}

// NewCSVFactory returns a factory function for creating CSV reporters.
func NewCSVFactory() func(config map[string]any) (interface{ Name() string }, error) {
	return func(config map[string]any) (interface{ Name() string }, error) {
		cfg := DefaultCSVConfig()
		if config != nil {
			if v, ok := config["file_path"].(string); ok {
				cfg.FilePath = v
			}
			if v, ok := config["delimiter"].(string); ok && len(v) > 0 {
				cfg.Delimiter = rune(v[0])
			}
			if v, ok := config["include_header"].(bool); ok {
				cfg.IncludeHeader = v
			}
			if v, ok := config["buffer_size"].(int); ok {
				cfg.BufferSize = v
			}
		}
		return NewCSVReporter(cfg), nil
	}
}

// Name returns the reporter name.
func (r *CSVReporter) Name() string {
	return "csv"
}

// Init creates the output file and writes the header.
func (r *CSVReporter) Init(ctx context.Context, config map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return fmt.Errorf("reporter already initialized")
	}

	dir := filepath.Dir(r.config.FilePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	file, err := os.Create(r.config.FilePath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	r.file = file
	r.writer = csv.NewWriter(file)
	r.writer.Comma = r.config.Delimiter

	if r.config.IncludeHeader {
		if err := r.writer.Write(Header()); err != nil {
			r.file.Close()
			return fmt.Errorf("write header: %w", err)
		}
		r.writer.Flush()
	}

	r.initialized = true
	return nil
}

// Report buffers the rows of one report.
func (r *CSVReporter) Report(ctx context.Context, report *types.QualityGateReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return fmt.Errorf("reporter not initialized")
	}
	if report == nil {
		return nil
	}

	r.buffer = append(r.buffer, Rows(report)...)
	if len(r.buffer) >= r.config.BufferSize {
		return r.flushBuffer()
	}
	return nil
}

// Flush writes any buffered rows.
func (r *CSVReporter) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return nil
	}
	if err := r.flushBuffer(); err != nil {
		return err
	}
	r.writer.Flush()
	return r.writer.Error()
}

// Close flushes and closes the file.
func (r *CSVReporter) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return nil
	}

	if err := r.flushBuffer(); err != nil {
		return err
	}

	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}

	r.initialized = false
	r.file = nil
	r.writer = nil
	return nil
}

func (r *CSVReporter) flushBuffer() error {
	if len(r.buffer) == 0 {
		return nil
	}
	if err := r.writer.WriteAll(r.buffer); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	r.buffer = r.buffer[:0]
	return nil
}

// Header returns the CSV header row.
func Header() []string {
	return []string{
		"report_id",
		"evaluated_at",
		"test_name",
		"environment",
		"source",
		"request_name",
		"target",
		"aggregation",
		"comparison",
		"actual",
		"limit",
		"deviation",
		"color",
		"status",
	}
}

// Rows flattens a report: SLA checks first, then baseline degradations.
func Rows(report *types.QualityGateReport) [][]string {
	prefix := []string{
		report.ID,
		report.EvaluatedAt.Format(time.RFC3339),
		report.TestName,
		report.Environment,
	}
	status := string(report.Verdict.Status)

	var rows [][]string
	if report.SLA != nil {
		for _, v := range report.SLA.Violations {
			row := append(append([]string{}, prefix...),
				"sla",
				v.RequestName,
				string(v.Target),
				v.Aggregation,
				string(v.Comparison),
				formatFloat(v.Metric),
				formatFloat(v.Threshold),
				formatFloat(v.Deviation),
				string(v.Color),
				status,
			)
			rows = append(rows, row)
		}
	}
	if report.Baseline != nil {
		for _, d := range report.Baseline.Degradations {
			row := append(append([]string{}, prefix...),
				"baseline",
				d.RequestName,
				string(d.Metric),
				d.Aggregation,
				"",
				formatFloat(d.Current),
				formatFloat(d.BaselineWithDeviation),
				formatFloat(d.Deviation),
				string(types.ColorRed),
				status,
			)
			rows = append(rows, row)
		}
	}
	return rows
}

// GetFilePath returns the output file path.
func (r *CSVReporter) GetFilePath() string {
	return r.config.FilePath
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
