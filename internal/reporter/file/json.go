// Package file writes quality gate reports to JSON and CSV files.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"

	"yqhp/quality-gate/pkg/types"
)

// JSONConfig holds configuration for the JSON reporter.
type JSONConfig struct {
	// FilePath is the output file path.
	FilePath string `yaml:"file_path"`
	// Pretty enables indented output.
	Pretty bool `yaml:"pretty"`
	// BufferSize is the number of reports held before writing.
	BufferSize int `yaml:"buffer_size"`
}

// DefaultJSONConfig returns the default JSON reporter configuration.
func DefaultJSONConfig() *JSONConfig {
	return &JSONConfig{
		FilePath:   "quality-gate.json",
		Pretty:     true,
		BufferSize: 1,
	}
}

// JSONReporter writes reports as a JSON array.
type JSONReporter struct {
	config *JSONConfig
	file   *os.File
	buffer []*types.QualityGateReport
	mu     sync.Mutex

	initialized   bool
	recordWritten bool
}

// NewJSONReporter creates a new JSON reporter.
func NewJSONReporter(config *JSONConfig) *JSONReporter {
	if config == nil {
		config = DefaultJSONConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1
	}
	return &JSONReporter{
		config: config,
		buffer: make([]*types.QualityGateReport, 0, config.BufferSize),
	}
}

// NewJSONFactory returns a factory function for creating JSON reporters.
func NewJSONFactory() func(config map[string]any) (interface{ Name() string }, error) {
	return func(config map[string]any) (interface{ Name() string }, error) {
		cfg := DefaultJSONConfig()
		if config != nil {
			if v, ok := config["file_path"].(string); ok {
				cfg.FilePath = v
			}
			if v, ok := config["pretty"].(bool); ok {
				cfg.Pretty = v
			}
			if v, ok := config["buffer_size"].(int); ok {
				cfg.BufferSize = v
			}
		}
		return NewJSONReporter(cfg), nil
	}
}

// Name returns the reporter name.
func (r *JSONReporter) Name() string {
	return "json"
}

// Init creates the output file and opens the array.
func (r *JSONReporter) Init(ctx context.Context, config map[string]any) error {
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

	if _, err := r.file.WriteString("[\n"); err != nil {
		r.file.Close()
		return fmt.Errorf("write header: %w", err)
	}

	r.initialized = true
	return nil
}

// Report buffers a report and writes the buffer once it is full.
func (r *JSONReporter) Report(ctx context.Context, report *types.QualityGateReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return fmt.Errorf("reporter not initialized")
	}
	if report == nil {
		return nil
	}

	r.buffer = append(r.buffer, report)
	if len(r.buffer) >= r.config.BufferSize {
		return r.flushBuffer()
	}
	return nil
}

// Flush writes any buffered reports.
func (r *JSONReporter) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return nil
	}
	return r.flushBuffer()
}

// Close flushes, closes the array and the file.
func (r *JSONReporter) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return nil
	}

	if err := r.flushBuffer(); err != nil {
		return err
	}

	if _, err := r.file.WriteString("\n]\n"); err != nil {
		return fmt.Errorf("write trailer: %w", err)
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}

	r.initialized = false
	r.file = nil
	return nil
}

func (r *JSONReporter) flushBuffer() error {
	for _, report := range r.buffer {
		if r.recordWritten {
			if _, err := r.file.WriteString(",\n"); err != nil {
				return fmt.Errorf("write separator: %w", err)
			}
		}

		data, err := r.marshal(report)
		if err != nil {
			return fmt.Errorf("marshal report %s: %w", report.ID, err)
		}
		if _, err := r.file.Write(data); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		r.recordWritten = true
	}

	r.buffer = r.buffer[:0]
	return nil
}

func (r *JSONReporter) marshal(report *types.QualityGateReport) ([]byte, error) {
	if r.config.Pretty {
		return sonic.MarshalIndent(report, "", "  ")
	}
	return sonic.Marshal(report)
}

// GetFilePath returns the output file path.
func (r *JSONReporter) GetFilePath() string {
	return r.config.FilePath
}
