package reporter

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"yqhp/quality-gate/pkg/types"
)

// Reporter publishes quality gate reports to one destination.
type Reporter interface {
	// Name returns the reporter name.
	Name() string

	// Init prepares the reporter with its configuration.
	Init(ctx context.Context, config map[string]any) error

	// Report publishes one evaluated report.
	Report(ctx context.Context, report *types.QualityGateReport) error

	// Flush writes out any buffered data.
	Flush(ctx context.Context) error

	// Close releases the reporter's resources.
	Close(ctx context.Context) error
}

// ReporterType names a built-in reporter.
type ReporterType string

const (
	ReporterTypeConsole    ReporterType = "console"
	ReporterTypeJSON       ReporterType = "json"
	ReporterTypeCSV        ReporterType = "csv"
	ReporterTypePrometheus ReporterType = "prometheus"
	ReporterTypeInfluxDB   ReporterType = "influxdb"
	ReporterTypeWebhook    ReporterType = "webhook"
)

// ReporterConfig configures one reporter instance.
type ReporterConfig struct {
	Type    ReporterType   `yaml:"type" json:"type"`
	Enabled bool           `yaml:"enabled" json:"enabled"`
	Config  map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// ReporterFactory creates a reporter of one type.
type ReporterFactory func(config map[string]any) (Reporter, error)

// Registry maps reporter types to factories.
type Registry struct {
	factories map[ReporterType]ReporterFactory
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[ReporterType]ReporterFactory),
	}
}

// Register adds a factory. Registering a type twice is an error.
func (r *Registry) Register(reporterType ReporterType, factory ReporterFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[reporterType]; exists {
		return fmt.Errorf("reporter type already registered: %s", reporterType)
	}

	r.factories[reporterType] = factory
	return nil
}

// Create builds a reporter of the given type.
func (r *Registry) Create(reporterType ReporterType, config map[string]any) (Reporter, error) {
	r.mu.RLock()
	factory, exists := r.factories[reporterType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown reporter type: %s (known: %v)", reporterType, r.ListTypes())
	}

	return factory(config)
}

// ListTypes returns the registered types in sorted order.
func (r *Registry) ListTypes() []ReporterType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]ReporterType, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// HasType reports whether a type is registered.
func (r *Registry) HasType(reporterType ReporterType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[reporterType]
	return exists
}
