package reporter

import (
	"fmt"

	"yqhp/quality-gate/internal/reporter/console"
	"yqhp/quality-gate/internal/reporter/file"
	"yqhp/quality-gate/internal/reporter/influxdb"
	"yqhp/quality-gate/internal/reporter/prometheus"
	"yqhp/quality-gate/internal/reporter/webhook"
)

// namedFactory is the constructor shape exported by the reporter
// subpackages, which cannot import this package.
type namedFactory func(config map[string]any) (interface{ Name() string }, error)

func builtinFactories() map[ReporterType]namedFactory {
	return map[ReporterType]namedFactory{
		ReporterTypeConsole:    console.NewFactory(),
		ReporterTypeJSON:       file.NewJSONFactory(),
		ReporterTypeCSV:        file.NewCSVFactory(),
		ReporterTypePrometheus: prometheus.NewFactory(),
		ReporterTypeInfluxDB:   influxdb.NewFactory(),
		ReporterTypeWebhook:    webhook.NewFactory(),
	}
}

// adapt checks that whatever the subpackage built is a full Reporter.
func adapt(reporterType ReporterType, create namedFactory) ReporterFactory {
	return func(config map[string]any) (Reporter, error) {
		built, err := create(config)
		if err != nil {
			return nil, err
		}
		r, ok := built.(Reporter)
		if !ok {
			return nil, fmt.Errorf("%s factory returned %T, not a Reporter", reporterType, built)
		}
		return r, nil
	}
}

// RegisterBuiltinReporters registers every built-in reporter type.
func RegisterBuiltinReporters(registry *Registry) error {
	for reporterType, create := range builtinFactories() {
		if err := registry.Register(reporterType, adapt(reporterType, create)); err != nil {
			return err
		}
	}
	return nil
}

// NewDefaultRegistry creates a registry with the built-in reporters.
func NewDefaultRegistry() (*Registry, error) {
	registry := NewRegistry()
	if err := RegisterBuiltinReporters(registry); err != nil {
		return nil, err
	}
	return registry, nil
}
