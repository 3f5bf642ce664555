package reporter

import (
	"context"
	"fmt"
	"sync"

	"yqhp/quality-gate/pkg/types"
)

// Manager fans reports out to multiple reporters.
type Manager struct {
	registry  *Registry
	reporters []Reporter
	mu        sync.RWMutex
	started   bool
}

// NewManager creates a new reporter manager.
func NewManager(registry *Registry) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Manager{
		registry:  registry,
		reporters: make([]Reporter, 0),
	}
}

// AddReporter adds a reporter to the manager.
func (m *Manager) AddReporter(reporter Reporter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("cannot add reporter after manager has started")
	}

	m.reporters = append(m.reporters, reporter)
	return nil
}

// AddReporterFromConfig creates and adds a reporter from configuration.
func (m *Manager) AddReporterFromConfig(ctx context.Context, config *ReporterConfig) error {
	if !config.Enabled {
		return nil
	}

	reporter, err := m.registry.Create(config.Type, config.Config)
	if err != nil {
		return fmt.Errorf("create reporter %s: %w", config.Type, err)
	}

	if err := reporter.Init(ctx, config.Config); err != nil {
		return fmt.Errorf("init reporter %s: %w", config.Type, err)
	}

	return m.AddReporter(reporter)
}

// AddReportersFromConfig adds every enabled reporter in order and stops at
// the first failure.
func (m *Manager) AddReportersFromConfig(ctx context.Context, configs []ReporterConfig) error {
	for i := range configs {
		if err := m.AddReporterFromConfig(ctx, &configs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Start marks the manager as started.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("manager already started")
	}

	m.started = true
	return nil
}

// Report sends the report to every reporter. A failing reporter does not
// stop the others.
func (m *Manager) Report(ctx context.Context, report *types.QualityGateReport) error {
	m.mu.RLock()
	reporters := make([]Reporter, len(m.reporters))
	copy(reporters, m.reporters)
	m.mu.RUnlock()

	var errs []error
	for _, reporter := range reporters {
		if err := reporter.Report(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", reporter.Name(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("report errors: %v", errs)
	}
	return nil
}

// Flush flushes all reporters.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.RLock()
	reporters := make([]Reporter, len(m.reporters))
	copy(reporters, m.reporters)
	m.mu.RUnlock()

	var errs []error
	for _, reporter := range reporters {
		if err := reporter.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", reporter.Name(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("flush errors: %v", errs)
	}
	return nil
}

// Close closes all reporters.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, reporter := range m.reporters {
		if err := reporter.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", reporter.Name(), err))
		}
	}

	m.reporters = nil
	m.started = false

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// GetReporters returns all registered reporters.
func (m *Manager) GetReporters() []Reporter {
	m.mu.RLock()
	defer m.mu.RUnlock()

	reporters := make([]Reporter, len(m.reporters))
	copy(reporters, m.reporters)
	return reporters
}

// GetReporterCount returns the number of registered reporters.
func (m *Manager) GetReporterCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reporters)
}

// IsStarted returns whether the manager has started.
func (m *Manager) IsStarted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.started
}
