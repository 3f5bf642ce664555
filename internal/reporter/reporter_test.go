package reporter

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/quality-gate/internal/reporter/reportertest"
	"yqhp/quality-gate/pkg/types"
)

// recorder counts lifecycle calls and can be told to fail any of them.
type recorder struct {
	name    string
	reports atomic.Int32
	flushed atomic.Bool
	closed  atomic.Bool
	last    atomic.Pointer[types.QualityGateReport]
	fail    map[string]error
}

func newRecorder(name string) *recorder { return &recorder{name: name, fail: map[string]error{}} }

func (r *recorder) Name() string                               { return r.name }
func (r *recorder) Init(context.Context, map[string]any) error { return r.fail["init"] }

func (r *recorder) Report(_ context.Context, report *types.QualityGateReport) error {
	r.reports.Add(1)
	r.last.Store(report)
	return r.fail["report"]
}

func (r *recorder) Flush(context.Context) error {
	r.flushed.Store(true)
	return r.fail["flush"]
}

func (r *recorder) Close(context.Context) error {
	r.closed.Store(true)
	return r.fail["close"]
}

func factoryFor(r *recorder) ReporterFactory {
	return func(map[string]any) (Reporter, error) { return r, nil }
}

func startedManager(t *testing.T, reporters ...*recorder) *Manager {
	t.Helper()
	m := NewManager(nil)
	for _, r := range reporters {
		require.NoError(t, m.AddReporter(r))
	}
	require.NoError(t, m.Start(context.Background()))
	return m
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(ReporterTypeWebhook, factoryFor(newRecorder("webhook"))))
	require.NoError(t, registry.Register(ReporterTypeCSV, factoryFor(newRecorder("csv"))))

	err := registry.Register(ReporterTypeCSV, factoryFor(newRecorder("csv")))
	assert.ErrorContains(t, err, "already registered")

	assert.Equal(t, []ReporterType{ReporterTypeCSV, ReporterTypeWebhook}, registry.ListTypes())

	r, err := registry.Create(ReporterTypeWebhook, nil)
	require.NoError(t, err)
	assert.Equal(t, "webhook", r.Name())

	_, err = registry.Create(ReporterTypeInfluxDB, nil)
	assert.ErrorContains(t, err, "unknown reporter type: influxdb (known: [csv webhook])")
}

func TestNewDefaultRegistry(t *testing.T) {
	registry, err := NewDefaultRegistry()
	require.NoError(t, err)

	assert.Equal(t, []ReporterType{
		ReporterTypeConsole, ReporterTypeCSV, ReporterTypeInfluxDB,
		ReporterTypeJSON, ReporterTypePrometheus, ReporterTypeWebhook,
	}, registry.ListTypes())

	for _, typ := range registry.ListTypes() {
		r, err := registry.Create(typ, nil)
		require.NoError(t, err, typ)
		assert.Equal(t, string(typ), r.Name())
	}
}

func TestAdapt_RejectsNonReporter(t *testing.T) {
	create := adapt(ReporterTypeJSON, func(map[string]any) (interface{ Name() string }, error) {
		return namedOnly{}, nil
	})
	_, err := create(nil)
	assert.ErrorContains(t, err, "not a Reporter")
}

type namedOnly struct{}

func (namedOnly) Name() string { return "named" }

func TestManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	a, b := newRecorder("a"), newRecorder("b")
	m := startedManager(t, a, b)

	assert.True(t, m.IsStarted())
	assert.ErrorContains(t, m.AddReporter(newRecorder("late")), "after manager has started")
	assert.Error(t, m.Start(ctx))

	names := make([]string, 0)
	for _, r := range m.GetReporters() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{"a", "b"}, names)

	report := reportertest.Failed()
	require.NoError(t, m.Report(ctx, report))
	require.NoError(t, m.Flush(ctx))
	require.NoError(t, m.Close(ctx))

	for _, r := range []*recorder{a, b} {
		assert.Equal(t, int32(1), r.reports.Load())
		assert.Same(t, report, r.last.Load())
		assert.True(t, r.flushed.Load())
		assert.True(t, r.closed.Load())
	}
	assert.Zero(t, m.GetReporterCount())
	assert.False(t, m.IsStarted())
}

func TestManager_FailuresDoNotStopOthers(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		stage   string
		call    func(*Manager) error
		want    string
		reached func(*recorder) bool
	}{
		{
			stage:   "report",
			call:    func(m *Manager) error { return m.Report(ctx, reportertest.Passed()) },
			want:    "report errors",
			reached: func(r *recorder) bool { return r.reports.Load() == 1 },
		},
		{
			stage:   "flush",
			call:    func(m *Manager) error { return m.Flush(ctx) },
			want:    "flush errors",
			reached: func(r *recorder) bool { return r.flushed.Load() },
		},
		{
			stage:   "close",
			call:    func(m *Manager) error { return m.Close(ctx) },
			want:    "close errors",
			reached: func(r *recorder) bool { return r.closed.Load() },
		},
	}
	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			bad, good := newRecorder("bad"), newRecorder("good")
			bad.fail[tt.stage] = errors.New("boom")
			m := startedManager(t, bad, good)

			err := tt.call(m)
			assert.ErrorContains(t, err, tt.want)
			assert.ErrorContains(t, err, "bad: boom")
			assert.NotContains(t, err.Error(), "good")
			assert.True(t, tt.reached(good))
		})
	}
}

func TestManager_AddReportersFromConfig(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	require.NoError(t, registry.Register(ReporterTypeConsole, factoryFor(newRecorder("console"))))
	failing := newRecorder("webhook")
	failing.fail["init"] = errors.New("no url")
	require.NoError(t, registry.Register(ReporterTypeWebhook, factoryFor(failing)))

	tests := []struct {
		name    string
		configs []ReporterConfig
		count   int
		wantErr string
	}{
		{
			name: "enabled only",
			configs: []ReporterConfig{
				{Type: ReporterTypeConsole, Enabled: true, Config: map[string]any{"show_green": true}},
				{Type: ReporterTypeJSON, Enabled: false},
			},
			count: 1,
		},
		{
			name:    "unknown type",
			configs: []ReporterConfig{{Type: ReporterTypeCSV, Enabled: true}},
			wantErr: "create reporter csv",
		},
		{
			name:    "init failure",
			configs: []ReporterConfig{{Type: ReporterTypeWebhook, Enabled: true}},
			wantErr: "init reporter webhook: no url",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(registry)
			err := m.AddReportersFromConfig(ctx, tt.configs)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				assert.Zero(t, m.GetReporterCount())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.count, m.GetReporterCount())
		})
	}
}
