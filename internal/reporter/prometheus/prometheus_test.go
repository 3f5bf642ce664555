package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/quality-gate/internal/reporter/reportertest"
)

type gateway struct {
	mu      sync.Mutex
	methods []string
	paths   []string
	status  int
	server  *httptest.Server
}

func newGateway(t *testing.T, status int) *gateway {
	g := &gateway{status: status}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.methods = append(g.methods, r.Method)
		g.paths = append(g.paths, r.URL.Path)
		g.mu.Unlock()
		if r.Method == http.MethodDelete && g.status == http.StatusOK {
			// the push gateway acknowledges deletes with 202
			w.WriteHeader(http.StatusAccepted)
			return
		}
		w.WriteHeader(g.status)
	}))
	t.Cleanup(g.server.Close)
	return g
}

func TestNew(t *testing.T) {
	r := New(nil)
	assert.Equal(t, "prometheus", r.Name())
	assert.Equal(t, "quality_gate", r.GetConfig().JobName)

	r = New(&Config{PushGatewayURL: "http://custom:9091", JobName: "custom_job"})
	assert.Equal(t, "http://custom:9091", r.config.PushGatewayURL)
	assert.NotNil(t, r.config.Labels)
}

func TestFactory(t *testing.T) {
	created, err := NewFactory()(map[string]any{
		"push_gateway_url": "http://gw:9091",
		"job_name":         "ci",
		"labels":           map[string]any{"team": "perf", "bad": 1},
		"timeout":          "2s",
		"delete_on_close":  true,
	})
	require.NoError(t, err)

	cfg := created.(*Reporter).GetConfig()
	assert.Equal(t, "http://gw:9091", cfg.PushGatewayURL)
	assert.Equal(t, "ci", cfg.JobName)
	assert.Equal(t, map[string]string{"team": "perf"}, cfg.Labels)
	assert.True(t, cfg.DeleteOnClose)
}

func TestReport_SetsGaugesAndPushes(t *testing.T) {
	gw := newGateway(t, http.StatusOK)
	r := New(&Config{PushGatewayURL: gw.server.URL, JobName: "qg", DeleteOnClose: true})
	ctx := context.Background()

	require.NoError(t, r.Init(ctx, nil))
	require.NoError(t, r.Report(ctx, reportertest.Failed()))

	g := r.gauges
	assert.Equal(t, 0.0, testutil.ToFloat64(g.status))
	assert.Equal(t, 1.5, testutil.ToFloat64(g.errorRate))
	assert.Equal(t, 2.0, testutil.ToFloat64(g.slaChecked))
	assert.Equal(t, 50.0, testutil.ToFloat64(g.violationRate))
	assert.Equal(t, 1.0, testutil.ToFloat64(g.degraded))
	assert.Equal(t, 2, testutil.CollectAndCount(g.checkMetric))
	assert.Equal(t, 2.6, testutil.ToFloat64(g.checkMetric.WithLabelValues("all", "response_time", "pct95", "red")))

	require.NoError(t, r.Flush(ctx))
	require.NoError(t, r.Close(ctx))

	gw.mu.Lock()
	defer gw.mu.Unlock()
	assert.Equal(t, []string{http.MethodPut, http.MethodPut, http.MethodDelete}, gw.methods)
	assert.Contains(t, gw.paths[0], "/metrics/job/qg")
	assert.Contains(t, gw.paths[0], "/test/checkout")
	assert.Contains(t, gw.paths[0], "/environment/staging")
}

func TestReport_PassedResetsChecks(t *testing.T) {
	gw := newGateway(t, http.StatusOK)
	r := New(&Config{PushGatewayURL: gw.server.URL, JobName: "qg"})
	ctx := context.Background()
	require.NoError(t, r.Init(ctx, nil))

	require.NoError(t, r.Report(ctx, reportertest.Failed()))
	require.NoError(t, r.Report(ctx, reportertest.Passed()))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.gauges.status))
	assert.Equal(t, 0, testutil.CollectAndCount(r.gauges.checkMetric))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.gauges.degradationRate))
}

func TestReport_GatewayError(t *testing.T) {
	gw := newGateway(t, http.StatusInternalServerError)
	r := New(&Config{PushGatewayURL: gw.server.URL, JobName: "qg"})
	ctx := context.Background()
	require.NoError(t, r.Init(ctx, nil))

	assert.Error(t, r.Report(ctx, reportertest.Failed()))
}

func TestLifecycle(t *testing.T) {
	r := New(&Config{JobName: "qg"})
	ctx := context.Background()

	assert.Error(t, r.Init(ctx, nil))
	assert.Error(t, r.Report(ctx, reportertest.Passed()))
	assert.NoError(t, r.Flush(ctx))
	assert.NoError(t, r.Close(ctx))

	r = New(&Config{PushGatewayURL: "http://127.0.0.1:1", JobName: "qg"})
	require.NoError(t, r.Init(ctx, nil))
	assert.Error(t, r.Init(ctx, nil))
	assert.NoError(t, r.Flush(ctx))
	assert.NotNil(t, r.Gatherer())
}
