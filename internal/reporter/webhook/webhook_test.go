package webhook

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"yqhp/quality-gate/internal/reporter/reportertest"
)

type endpoint struct {
	mu       sync.Mutex
	payloads []Payload
	headers  []string
	calls    atomic.Int32
	failures int32
}

func (e *endpoint) config(t *testing.T) *Config {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: func(ctx *fasthttp.RequestCtx) {
		n := e.calls.Add(1)
		if n <= e.failures {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		var p Payload
		if err := sonic.Unmarshal(ctx.PostBody(), &p); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		e.mu.Lock()
		e.payloads = append(e.payloads, p)
		e.headers = append(e.headers, string(ctx.Request.Header.Peek("X-Gate")))
		e.mu.Unlock()
		ctx.SetStatusCode(fasthttp.StatusAccepted)
	}}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})

	return &Config{
		URL:           "http://hooks.local/quality-gate",
		Headers:       map[string]string{"X-Gate": "ci"},
		BatchSize:     1,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
		Timeout:       2 * time.Second,
		Dial:          func(string) (net.Conn, error) { return ln.Dial() },
	}
}

func TestNew(t *testing.T) {
	r := New(nil)
	assert.Equal(t, "webhook", r.Name())
	assert.Equal(t, fasthttp.MethodPost, r.GetConfig().Method)

	r = New(&Config{URL: "http://x"})
	assert.Equal(t, 1, r.config.BatchSize)
	assert.NotNil(t, r.config.Headers)
}

func TestFactory(t *testing.T) {
	created, err := NewFactory()(map[string]any{
		"url":            "http://hooks",
		"method":         "PUT",
		"headers":        map[string]any{"X-Token": "abc"},
		"batch_size":     5,
		"retry_attempts": 1,
		"retry_delay":    "10ms",
		"timeout":        "1s",
	})
	require.NoError(t, err)

	cfg := created.(*Reporter).GetConfig()
	assert.Equal(t, "PUT", cfg.Method)
	assert.Equal(t, "abc", cfg.Headers["X-Token"])
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, 10*time.Millisecond, cfg.RetryDelay)
}

func TestReport_Posts(t *testing.T) {
	e := &endpoint{}
	r := New(e.config(t))
	ctx := context.Background()

	require.NoError(t, r.Init(ctx, nil))
	require.NoError(t, r.Report(ctx, reportertest.Failed()))
	require.NoError(t, r.Close(ctx))

	e.mu.Lock()
	defer e.mu.Unlock()
	require.Len(t, e.payloads, 1)
	assert.Equal(t, 1, e.payloads[0].Count)
	assert.Equal(t, "7f1c2d", e.payloads[0].Records[0].ID)
	assert.Equal(t, "ci", e.headers[0])
}

func TestReport_Batches(t *testing.T) {
	e := &endpoint{}
	cfg := e.config(t)
	cfg.BatchSize = 3
	r := New(cfg)
	ctx := context.Background()
	require.NoError(t, r.Init(ctx, nil))

	require.NoError(t, r.Report(ctx, reportertest.Failed()))
	require.NoError(t, r.Report(ctx, reportertest.Passed()))
	assert.Equal(t, int32(0), e.calls.Load())

	require.NoError(t, r.Flush(ctx))
	e.mu.Lock()
	require.Len(t, e.payloads, 1)
	assert.Equal(t, 2, e.payloads[0].Count)
	e.mu.Unlock()
}

func TestReport_Retries(t *testing.T) {
	e := &endpoint{failures: 2}
	r := New(e.config(t))
	ctx := context.Background()
	require.NoError(t, r.Init(ctx, nil))

	require.NoError(t, r.Report(ctx, reportertest.Passed()))
	assert.Equal(t, int32(3), e.calls.Load())
}

func TestReport_GivesUp(t *testing.T) {
	e := &endpoint{failures: 10}
	r := New(e.config(t))
	ctx := context.Background()
	require.NoError(t, r.Init(ctx, nil))

	err := r.Report(ctx, reportertest.Passed())
	assert.ErrorContains(t, err, "failed after 3 attempts")
	assert.ErrorContains(t, err, "503")
}

func TestLifecycle(t *testing.T) {
	r := New(&Config{})
	ctx := context.Background()

	assert.Error(t, r.Init(ctx, nil))
	assert.Error(t, r.Report(ctx, reportertest.Passed()))
	assert.NoError(t, r.Flush(ctx))
	assert.NoError(t, r.Close(ctx))
}
