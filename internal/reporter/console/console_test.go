package console

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/quality-gate/internal/reporter/reportertest"
)

func newPlain(buf *bytes.Buffer) *Reporter {
	return New(&Config{Writer: buf, ShowBaseline: true})
}

func TestNew(t *testing.T) {
	r := New(nil)
	assert.Equal(t, "console", r.Name())
	assert.True(t, r.config.ColorOutput)
	assert.NotNil(t, r.writer)
}

func TestFactory(t *testing.T) {
	created, err := NewFactory()(map[string]any{
		"show_green":    true,
		"show_baseline": false,
		"color_output":  false,
	})
	require.NoError(t, err)

	r := created.(*Reporter)
	assert.True(t, r.config.ShowGreen)
	assert.False(t, r.config.ShowBaseline)
	assert.False(t, r.config.ColorOutput)
}

func TestRender_Failed(t *testing.T) {
	var buf bytes.Buffer
	r := newPlain(&buf)
	out := r.Render(reportertest.Failed())

	assert.Contains(t, out, "Quality Gate: checkout (staging)")
	assert.Contains(t, out, "Comparison metric: pct95")
	assert.Contains(t, out, "SLA: 2 checked, 1 violated (50%)")
	assert.Contains(t, out, "2.6")
	assert.Contains(t, out, "red")
	// green checks are hidden by default
	assert.NotContains(t, out, "green")
	assert.Contains(t, out, "Baseline: 2 compared, 1 degraded (50%)")
	assert.Contains(t, out, "20%")
	assert.Contains(t, out, "Status: FAILED (error rate 1.5%)")
	assert.Contains(t, out, "  - missed thresholds rate - 50.0 %")
	assert.NotContains(t, out, "\x1b[")
}

func TestRender_ShowGreen(t *testing.T) {
	var buf bytes.Buffer
	r := New(&Config{Writer: &buf, ShowGreen: true})
	out := r.Render(reportertest.Failed())

	assert.Contains(t, out, "green")
	assert.NotContains(t, out, "Baseline:")
}

func TestRender_Passed(t *testing.T) {
	var buf bytes.Buffer
	out := newPlain(&buf).Render(reportertest.Passed())

	assert.Contains(t, out, "Quality Gate: search")
	assert.Contains(t, out, "SLA: not configured")
	assert.Contains(t, out, "Status: SUCCESS")
	assert.NotContains(t, out, "Baseline:")
}

func TestLifecycle(t *testing.T) {
	var buf bytes.Buffer
	r := newPlain(&buf)
	ctx := context.Background()

	assert.Error(t, r.Report(ctx, reportertest.Passed()))
	require.NoError(t, r.Init(ctx, nil))
	assert.Error(t, r.Init(ctx, nil))

	require.NoError(t, r.Report(ctx, reportertest.Failed()))
	require.NoError(t, r.Report(ctx, reportertest.Passed()))
	require.NoError(t, r.Report(ctx, nil))
	require.NoError(t, r.Flush(ctx))
	require.NoError(t, r.Close(ctx))

	out := buf.String()
	assert.Contains(t, out, "Status: FAILED")
	assert.Contains(t, out, "Status: SUCCESS")
	assert.Contains(t, out, "Reports: 2, failed: 1")
	assert.NoError(t, r.Close(ctx))
}
