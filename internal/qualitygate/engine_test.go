package qualitygate

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/quality-gate/pkg/types"
)

func limit(v float64) *float64 { return &v }

func TestDecide(t *testing.T) {
	records := []types.MetricRecord{{RequestName: "All", Total: 100, KO: 10}}
	sla := &types.SLAResult{Configured: true, ViolationRate: 50}
	baseline := &types.BaselineResult{Configured: true, DegradationRate: 25.5}

	t.Run("no limits", func(t *testing.T) {
		v := Decide(records, sla, baseline, Limits{})
		assert.Equal(t, types.StatusSuccess, v.Status)
		assert.Equal(t, types.ColorGreen, v.Color)
		assert.Empty(t, v.FailedReasons)
		assert.Equal(t, 10.0, v.ErrorRate)
	})

	t.Run("all limits exceeded", func(t *testing.T) {
		v := Decide(records, sla, baseline, Limits{
			MissedThresholdsRate: limit(20),
			DegradationRate:      limit(10),
			ErrorRate:            limit(5),
		})
		assert.Equal(t, types.StatusFailed, v.Status)
		assert.Equal(t, types.ColorRed, v.Color)
		assert.Equal(t, []string{
			"error rate - 10.0 %",
			"performance degradation rate - 25.5 %",
			"missed thresholds rate - 50.0 %",
		}, v.FailedReasons)
	})

	t.Run("equal to limit passes", func(t *testing.T) {
		v := Decide(records, sla, baseline, Limits{
			MissedThresholdsRate: limit(50),
			DegradationRate:      limit(25.5),
			ErrorRate:            limit(10),
		})
		assert.Equal(t, types.StatusSuccess, v.Status)
	})

	t.Run("unconfigured baseline is ignored", func(t *testing.T) {
		v := Decide(records, sla, &types.BaselineResult{DegradationRate: 90}, Limits{DegradationRate: limit(0)})
		assert.Equal(t, types.StatusSuccess, v.Status)
	})
}

func TestRunErrorRate(t *testing.T) {
	assert.Equal(t, 0.0, RunErrorRate(nil))
	assert.Equal(t, 25.0, RunErrorRate([]types.MetricRecord{
		{RequestName: "Login", Total: 10, KO: 5},
		{RequestName: "Search", Total: 10, KO: 0},
		{RequestName: "ALL", Total: 20, KO: 5},
	}))
	assert.Equal(t, 33.33, RunErrorRate([]types.MetricRecord{
		{RequestName: "Login", Total: 2, KO: 1},
		{RequestName: "Search", Total: 1, KO: 0},
	}))
}

func TestEngine_Run(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(
		WithClock(func() time.Time { return at }),
		WithIDGenerator(func() string { return "report-1" }),
	)

	cfg := enabledConfig()
	cfg.Settings.PerRequestResults.ResponseTimeDeviation = 50

	report, err := engine.Run(Input{
		TestName:    "checkout",
		Environment: "staging",
		Records:     []types.MetricRecord{record("All", 2600), record("Login", 1100)},
		Thresholds:  []types.ThresholdDefinition{rt("all", types.ComparisonGT, 2000)},
		Baseline:    []types.BaselineRecord{record("Login", 1000)},
		Config:      cfg,
		Limits:      Limits{MissedThresholdsRate: limit(0)},
	})
	require.NoError(t, err)

	assert.Equal(t, "report-1", report.ID)
	assert.Equal(t, at, report.EvaluatedAt)
	assert.Equal(t, types.FieldPct95, report.ComparisonMetric)
	assert.Equal(t, 100.0, report.SLA.ViolationRate)
	assert.Equal(t, 100.0, report.Baseline.DegradationRate)
	assert.Equal(t, types.StatusFailed, report.Verdict.Status)
	assert.Equal(t, []string{"missed thresholds rate - 100.0 %"}, report.Verdict.FailedReasons)
}

func TestEngine_RunErrors(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Run(Input{ComparisonMetric: "pct42"})
	assert.ErrorIs(t, err, ErrUnsupportedMetric)

	_, err = engine.Run(Input{
		Records:    []types.MetricRecord{{RequestName: "Login"}},
		Thresholds: []types.ThresholdDefinition{rt("Login", types.ComparisonGT, 1)},
		Config:     enabledConfig(),
	})
	var dataErr *DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "Login", dataErr.RequestName)

	report, err := engine.Run(Input{})
	require.NoError(t, err)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, types.StatusSuccess, report.Verdict.Status)
}

func TestEngine_RunConcurrent(t *testing.T) {
	engine := NewEngine()
	thresholds := []types.ThresholdDefinition{rt("all", types.ComparisonGT, 2000), rt("every", types.ComparisonGT, 2000)}
	cfg := enabledConfig()

	const runs = 32
	reports := make([]*types.QualityGateReport, runs)
	errs := make([]error, runs)

	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records := []types.MetricRecord{record("All", 2600)}
			for j := 0; j < i%5+1; j++ {
				records = append(records, record(fmt.Sprintf("req-%d", j), 100))
			}
			reports[i], errs[i] = engine.Run(Input{
				Records:    records,
				Thresholds: thresholds,
				Baseline:   []types.BaselineRecord{record("req-0", 100)},
				Config:     cfg,
				Debug:      true,
			})
		}(i)
	}
	wg.Wait()

	ids := make(map[string]bool, runs)
	for i, report := range reports {
		require.NoError(t, errs[i])
		checked := i%5 + 2
		assert.Equal(t, checked, report.SLA.TotalChecked)
		assert.Equal(t, 1, report.SLA.TotalViolated)
		assert.Len(t, report.SLA.Debug, checked)
		assert.Equal(t, 1, report.Baseline.TotalComparisons)
		assert.False(t, ids[report.ID], "duplicate report id %s", report.ID)
		ids[report.ID] = true
	}
}
