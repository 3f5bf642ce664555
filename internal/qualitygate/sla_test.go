package qualitygate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"yqhp/quality-gate/pkg/types"
)

func TestEvaluateSLA_AggregateViolation(t *testing.T) {
	result, err := EvaluateSLA(SLAInput{
		Records:          []types.MetricRecord{record("All", 2600)},
		Thresholds:       []types.ThresholdDefinition{rt("all", types.ComparisonGT, 2000)},
		Config:           enabledConfig(),
		ComparisonMetric: types.FieldPct95,
	})
	require.NoError(t, err)

	assert.True(t, result.Configured)
	assert.Equal(t, 1, result.TotalChecked)
	assert.Equal(t, 100.0, result.ViolationRate)
	require.Len(t, result.Violations, 1)

	v := result.Violations[0]
	assert.Equal(t, types.AggregateRequestName, v.RequestName)
	assert.Equal(t, types.ColorRed, v.Color)
	assert.Equal(t, 2.6, v.Metric)
	assert.Equal(t, 2600.0, v.RawMetric)
	assert.Equal(t, 2000.0, v.Value)
	assert.Equal(t, 2.0, v.Threshold)
	assert.Equal(t, types.ComparisonGT, v.Comparison)
}

func TestEvaluateSLA_OnlyFirstAggregateRow(t *testing.T) {
	result, err := EvaluateSLA(SLAInput{
		Records: []types.MetricRecord{
			record("All", 2600),
			record("Login", 100),
			record("all", 3000),
		},
		Thresholds:       []types.ThresholdDefinition{rt("all", types.ComparisonGT, 2000)},
		Config:           enabledConfig(),
		ComparisonMetric: types.FieldPct95,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalChecked)
	assert.Equal(t, 1, result.TotalViolated)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, 2.6, result.Violations[0].Metric)
}

func TestEvaluateSLA_EmptyThresholds(t *testing.T) {
	result, err := EvaluateSLA(SLAInput{
		Records: []types.MetricRecord{record("All", 2600), record("Login", 100)},
		Config:  enabledConfig(),
	})
	require.NoError(t, err)

	assert.False(t, result.Configured)
	assert.Equal(t, 0, result.TotalChecked)
	assert.Equal(t, 0.0, result.ViolationRate)
	assert.NotNil(t, result.Violations)
	assert.Empty(t, result.Violations)
	assert.ElementsMatch(t, types.Targets, result.MissingTargets)
}

func TestEvaluateSLA_NotChecked(t *testing.T) {
	cfg := enabledConfig()
	cfg.SLA.Checked = false

	result, err := EvaluateSLA(SLAInput{
		Records:    []types.MetricRecord{record("All", 2600)},
		Thresholds: []types.ThresholdDefinition{rt("all", types.ComparisonGT, 2000)},
		Config:     cfg,
	})
	require.NoError(t, err)
	assert.False(t, result.Configured)
	assert.Equal(t, 0, result.TotalChecked)
}

func TestEvaluateSLA_EveryNeverAppliesToAggregate(t *testing.T) {
	result, err := EvaluateSLA(SLAInput{
		Records:    []types.MetricRecord{record("All", 5000), record("Login", 500)},
		Thresholds: []types.ThresholdDefinition{rt("every", types.ComparisonGT, 100)},
		Config:     enabledConfig(),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalChecked)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "Login", result.Violations[0].RequestName)
}

func TestEvaluateSLA_PerRequestOnlyResponseTime(t *testing.T) {
	thresholds := []types.ThresholdDefinition{
		{Scope: "Login", Target: types.TargetThroughput, Comparison: types.ComparisonLT, Value: 1000},
		{Scope: "Login", Target: types.TargetErrorRate, Comparison: types.ComparisonGTE, Value: 0},
		{Scope: "every", Target: types.TargetErrorRate, Comparison: types.ComparisonGTE, Value: 0},
		{Scope: "every", Target: types.TargetThroughput, Comparison: types.ComparisonLT, Value: 1000},
	}
	result, err := EvaluateSLA(SLAInput{
		Records:    []types.MetricRecord{record("All", 100), record("Login", 100)},
		Thresholds: thresholds,
		Config:     enabledConfig(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalChecked)
	assert.Empty(t, result.Violations)
}

func TestEvaluateSLA_NamedBeatsEvery(t *testing.T) {
	result, err := EvaluateSLA(SLAInput{
		Records: []types.MetricRecord{record("Login", 1000), record("Search", 1000)},
		Thresholds: []types.ThresholdDefinition{
			rt("every", types.ComparisonGT, 100),
			rt("Login", types.ComparisonGT, 5000),
		},
		Config:   enabledConfig(),
		AddGreen: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalChecked)
	assert.Equal(t, 1, result.TotalViolated)
	assert.Equal(t, 50.0, result.ViolationRate)
	require.Len(t, result.Violations, 2)
	assert.Equal(t, "Login", result.Violations[0].RequestName)
	assert.Equal(t, types.ColorGreen, result.Violations[0].Color)
	assert.Equal(t, 5.0, result.Violations[0].Threshold)
	assert.Equal(t, "Search", result.Violations[1].RequestName)
	assert.Equal(t, types.ColorRed, result.Violations[1].Color)
}

func TestEvaluateSLA_AllScopeIsCaseSensitive(t *testing.T) {
	result, err := EvaluateSLA(SLAInput{
		Records:    []types.MetricRecord{record("All", 5000)},
		Thresholds: []types.ThresholdDefinition{rt("All", types.ComparisonGT, 100)},
		Config:     enabledConfig(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalChecked)
}

func TestEvaluateSLA_ConfigFlagsGateChecks(t *testing.T) {
	cfg := enabledConfig()
	cfg.Settings.SummaryResults.CheckResponseTime = false
	cfg.Settings.PerRequestResults.CheckResponseTime = false

	result, err := EvaluateSLA(SLAInput{
		Records: []types.MetricRecord{record("All", 5000), record("Login", 5000)},
		Thresholds: []types.ThresholdDefinition{
			rt("all", types.ComparisonGT, 100),
			rt("every", types.ComparisonGT, 100),
			{Scope: "all", Target: types.TargetErrorRate, Comparison: types.ComparisonGT, Value: 5},
		},
		Config: cfg,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalChecked)
	assert.Equal(t, 0, result.TotalViolated)
}

func TestEvaluateSLA_FirstDuplicateWins(t *testing.T) {
	result, err := EvaluateSLA(SLAInput{
		Records: []types.MetricRecord{record("All", 1500)},
		Thresholds: []types.ThresholdDefinition{
			rt("all", types.ComparisonGT, 2000),
			rt("all", types.ComparisonGT, 1000),
		},
		Config: enabledConfig(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalChecked)
	assert.Equal(t, 0, result.TotalViolated)
}

func TestEvaluateSLA_ComparisonMetricFilter(t *testing.T) {
	th := rt("all", types.ComparisonGT, 100)
	th.Aggregation = types.FieldPct99

	result, err := EvaluateSLA(SLAInput{
		Records:          []types.MetricRecord{record("All", 5000)},
		Thresholds:       []types.ThresholdDefinition{th},
		Config:           enabledConfig(),
		ComparisonMetric: types.FieldPct95,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalChecked)

	result, err = EvaluateSLA(SLAInput{
		Records:          []types.MetricRecord{record("All", 5000)},
		Thresholds:       []types.ThresholdDefinition{th},
		Config:           enabledConfig(),
		ComparisonMetric: types.FieldPct99,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalViolated)
	assert.Equal(t, 6.0, result.Violations[0].Metric)
}

func TestEvaluateSLA_DataErrorPolicy(t *testing.T) {
	broken := types.MetricRecord{RequestName: "Login", Total: 10, OK: 10}
	in := SLAInput{
		Records:    []types.MetricRecord{broken, record("Search", 3000)},
		Thresholds: []types.ThresholdDefinition{rt("every", types.ComparisonGT, 2000)},
		Config:     enabledConfig(),
	}

	_, err := EvaluateSLA(in)
	require.ErrorIs(t, err, ErrMissingField)

	in.DataErrorPolicy = DataErrorSkip
	result, err := EvaluateSLA(in)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalChecked)
	assert.Equal(t, 100.0, result.ViolationRate)
	require.Len(t, result.SkippedRows, 1)
	assert.Equal(t, "Login", result.SkippedRows[0].RequestName)
}

func TestEvaluateSLA_DebugTrace(t *testing.T) {
	in := SLAInput{
		Records:    []types.MetricRecord{record("All", 2600), record("Login", 100)},
		Thresholds: []types.ThresholdDefinition{rt("all", types.ComparisonGT, 2000), rt("every", types.ComparisonGT, 2000)},
		Config:     enabledConfig(),
	}

	result, err := EvaluateSLA(in)
	require.NoError(t, err)
	assert.Empty(t, result.Debug)

	in.Debug = true
	result, err = EvaluateSLA(in)
	require.NoError(t, err)
	require.Len(t, result.Debug, 2)
	assert.Equal(t, "All", result.Debug[0].Request)
	assert.Equal(t, "Login", result.Debug[1].Request)
}

func TestEvaluateSLA_MissingTargets(t *testing.T) {
	result, err := EvaluateSLA(SLAInput{
		Records:    []types.MetricRecord{record("All", 100)},
		Thresholds: []types.ThresholdDefinition{rt("all", types.ComparisonGT, 2000)},
		Config:     enabledConfig(),
	})
	require.NoError(t, err)
	assert.Equal(t, []types.Target{types.TargetErrorRate, types.TargetThroughput}, result.MissingTargets)
}

func genRecords(t *rapid.T) []types.MetricRecord {
	names := []string{"Login", "Search", "Checkout", "Logout"}
	n := rapid.IntRange(0, len(names)).Draw(t, "n")
	records := []types.MetricRecord{record("All", rapid.Float64Range(0, 10000).Draw(t, "all_pct95"))}
	for i := 0; i < n; i++ {
		records = append(records, record(names[i], rapid.Float64Range(0, 10000).Draw(t, names[i])))
	}
	return records
}

func genThresholds(t *rapid.T) []types.ThresholdDefinition {
	scopes := []string{"all", "All", "every", "Every", "Login", "Search"}
	targets := []types.Target{types.TargetResponseTime, types.TargetThroughput, types.TargetErrorRate}
	ops := []types.Comparison{types.ComparisonGT, types.ComparisonGTE, types.ComparisonLT, types.ComparisonLTE, types.ComparisonEQ}

	n := rapid.IntRange(0, 8).Draw(t, "thresholds")
	out := make([]types.ThresholdDefinition, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.ThresholdDefinition{
			Scope:       rapid.SampledFrom(scopes).Draw(t, "scope"),
			Target:      rapid.SampledFrom(targets).Draw(t, "target"),
			Aggregation: types.FieldPct95,
			Comparison:  rapid.SampledFrom(ops).Draw(t, "op"),
			Value:       rapid.Float64Range(0, 10000).Draw(t, "value"),
		})
	}
	return out
}

// TestProperty_SLAIdempotent checks that repeated evaluation of the same input
// yields the same rate and the same ordered violation list.
func TestProperty_SLAIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := SLAInput{
			Records:    genRecords(t),
			Thresholds: genThresholds(t),
			Config:     enabledConfig(),
			AddGreen:   rapid.Bool().Draw(t, "add_green"),
		}

		first, err := EvaluateSLA(in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := EvaluateSLA(in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if first.ViolationRate != second.ViolationRate {
			t.Fatalf("violation rate changed: %v != %v", first.ViolationRate, second.ViolationRate)
		}
		assert.Equal(t, first.Violations, second.Violations)
		if first.ViolationRate < 0 || first.ViolationRate > 100 {
			t.Fatalf("violation rate out of range: %v", first.ViolationRate)
		}
	})
}

// TestProperty_PerRequestRowsOnlyResponseTime checks that non-aggregate rows
// never produce throughput or error rate checks, and that only "all"
// thresholds reach the aggregate row.
func TestProperty_PerRequestRowsOnlyResponseTime(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		result, err := EvaluateSLA(SLAInput{
			Records:    genRecords(t),
			Thresholds: genThresholds(t),
			Config:     enabledConfig(),
			AddGreen:   true,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Violations) != result.TotalChecked {
			t.Fatalf("add_green kept %d records for %d checks", len(result.Violations), result.TotalChecked)
		}
		for _, v := range result.Violations {
			if v.RequestName != types.AggregateRequestName && v.Target != types.TargetResponseTime {
				t.Fatalf("request %s checked %s", v.RequestName, v.Target)
			}
		}
	})
}
