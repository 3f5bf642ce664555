// Package reportertest provides report fixtures for reporter tests.
package reportertest

import (
	"time"

	"yqhp/quality-gate/pkg/types"
)

// EvaluatedAt is the timestamp of Failed and Passed.
var EvaluatedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// Failed returns a report with one red and one green SLA check, one
// baseline degradation and a FAILED verdict.
func Failed() *types.QualityGateReport {
	return &types.QualityGateReport{
		ID:               "7f1c2d",
		TestName:         "checkout",
		Environment:      "staging",
		ComparisonMetric: types.FieldPct95,
		EvaluatedAt:      EvaluatedAt,
		SLA: &types.SLAResult{
			Configured:    true,
			TotalChecked:  2,
			TotalViolated: 1,
			ViolationRate: 50,
			Violations: []types.ViolationRecord{
				{
					RequestName: "all",
					Target:      types.TargetResponseTime,
					Aggregation: "pct95",
					Metric:      2.6,
					RawMetric:   2600,
					Value:       2000,
					Threshold:   2.5,
					Deviation:   500,
					Color:       types.ColorRed,
					Comparison:  types.ComparisonGT,
				},
				{
					RequestName: "Login",
					Target:      types.TargetResponseTime,
					Aggregation: "pct95",
					Metric:      0.8,
					RawMetric:   800,
					Value:       1000,
					Threshold:   1,
					Color:       types.ColorGreen,
					Comparison:  types.ComparisonGT,
				},
			},
		},
		Baseline: &types.BaselineResult{
			Configured:       true,
			TotalComparisons: 2,
			TotalViolated:    1,
			DegradationRate:  50,
			Degradations: []types.DegradationRecord{
				{
					RequestName:           "Login",
					Metric:                types.TargetResponseTime,
					Aggregation:           "pct95",
					Current:               1.2,
					Baseline:              1,
					BaselineWithDeviation: 1.05,
					Deviation:             0.05,
					PercentChange:         20,
				},
			},
		},
		Verdict: types.Verdict{
			Status:        types.StatusFailed,
			Color:         types.ColorRed,
			FailedReasons: []string{"missed thresholds rate - 50.0 %"},
			ErrorRate:     1.5,
		},
	}
}

// Passed returns a report with no configured checks and a SUCCESS verdict.
func Passed() *types.QualityGateReport {
	return &types.QualityGateReport{
		ID:               "9a0b3e",
		TestName:         "search",
		ComparisonMetric: types.FieldPct95,
		EvaluatedAt:      EvaluatedAt,
		SLA:              &types.SLAResult{Violations: []types.ViolationRecord{}},
		Verdict: types.Verdict{
			Status: types.StatusSuccess,
			Color:  types.ColorGreen,
		},
	}
}
