package qualitygate

import (
	"strconv"
	"strings"

	"yqhp/quality-gate/pkg/metrics"
	"yqhp/quality-gate/pkg/types"
)

// Limits are the tolerated rates, in percent. A nil limit disables its check.
type Limits struct {
	MissedThresholdsRate *float64 `json:"missed_thresholds_rate,omitempty" yaml:"missed_thresholds_rate,omitempty"`
	DegradationRate      *float64 `json:"degradation_rate,omitempty" yaml:"degradation_rate,omitempty"`
	ErrorRate            *float64 `json:"error_rate,omitempty" yaml:"error_rate,omitempty"`
}

// RunErrorRate is the error rate of the whole run: the aggregate row's when
// present, otherwise ko/total summed over every row.
func RunErrorRate(records []types.MetricRecord) float64 {
	if agg, ok := types.FindAggregate(records); ok {
		return metrics.Round2(ErrorRate(agg))
	}
	var total, ko int64
	for _, r := range records {
		total += r.Total
		ko += r.KO
	}
	return metrics.Round2(metrics.Percent(float64(ko), float64(total)))
}

// Decide turns the evaluation results into a pass/fail verdict. A check
// fails only when its rate strictly exceeds its limit. Reasons are listed
// in the order error rate, degradation, missed thresholds.
func Decide(records []types.MetricRecord, sla *types.SLAResult, baseline *types.BaselineResult, limits Limits) types.Verdict {
	v := types.Verdict{
		Status:    types.StatusSuccess,
		Color:     types.ColorGreen,
		ErrorRate: RunErrorRate(records),
	}

	if limits.ErrorRate != nil && v.ErrorRate > *limits.ErrorRate {
		v.FailedReasons = append(v.FailedReasons, "error rate - "+formatRate(v.ErrorRate)+" %")
	}
	if limits.DegradationRate != nil && baseline != nil && baseline.Configured &&
		baseline.DegradationRate > *limits.DegradationRate {
		v.FailedReasons = append(v.FailedReasons,
			"performance degradation rate - "+formatRate(baseline.DegradationRate)+" %")
	}
	if limits.MissedThresholdsRate != nil && sla != nil &&
		sla.ViolationRate > *limits.MissedThresholdsRate {
		v.FailedReasons = append(v.FailedReasons,
			"missed thresholds rate - "+formatRate(sla.ViolationRate)+" %")
	}

	if len(v.FailedReasons) > 0 {
		v.Status = types.StatusFailed
		v.Color = types.ColorRed
	}
	return v
}

// formatRate prints whole numbers with one decimal, so 50 reads "50.0".
func formatRate(x float64) string {
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if strings.ContainsRune(s, '.') {
		return s
	}
	return s + ".0"
}
