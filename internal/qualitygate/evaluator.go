package qualitygate

import (
	"yqhp/quality-gate/pkg/metrics"
	"yqhp/quality-gate/pkg/types"
)

// MaxDebugEntries bounds the per-call SLA debug trace.
const MaxDebugEntries = 15

// Trace collects SLA debug entries for a single evaluation call.
// A nil *Trace records nothing.
type Trace struct {
	entries []types.SLADebugEntry
}

// NewTrace returns an empty trace.
func NewTrace() *Trace {
	return &Trace{}
}

func (t *Trace) add(e types.SLADebugEntry) {
	if t == nil || len(t.entries) >= MaxDebugEntries {
		return
	}
	t.entries = append(t.entries, e)
}

// Entries returns a copy of the recorded entries.
func (t *Trace) Entries() []types.SLADebugEntry {
	if t == nil || len(t.entries) == 0 {
		return nil
	}
	out := make([]types.SLADebugEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Evaluation is the outcome of comparing one record against one threshold.
type Evaluation struct {
	Color types.Color
	// RawMetric is the value read from the record, in source units.
	RawMetric float64
	// Metric is the rounded value actually compared (seconds for response_time).
	Metric float64
	// Threshold is the deviation-adjusted, rounded threshold.
	Threshold float64
	// Deviation is the applied tolerance, in source units.
	Deviation float64
}

// Violated reports whether the comparison failed.
func (e Evaluation) Violated() bool {
	return e.Color == types.ColorRed
}

// Evaluator compares records against thresholds using the tolerances of a
// quality gate config.
type Evaluator struct {
	config types.QualityGateConfig
}

// NewEvaluator creates an Evaluator for config.
func NewEvaluator(config types.QualityGateConfig) *Evaluator {
	return &Evaluator{config: config}
}

// ExtractMetric reads the raw value a threshold targets from record.
// error_rate is derived from ko/total and is 0 when total is 0.
func ExtractMetric(record types.MetricRecord, th types.ThresholdDefinition) (float64, error) {
	switch th.Target {
	case types.TargetResponseTime:
		v, ok := record.Field(th.Aggregation)
		if !ok {
			return 0, &DataError{RequestName: record.RequestName, Target: th.Target, Field: th.Aggregation}
		}
		return v, nil
	case types.TargetThroughput:
		v, ok := record.Field(types.FieldThroughput)
		if !ok {
			return 0, &DataError{RequestName: record.RequestName, Target: th.Target, Field: types.FieldThroughput}
		}
		return v, nil
	default:
		return ErrorRate(record), nil
	}
}

// ErrorRate returns ko/total*100 for record, or 0 when total is 0.
func ErrorRate(record types.MetricRecord) float64 {
	return metrics.Percent(float64(record.KO), float64(record.Total))
}

// Deviation returns the configured tolerance for th in source units.
// Thresholds scoped to "all" read summary_results, everything else
// per_request_results; the threshold's own deviation field is ignored.
func (e *Evaluator) Deviation(th types.ThresholdDefinition) float64 {
	aggregate := ParseScope(th.Scope).Kind == ScopeAll
	return e.config.Section(aggregate).DeviationFor(th.Target)
}

// Evaluate compares record against th.
func (e *Evaluator) Evaluate(record types.MetricRecord, th types.ThresholdDefinition) (Evaluation, error) {
	return e.EvaluateWithTrace(record, th, nil)
}

// EvaluateWithTrace is Evaluate that also appends a debug entry to trace.
func (e *Evaluator) EvaluateWithTrace(record types.MetricRecord, th types.ThresholdDefinition, trace *Trace) (Evaluation, error) {
	raw, err := ExtractMetric(record, th)
	if err != nil {
		return Evaluation{}, err
	}

	deviation := e.Deviation(th)
	var metric, threshold, tolerance float64
	if th.Target == types.TargetResponseTime {
		metric = metrics.Round2(metrics.MsToSeconds(raw))
		threshold = metrics.Round2(metrics.MsToSeconds(th.Value))
		tolerance = metrics.MsToSeconds(deviation)
	} else {
		metric = metrics.Round2(raw)
		threshold = metrics.Round2(th.Value)
		tolerance = deviation
	}

	switch th.Comparison {
	case types.ComparisonGT, types.ComparisonGTE:
		threshold += tolerance
	case types.ComparisonLT, types.ComparisonLTE:
		threshold -= tolerance
	}
	threshold = metrics.Round2(threshold)

	violated := th.Comparison.Apply(metric, threshold)
	color := types.ColorGreen
	if violated {
		color = types.ColorRed
	}

	trace.add(types.SLADebugEntry{
		Request:                record.RequestName,
		Target:                 th.Target,
		MetricOriginal:         raw,
		MetricRounded:          metric,
		Comparison:             th.Comparison,
		ThresholdOriginal:      th.Value,
		Deviation:              tolerance,
		ThresholdWithDeviation: threshold,
		Result:                 violated,
		Color:                  color,
	})

	return Evaluation{
		Color:     color,
		RawMetric: raw,
		Metric:    metric,
		Threshold: threshold,
		Deviation: deviation,
	}, nil
}
