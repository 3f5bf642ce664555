package qualitygate

import (
	"errors"

	"yqhp/quality-gate/pkg/logger"
	"yqhp/quality-gate/pkg/metrics"
	"yqhp/quality-gate/pkg/types"
)

// BaselineInput is everything the baseline path needs for one run.
type BaselineInput struct {
	Baseline         []types.BaselineRecord
	Current          []types.MetricRecord
	Config           types.QualityGateConfig
	ComparisonMetric string

	DataErrorPolicy DataErrorPolicy
}

func (in BaselineInput) comparisonMetric() string {
	if in.ComparisonMetric == "" {
		return DefaultComparisonMetric
	}
	return in.ComparisonMetric
}

// comparison is one current-versus-baseline check, in display units.
type comparison struct {
	name      string
	target    types.Target
	current   float64
	baseline  float64
	limit     float64
	deviation float64
	// percent change is computed from the unconverted values
	rawCurrent  float64
	rawBaseline float64
}

// failed applies the direction of target: throughput must not drop below
// the limit, response time and error rate must not rise above it.
func (c comparison) failed() bool {
	if c.target == types.TargetThroughput {
		return c.current < c.limit
	}
	return c.current > c.limit
}

func (c comparison) operator() string {
	if c.target == types.TargetThroughput {
		return "<"
	}
	return ">"
}

func (c comparison) detail() types.BaselineDetail {
	return types.BaselineDetail{
		Name:                  c.name,
		Metric:                c.target,
		Current:               c.current,
		Baseline:              c.baseline,
		BaselineWithDeviation: c.limit,
		Deviation:             c.deviation,
		Comparison:            c.operator(),
		Passed:                !c.failed(),
	}
}

func (c comparison) degradation(aggregation string) types.DegradationRecord {
	return types.DegradationRecord{
		RequestName:           c.name,
		Metric:                c.target,
		Aggregation:           aggregation,
		Current:               c.current,
		Baseline:              c.baseline,
		BaselineWithDeviation: c.limit,
		Deviation:             c.deviation,
		PercentChange:         PercentChange(c.rawCurrent, c.rawBaseline),
	}
}

// PercentChange returns round((current-baseline)/baseline*100, 2), or 0
// when baseline is 0.
func PercentChange(current, baseline float64) float64 {
	if baseline == 0 {
		return 0
	}
	return metrics.Round2((current - baseline) / baseline * 100)
}

// responseTimeComparison builds a response time check. The deviation is
// added to the baseline in milliseconds and the sum converted to seconds.
func responseTimeComparison(name, field string, current, baseline types.MetricRecord, deviation float64) (comparison, error) {
	c, ok := current.Field(field)
	if !ok {
		return comparison{}, &DataError{RequestName: name, Target: types.TargetResponseTime, Field: field, Source: "current"}
	}
	b, ok := baseline.Field(field)
	if !ok {
		return comparison{}, &DataError{RequestName: name, Target: types.TargetResponseTime, Field: field, Source: "baseline"}
	}
	return comparison{
		name:        name,
		target:      types.TargetResponseTime,
		current:     metrics.Round2(metrics.MsToSeconds(c)),
		baseline:    metrics.Round2(metrics.MsToSeconds(b)),
		limit:       metrics.Round2(metrics.MsToSeconds(b + deviation)),
		deviation:   metrics.MsToSeconds(deviation),
		rawCurrent:  c,
		rawBaseline: b,
	}, nil
}

// throughputComparison and errorRateComparison apply the deviation to the
// baseline after rounding it to two decimals.
func throughputComparison(name string, current, baseline types.MetricRecord, deviation float64) (comparison, error) {
	c, ok := current.Field(types.FieldThroughput)
	if !ok {
		return comparison{}, &DataError{RequestName: name, Target: types.TargetThroughput, Field: types.FieldThroughput, Source: "current"}
	}
	b, ok := baseline.Field(types.FieldThroughput)
	if !ok {
		return comparison{}, &DataError{RequestName: name, Target: types.TargetThroughput, Field: types.FieldThroughput, Source: "baseline"}
	}
	return comparison{
		name:        name,
		target:      types.TargetThroughput,
		current:     metrics.Round2(c),
		baseline:    metrics.Round2(b),
		limit:       metrics.Round2(metrics.Round2(b) - deviation),
		deviation:   deviation,
		rawCurrent:  c,
		rawBaseline: b,
	}, nil
}

func errorRateComparison(name string, current, baseline types.MetricRecord, deviation float64) comparison {
	c := ErrorRate(current)
	b := ErrorRate(baseline)
	return comparison{
		name:        name,
		target:      types.TargetErrorRate,
		current:     metrics.Round2(c),
		baseline:    metrics.Round2(b),
		limit:       metrics.Round2(metrics.Round2(b) + deviation),
		deviation:   deviation,
		rawCurrent:  c,
		rawBaseline: b,
	}
}

// findBaseline returns the first baseline row whose name equals name exactly.
func findBaseline(baseline []types.BaselineRecord, name string) (types.BaselineRecord, bool) {
	for _, b := range baseline {
		if b.RequestName == name {
			return b, true
		}
	}
	return types.BaselineRecord{}, false
}

type baselineTally struct {
	in     BaselineInput
	result *types.BaselineResult
}

// record tallies one comparison. A DataError is either returned or, under
// the skip policy, recorded and swallowed.
func (t *baselineTally) record(c comparison, err error, aggregate bool) error {
	if err != nil {
		var dataErr *DataError
		if errors.As(err, &dataErr) && t.in.DataErrorPolicy == DataErrorSkip {
			logger.Warn("Skipping baseline comparison with missing data",
				"request", dataErr.RequestName, "target", dataErr.Target,
				"field", dataErr.Field, "source", dataErr.Source)
			t.result.SkippedRows = append(t.result.SkippedRows, skippedRow(dataErr))
			return nil
		}
		return err
	}

	r := t.result
	r.TotalComparisons++
	detail := c.detail()
	failed := c.failed()
	if aggregate {
		r.Debug.AllDetails = append(r.Debug.AllDetails, detail)
		if failed {
			r.Debug.AllFailed++
		} else {
			r.Debug.AllPassed++
		}
	} else {
		if len(r.Debug.IndividualDetails) < MaxDebugEntries {
			r.Debug.IndividualDetails = append(r.Debug.IndividualDetails, detail)
		}
		if failed {
			r.Debug.IndividualFailed++
		} else {
			r.Debug.IndividualPassed++
		}
	}
	if failed {
		r.TotalViolated++
		aggregation := ""
		if c.target == types.TargetResponseTime {
			aggregation = t.in.comparisonMetric()
		}
		r.Degradations = append(r.Degradations, c.degradation(aggregation))
	}
	return nil
}

// CompareBaseline compares the current run against a previous one.
// Per-request rows compare response time only; the aggregate row compares
// throughput, error rate and response time, each behind its own flag.
// Nothing is compared unless baseline checks are enabled.
func CompareBaseline(in BaselineInput) (*types.BaselineResult, error) {
	summary := in.Config.Settings.SummaryResults
	perRequest := in.Config.Settings.PerRequestResults

	result := &types.BaselineResult{
		Configured:   in.Config.Baseline.Checked && len(in.Baseline) > 0,
		Degradations: []types.DegradationRecord{},
		Debug: types.BaselineDebug{
			SummaryResponseTimeCheck:    summary.CheckResponseTime,
			SummaryErrorRateCheck:       summary.CheckErrorRate,
			SummaryThroughputCheck:      summary.CheckThroughput,
			PerRequestResponseTimeCheck: perRequest.CheckResponseTime,
			IndividualDetails:           []types.BaselineDetail{},
			AllDetails:                  []types.BaselineDetail{},
		},
	}
	if !result.Configured {
		return result, nil
	}

	field := in.comparisonMetric()
	tally := &baselineTally{in: in, result: result}

	if perRequest.CheckResponseTime {
		for _, current := range in.Current {
			if current.IsAggregate() {
				continue
			}
			base, ok := findBaseline(in.Baseline, current.RequestName)
			if !ok {
				continue
			}
			c, err := responseTimeComparison(current.RequestName, field, current, base, perRequest.ResponseTimeDeviation)
			if err := tally.record(c, err, false); err != nil {
				return nil, err
			}
		}
	}

	current, hasCurrent := types.FindAggregate(in.Current)
	base, hasBase := types.FindAggregate(in.Baseline)
	if hasCurrent && hasBase {
		name := types.AggregateRequestName
		if summary.CheckThroughput {
			c, err := throughputComparison(name, current, base, summary.ThroughputDeviation)
			if err := tally.record(c, err, true); err != nil {
				return nil, err
			}
		}
		if summary.CheckErrorRate {
			c := errorRateComparison(name, current, base, summary.ErrorRateDeviation)
			if err := tally.record(c, nil, true); err != nil {
				return nil, err
			}
		}
		if summary.CheckResponseTime {
			c, err := responseTimeComparison(name, field, current, base, summary.ResponseTimeDeviation)
			if err := tally.record(c, err, true); err != nil {
				return nil, err
			}
		}
	} else if summary.CheckThroughput || summary.CheckErrorRate || summary.CheckResponseTime {
		logger.Warn("Aggregate row missing, skipping summary baseline comparisons",
			"current", hasCurrent, "baseline", hasBase)
	}

	result.DegradationRate = metrics.Rate(result.TotalViolated, result.TotalComparisons)
	logger.Debug("Baseline compared",
		"comparisons", result.TotalComparisons,
		"degraded", result.TotalViolated,
		"degradation_rate", result.DegradationRate)
	return result, nil
}
