package qualitygate

import (
	"errors"

	"yqhp/quality-gate/pkg/logger"
	"yqhp/quality-gate/pkg/metrics"
	"yqhp/quality-gate/pkg/types"
)

// DefaultComparisonMetric is used when the caller does not pick one.
const DefaultComparisonMetric = types.FieldPct95

// SLAInput is everything the threshold path needs for one run.
type SLAInput struct {
	Records          []types.MetricRecord
	Thresholds       []types.ThresholdDefinition
	Config           types.QualityGateConfig
	ComparisonMetric string

	// AddGreen keeps passing checks in the violation list.
	AddGreen bool
	// Debug returns a bounded trace of the comparisons performed.
	Debug       bool
	UseDefaults bool

	DataErrorPolicy DataErrorPolicy
}

func (in SLAInput) comparisonMetric() string {
	if in.ComparisonMetric == "" {
		return DefaultComparisonMetric
	}
	return in.ComparisonMetric
}

// EvaluateSLA checks every record against the thresholds that apply to it
// and tallies the violation rate. Only checks whose config flag is on are
// counted. Only the first aggregate row is evaluated. A DataError aborts the run unless the policy is skip.
func EvaluateSLA(in SLAInput) (*types.SLAResult, error) {
	result := &types.SLAResult{
		Configured:     in.Config.SLA.Checked && len(in.Thresholds) > 0,
		UseDefaults:    in.UseDefaults,
		Violations:     []types.ViolationRecord{},
		MissingTargets: MissingTargets(in.Thresholds),
	}
	if !in.Config.SLA.Checked || len(in.Thresholds) == 0 {
		return result, nil
	}

	resolver := NewScopeResolver(in.Thresholds, in.comparisonMetric())
	evaluator := NewEvaluator(in.Config)
	var trace *Trace
	if in.Debug {
		trace = NewTrace()
	}

	if _, ok := types.FindAggregate(in.Records); !ok && len(resolver.Global()) > 0 {
		logger.Warn("Aggregate row missing, skipping thresholds scoped to all",
			"thresholds", len(resolver.Global()))
	}

	seenAggregate := false
	for _, record := range in.Records {
		aggregate := record.IsAggregate()
		if aggregate {
			if seenAggregate {
				logger.Warn("Duplicate aggregate row ignored", "request", record.RequestName)
				continue
			}
			seenAggregate = true
		}
		section := in.Config.Section(aggregate)

		for _, th := range resolver.Resolve(record) {
			if !section.Checks(th.Target) {
				continue
			}

			eval, err := evaluator.EvaluateWithTrace(record, th, trace)
			if err != nil {
				var dataErr *DataError
				if errors.As(err, &dataErr) && in.DataErrorPolicy == DataErrorSkip {
					dataErr.Source = "current"
					logger.Warn("Skipping row with missing data",
						"request", record.RequestName, "target", th.Target, "field", dataErr.Field)
					result.SkippedRows = append(result.SkippedRows, skippedRow(dataErr))
					continue
				}
				return nil, err
			}

			result.TotalChecked++
			if eval.Violated() {
				result.TotalViolated++
			}
			if eval.Violated() || in.AddGreen {
				name := record.RequestName
				if aggregate {
					name = types.AggregateRequestName
				}
				result.Violations = append(result.Violations, types.ViolationRecord{
					RequestName: name,
					Target:      th.Target,
					Aggregation: th.Aggregation,
					Metric:      eval.Metric,
					RawMetric:   eval.RawMetric,
					Value:       th.Value,
					Threshold:   eval.Threshold,
					Deviation:   eval.Deviation,
					Color:       eval.Color,
					Comparison:  th.Comparison,
				})
			}
		}
	}

	result.ViolationRate = metrics.Rate(result.TotalViolated, result.TotalChecked)
	result.Debug = trace.Entries()

	logger.Debug("SLA evaluated",
		"checked", result.TotalChecked,
		"violated", result.TotalViolated,
		"violation_rate", result.ViolationRate)
	return result, nil
}
