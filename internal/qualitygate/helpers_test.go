package qualitygate

import "yqhp/quality-gate/pkg/types"

func f(v float64) *float64 { return types.Float(v) }

func record(name string, pct95 float64) types.MetricRecord {
	return types.MetricRecord{
		RequestName: name,
		Total:       100,
		OK:          100,
		Throughput:  f(10),
		Mean:        f(pct95 / 2),
		Pct50:       f(pct95 / 2),
		Pct95:       f(pct95),
		Pct99:       f(pct95 * 1.2),
	}
}

func rt(scope string, cmp types.Comparison, value float64) types.ThresholdDefinition {
	return types.ThresholdDefinition{
		Scope:       scope,
		Target:      types.TargetResponseTime,
		Aggregation: types.FieldPct95,
		Comparison:  cmp,
		Value:       value,
	}
}

func enabledConfig() types.QualityGateConfig {
	all := types.ResultSettings{CheckResponseTime: true, CheckErrorRate: true, CheckThroughput: true}
	return types.QualityGateConfig{
		SLA:      types.GateToggle{Checked: true},
		Baseline: types.GateToggle{Checked: true},
		Settings: types.QualityGateSettings{SummaryResults: all, PerRequestResults: all},
	}
}
