package types

// Target is the quantity a threshold constrains.
type Target string

const (
	TargetResponseTime Target = "response_time"
	TargetThroughput   Target = "throughput"
	TargetErrorRate    Target = "error_rate"
)

// Targets lists every target in reporting order.
var Targets = []Target{TargetResponseTime, TargetErrorRate, TargetThroughput}

// Comparison is a threshold operator. A true comparison is a violation.
type Comparison string

const (
	ComparisonGT  Comparison = "gt"
	ComparisonGTE Comparison = "gte"
	ComparisonLT  Comparison = "lt"
	ComparisonLTE Comparison = "lte"
	ComparisonEQ  Comparison = "eq"
)

// Apply evaluates actual <op> threshold. Unknown operators never fail.
func (c Comparison) Apply(actual, threshold float64) bool {
	switch c {
	case ComparisonGT:
		return actual > threshold
	case ComparisonGTE:
		return actual >= threshold
	case ComparisonLT:
		return actual < threshold
	case ComparisonLTE:
		return actual <= threshold
	case ComparisonEQ:
		return actual == threshold
	}
	return false
}

// Valid reports whether c is a known operator.
func (c Comparison) Valid() bool {
	switch c {
	case ComparisonGT, ComparisonGTE, ComparisonLT, ComparisonLTE, ComparisonEQ:
		return true
	}
	return false
}

// Color marks a checked threshold as passing (green) or violated (red).
type Color string

const (
	ColorGreen Color = "green"
	ColorRed   Color = "red"
)

// ThresholdDefinition is one configured SLA threshold.
// Value is in source units (milliseconds for response_time).
type ThresholdDefinition struct {
	Scope       string     `json:"scope" yaml:"scope"`
	Target      Target     `json:"target" yaml:"target"`
	Aggregation string     `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
	Comparison  Comparison `json:"comparison" yaml:"comparison"`
	Value       float64    `json:"value" yaml:"value"`

	// Deviation is accepted for compatibility with the threshold store but
	// never used; tolerances always come from QualityGateConfig.
	Deviation float64 `json:"deviation,omitempty" yaml:"deviation,omitempty"`

	Test        string `json:"test,omitempty" yaml:"test,omitempty"`
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`
}

// GateToggle enables one family of checks.
type GateToggle struct {
	Checked bool `json:"checked" yaml:"checked"`
}

// ResultSettings holds the per-section check flags and tolerances.
// ResponseTimeDeviation is in milliseconds, ErrorRateDeviation in percentage points.
type ResultSettings struct {
	CheckResponseTime bool `json:"check_response_time" yaml:"check_response_time"`
	CheckErrorRate    bool `json:"check_error_rate" yaml:"check_error_rate"`
	CheckThroughput   bool `json:"check_throughput" yaml:"check_throughput"`

	ResponseTimeDeviation float64 `json:"response_time_deviation" yaml:"response_time_deviation"`
	ThroughputDeviation   float64 `json:"throughput_deviation" yaml:"throughput_deviation"`
	ErrorRateDeviation    float64 `json:"error_rate_deviation" yaml:"error_rate_deviation"`
}

// Checks reports whether the section enables checks for target.
func (s ResultSettings) Checks(target Target) bool {
	switch target {
	case TargetResponseTime:
		return s.CheckResponseTime
	case TargetErrorRate:
		return s.CheckErrorRate
	case TargetThroughput:
		return s.CheckThroughput
	}
	return false
}

// DeviationFor returns the configured tolerance for target in source units.
func (s ResultSettings) DeviationFor(target Target) float64 {
	switch target {
	case TargetResponseTime:
		return s.ResponseTimeDeviation
	case TargetErrorRate:
		return s.ErrorRateDeviation
	case TargetThroughput:
		return s.ThroughputDeviation
	}
	return 0
}

// QualityGateSettings groups the aggregate-row and per-request sections.
type QualityGateSettings struct {
	SummaryResults    ResultSettings `json:"summary_results" yaml:"summary_results"`
	PerRequestResults ResultSettings `json:"per_request_results" yaml:"per_request_results"`
}

// QualityGateConfig is the per-test quality gate configuration.
type QualityGateConfig struct {
	SLA      GateToggle          `json:"SLA" yaml:"SLA"`
	Baseline GateToggle          `json:"baseline" yaml:"baseline"`
	Settings QualityGateSettings `json:"settings" yaml:"settings"`
}

// Section returns summary_results for the aggregate row and
// per_request_results for everything else.
func (c QualityGateConfig) Section(aggregate bool) ResultSettings {
	if aggregate {
		return c.Settings.SummaryResults
	}
	return c.Settings.PerRequestResults
}

// ViolationRecord is one performed SLA check. Value is the configured
// threshold as written; Threshold is the converted, deviation-adjusted
// value Metric was compared against.
type ViolationRecord struct {
	RequestName string     `json:"request_name"`
	Target      Target     `json:"target"`
	Aggregation string     `json:"aggregation,omitempty"`
	Metric      float64    `json:"metric"`
	RawMetric   float64    `json:"raw_metric"`
	Value       float64    `json:"value"`
	Threshold   float64    `json:"threshold_value"`
	Deviation   float64    `json:"deviation"`
	Color       Color      `json:"color"`
	Comparison  Comparison `json:"comparison"`
}

// SLADebugEntry traces a single threshold comparison.
type SLADebugEntry struct {
	Request                string     `json:"request"`
	Target                 Target     `json:"target"`
	MetricOriginal         float64    `json:"metric_original"`
	MetricRounded          float64    `json:"metric_rounded"`
	Comparison             Comparison `json:"comparison"`
	ThresholdOriginal      float64    `json:"threshold_original"`
	Deviation              float64    `json:"deviation"`
	ThresholdWithDeviation float64    `json:"threshold_with_deviation"`
	Result                 bool       `json:"result"`
	Color                  Color      `json:"color"`
}

// SkippedRow records a row dropped because of a data error.
type SkippedRow struct {
	RequestName string `json:"request_name"`
	Target      Target `json:"target"`
	Reason      string `json:"reason"`
}

// SLAResult is the outcome of the threshold path.
type SLAResult struct {
	// Configured is true when SLA checks are enabled and at least one
	// threshold definition was supplied.
	Configured  bool `json:"configured"`
	UseDefaults bool `json:"use_defaults"`

	TotalChecked  int               `json:"total_checked"`
	TotalViolated int               `json:"total_violated"`
	ViolationRate float64           `json:"violation_rate"`
	Violations    []ViolationRecord `json:"violations"`

	// MissingTargets lists targets with no threshold definition at all.
	MissingTargets []Target        `json:"missing_targets,omitempty"`
	SkippedRows    []SkippedRow    `json:"skipped_rows,omitempty"`
	Debug          []SLADebugEntry `json:"debug,omitempty"`
}

// HasViolations reports whether any performed check failed.
func (r *SLAResult) HasViolations() bool {
	return r != nil && r.TotalViolated > 0
}

// DegradationRecord is one failed baseline comparison.
type DegradationRecord struct {
	RequestName           string  `json:"request_name"`
	Metric                Target  `json:"metric"`
	Aggregation           string  `json:"aggregation,omitempty"`
	Current               float64 `json:"current"`
	Baseline              float64 `json:"baseline"`
	BaselineWithDeviation float64 `json:"baseline_with_deviation"`
	Deviation             float64 `json:"deviation"`
	PercentChange         float64 `json:"percent_change"`
}

// BaselineDetail traces one baseline comparison.
type BaselineDetail struct {
	Name                  string  `json:"name"`
	Metric                Target  `json:"metric"`
	Current               float64 `json:"current"`
	Baseline              float64 `json:"baseline"`
	BaselineWithDeviation float64 `json:"baseline_with_dev"`
	Deviation             float64 `json:"deviation"`
	Comparison            string  `json:"comparison"`
	Passed                bool    `json:"passed"`
}

// BaselineDebug summarises what the baseline comparator did.
type BaselineDebug struct {
	SummaryResponseTimeCheck    bool `json:"summary_rt_check"`
	SummaryErrorRateCheck       bool `json:"summary_er_check"`
	SummaryThroughputCheck      bool `json:"summary_tp_check"`
	PerRequestResponseTimeCheck bool `json:"per_request_rt_check"`

	AllPassed        int `json:"all_passed"`
	AllFailed        int `json:"all_failed"`
	IndividualPassed int `json:"individual_passed"`
	IndividualFailed int `json:"individual_failed"`

	IndividualDetails []BaselineDetail `json:"individual_details"`
	AllDetails        []BaselineDetail `json:"all_details"`
}

// BaselineResult is the outcome of the baseline path.
type BaselineResult struct {
	// Configured is true when baseline checks are enabled and baseline rows exist.
	Configured bool `json:"configured"`

	TotalComparisons int                 `json:"total_comparisons"`
	TotalViolated    int                 `json:"total_violated"`
	DegradationRate  float64             `json:"degradation_rate"`
	Degradations     []DegradationRecord `json:"degradations"`

	SkippedRows []SkippedRow  `json:"skipped_rows,omitempty"`
	Debug       BaselineDebug `json:"debug"`
}

// HasDegradations reports whether any baseline comparison failed.
func (r *BaselineResult) HasDegradations() bool {
	return r != nil && r.TotalViolated > 0
}
