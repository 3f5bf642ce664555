package types

import "time"

// Status is the overall quality gate outcome.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Verdict combines the SLA and baseline results against the configured limits.
type Verdict struct {
	Status        Status   `json:"status"`
	Color         Color    `json:"color"`
	FailedReasons []string `json:"failed_reasons,omitempty"`
	ErrorRate     float64  `json:"error_rate"`
}

// QualityGateReport is the full result of one evaluation run.
type QualityGateReport struct {
	ID               string    `json:"id"`
	TestName         string    `json:"test_name,omitempty"`
	Environment      string    `json:"environment,omitempty"`
	ComparisonMetric string    `json:"comparison_metric"`
	EvaluatedAt      time.Time `json:"evaluated_at"`

	SLA      *SLAResult      `json:"sla"`
	Baseline *BaselineResult `json:"baseline,omitempty"`
	Verdict  Verdict         `json:"verdict"`
}

// StepResult holds the raw samples of one UI step (page), keyed by metric name.
type StepResult struct {
	Name    string               `json:"name"`
	Metrics map[string][]float64 `json:"metrics"`
}

// ScopedFailure is a failed scoped threshold together with the measured value.
type ScopedFailure struct {
	ThresholdDefinition
	ActualValue float64 `json:"actual_value"`
	Page        string  `json:"page,omitempty"`
}

// ScopedResult is the outcome of the sample-based threshold engine.
type ScopedResult struct {
	FailedThresholds []ScopedFailure `json:"failed_thresholds"`
	Total            int             `json:"test_thresholds_total"`
	Failed           int             `json:"test_thresholds_failed"`

	AllThresholds   []ThresholdDefinition `json:"all_thresholds,omitempty"`
	EveryThresholds []ThresholdDefinition `json:"every_thresholds,omitempty"`
	PageThresholds  []ThresholdDefinition `json:"page_thresholds,omitempty"`
}

// Merge adds the counts and failures of other into r.
func (r *ScopedResult) Merge(other *ScopedResult) {
	if other == nil {
		return
	}
	r.FailedThresholds = append(r.FailedThresholds, other.FailedThresholds...)
	r.Total += other.Total
	r.Failed += other.Failed
}
