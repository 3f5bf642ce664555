package rest

import (
	"yqhp/quality-gate/internal/parser"
	"yqhp/quality-gate/internal/qualitygate"
	"yqhp/quality-gate/pkg/types"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadyResponse represents a readiness check response.
type ReadyResponse struct {
	Ready     bool   `json:"ready"`
	Status    string `json:"status"`
	Platform  bool   `json:"platform"`
	Reporters int    `json:"reporters"`
	Timestamp string `json:"timestamp"`
}

// EvaluationOptions are the per-request evaluation switches. Unset fields
// fall back to the server defaults.
type EvaluationOptions struct {
	ComparisonMetric string   `json:"comparison_metric,omitempty"`
	AddGreen         *bool    `json:"add_green,omitempty"`
	Debug            *bool    `json:"debug,omitempty"`
	UseDefaults      *bool    `json:"use_defaults,omitempty"`
	DataErrorPolicy  string   `json:"data_error_policy,omitempty"`
	MissedThresholds *float64 `json:"missed_thresholds_rate,omitempty"`
	DegradationRate  *float64 `json:"degradation_rate,omitempty"`
	ErrorRate        *float64 `json:"error_rate,omitempty"`
}

// EvaluateRequest is the body of POST /api/v1/quality-gate/evaluate.
//
// QualityGate is decoded leniently: malformed settings fall back to their
// defaults and are reported in the response warnings. When FetchFromPlatform
// is set, missing thresholds and baseline are loaded from the platform.
type EvaluateRequest struct {
	TestName    string `json:"test_name"`
	Environment string `json:"environment"`

	Metrics     []types.MetricRecord        `json:"metrics"`
	Thresholds  []types.ThresholdDefinition `json:"thresholds,omitempty"`
	Baseline    []types.BaselineRecord      `json:"baseline,omitempty"`
	QualityGate map[string]any              `json:"quality_gate,omitempty"`

	FetchFromPlatform bool `json:"fetch_from_platform,omitempty"`
	// Report forwards the result to the configured reporters.
	Report bool `json:"report,omitempty"`

	EvaluationOptions
}

// EvaluateResponse wraps a report with configuration warnings.
type EvaluateResponse struct {
	Report   *types.QualityGateReport `json:"report"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// SLAResponse is the body returned by POST /api/v1/quality-gate/sla.
type SLAResponse struct {
	Result   *types.SLAResult `json:"result"`
	Warnings []string         `json:"warnings,omitempty"`
}

// BaselineResponse is the body returned by POST /api/v1/quality-gate/baseline.
type BaselineResponse struct {
	Result   *types.BaselineResult `json:"result"`
	Warnings []string              `json:"warnings,omitempty"`
}

// ScopedRequest is the body of POST /api/v1/quality-gate/scoped.
type ScopedRequest struct {
	TestName    string                      `json:"test_name"`
	Environment string                      `json:"environment"`
	Thresholds  []types.ThresholdDefinition `json:"thresholds"`
	Steps       []types.StepResult          `json:"steps"`
	AllResults  map[string]float64          `json:"all_results,omitempty"`
	// ReportID loads UI thresholds from the platform when Thresholds is empty.
	ReportID string `json:"report_id,omitempty"`
}

// ScopedResponse is the body returned by POST /api/v1/quality-gate/scoped.
type ScopedResponse struct {
	Result *types.ScopedResult `json:"result"`
	Passed bool                `json:"passed"`
}

// gateConfig decodes the lenient quality gate section of a request.
func (r *EvaluateRequest) gateConfig() (types.QualityGateConfig, []string) {
	if r.QualityGate == nil {
		return types.QualityGateConfig{}, nil
	}
	cfg, issues := parser.QualityGateConfigFrom(r.QualityGate)
	return cfg, issueStrings(issues)
}

func issueStrings(issues []parser.ConfigIssue) []string {
	if len(issues) == 0 {
		return nil
	}
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.String()
	}
	return out
}

// input merges the request with server defaults.
func (r *EvaluateRequest) input(defaults Defaults, gate types.QualityGateConfig) qualitygate.Input {
	in := qualitygate.Input{
		TestName:         r.TestName,
		Environment:      r.Environment,
		Records:          r.Metrics,
		Thresholds:       r.Thresholds,
		Baseline:         r.Baseline,
		Config:           gate,
		ComparisonMetric: defaults.ComparisonMetric,
		AddGreen:         defaults.AddGreen,
		Debug:            defaults.Debug,
		UseDefaults:      defaults.UseDefaults,
		DataErrorPolicy:  defaults.DataErrorPolicy,
		Limits:           defaults.Limits,
	}

	o := r.EvaluationOptions
	if o.ComparisonMetric != "" {
		in.ComparisonMetric = o.ComparisonMetric
	}
	if o.AddGreen != nil {
		in.AddGreen = *o.AddGreen
	}
	if o.Debug != nil {
		in.Debug = *o.Debug
	}
	if o.UseDefaults != nil {
		in.UseDefaults = *o.UseDefaults
	}
	if o.DataErrorPolicy != "" {
		in.DataErrorPolicy = qualitygate.ParseDataErrorPolicy(o.DataErrorPolicy)
	}
	if o.MissedThresholds != nil {
		in.Limits.MissedThresholdsRate = o.MissedThresholds
	}
	if o.DegradationRate != nil {
		in.Limits.DegradationRate = o.DegradationRate
	}
	if o.ErrorRate != nil {
		in.Limits.ErrorRate = o.ErrorRate
	}
	return in
}
