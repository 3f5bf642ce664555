package qualitygate

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"yqhp/quality-gate/pkg/logger"
	"yqhp/quality-gate/pkg/types"
)

// Input is one complete quality gate evaluation request.
type Input struct {
	TestName    string
	Environment string

	Records    []types.MetricRecord
	Thresholds []types.ThresholdDefinition
	Baseline   []types.BaselineRecord
	Config     types.QualityGateConfig

	ComparisonMetric string
	AddGreen         bool
	Debug            bool
	UseDefaults      bool
	DataErrorPolicy  DataErrorPolicy
	Limits           Limits
}

// Engine runs the SLA and baseline paths and builds a report. It holds no
// per-run state and may be shared between goroutines.
type Engine struct {
	now   func() time.Time
	newID func() string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the clock used for EvaluatedAt.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides report ID generation.
func WithIDGenerator(gen func() string) EngineOption {
	return func(e *Engine) { e.newID = gen }
}

// NewEngine creates an Engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run evaluates in and returns the full report.
func (e *Engine) Run(in Input) (*types.QualityGateReport, error) {
	metric := in.ComparisonMetric
	if metric == "" {
		metric = DefaultComparisonMetric
	}
	if !types.IsComparisonMetric(metric) {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedMetric, metric)
	}

	sla, err := EvaluateSLA(SLAInput{
		Records:          in.Records,
		Thresholds:       in.Thresholds,
		Config:           in.Config,
		ComparisonMetric: metric,
		AddGreen:         in.AddGreen,
		Debug:            in.Debug,
		UseDefaults:      in.UseDefaults,
		DataErrorPolicy:  in.DataErrorPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate SLA: %w", err)
	}

	baseline, err := CompareBaseline(BaselineInput{
		Baseline:         in.Baseline,
		Current:          in.Records,
		Config:           in.Config,
		ComparisonMetric: metric,
		DataErrorPolicy:  in.DataErrorPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("compare baseline: %w", err)
	}

	report := &types.QualityGateReport{
		ID:               e.newID(),
		TestName:         in.TestName,
		Environment:      in.Environment,
		ComparisonMetric: metric,
		EvaluatedAt:      e.now().UTC(),
		SLA:              sla,
		Baseline:         baseline,
		Verdict:          Decide(in.Records, sla, baseline, in.Limits),
	}

	logger.Info("Quality gate evaluated",
		"id", report.ID,
		"test", in.TestName,
		"status", report.Verdict.Status,
		"violation_rate", sla.ViolationRate,
		"degradation_rate", baseline.DegradationRate)
	return report, nil
}
