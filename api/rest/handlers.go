package rest

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"yqhp/quality-gate/internal/qualitygate"
	"yqhp/quality-gate/pkg/logger"
	"yqhp/quality-gate/pkg/types"
)

// healthCheck handles GET /health
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// readyCheck handles GET /ready
func (s *Server) readyCheck(c *fiber.Ctx) error {
	reporters := 0
	if s.reports != nil {
		reporters = s.reports.GetReporterCount()
	}
	return c.JSON(ReadyResponse{
		Ready:     true,
		Status:    "ready",
		Platform:  s.platform != nil,
		Reporters: reporters,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// evaluate handles POST /api/v1/quality-gate/evaluate
func (s *Server) evaluate(c *fiber.Ctx) error {
	started := time.Now()
	ctx := c.UserContext()

	var req EvaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Failed to parse request body: "+err.Error())
	}
	if err := s.fetchMissing(ctx, &req); err != nil {
		s.metrics.observe("evaluate", "error", started)
		return s.fetchFailed(c, err)
	}

	gate, warnings := req.gateConfig()
	report, err := s.engine.Run(req.input(s.config.Defaults, gate))
	if err != nil {
		s.metrics.observe("evaluate", "error", started)
		return evaluationFailed(c, err)
	}

	if req.Report {
		if err := s.forward(ctx, report); err != nil {
			warnings = append(warnings, "report: "+err.Error())
		}
	}

	s.metrics.observe("evaluate", string(report.Verdict.Status), started)
	return c.JSON(EvaluateResponse{Report: report, Warnings: warnings})
}

// evaluateSLA handles POST /api/v1/quality-gate/sla
func (s *Server) evaluateSLA(c *fiber.Ctx) error {
	started := time.Now()

	var req EvaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Failed to parse request body: "+err.Error())
	}
	if err := s.fetchMissing(c.UserContext(), &req); err != nil {
		s.metrics.observe("sla", "error", started)
		return s.fetchFailed(c, err)
	}

	gate, warnings := req.gateConfig()
	in := req.input(s.config.Defaults, gate)
	if !validMetric(in.ComparisonMetric) {
		return badRequest(c, "Unsupported comparison metric: "+in.ComparisonMetric)
	}

	result, err := qualitygate.EvaluateSLA(qualitygate.SLAInput{
		Records:          in.Records,
		Thresholds:       in.Thresholds,
		Config:           in.Config,
		ComparisonMetric: in.ComparisonMetric,
		AddGreen:         in.AddGreen,
		Debug:            in.Debug,
		UseDefaults:      in.UseDefaults,
		DataErrorPolicy:  in.DataErrorPolicy,
	})
	if err != nil {
		s.metrics.observe("sla", "error", started)
		return evaluationFailed(c, err)
	}

	s.metrics.observe("sla", outcome(!result.HasViolations()), started)
	return c.JSON(SLAResponse{Result: result, Warnings: warnings})
}

// compareBaseline handles POST /api/v1/quality-gate/baseline
func (s *Server) compareBaseline(c *fiber.Ctx) error {
	started := time.Now()

	var req EvaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Failed to parse request body: "+err.Error())
	}
	if err := s.fetchMissing(c.UserContext(), &req); err != nil {
		s.metrics.observe("baseline", "error", started)
		return s.fetchFailed(c, err)
	}

	gate, warnings := req.gateConfig()
	in := req.input(s.config.Defaults, gate)
	if !validMetric(in.ComparisonMetric) {
		return badRequest(c, "Unsupported comparison metric: "+in.ComparisonMetric)
	}

	result, err := qualitygate.CompareBaseline(qualitygate.BaselineInput{
		Baseline:         in.Baseline,
		Current:          in.Records,
		Config:           in.Config,
		ComparisonMetric: in.ComparisonMetric,
		DataErrorPolicy:  in.DataErrorPolicy,
	})
	if err != nil {
		s.metrics.observe("baseline", "error", started)
		return evaluationFailed(c, err)
	}

	s.metrics.observe("baseline", outcome(!result.HasDegradations()), started)
	return c.JSON(BaselineResponse{Result: result, Warnings: warnings})
}

// evaluateScoped handles POST /api/v1/quality-gate/scoped
func (s *Server) evaluateScoped(c *fiber.Ctx) error {
	started := time.Now()

	var req ScopedRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Failed to parse request body: "+err.Error())
	}

	if len(req.Thresholds) == 0 && req.ReportID != "" {
		if s.platform == nil {
			return badRequest(c, "Platform is not configured")
		}
		th, err := s.platform.FetchUIThresholds(c.UserContext(), req.ReportID)
		if err != nil {
			s.metrics.observe("scoped", "error", started)
			return s.fetchFailed(c, err)
		}
		req.Thresholds = th
	}

	result := s.scoped.Evaluate(req.Thresholds, req.TestName, req.Environment, req.Steps, req.AllResults)
	passed := result.Failed == 0

	s.metrics.observe("scoped", outcome(passed), started)
	return c.JSON(ScopedResponse{Result: result, Passed: passed})
}

// fetchMissing fills thresholds and baseline from the platform when the
// request asks for it and did not carry them inline.
func (s *Server) fetchMissing(ctx context.Context, req *EvaluateRequest) error {
	if !req.FetchFromPlatform {
		return nil
	}
	if s.platform == nil {
		return errPlatformDisabled
	}

	if len(req.Thresholds) == 0 {
		th, err := s.platform.FetchThresholds(ctx, req.TestName, req.Environment)
		if err != nil {
			return err
		}
		req.Thresholds = th
	}
	if len(req.Baseline) == 0 {
		bl, err := s.platform.FetchBaseline(ctx, req.TestName, req.Environment)
		if err != nil {
			return err
		}
		req.Baseline = bl
	}
	return nil
}

// forward sends a report to the configured reporters and flushes them.
func (s *Server) forward(ctx context.Context, report *types.QualityGateReport) error {
	if s.reports == nil {
		return errNoReporters
	}
	if err := s.reports.Report(ctx, report); err != nil {
		logger.Warn("Report forwarding failed", "id", report.ID, "error", err)
		return err
	}
	return s.reports.Flush(ctx)
}

var (
	errPlatformDisabled = errors.New("platform is not configured")
	errNoReporters      = errors.New("no reporters configured")
)

func (s *Server) fetchFailed(c *fiber.Ctx, err error) error {
	if errors.Is(err, errPlatformDisabled) {
		return badRequest(c, "Platform is not configured")
	}
	logger.Warn("Platform fetch failed", "error", err)
	return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
		Error:   "platform_error",
		Message: err.Error(),
	})
}

// evaluationFailed maps engine errors: data errors are the caller's input
// and answer 422, anything else 500.
func evaluationFailed(c *fiber.Ctx, err error) error {
	var dataErr *qualitygate.DataError
	if errors.As(err, &dataErr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Error:   "data_error",
			Message: err.Error(),
		})
	}
	if errors.Is(err, qualitygate.ErrUnsupportedMetric) {
		return badRequest(c, err.Error())
	}
	logger.Error("Evaluation failed", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "evaluation_failed",
		Message: err.Error(),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "invalid_request",
		Message: message,
	})
}

func validMetric(metric string) bool {
	return metric == "" || types.IsComparisonMetric(metric)
}

func outcome(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}
