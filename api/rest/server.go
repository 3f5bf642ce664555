// Package rest exposes the quality gate engines over HTTP.
package rest

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"

	"yqhp/quality-gate/internal/qualitygate"
	"yqhp/quality-gate/internal/reporter"
	"yqhp/quality-gate/internal/thresholds"
	"yqhp/quality-gate/pkg/types"
)

// PlatformSource loads thresholds and baselines stored on the platform.
type PlatformSource interface {
	FetchThresholds(ctx context.Context, test, env string) ([]types.ThresholdDefinition, error)
	FetchBaseline(ctx context.Context, test, env string) ([]types.BaselineRecord, error)
	FetchUIThresholds(ctx context.Context, reportID string) ([]types.ThresholdDefinition, error)
}

// Server represents the REST API server.
type Server struct {
	app      *fiber.App
	config   *Config
	engine   *qualitygate.Engine
	scoped   *thresholds.Engine
	platform PlatformSource
	reports  *reporter.Manager
	metrics  *serverMetrics
}

// Config holds the configuration for the REST API server.
type Config struct {
	// Address is the address to listen on (e.g., ":8080").
	Address string `yaml:"address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// EnableCORS enables Cross-Origin Resource Sharing.
	EnableCORS bool `yaml:"enable_cors"`

	// EnableMetrics enables the /metrics endpoint.
	EnableMetrics bool `yaml:"enable_metrics"`

	// BodyLimit is the maximum request body size in bytes.
	BodyLimit int `yaml:"body_limit"`

	// APIKey, when set, is required in the X-API-Key header.
	APIKey string `yaml:"api_key,omitempty"`

	// Defaults apply to every evaluation unless the request overrides them.
	Defaults Defaults `yaml:"-"`
}

// Defaults are the server-side evaluation defaults.
type Defaults struct {
	ComparisonMetric string
	AddGreen         bool
	Debug            bool
	UseDefaults      bool
	DataErrorPolicy  qualitygate.DataErrorPolicy
	Limits           qualitygate.Limits
}

// DefaultConfig returns a default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:       ":8080",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
		EnableCORS:    false,
		EnableMetrics: true,
		BodyLimit:     16 * 1024 * 1024,
		Defaults: Defaults{
			ComparisonMetric: qualitygate.DefaultComparisonMetric,
			DataErrorPolicy:  qualitygate.DataErrorAbort,
		},
	}
}

// Option configures optional collaborators of the Server.
type Option func(*Server)

// WithPlatform enables fetching thresholds and baselines from the platform.
func WithPlatform(p PlatformSource) Option {
	return func(s *Server) { s.platform = p }
}

// WithReporters forwards reports of requests that ask for it.
func WithReporters(m *reporter.Manager) Option {
	return func(s *Server) { s.reports = m }
}

// WithEngine replaces the quality gate engine.
func WithEngine(e *qualitygate.Engine) Option {
	return func(s *Server) { s.engine = e }
}

// NewServer creates a new REST API server.
func NewServer(config *Config, opts ...Option) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		BodyLimit:    config.BodyLimit,
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: customErrorHandler,
		AppName:      "Quality Gate API",
	})

	server := &Server{
		app:     app,
		config:  config,
		engine:  qualitygate.NewEngine(),
		scoped:  thresholds.NewEngine(),
		metrics: newServerMetrics(),
	}
	for _, opt := range opts {
		opt(server)
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.app.Use(fiberrecover.New(fiberrecover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	if s.config.EnableCORS {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins:     "*",
			AllowMethods:     "GET,POST,OPTIONS",
			AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-API-Key",
			AllowCredentials: false,
			MaxAge:           86400,
		}))
	}

	if s.config.APIKey != "" {
		s.app.Use(s.apiKeyAuth)
	}
}

// apiKeyAuth validates the X-API-Key header. Health, readiness and
// metrics endpoints stay open.
func (s *Server) apiKeyAuth(c *fiber.Ctx) error {
	switch c.Path() {
	case "/health", "/ready", "/metrics", "/api/v1/health", "/api/v1/ready":
		return c.Next()
	}

	apiKey := c.Get("X-API-Key")
	if apiKey == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "API key is required",
		})
	}
	if apiKey != s.config.APIKey {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid API key",
		})
	}
	return c.Next()
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	s.app.Get("/health", s.healthCheck)
	s.app.Get("/ready", s.readyCheck)
	if s.config.EnableMetrics {
		s.app.Get("/metrics", s.metrics.handler())
	}

	api := s.app.Group("/api/v1")
	api.Get("/health", s.healthCheck)
	api.Get("/ready", s.readyCheck)

	gate := api.Group("/quality-gate")
	gate.Post("/evaluate", s.evaluate)
	gate.Post("/sla", s.evaluateSLA)
	gate.Post("/baseline", s.compareBaseline)
	gate.Post("/scoped", s.evaluateScoped)
}

// Start starts the REST API server.
func (s *Server) Start() error {
	return s.app.Listen(s.config.Address)
}

// StartWithContext starts the REST API server and shuts it down when ctx
// is canceled.
func (s *Server) StartWithContext(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- s.app.Listen(s.config.Address)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// ShutdownWithTimeout gracefully shuts down the server with a timeout.
func (s *Server) ShutdownWithTimeout(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// customErrorHandler handles errors returned by handlers.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   fmt.Sprintf("error_%d", code),
		Message: message,
	})
}
