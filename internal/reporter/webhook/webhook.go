// Package webhook posts quality gate reports to an HTTP endpoint.
package webhook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"yqhp/quality-gate/pkg/types"
)

// Config holds configuration for the webhook reporter.
type Config struct {
	// URL is the webhook endpoint.
	URL string `yaml:"url"`
	// Method is the HTTP method (default POST).
	Method string `yaml:"method"`
	// Headers are sent with every request.
	Headers map[string]string `yaml:"headers,omitempty"`
	// BatchSize is the number of reports per request.
	BatchSize int `yaml:"batch_size"`
	// RetryAttempts is the number of retries after the first failure.
	RetryAttempts int `yaml:"retry_attempts"`
	// RetryDelay grows linearly with each attempt.
	RetryDelay time.Duration `yaml:"retry_delay"`
	// Timeout bounds each request.
	Timeout time.Duration `yaml:"timeout"`

	// Dial overrides the connection dialer, mainly for tests.
	Dial fasthttp.DialFunc `yaml:"-"`
}

// DefaultConfig returns the default webhook reporter configuration.
func DefaultConfig() *Config {
	return &Config{
		Method:        fasthttp.MethodPost,
		Headers:       make(map[string]string),
		BatchSize:     1,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
		Timeout:       10 * time.Second,
	}
}

// Payload is the request body.
type Payload struct {
	Records []*types.QualityGateReport `json:"records"`
	Count   int                        `json:"count"`
}

// Reporter posts batches of reports.
type Reporter struct {
	config *Config
	client *fasthttp.Client

	buffer []*types.QualityGateReport
	mu     sync.Mutex

	initialized bool
}

// New creates a new webhook reporter.
func New(config *Config) *Reporter {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Method == "" {
		config.Method = fasthttp.MethodPost
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 1
	}
	if config.Headers == nil {
		config.Headers = make(map[string]string)
	}
	return &Reporter{
		config: config,
		client: &fasthttp.Client{
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 90 * time.Second,
			Dial:                config.Dial,
		},
		buffer: make([]*types.QualityGateReport, 0, config.BatchSize),
	}
}

// NewFactory returns a factory function for creating webhook reporters.
func NewFactory() func(config map[string]any) (interface{ Name() string }, error) {
	return func(config map[string]any) (interface{ Name() string }, error) {
		cfg := DefaultConfig()
		if config != nil {
			if v, ok := config["url"].(string); ok {
				cfg.URL = v
			}
			if v, ok := config["method"].(string); ok {
				cfg.Method = v
			}
			if v, ok := config["headers"].(map[string]any); ok {
				for k, val := range v {
					if s, ok := val.(string); ok {
						cfg.Headers[k] = s
					}
				}
			}
			if v, ok := config["batch_size"].(int); ok {
				cfg.BatchSize = v
			}
			if v, ok := config["retry_attempts"].(int); ok {
				cfg.RetryAttempts = v
			}
			if v, ok := config["retry_delay"].(string); ok {
				if d, err := time.ParseDuration(v); err == nil {
					cfg.RetryDelay = d
				}
			}
			if v, ok := config["timeout"].(string); ok {
				if d, err := time.ParseDuration(v); err == nil {
					cfg.Timeout = d
				}
			}
		}
		return New(cfg), nil
	}
}

// Name returns the reporter name.
func (r *Reporter) Name() string {
	return "webhook"
}

// Init validates the configuration.
func (r *Reporter) Init(ctx context.Context, config map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return fmt.Errorf("reporter already initialized")
	}
	if r.config.URL == "" {
		return fmt.Errorf("webhook URL is required")
	}

	r.initialized = true
	return nil
}

// Report buffers a report and sends the batch once it is full.
func (r *Reporter) Report(ctx context.Context, report *types.QualityGateReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return fmt.Errorf("reporter not initialized")
	}
	if report == nil {
		return nil
	}

	r.buffer = append(r.buffer, report)
	if len(r.buffer) >= r.config.BatchSize {
		return r.flushBuffer(ctx)
	}
	return nil
}

// Flush sends any buffered reports.
func (r *Reporter) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return nil
	}
	return r.flushBuffer(ctx)
}

// Close sends any buffered reports.
func (r *Reporter) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return nil
	}
	if err := r.flushBuffer(ctx); err != nil {
		return err
	}
	r.initialized = false
	return nil
}

func (r *Reporter) flushBuffer(ctx context.Context) error {
	if len(r.buffer) == 0 {
		return nil
	}

	payload := &Payload{
		Records: r.buffer,
		Count:   len(r.buffer),
	}
	if err := r.sendWithRetry(ctx, payload); err != nil {
		return err
	}

	r.buffer = r.buffer[:0]
	return nil
}

func (r *Reporter) sendWithRetry(ctx context.Context, payload *Payload) error {
	data, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= r.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if lastErr = r.send(ctx, data); lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", r.config.RetryAttempts+1, lastErr)
}

func (r *Reporter) send(ctx context.Context, body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.config.URL)
	req.Header.SetMethod(r.config.Method)
	req.Header.SetContentType("application/json")
	for k, v := range r.config.Headers {
		req.Header.Set(k, v)
	}
	req.SetBody(body)

	deadline := time.Now().Add(r.config.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if r.config.Timeout <= 0 {
		if err := r.client.Do(req, resp); err != nil {
			return fmt.Errorf("send webhook: %w", err)
		}
	} else if err := r.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", code, resp.Body())
	}
	return nil
}

// GetConfig returns the reporter configuration.
func (r *Reporter) GetConfig() *Config {
	return r.config
}
