// Package platform fetches threshold definitions and baselines from the
// performance-testing platform's REST API.
package platform

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"

	"yqhp/quality-gate/internal/parser"
	"yqhp/quality-gate/pkg/logger"
	"yqhp/quality-gate/pkg/types"
)

const defaultTimeout = 30 * time.Second

// Config holds the platform connection settings.
type Config struct {
	URL       string        `yaml:"url" json:"url"`
	Token     string        `yaml:"token" json:"token"`
	ProjectID string        `yaml:"project_id" json:"project_id"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`

	// Dial overrides the connection dialer, mainly for tests.
	Dial fasthttp.DialFunc `yaml:"-" json:"-"`
}

// Enabled reports whether enough is configured to reach the platform.
func (c Config) Enabled() bool {
	return c.URL != "" && c.ProjectID != ""
}

// StatusError is returned for any non-200 response.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("platform: %s returned %d: %s", e.URL, e.StatusCode, body)
}

// Client is a thin fasthttp client for the platform API. It does not retry.
type Client struct {
	cfg    Config
	base   string
	client *fasthttp.Client
}

// New creates a platform client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("platform: url is required")
	}
	if cfg.ProjectID == "" {
		return nil, errors.New("platform: project_id is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		cfg:  cfg,
		base: strings.TrimRight(cfg.URL, "/"),
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			MaxIdleConnDuration: 90 * time.Second,
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			Dial:                cfg.Dial,
		},
	}, nil
}

// FetchThresholds returns the backend thresholds for a test and environment.
func (c *Client) FetchThresholds(ctx context.Context, test, env string) ([]types.ThresholdDefinition, error) {
	q := url.Values{}
	q.Set("test", test)
	q.Set("env", env)
	q.Set("order", "asc")

	body, err := c.get(ctx, "/api/v1/backend_performance/thresholds/"+url.PathEscape(c.cfg.ProjectID), q)
	if err != nil {
		return nil, err
	}
	thresholds, err := parser.DecodeThresholds(body, parser.FormatJSON)
	if err != nil {
		return nil, errors.Wrap(err, "decode thresholds")
	}
	logger.Debug("Fetched thresholds", "test", test, "env", env, "count", len(thresholds))
	return thresholds, nil
}

// FetchBaseline returns the baseline rows for a test and environment. An
// empty or null baseline yields no rows and no error.
func (c *Client) FetchBaseline(ctx context.Context, test, env string) ([]types.BaselineRecord, error) {
	q := url.Values{}
	q.Set("test_name", test)
	q.Set("env", env)

	body, err := c.get(ctx, "/api/v1/backend_performance/baseline/"+url.PathEscape(c.cfg.ProjectID), q)
	if err != nil {
		return nil, err
	}
	rows, err := parser.DecodeBaseline(body, parser.FormatJSON)
	if err != nil {
		return nil, errors.Wrap(err, "decode baseline")
	}
	logger.Debug("Fetched baseline", "test", test, "env", env, "rows", len(rows))
	return rows, nil
}

// FetchUIThresholds returns the UI thresholds attached to a report.
func (c *Client) FetchUIThresholds(ctx context.Context, reportID string) ([]types.ThresholdDefinition, error) {
	q := url.Values{}
	q.Set("report_id", reportID)

	body, err := c.get(ctx, "/api/v1/ui_performance/thresholds/"+url.PathEscape(c.cfg.ProjectID), q)
	if err != nil {
		return nil, err
	}
	thresholds, err := parser.DecodeThresholds(body, parser.FormatJSON)
	if err != nil {
		return nil, errors.Wrap(err, "decode ui thresholds")
	}
	return thresholds, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(target)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetContentType("application/json")
	if c.cfg.Token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "bearer "+c.cfg.Token)
	}

	// the context deadline wins over the configured timeout
	deadline := time.Now().Add(c.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		if err == fasthttp.ErrTimeout || time.Now().After(deadline) {
			return nil, errors.Wrapf(context.DeadlineExceeded, "GET %s", target)
		}
		return nil, errors.Wrapf(err, "GET %s", target)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &StatusError{
			StatusCode: resp.StatusCode(),
			URL:        target,
			Body:       string(resp.Body()),
		}
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
