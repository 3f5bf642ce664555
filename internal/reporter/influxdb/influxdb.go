// Package influxdb writes quality gate results to InfluxDB 2.x.
package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"yqhp/quality-gate/pkg/types"
)

const (
	// MeasurementVerdict holds one point per report.
	MeasurementVerdict = "quality_gate"
	// MeasurementCheck holds one point per SLA check.
	MeasurementCheck = "quality_gate_check"
	// MeasurementDegradation holds one point per failed baseline comparison.
	MeasurementDegradation = "quality_gate_degradation"
)

// Config holds configuration for the InfluxDB reporter.
type Config struct {
	// URL is the InfluxDB server URL.
	URL string `yaml:"url"`
	// Token is the authentication token.
	Token string `yaml:"token"`
	// Organization is the InfluxDB organization.
	Organization string `yaml:"organization"`
	// Bucket is the InfluxDB bucket.
	Bucket string `yaml:"bucket"`
	// BatchSize is the number of points held before writing.
	BatchSize int `yaml:"batch_size"`
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `yaml:"timeout"`
	// Tags are added to every point.
	Tags map[string]string `yaml:"tags,omitempty"`
}

// DefaultConfig returns the default InfluxDB reporter configuration.
func DefaultConfig() *Config {
	return &Config{
		URL:          "http://localhost:8086",
		Organization: "default",
		Bucket:       "quality_gate",
		BatchSize:    100,
		Timeout:      5 * time.Second,
		Tags:         make(map[string]string),
	}
}

// Reporter writes reports as points through the blocking write API.
type Reporter struct {
	config *Config
	client influxdb2.Client
	writer api.WriteAPIBlocking

	buffer []*write.Point
	mu     sync.Mutex

	initialized bool
}

// New creates a new InfluxDB reporter.
func New(config *Config) *Reporter {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.Tags == nil {
		config.Tags = make(map[string]string)
	}
	return &Reporter{
		config: config,
		buffer: make([]*write.Point, 0, config.BatchSize),
	}
}

// NewFactory returns a factory function for creating InfluxDB reporters.
func NewFactory() func(config map[string]any) (interface{ Name() string }, error) {
	return func(config map[string]any) (interface{ Name() string }, error) {
		cfg := DefaultConfig()
		if config != nil {
			if v, ok := config["url"].(string); ok {
				cfg.URL = v
			}
			if v, ok := config["token"].(string); ok {
				cfg.Token = v
			}
			if v, ok := config["organization"].(string); ok {
				cfg.Organization = v
			}
			if v, ok := config["bucket"].(string); ok {
				cfg.Bucket = v
			}
			if v, ok := config["batch_size"].(int); ok {
				cfg.BatchSize = v
			}
			if v, ok := config["timeout"].(string); ok {
				if d, err := time.ParseDuration(v); err == nil {
					cfg.Timeout = d
				}
			}
			if v, ok := config["tags"].(map[string]any); ok {
				for k, val := range v {
					if s, ok := val.(string); ok {
						cfg.Tags[k] = s
					}
				}
			}
		}
		return New(cfg), nil
	}
}

// Name returns the reporter name.
func (r *Reporter) Name() string {
	return "influxdb"
}

// Init creates the InfluxDB client.
func (r *Reporter) Init(ctx context.Context, config map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return fmt.Errorf("reporter already initialized")
	}
	if r.config.URL == "" || r.config.Bucket == "" {
		return fmt.Errorf("url and bucket are required")
	}

	opts := influxdb2.DefaultOptions()
	if r.config.Timeout > 0 {
		opts.SetHTTPRequestTimeout(uint(r.config.Timeout.Seconds()))
	}
	r.client = influxdb2.NewClientWithOptions(r.config.URL, r.config.Token, opts)
	r.writer = r.client.WriteAPIBlocking(r.config.Organization, r.config.Bucket)

	r.initialized = true
	return nil
}

// Report buffers the report's points and writes once the batch is full.
func (r *Reporter) Report(ctx context.Context, report *types.QualityGateReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return fmt.Errorf("reporter not initialized")
	}
	if report == nil {
		return nil
	}

	r.buffer = append(r.buffer, r.Points(report)...)
	if len(r.buffer) >= r.config.BatchSize {
		return r.flushBuffer(ctx)
	}
	return nil
}

// Flush writes any buffered points.
func (r *Reporter) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return nil
	}
	return r.flushBuffer(ctx)
}

// Close flushes and closes the client.
func (r *Reporter) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return nil
	}

	err := r.flushBuffer(ctx)
	r.client.Close()
	r.initialized = false
	return err
}

func (r *Reporter) flushBuffer(ctx context.Context) error {
	if len(r.buffer) == 0 {
		return nil
	}
	if err := r.writer.WritePoint(ctx, r.buffer...); err != nil {
		return fmt.Errorf("write points: %w", err)
	}
	r.buffer = r.buffer[:0]
	return nil
}

// Points converts a report: one verdict point, one point per SLA check and
// one per baseline degradation, all stamped with the evaluation time.
func (r *Reporter) Points(report *types.QualityGateReport) []*write.Point {
	ts := report.EvaluatedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	tags := func(extra map[string]string) map[string]string {
		t := make(map[string]string, len(r.config.Tags)+len(extra)+2)
		for k, v := range r.config.Tags {
			t[k] = v
		}
		if report.TestName != "" {
			t["test"] = report.TestName
		}
		if report.Environment != "" {
			t["environment"] = report.Environment
		}
		for k, v := range extra {
			t[k] = v
		}
		return t
	}

	fields := map[string]any{
		"report_id":  report.ID,
		"error_rate": report.Verdict.ErrorRate,
		"passed":     report.Verdict.Status == types.StatusSuccess,
	}
	if sla := report.SLA; sla != nil {
		fields["sla_checked"] = sla.TotalChecked
		fields["sla_violated"] = sla.TotalViolated
		fields["violation_rate"] = sla.ViolationRate
	}
	if b := report.Baseline; b != nil {
		fields["baseline_compared"] = b.TotalComparisons
		fields["baseline_degraded"] = b.TotalViolated
		fields["degradation_rate"] = b.DegradationRate
	}

	points := []*write.Point{
		influxdb2.NewPoint(MeasurementVerdict,
			tags(map[string]string{"status": string(report.Verdict.Status)}), fields, ts),
	}

	if report.SLA != nil {
		for _, v := range report.SLA.Violations {
			points = append(points, influxdb2.NewPoint(MeasurementCheck,
				tags(map[string]string{
					"request_name": v.RequestName,
					"target":       string(v.Target),
					"aggregation":  v.Aggregation,
					"color":        string(v.Color),
				}),
				map[string]any{
					"metric":     v.Metric,
					"raw_metric": v.RawMetric,
					"value":      v.Value,
					"threshold":  v.Threshold,
					"deviation":  v.Deviation,
				}, ts))
		}
	}

	if report.Baseline != nil {
		for _, d := range report.Baseline.Degradations {
			points = append(points, influxdb2.NewPoint(MeasurementDegradation,
				tags(map[string]string{
					"request_name": d.RequestName,
					"metric":       string(d.Metric),
				}),
				map[string]any{
					"current":                 d.Current,
					"baseline":                d.Baseline,
					"baseline_with_deviation": d.BaselineWithDeviation,
					"percent_change":          d.PercentChange,
				}, ts))
		}
	}

	return points
}

// GetConfig returns the reporter configuration.
func (r *Reporter) GetConfig() *Config {
	return r.config
}
