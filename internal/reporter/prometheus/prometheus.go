// Package prometheus pushes quality gate results to a Prometheus Push Gateway.
package prometheus

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"yqhp/quality-gate/pkg/types"
)

const namespace = "quality_gate"

// Config holds configuration for the Prometheus reporter.
type Config struct {
	// PushGatewayURL is the URL of the Prometheus Push Gateway.
	PushGatewayURL string `yaml:"push_gateway_url"`
	// JobName is the push job name.
	JobName string `yaml:"job_name"`
	// Labels are extra grouping labels for every push.
	Labels map[string]string `yaml:"labels,omitempty"`
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `yaml:"timeout"`
	// DeleteOnClose removes the pushed group when the reporter closes.
	DeleteOnClose bool `yaml:"delete_on_close"`
}

// DefaultConfig returns the default Prometheus reporter configuration.
func DefaultConfig() *Config {
	return &Config{
		PushGatewayURL: "http://localhost:9091",
		JobName:        "quality_gate",
		Labels:         make(map[string]string),
		Timeout:        5 * time.Second,
	}
}

type gauges struct {
	status          prometheus.Gauge
	errorRate       prometheus.Gauge
	slaChecked      prometheus.Gauge
	slaViolated     prometheus.Gauge
	violationRate   prometheus.Gauge
	baselineChecked prometheus.Gauge
	degraded        prometheus.Gauge
	degradationRate prometheus.Gauge
	checkMetric     *prometheus.GaugeVec
	checkThreshold  *prometheus.GaugeVec
}

func newGauges(reg prometheus.Registerer) *gauges {
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
		reg.MustRegister(g)
		return g
	}
	vec := func(name, help string) *prometheus.GaugeVec {
		g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help},
			[]string{"request_name", "target", "aggregation", "color"})
		reg.MustRegister(g)
		return g
	}

	return &gauges{
		status:          gauge("passed", "1 when the verdict is SUCCESS, 0 otherwise."),
		errorRate:       gauge("error_rate_percent", "Error rate of the evaluated run."),
		slaChecked:      gauge("sla_checks", "Number of SLA checks performed."),
		slaViolated:     gauge("sla_violations", "Number of SLA checks that failed."),
		violationRate:   gauge("sla_violation_rate_percent", "Share of SLA checks that failed."),
		baselineChecked: gauge("baseline_comparisons", "Number of baseline comparisons performed."),
		degraded:        gauge("baseline_degradations", "Number of baseline comparisons that failed."),
		degradationRate: gauge("baseline_degradation_rate_percent", "Share of baseline comparisons that failed."),
		checkMetric:     vec("check_metric", "Measured value of one SLA check in comparison units."),
		checkThreshold:  vec("check_threshold", "Threshold of one SLA check in comparison units."),
	}
}

// Reporter pushes one gauge set per report.
type Reporter struct {
	config     *Config
	httpClient *http.Client
	registry   *prometheus.Registry
	gauges     *gauges

	mu          sync.Mutex
	lastReport  *types.QualityGateReport
	initialized bool
}

// New creates a new Prometheus reporter.
func New(config *Config) *Reporter {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Labels == nil {
		config.Labels = make(map[string]string)
	}
	reg := prometheus.NewRegistry()
	return &Reporter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		registry:   reg,
		gauges:     newGauges(reg),
	}
}

// NewFactory returns a factory function for creating Prometheus reporters.
func NewFactory() func(config map[string]any) (interface{ Name() string }, error) {
	return func(config map[string]any) (interface{ Name() string }, error) {
		cfg := DefaultConfig()
		if config != nil {
			if v, ok := config["push_gateway_url"].(string); ok {
				cfg.PushGatewayURL = v
			}
			if v, ok := config["job_name"].(string); ok {
				cfg.JobName = v
			}
			if v, ok := config["labels"].(map[string]any); ok {
				for k, val := range v {
					if s, ok := val.(string); ok {
						cfg.Labels[k] = s
					}
				}
			}
			if v, ok := config["timeout"].(string); ok {
				if d, err := time.ParseDuration(v); err == nil {
					cfg.Timeout = d
				}
			}
			if v, ok := config["delete_on_close"].(bool); ok {
				cfg.DeleteOnClose = v
			}
		}
		return New(cfg), nil
	}
}

// Name returns the reporter name.
func (r *Reporter) Name() string {
	return "prometheus"
}

// Init initializes the reporter.
func (r *Reporter) Init(ctx context.Context, config map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return fmt.Errorf("reporter already initialized")
	}
	if r.config.PushGatewayURL == "" {
		return fmt.Errorf("push_gateway_url is required")
	}
	r.initialized = true
	return nil
}

// Report sets the gauges from the report and pushes them.
func (r *Reporter) Report(ctx context.Context, report *types.QualityGateReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return fmt.Errorf("reporter not initialized")
	}
	if report == nil {
		return nil
	}

	r.observe(report)
	r.lastReport = report
	return r.pusher(report).PushContext(ctx)
}

// Flush re-pushes the last report.
func (r *Reporter) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized || r.lastReport == nil {
		return nil
	}
	return r.pusher(r.lastReport).PushContext(ctx)
}

// Close optionally deletes the pushed group.
func (r *Reporter) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return nil
	}
	r.initialized = false

	if r.config.DeleteOnClose && r.lastReport != nil {
		if err := r.pusher(r.lastReport).Delete(); err != nil {
			return fmt.Errorf("delete pushed metrics: %w", err)
		}
	}
	return nil
}

// Gatherer exposes the reporter's registry.
func (r *Reporter) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *Reporter) pusher(report *types.QualityGateReport) *push.Pusher {
	p := push.New(r.config.PushGatewayURL, r.config.JobName).
		Gatherer(r.registry).
		Client(r.httpClient)
	for k, v := range r.config.Labels {
		p = p.Grouping(k, v)
	}
	if report.TestName != "" {
		p = p.Grouping("test", report.TestName)
	}
	if report.Environment != "" {
		p = p.Grouping("environment", report.Environment)
	}
	return p
}

func (r *Reporter) observe(report *types.QualityGateReport) {
	g := r.gauges

	if report.Verdict.Status == types.StatusSuccess {
		g.status.Set(1)
	} else {
		g.status.Set(0)
	}
	g.errorRate.Set(report.Verdict.ErrorRate)

	g.checkMetric.Reset()
	g.checkThreshold.Reset()
	if sla := report.SLA; sla != nil {
		g.slaChecked.Set(float64(sla.TotalChecked))
		g.slaViolated.Set(float64(sla.TotalViolated))
		g.violationRate.Set(sla.ViolationRate)
		for _, v := range sla.Violations {
			labels := prometheus.Labels{
				"request_name": v.RequestName,
				"target":       string(v.Target),
				"aggregation":  v.Aggregation,
				"color":        string(v.Color),
			}
			g.checkMetric.With(labels).Set(v.Metric)
			g.checkThreshold.With(labels).Set(v.Threshold)
		}
	}

	if b := report.Baseline; b != nil {
		g.baselineChecked.Set(float64(b.TotalComparisons))
		g.degraded.Set(float64(b.TotalViolated))
		g.degradationRate.Set(b.DegradationRate)
	} else {
		g.baselineChecked.Set(0)
		g.degraded.Set(0)
		g.degradationRate.Set(0)
	}
}

// GetConfig returns the reporter configuration.
func (r *Reporter) GetConfig() *Config {
	return r.config
}
