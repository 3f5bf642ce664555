// Package aggregator turns raw response samples into the per-request summary
// records the quality gate evaluates, including the synthetic "All" row.
package aggregator

import (
	"sort"
	"strings"
	"sync"
	"time"

	"yqhp/quality-gate/pkg/logger"
	"yqhp/quality-gate/pkg/metrics"
	"yqhp/quality-gate/pkg/output"
	"yqhp/quality-gate/pkg/types"
)

// AggregateName is the request name given to the whole-run row.
const AggregateName = "All"

const flushRate = 100 * time.Millisecond

// Compile-time check.
var _ output.Output = &Aggregator{}

type requestSinks struct {
	name     string
	method   string
	duration *metrics.TrendSink
	outcome  *metrics.RateSink
}

func newRequestSinks(name, method string) *requestSinks {
	return &requestSinks{
		name:     name,
		method:   method,
		duration: metrics.NewTrendSink(),
		outcome:  &metrics.RateSink{},
	}
}

func (s *requestSinks) add(sample metrics.Sample) {
	s.duration.Add(sample.DurationMs)
	s.outcome.Add(sample.OK)
}

// Aggregator collects samples per request. Samples can be added directly
// with Add or streamed through the output.Output interface. It is safe for
// concurrent use.
type Aggregator struct {
	output.SampleBuffer

	mu       sync.Mutex
	requests map[string]*requestSinks
	all      *requestSinks

	first, last time.Time
	duration    time.Duration

	periodicFlusher *output.PeriodicFlusher
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{
		requests: make(map[string]*requestSinks),
		all:      newRequestSinks(AggregateName, ""),
	}
}

func (a *Aggregator) Description() string {
	return "Quality Gate Aggregator"
}

func (a *Aggregator) Start() error {
	pf, err := output.NewPeriodicFlusher(flushRate, a.flushSamples)
	if err != nil {
		return err
	}
	a.periodicFlusher = pf
	return nil
}

func (a *Aggregator) Stop() error {
	logger.Debug("Stopping aggregator", "pending_samples", a.Buffered())
	if a.periodicFlusher != nil {
		a.periodicFlusher.Stop()
		a.periodicFlusher = nil
	} else {
		a.flushSamples()
	}
	return nil
}

// SetRunStatus records the run duration used for throughput.
func (a *Aggregator) SetRunStatus(status output.RunStatus) {
	if status.Duration <= 0 {
		return
	}
	a.mu.Lock()
	a.duration = status.Duration
	a.mu.Unlock()
}

func (a *Aggregator) flushSamples() {
	for _, s := range a.Drain() {
		a.Add(s)
	}
}

// Add records one sample. Samples without a request name are ignored.
// Samples named like the aggregate row ("all" in any case) only count
// toward it, so Records never holds more than one aggregate row.
func (a *Aggregator) Add(sample metrics.Sample) {
	if sample.RequestName == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if !strings.EqualFold(sample.RequestName, AggregateName) {
		key := requestKey(sample.RequestName, sample.Method)
		sinks, ok := a.requests[key]
		if !ok {
			sinks = newRequestSinks(sample.RequestName, sample.Method)
			a.requests[key] = sinks
		}
		sinks.add(sample)
	}
	a.all.add(sample)

	if !sample.Time.IsZero() {
		if a.first.IsZero() || sample.Time.Before(a.first) {
			a.first = sample.Time
		}
		if sample.Time.After(a.last) {
			a.last = sample.Time
		}
	}
}

func requestKey(name, method string) string {
	return method + " " + name
}

// Merge folds the samples collected by other into a, as when combining the
// results of several load generators.
func (a *Aggregator) Merge(other *Aggregator) {
	if other == nil || other == a {
		return
	}
	other.flushSamples()

	other.mu.Lock()
	requests := make([]*requestSinks, 0, len(other.requests))
	for _, s := range other.requests {
		requests = append(requests, s)
	}
	first, last, duration := other.first, other.last, other.duration
	otherAll := other.all
	other.mu.Unlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, src := range requests {
		key := requestKey(src.name, src.method)
		dst, ok := a.requests[key]
		if !ok {
			dst = newRequestSinks(src.name, src.method)
			a.requests[key] = dst
		}
		dst.duration.Merge(src.duration)
		dst.outcome.Merge(src.outcome)
	}
	a.all.duration.Merge(otherAll.duration)
	a.all.outcome.Merge(otherAll.outcome)

	if !first.IsZero() && (a.first.IsZero() || first.Before(a.first)) {
		a.first = first
	}
	if last.After(a.last) {
		a.last = last
	}
	if duration > a.duration {
		a.duration = duration
	}
}

// Duration returns the run duration: the one set through SetRunStatus, or
// the span between the first and last sample.
func (a *Aggregator) Duration() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.durationLocked()
}

func (a *Aggregator) durationLocked() time.Duration {
	if a.duration > 0 {
		return a.duration
	}
	return a.last.Sub(a.first)
}

// Records returns one record per request, sorted by name then method,
// followed by the "All" row. It returns nil when nothing was collected.
func (a *Aggregator) Records() []types.MetricRecord {
	a.flushSamples()

	a.mu.Lock()
	defer a.mu.Unlock()
	if total, _, _ := a.all.outcome.Counts(); total == 0 {
		return nil
	}

	seconds := a.durationLocked().Seconds()
	sinks := make([]*requestSinks, 0, len(a.requests))
	for _, s := range a.requests {
		sinks = append(sinks, s)
	}
	sort.Slice(sinks, func(i, j int) bool {
		if sinks[i].name != sinks[j].name {
			return sinks[i].name < sinks[j].name
		}
		return sinks[i].method < sinks[j].method
	})

	records := make([]types.MetricRecord, 0, len(sinks)+1)
	for _, s := range sinks {
		records = append(records, buildRecord(s, seconds))
	}
	return append(records, buildRecord(a.all, seconds))
}

func buildRecord(s *requestSinks, seconds float64) types.MetricRecord {
	total, ok, ko := s.outcome.Counts()
	stats := s.duration.Stats()
	rec := types.MetricRecord{
		RequestName: s.name,
		Method:      s.method,
		Total:       total,
		OK:          ok,
		KO:          ko,
		Min:         types.Float(metrics.Round2(stats.Min)),
		Max:         types.Float(metrics.Round2(stats.Max)),
		Mean:        types.Float(metrics.Round2(stats.Mean)),
		Pct50:       types.Float(metrics.Round2(stats.P50)),
		Pct75:       types.Float(metrics.Round2(stats.P75)),
		Pct90:       types.Float(metrics.Round2(stats.P90)),
		Pct95:       types.Float(metrics.Round2(stats.P95)),
		Pct99:       types.Float(metrics.Round2(stats.P99)),
	}
	if seconds > 0 {
		rec.Throughput = types.Float(metrics.Round2(float64(total) / seconds))
	} else {
		rec.Throughput = types.Float(0)
	}
	return rec
}
