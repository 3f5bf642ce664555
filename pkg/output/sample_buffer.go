package output

import (
	"errors"
	"sync"
	"time"

	"yqhp/quality-gate/pkg/metrics"
)

// SampleBuffer collects samples between flushes. Embed it in an Output to
// get AddMetricSamples for free.
type SampleBuffer struct {
	mu      sync.Mutex
	pending []metrics.Sample
}

// AddMetricSamples flattens the containers into the buffer.
func (b *SampleBuffer) AddMetricSamples(containers []metrics.SampleContainer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range containers {
		b.pending = append(b.pending, c.GetSamples()...)
	}
}

// Buffered returns the number of samples waiting to be drained.
func (b *SampleBuffer) Buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Drain returns the buffered samples and empties the buffer.
func (b *SampleBuffer) Drain() []metrics.Sample {
	b.mu.Lock()
	defer b.mu.Unlock()
	drained := b.pending
	b.pending = nil
	return drained
}

// ErrInvalidInterval is returned for a non-positive flush interval.
var ErrInvalidInterval = errors.New("flush interval must be positive")

// PeriodicFlusher runs a flush function on a ticker and once more on Stop.
type PeriodicFlusher struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewPeriodicFlusher starts calling flush every interval.
func NewPeriodicFlusher(interval time.Duration, flush func()) (*PeriodicFlusher, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	f := &PeriodicFlusher{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go f.loop(interval, flush)
	return f, nil
}

func (f *PeriodicFlusher) loop(interval time.Duration, flush func()) {
	defer close(f.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			flush()
		case <-f.stop:
			flush()
			return
		}
	}
}

// Stop performs the final flush and waits for it. It is safe to call more
// than once.
func (f *PeriodicFlusher) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
	<-f.done
}
