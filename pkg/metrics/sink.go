package metrics

import (
	"math"
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	// 直方图以微秒记录，范围 1µs ~ 1h
	histogramMinValue = 1
	histogramMaxValue = int64(3600 * 1000 * 1000)
	histogramSigFigs  = 3
)

// TrendSink 响应时间聚合器，百分位数由 HdrHistogram 计算
type TrendSink struct {
	hist   *hdrhistogram.Histogram
	count  int64
	sum    float64
	min    float64
	max    float64
	minSet bool
	mu     sync.Mutex
}

// NewTrendSink 创建 TrendSink
func NewTrendSink() *TrendSink {
	return &TrendSink{
		hist: hdrhistogram.New(histogramMinValue, histogramMaxValue, histogramSigFigs),
	}
}

// Add 添加一个毫秒值
func (t *TrendSink) Add(ms float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	us := int64(math.Round(ms * 1000))
	if us < histogramMinValue {
		us = histogramMinValue
	}
	if us > histogramMaxValue {
		us = histogramMaxValue
	}
	// 超出范围的值已被截断，RecordValue 不会失败
	_ = t.hist.RecordValue(us)

	t.count++
	t.sum += ms
	if !t.minSet || ms < t.min {
		t.min = ms
		t.minSet = true
	}
	if ms > t.max {
		t.max = ms
	}
}

// IsEmpty 检查是否为空
func (t *TrendSink) IsEmpty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count == 0
}

// Count 返回样本数
func (t *TrendSink) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Percentile 返回 p 百分位（毫秒），p 取值 0-100
func (t *TrendSink) Percentile(p float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count == 0 {
		return 0
	}
	return float64(t.hist.ValueAtQuantile(p)) / 1000
}

// Stats 返回 min/max/mean 与常用百分位（毫秒）
func (t *TrendSink) Stats() TrendStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count == 0 {
		return TrendStats{}
	}
	q := func(p float64) float64 { return float64(t.hist.ValueAtQuantile(p)) / 1000 }
	return TrendStats{
		Count: t.count,
		Min:   t.min,
		Max:   t.max,
		Mean:  t.sum / float64(t.count),
		P50:   q(50),
		P75:   q(75),
		P90:   q(90),
		P95:   q(95),
		P99:   q(99),
	}
}

// Merge 合并另一个 TrendSink 的数据
func (t *TrendSink) Merge(other *TrendSink) {
	if other == nil || other == t {
		return
	}
	other.mu.Lock()
	snapshot := other.hist.Export()
	count, sum, min, max, minSet := other.count, other.sum, other.min, other.max, other.minSet
	other.mu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.hist.Merge(hdrhistogram.Import(snapshot))
	t.count += count
	t.sum += sum
	if minSet && (!t.minSet || min < t.min) {
		t.min = min
		t.minSet = true
	}
	if max > t.max {
		t.max = max
	}
}

// TrendStats 是 TrendSink 的快照
type TrendStats struct {
	Count int64
	Min   float64
	Max   float64
	Mean  float64
	P50   float64
	P75   float64
	P90   float64
	P95   float64
	P99   float64
}

// RateSink 统计成功/失败次数
type RateSink struct {
	oks int64
	kos int64
	mu  sync.Mutex
}

// Add 记录一次结果
func (r *RateSink) Add(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		r.oks++
	} else {
		r.kos++
	}
}

// Counts 返回 total/ok/ko
func (r *RateSink) Counts() (total, ok, ko int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.oks + r.kos, r.oks, r.kos
}

// ErrorRate 返回失败百分比，total 为 0 时返回 0
func (r *RateSink) ErrorRate() float64 {
	total, _, ko := r.Counts()
	return Percent(float64(ko), float64(total))
}

// Merge 合并另一个 RateSink 的计数
func (r *RateSink) Merge(other *RateSink) {
	if other == nil || other == r {
		return
	}
	_, oks, kos := other.Counts()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.oks += oks
	r.kos += kos
}
