package metrics

import "time"

// Sample 表示单个请求的响应样本
type Sample struct {
	RequestName string    `json:"request_name"`
	Method      string    `json:"method,omitempty"`
	Time        time.Time `json:"time"`
	// DurationMs 响应时间（毫秒）
	DurationMs float64 `json:"duration_ms"`
	OK         bool    `json:"ok"`
}

// SampleContainer 是可以返回多个样本的接口
type SampleContainer interface {
	GetSamples() []Sample
}

// Samples 是 Sample 切片，实现 SampleContainer 接口
type Samples []Sample

// GetSamples 返回样本切片
func (s Samples) GetSamples() []Sample {
	return s
}
