// Package output 定义样本接收端接口，聚合器通过它接收压测产生的原始响应样本
package output

import (
	"time"

	"yqhp/quality-gate/pkg/metrics"
)

// Output 接收原始响应样本
type Output interface {
	// Description 返回接收端描述
	Description() string

	// Start 开始接收样本
	Start() error

	// Stop 停止接收，返回前必须处理完已缓冲的样本
	Stop() error

	// AddMetricSamples 添加样本，不得阻塞
	AddMetricSamples(samples []metrics.SampleContainer)

	// SetRunStatus 设置运行结束状态
	SetRunStatus(status RunStatus)
}

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusAborted   = "aborted"
)

// RunStatus 描述一次压测运行
type RunStatus struct {
	// Duration 运行时长，用于计算吞吐量
	Duration time.Duration
	Status   string
	Err      error
}
