// Package thresholds evaluates UI thresholds against raw per-step sample
// lists. Unlike the qualitygate package it applies no unit conversion and no
// deviation, and "every" and page scopes are not mutually exclusive.
package thresholds

import (
	"github.com/duke-git/lancet/v2/slice"

	"yqhp/quality-gate/pkg/logger"
	"yqhp/quality-gate/pkg/types"
)

// Scope values with special meaning. Both are matched exactly.
const (
	ScopeAll   = "all"
	ScopeEvery = "every"
)

// MetricAliases maps short web vital names to the metric keys produced by
// the UI collector.
var MetricAliases = map[string]string{
	"load_time": "load_time",
	"dom":       "dom_processing",
	"tti":       "time_to_interactive",
	"fcp":       "first_contentful_paint",
	"lcp":       "largest_contentful_paint",
	"tbt":       "total_blocking_time",
	"cls":       "cumulative_layout_shift",
	"fvc":       "first_visual_change",
	"lvc":       "last_visual_change",
	"ttfb":      "time_to_first_byte",
	"inp":       "interaction_to_next_paint",
}

// ResolveMetric returns the collector key for target.
func ResolveMetric(target string) string {
	if name, ok := MetricAliases[target]; ok {
		return name
	}
	return target
}

// lookupSamples finds the samples for target, trying the literal key first
// and then its alias.
func lookupSamples(step types.StepResult, target string) []float64 {
	if v, ok := step.Metrics[target]; ok {
		return v
	}
	return step.Metrics[ResolveMetric(target)]
}

func lookupScalar(all map[string]float64, target string) float64 {
	if v, ok := all[target]; ok {
		return v
	}
	return all[ResolveMetric(target)]
}

// FilterByTestAndEnv keeps the thresholds configured for test in environment.
func FilterByTestAndEnv(thresholds []types.ThresholdDefinition, test, env string) []types.ThresholdDefinition {
	return slice.Filter(thresholds, func(_ int, th types.ThresholdDefinition) bool {
		return th.Test == test && th.Environment == env
	})
}

// GroupByScope groups thresholds by their raw scope, keeping input order
// within each group.
func GroupByScope(thresholds []types.ThresholdDefinition) map[string][]types.ThresholdDefinition {
	grouped := make(map[string][]types.ThresholdDefinition)
	for _, th := range thresholds {
		grouped[th.Scope] = append(grouped[th.Scope], th)
	}
	return grouped
}

// Split partitions thresholds into "all", "every" and page scopes.
func Split(thresholds []types.ThresholdDefinition) (all, every, pages []types.ThresholdDefinition) {
	all = slice.Filter(thresholds, func(_ int, th types.ThresholdDefinition) bool {
		return th.Scope == ScopeAll
	})
	every = slice.Filter(thresholds, func(_ int, th types.ThresholdDefinition) bool {
		return th.Scope == ScopeEvery
	})
	pages = slice.Filter(thresholds, func(_ int, th types.ThresholdDefinition) bool {
		return th.Scope != ScopeAll && th.Scope != ScopeEvery
	})
	return all, every, pages
}

// Engine evaluates scoped thresholds. The zero value is ready to use.
type Engine struct{}

// NewEngine creates an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) check(res *types.ScopedResult, th types.ThresholdDefinition, actual float64, page string) {
	res.Total++
	failed := th.Comparison.Apply(actual, th.Value)
	if !failed {
		logger.Debug("Threshold passed",
			"scope", th.Scope, "target", th.Target, "aggregation", th.Aggregation,
			"actual", actual, "comparison", th.Comparison, "value", th.Value)
		return
	}
	res.Failed++
	res.FailedThresholds = append(res.FailedThresholds, types.ScopedFailure{
		ThresholdDefinition: th,
		ActualValue:         actual,
		Page:                page,
	})
	logger.Info("Threshold failed",
		"scope", th.Scope, "target", th.Target, "aggregation", th.Aggregation,
		"actual", actual, "comparison", th.Comparison, "value", th.Value)
}

// ProcessByScope evaluates "every" thresholds against every step and page
// thresholds against their matching step. A step may fail both an "every"
// and a page threshold. "all" thresholds are only grouped here; see
// ProcessAllScope.
func (e *Engine) ProcessByScope(thresholds []types.ThresholdDefinition, steps []types.StepResult) *types.ScopedResult {
	all, every, pages := Split(thresholds)
	res := &types.ScopedResult{
		FailedThresholds: []types.ScopedFailure{},
		AllThresholds:    all,
		EveryThresholds:  every,
		PageThresholds:   pages,
	}

	for _, th := range every {
		for _, step := range steps {
			actual := Aggregate(th.Aggregation, lookupSamples(step, string(th.Target)))
			e.check(res, th, actual, step.Name)
		}
	}

	for _, th := range pages {
		for _, step := range steps {
			if th.Scope != step.Name {
				continue
			}
			actual := Aggregate(th.Aggregation, lookupSamples(step, string(th.Target)))
			e.check(res, th, actual, "")
		}
	}
	return res
}

// ProcessAllScope evaluates "all" thresholds against whole-test scalars.
// A missing metric reads as 0.
func (e *Engine) ProcessAllScope(thresholds []types.ThresholdDefinition, all map[string]float64) *types.ScopedResult {
	res := &types.ScopedResult{FailedThresholds: []types.ScopedFailure{}}
	for _, th := range thresholds {
		if th.Scope != ScopeAll {
			continue
		}
		e.check(res, th, lookupScalar(all, string(th.Target)), "")
	}
	return res
}

// Evaluate filters thresholds to test and env, then runs both passes and
// merges their counts.
func (e *Engine) Evaluate(thresholds []types.ThresholdDefinition, test, env string, steps []types.StepResult, all map[string]float64) *types.ScopedResult {
	filtered := FilterByTestAndEnv(thresholds, test, env)
	logger.Info("Scoped thresholds selected",
		"test", test, "environment", env, "count", len(filtered))

	res := e.ProcessByScope(filtered, steps)
	if all != nil {
		res.Merge(e.ProcessAllScope(filtered, all))
	}
	return res
}
