package qualitygate

import (
	"strings"

	"github.com/duke-git/lancet/v2/slice"

	"yqhp/quality-gate/pkg/logger"
	"yqhp/quality-gate/pkg/types"
)

// Raw scope values with special meaning.
const (
	ScopeValueAll   = "all"
	ScopeValueEvery = "every"
)

// ScopeKind enumerates the threshold scopes.
type ScopeKind int

const (
	// ScopeNamed applies to the request whose name equals the scope.
	ScopeNamed ScopeKind = iota
	// ScopeAll applies to the aggregate row only.
	ScopeAll
	// ScopeEvery applies to every non-aggregate row.
	ScopeEvery
)

// Scope is the parsed form of ThresholdDefinition.Scope.
type Scope struct {
	Kind ScopeKind
	Name string
}

// ParseScope classifies a raw scope string. "all" must match exactly,
// including case; "every" is matched case-insensitively. Anything else,
// "All" included, is a request name.
func ParseScope(raw string) Scope {
	switch {
	case raw == ScopeValueAll:
		return Scope{Kind: ScopeAll, Name: raw}
	case strings.EqualFold(raw, ScopeValueEvery):
		return Scope{Kind: ScopeEvery, Name: raw}
	default:
		return Scope{Kind: ScopeNamed, Name: raw}
	}
}

func (s Scope) String() string {
	switch s.Kind {
	case ScopeAll:
		return "all"
	case ScopeEvery:
		return "every"
	}
	return "named(" + s.Name + ")"
}

// FilterByComparisonMetric keeps response_time thresholds whose aggregation
// equals metric, and every throughput and error_rate threshold.
func FilterByComparisonMetric(thresholds []types.ThresholdDefinition, metric string) []types.ThresholdDefinition {
	return slice.Filter(thresholds, func(_ int, th types.ThresholdDefinition) bool {
		if th.Target == types.TargetResponseTime {
			return th.Aggregation == metric
		}
		return true
	})
}

// MissingTargets returns the targets for which no threshold is configured at all.
func MissingTargets(thresholds []types.ThresholdDefinition) []types.Target {
	var missing []types.Target
	for _, target := range types.Targets {
		_, found := slice.FindBy(thresholds, func(_ int, th types.ThresholdDefinition) bool {
			return th.Target == target
		})
		if !found {
			missing = append(missing, target)
		}
	}
	return missing
}

func validThreshold(th types.ThresholdDefinition) bool {
	switch th.Target {
	case types.TargetResponseTime, types.TargetErrorRate, types.TargetThroughput:
	default:
		return false
	}
	return th.Comparison.Valid()
}

// ScopeResolver decides which thresholds apply to each record.
// When several thresholds share scope and target, the first one wins.
type ScopeResolver struct {
	global []types.ThresholdDefinition
	every  *types.ThresholdDefinition
	named  map[string]types.ThresholdDefinition
}

// NewScopeResolver filters thresholds by comparison metric and indexes them by scope.
func NewScopeResolver(thresholds []types.ThresholdDefinition, comparisonMetric string) *ScopeResolver {
	r := &ScopeResolver{named: make(map[string]types.ThresholdDefinition)}
	seenGlobal := make(map[types.Target]bool)

	for _, th := range FilterByComparisonMetric(thresholds, comparisonMetric) {
		if !validThreshold(th) {
			logger.Warn("Ignoring malformed threshold",
				"scope", th.Scope, "target", th.Target, "comparison", th.Comparison)
			continue
		}

		scope := ParseScope(th.Scope)
		switch scope.Kind {
		case ScopeAll:
			if seenGlobal[th.Target] {
				continue
			}
			seenGlobal[th.Target] = true
			r.global = append(r.global, th)
		case ScopeEvery:
			// per-request rows only ever check response_time
			if th.Target != types.TargetResponseTime || r.every != nil {
				continue
			}
			every := th
			r.every = &every
		case ScopeNamed:
			if th.Target != types.TargetResponseTime {
				continue
			}
			if _, exists := r.named[scope.Name]; exists {
				continue
			}
			r.named[scope.Name] = th
		}
	}
	return r
}

// Global returns the thresholds that apply to the aggregate row, in input order.
func (r *ScopeResolver) Global() []types.ThresholdDefinition {
	out := make([]types.ThresholdDefinition, len(r.global))
	copy(out, r.global)
	return out
}

// Resolve returns the thresholds that apply to record. The aggregate row
// gets the "all" thresholds; any other row gets at most one response_time
// threshold, the request-specific one taking precedence over "every".
func (r *ScopeResolver) Resolve(record types.MetricRecord) []types.ThresholdDefinition {
	if record.IsAggregate() {
		return r.Global()
	}
	if th, ok := r.named[record.RequestName]; ok {
		return []types.ThresholdDefinition{th}
	}
	if r.every != nil {
		return []types.ThresholdDefinition{*r.every}
	}
	return nil
}
