package types

import "strings"

// AggregateRequestName is the request name of the synthetic row that
// summarises a whole run. Matching is case-insensitive.
const AggregateRequestName = "all"

// Metric field names understood by MetricRecord.Field.
const (
	FieldThroughput = "throughput"
	FieldMin        = "min"
	FieldMax        = "max"
	FieldMean       = "mean"
	FieldAvg        = "avg"
	FieldPct50      = "pct50"
	FieldPct75      = "pct75"
	FieldPct90      = "pct90"
	FieldPct95      = "pct95"
	FieldPct99      = "pct99"
)

// ComparisonMetrics lists the response time aggregations a caller may select.
var ComparisonMetrics = []string{FieldMean, FieldPct50, FieldPct75, FieldPct90, FieldPct95, FieldPct99}

// IsComparisonMetric reports whether name is a selectable comparison metric.
func IsComparisonMetric(name string) bool {
	for _, m := range ComparisonMetrics {
		if m == name {
			return true
		}
	}
	return false
}

// MetricRecord is the per-request summary of one test run.
// Response time fields are in milliseconds. Optional fields are nil when the
// upstream aggregator did not provide them.
type MetricRecord struct {
	RequestName string `json:"request_name" yaml:"request_name"`
	Method      string `json:"method,omitempty" yaml:"method,omitempty"`

	Total int64 `json:"total" yaml:"total"`
	OK    int64 `json:"ok" yaml:"ok"`
	KO    int64 `json:"ko" yaml:"ko"`

	Throughput *float64 `json:"throughput,omitempty" yaml:"throughput,omitempty"`

	Min   *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max   *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Mean  *float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	Pct50 *float64 `json:"pct50,omitempty" yaml:"pct50,omitempty"`
	Pct75 *float64 `json:"pct75,omitempty" yaml:"pct75,omitempty"`
	Pct90 *float64 `json:"pct90,omitempty" yaml:"pct90,omitempty"`
	Pct95 *float64 `json:"pct95,omitempty" yaml:"pct95,omitempty"`
	Pct99 *float64 `json:"pct99,omitempty" yaml:"pct99,omitempty"`
}

// BaselineRecord is a MetricRecord taken from a previous run.
type BaselineRecord = MetricRecord

// IsAggregate reports whether the record is the synthetic "All" row.
func (r MetricRecord) IsAggregate() bool {
	return strings.EqualFold(r.RequestName, AggregateRequestName)
}

// Field returns the named numeric field. "avg" is an alias for "mean".
// The second result is false when the field is unknown or absent.
func (r MetricRecord) Field(name string) (float64, bool) {
	var p *float64
	switch name {
	case FieldThroughput:
		p = r.Throughput
	case FieldMin:
		p = r.Min
	case FieldMax:
		p = r.Max
	case FieldMean, FieldAvg:
		p = r.Mean
	case FieldPct50:
		p = r.Pct50
	case FieldPct75:
		p = r.Pct75
	case FieldPct90:
		p = r.Pct90
	case FieldPct95:
		p = r.Pct95
	case FieldPct99:
		p = r.Pct99
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// FindAggregate returns the first aggregate row in records.
func FindAggregate(records []MetricRecord) (MetricRecord, bool) {
	for _, r := range records {
		if r.IsAggregate() {
			return r, true
		}
	}
	return MetricRecord{}, false
}

// Float returns a pointer to v. Handy for building records in code and tests.
func Float(v float64) *float64 {
	return &v
}
