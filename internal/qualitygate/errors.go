package qualitygate

import (
	"errors"
	"fmt"

	"yqhp/quality-gate/pkg/types"
)

// ErrMissingField is wrapped by every DataError.
var ErrMissingField = errors.New("missing metric field")

// ErrUnsupportedMetric is returned for a comparison metric that is not a
// response time aggregation.
var ErrUnsupportedMetric = errors.New("unsupported comparison metric")

// DataError reports a record that lacks a field required by a comparison.
// It is fatal for the row it concerns.
type DataError struct {
	RequestName string
	Target      types.Target
	Field       string
	Source      string // "current" or "baseline"
}

func (e *DataError) Error() string {
	src := ""
	if e.Source != "" {
		src = e.Source + " "
	}
	return fmt.Sprintf("%srequest %q target %s: missing field %q", src, e.RequestName, e.Target, e.Field)
}

func (e *DataError) Unwrap() error {
	return ErrMissingField
}

// DataErrorPolicy decides what happens to a row that raises a DataError.
type DataErrorPolicy string

const (
	// DataErrorAbort stops the evaluation and returns the error.
	DataErrorAbort DataErrorPolicy = "abort"
	// DataErrorSkip drops the row, records it in the result and continues.
	DataErrorSkip DataErrorPolicy = "skip"
)

// ParseDataErrorPolicy maps a config string to a policy, defaulting to abort.
func ParseDataErrorPolicy(s string) DataErrorPolicy {
	if DataErrorPolicy(s) == DataErrorSkip {
		return DataErrorSkip
	}
	return DataErrorAbort
}

func skippedRow(err *DataError) types.SkippedRow {
	return types.SkippedRow{
		RequestName: err.RequestName,
		Target:      err.Target,
		Reason:      err.Error(),
	}
}
