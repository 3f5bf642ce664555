package parser

import (
	"fmt"
)

// ParseError represents a decoding error with location information.
type ParseError struct {
	Source  string // File name or "input"
	Line    int    // Line number where the error occurred (1-based)
	Column  int    // Column number where the error occurred (1-based)
	Message string // Error message
	Cause   error  // Underlying error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	src := e.Source
	if src == "" {
		src = "input"
	}
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", src, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", src, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", src, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new ParseError.
func NewParseError(line, column int, message string, cause error) *ParseError {
	return &ParseError{
		Line:    line,
		Column:  column,
		Message: message,
		Cause:   cause,
	}
}

// ConfigIssue is a quality gate config key that was missing or malformed
// and fell back to its default.
type ConfigIssue struct {
	Path    string // Dotted key path, e.g. settings.summary_results.check_throughput
	Message string
}

func (i ConfigIssue) String() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}
