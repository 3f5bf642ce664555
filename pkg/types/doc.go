// Package types defines the core data structures for the quality gate service.
//
// This package contains the fundamental types shared by the evaluators,
// the HTTP API and the reporters, including:
//   - Metric and baseline records produced by a test run
//   - Threshold definitions and the quality gate configuration
//   - Violation, degradation and verdict results
//   - Sample-list results for the scoped (UI) threshold engine
package types
