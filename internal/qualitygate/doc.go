// Package qualitygate evaluates the summary records of a performance test
// against SLA thresholds and a historical baseline.
//
// The package has four parts:
//
//   - ScopeResolver picks the thresholds that apply to a request row.
//   - Evaluator compares one row against one threshold, applying unit
//     conversion and the configured deviation tolerance.
//   - EvaluateSLA tallies checked and violated thresholds into a violation rate.
//   - CompareBaseline runs the same comparisons against a previous run and
//     yields a degradation rate.
//
// Every call is pure: inputs are never modified, and debug traces are returned
// as part of the result, so the functions are safe to call concurrently.
package qualitygate
