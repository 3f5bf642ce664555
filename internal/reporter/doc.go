// Package reporter publishes quality gate reports.
//
// A Manager fans one report out to every configured Reporter. Built-in
// reporters write to the console, JSON and CSV files, a Prometheus push
// gateway, InfluxDB and generic webhooks; RegisterBuiltinReporters makes
// them available to a Registry by type name.
package reporter
