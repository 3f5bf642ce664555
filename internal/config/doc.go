// Package config loads the quality gate service configuration from YAML
// files, environment variables and command-line overrides, in that order
// of increasing precedence, on top of DefaultConfig.
package config
