package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"yqhp/quality-gate/internal/qualitygate"
	"yqhp/quality-gate/internal/reporter"
	"yqhp/quality-gate/pkg/types"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration values.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// addError adds a validation error.
func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

// Validate validates the entire configuration and returns any errors.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	v.validateServerConfig(&cfg.Server)
	v.validateLoggingConfig(&cfg.Logging)
	v.validateEvaluationConfig(&cfg.Evaluation)
	v.validateLimitsConfig(&cfg.Limits)
	v.validatePlatformConfig(&cfg.Platform)
	v.validateReporters(cfg.Reporters)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

// validateServerConfig validates the server configuration.
func (v *Validator) validateServerConfig(cfg *ServerConfig) {
	if cfg.Address == "" {
		v.addError("server.address", "address is required")
	} else if !isValidAddress(cfg.Address) {
		v.addError("server.address", "invalid address format, expected host:port or :port")
	}

	if cfg.ReadTimeout < 0 {
		v.addError("server.read_timeout", "read timeout must be non-negative")
	}
	if cfg.WriteTimeout < 0 {
		v.addError("server.write_timeout", "write timeout must be non-negative")
	}
	if cfg.ReadTimeout > 0 && cfg.ReadTimeout < time.Second {
		v.addError("server.read_timeout", "read timeout should be at least 1 second")
	}
	if cfg.WriteTimeout > 0 && cfg.WriteTimeout < time.Second {
		v.addError("server.write_timeout", "write timeout should be at least 1 second")
	}

	if cfg.BodyLimit < 0 {
		v.addError("server.body_limit", "body limit must be non-negative")
	}
}

// validateLoggingConfig validates the logging configuration.
func (v *Validator) validateLoggingConfig(cfg *LoggingConfig) {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if cfg.Level == "" {
		v.addError("logging.level", "log level is required")
	} else if !validLevels[strings.ToLower(cfg.Level)] {
		v.addError("logging.level", fmt.Sprintf("invalid log level '%s', must be one of: debug, info, warn, error", cfg.Level))
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
		"text":    true,
	}
	if cfg.Format == "" {
		v.addError("logging.format", "log format is required")
	} else if !validFormats[strings.ToLower(cfg.Format)] {
		v.addError("logging.format", fmt.Sprintf("invalid log format '%s', must be one of: json, console, text", cfg.Format))
	}

	validOutputs := map[string]bool{
		"":       true,
		"stdout": true,
		"stderr": true,
		"file":   true,
		"both":   true,
	}
	output := strings.ToLower(cfg.Output)
	if !validOutputs[output] {
		v.addError("logging.output", fmt.Sprintf("invalid log output '%s', must be one of: stdout, stderr, file, both", cfg.Output))
	}
	if (output == "file" || output == "both") && cfg.FilePath == "" {
		v.addError("logging.file_path", "file path is required when output is file or both")
	}

	if cfg.MaxSize < 0 {
		v.addError("logging.max_size", "max size must be non-negative")
	}
	if cfg.MaxBackups < 0 {
		v.addError("logging.max_backups", "max backups must be non-negative")
	}
	if cfg.MaxAge < 0 {
		v.addError("logging.max_age", "max age must be non-negative")
	}
}

// validateEvaluationConfig validates the evaluation defaults.
func (v *Validator) validateEvaluationConfig(cfg *EvaluationConfig) {
	if cfg.ComparisonMetric != "" && !types.IsComparisonMetric(cfg.ComparisonMetric) {
		v.addError("evaluation.comparison_metric", fmt.Sprintf("unsupported comparison metric '%s'", cfg.ComparisonMetric))
	}

	switch qualitygate.DataErrorPolicy(cfg.DataErrorPolicy) {
	case "", qualitygate.DataErrorAbort, qualitygate.DataErrorSkip:
	default:
		v.addError("evaluation.data_error_policy", fmt.Sprintf("invalid data error policy '%s', must be one of: abort, skip", cfg.DataErrorPolicy))
	}
}

// validateLimitsConfig validates the verdict tolerances.
func (v *Validator) validateLimitsConfig(cfg *LimitsConfig) {
	check := func(field string, limit *float64) {
		if limit != nil && *limit < 0 {
			v.addError(field, "limit must be non-negative")
		}
	}
	check("limits.missed_thresholds_rate", cfg.MissedThresholdsRate)
	check("limits.degradation_rate", cfg.DegradationRate)
	check("limits.error_rate", cfg.ErrorRate)
}

// validatePlatformConfig validates the platform section. An empty URL
// disables fetching; otherwise a project is required.
func (v *Validator) validatePlatformConfig(cfg *PlatformConfig) {
	if cfg.Timeout < 0 {
		v.addError("platform.timeout", "timeout must be non-negative")
	}
	if cfg.URL == "" {
		return
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.addError("platform.url", "invalid url, expected http(s)://host")
	}
	if cfg.ProjectID == "" {
		v.addError("platform.project_id", "project id is required when url is set")
	}
}

// validateReporters checks every reporter entry names a known type.
func (v *Validator) validateReporters(reporters []reporter.ReporterConfig) {
	known := map[reporter.ReporterType]bool{
		reporter.ReporterTypeConsole:    true,
		reporter.ReporterTypeJSON:       true,
		reporter.ReporterTypeCSV:        true,
		reporter.ReporterTypePrometheus: true,
		reporter.ReporterTypeInfluxDB:   true,
		reporter.ReporterTypeWebhook:    true,
	}
	for i, r := range reporters {
		field := fmt.Sprintf("reporters[%d].type", i)
		if r.Type == "" {
			v.addError(field, "reporter type is required")
		} else if !known[r.Type] {
			v.addError(field, fmt.Sprintf("unknown reporter type '%s'", r.Type))
		}
	}
}

// isValidAddress checks if the address is a valid host:port format.
func isValidAddress(addr string) bool {
	if addr == "" {
		return false
	}

	// Handle :port format
	if strings.HasPrefix(addr, ":") {
		port := strings.TrimPrefix(addr, ":")
		if port == "" {
			return false
		}
		_, err := net.LookupPort("tcp", port)
		return err == nil
	}

	// Handle host:port format
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}

	// Port must be non-empty and valid
	if port == "" {
		return false
	}
	if _, err := net.LookupPort("tcp", port); err != nil {
		return false
	}

	// Host can be empty (meaning all interfaces), an IP, or a hostname
	if host != "" {
		// Try to parse as IP
		if ip := net.ParseIP(host); ip == nil {
			// Not an IP, check if it's a valid hostname (basic check)
			if !isValidHostname(host) {
				return false
			}
		}
	}

	return true
}

// isValidHostname performs basic hostname validation.
func isValidHostname(hostname string) bool {
	if len(hostname) == 0 || len(hostname) > 253 {
		return false
	}

	// Check each label
	labels := strings.Split(hostname, ".")
	for _, label := range labels {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		// Labels must start and end with alphanumeric
		if !isAlphanumeric(label[0]) || !isAlphanumeric(label[len(label)-1]) {
			return false
		}
		// Labels can contain alphanumeric and hyphens
		for _, c := range label {
			if !isAlphanumeric(byte(c)) && c != '-' {
				return false
			}
		}
	}

	return true
}

// isAlphanumeric checks if a byte is alphanumeric.
func isAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Validate validates the configuration and returns any errors.
// This is a convenience method on Config.
func (c *Config) Validate() error {
	return NewValidator().Validate(c)
}

// LoadAndValidate loads configuration from path (empty for defaults and
// environment only), applies dotted-path overrides and validates the result.
func LoadAndValidate(path string, overrides map[string]string) (*Config, error) {
	loader := NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	if len(overrides) > 0 {
		loader = loader.WithCmdArgs(overrides)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Schema represents a configuration schema for documentation and validation.
type Schema struct {
	Fields []FieldSchema `yaml:"fields"`
}

// FieldSchema describes a configuration field.
type FieldSchema struct {
	Path        string   `yaml:"path"`
	Type        string   `yaml:"type"`
	Required    bool     `yaml:"required"`
	Default     string   `yaml:"default,omitempty"`
	Description string   `yaml:"description"`
	EnvVar      string   `yaml:"env"`
	Constraints []string `yaml:"constraints,omitempty"`
}

// GetSchema returns the configuration schema.
func GetSchema() *Schema {
	return &Schema{
		Fields: []FieldSchema{
			{Path: "server.address", Type: "string", Required: true, Default: ":8080", Description: "HTTP server listen address", EnvVar: "QG_SERVER_ADDRESS", Constraints: []string{"valid host:port format"}},
			{Path: "server.read_timeout", Type: "duration", Required: false, Default: "30s", Description: "HTTP read timeout", EnvVar: "QG_SERVER_READ_TIMEOUT", Constraints: []string{"non-negative", "at least 1s if set"}},
			{Path: "server.write_timeout", Type: "duration", Required: false, Default: "30s", Description: "HTTP write timeout", EnvVar: "QG_SERVER_WRITE_TIMEOUT", Constraints: []string{"non-negative", "at least 1s if set"}},
			{Path: "server.enable_cors", Type: "bool", Required: false, Default: "false", Description: "Enable CORS", EnvVar: "QG_SERVER_ENABLE_CORS"},
			{Path: "server.body_limit", Type: "int", Required: false, Default: "16777216", Description: "Maximum request body size in bytes", EnvVar: "QG_SERVER_BODY_LIMIT", Constraints: []string{"non-negative"}},
			{Path: "server.enable_metrics", Type: "bool", Required: false, Default: "true", Description: "Serve Prometheus metrics on /metrics", EnvVar: "QG_SERVER_ENABLE_METRICS"},
			{Path: "server.api_key", Type: "string", Required: false, Description: "Required X-API-Key header value", EnvVar: "QG_SERVER_API_KEY"},
			{Path: "logging.level", Type: "string", Required: true, Default: "info", Description: "Log level", EnvVar: "QG_LOG_LEVEL", Constraints: []string{"one of: debug, info, warn, error"}},
			{Path: "logging.format", Type: "string", Required: true, Default: "console", Description: "Log format", EnvVar: "QG_LOG_FORMAT", Constraints: []string{"one of: json, console, text"}},
			{Path: "logging.output", Type: "string", Required: false, Default: "stderr", Description: "Log output", EnvVar: "QG_LOG_OUTPUT", Constraints: []string{"one of: stdout, stderr, file, both"}},
			{Path: "logging.file_path", Type: "string", Required: false, Description: "Rotated log file path", EnvVar: "QG_LOG_FILE_PATH", Constraints: []string{"required for file or both output"}},
			{Path: "evaluation.comparison_metric", Type: "string", Required: false, Default: "pct95", Description: "Aggregation compared against response time thresholds", EnvVar: "QG_COMPARISON_METRIC", Constraints: []string{"one of: mean, pct50, pct75, pct90, pct95, pct99"}},
			{Path: "evaluation.add_green", Type: "bool", Required: false, Default: "false", Description: "Record passing checks", EnvVar: "QG_ADD_GREEN"},
			{Path: "evaluation.debug", Type: "bool", Required: false, Default: "false", Description: "Collect an evaluation trace", EnvVar: "QG_DEBUG"},
			{Path: "evaluation.use_defaults", Type: "bool", Required: false, Default: "false", Description: "Apply default limits when the quality gate config is missing", EnvVar: "QG_USE_DEFAULTS"},
			{Path: "evaluation.data_error_policy", Type: "string", Required: false, Default: "abort", Description: "Handling of rows with missing fields", EnvVar: "QG_DATA_ERROR_POLICY", Constraints: []string{"one of: abort, skip"}},
			{Path: "limits.missed_thresholds_rate", Type: "float", Required: false, Description: "Allowed SLA violation rate in percent", EnvVar: "QG_LIMIT_MISSED_THRESHOLDS_RATE", Constraints: []string{"non-negative"}},
			{Path: "limits.degradation_rate", Type: "float", Required: false, Description: "Allowed baseline degradation rate in percent", EnvVar: "QG_LIMIT_DEGRADATION_RATE", Constraints: []string{"non-negative"}},
			{Path: "limits.error_rate", Type: "float", Required: false, Description: "Allowed error rate in percent", EnvVar: "QG_LIMIT_ERROR_RATE", Constraints: []string{"non-negative"}},
			{Path: "platform.url", Type: "string", Required: false, Description: "Platform base URL", EnvVar: "QG_PLATFORM_URL", Constraints: []string{"http or https URL"}},
			{Path: "platform.token", Type: "string", Required: false, Description: "Platform bearer token", EnvVar: "QG_PLATFORM_TOKEN"},
			{Path: "platform.project_id", Type: "string", Required: false, Description: "Platform project", EnvVar: "QG_PLATFORM_PROJECT_ID", Constraints: []string{"required when url is set"}},
			{Path: "platform.timeout", Type: "duration", Required: false, Default: "30s", Description: "Platform request timeout", EnvVar: "QG_PLATFORM_TIMEOUT", Constraints: []string{"non-negative"}},
		},
	}
}
