package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"yqhp/quality-gate/internal/platform"
	"yqhp/quality-gate/internal/qualitygate"
	"yqhp/quality-gate/internal/reporter"
	"yqhp/quality-gate/pkg/logger"
)

// Config is the complete service configuration.
type Config struct {
	Server     ServerConfig              `yaml:"server"`
	Logging    LoggingConfig             `yaml:"logging"`
	Evaluation EvaluationConfig          `yaml:"evaluation"`
	Limits     LimitsConfig              `yaml:"limits"`
	Platform   PlatformConfig            `yaml:"platform"`
	Reporters  []reporter.ReporterConfig `yaml:"reporters,omitempty"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `yaml:"address" env:"QG_SERVER_ADDRESS"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"QG_SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"QG_SERVER_WRITE_TIMEOUT"`
	EnableCORS   bool          `yaml:"enable_cors" env:"QG_SERVER_ENABLE_CORS"`
	// BodyLimit is the maximum request body size in bytes.
	BodyLimit     int    `yaml:"body_limit" env:"QG_SERVER_BODY_LIMIT"`
	EnableMetrics bool   `yaml:"enable_metrics" env:"QG_SERVER_ENABLE_METRICS"`
	APIKey        string `yaml:"api_key,omitempty" env:"QG_SERVER_API_KEY"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"QG_LOG_LEVEL"`
	Format     string `yaml:"format" env:"QG_LOG_FORMAT"`
	Output     string `yaml:"output" env:"QG_LOG_OUTPUT"`
	FilePath   string `yaml:"file_path" env:"QG_LOG_FILE_PATH"`
	MaxSize    int    `yaml:"max_size" env:"QG_LOG_MAX_SIZE"`
	MaxBackups int    `yaml:"max_backups" env:"QG_LOG_MAX_BACKUPS"`
	MaxAge     int    `yaml:"max_age" env:"QG_LOG_MAX_AGE"`
}

// EvaluationConfig holds the defaults applied to every evaluation request.
type EvaluationConfig struct {
	ComparisonMetric string `yaml:"comparison_metric" env:"QG_COMPARISON_METRIC"`
	AddGreen         bool   `yaml:"add_green" env:"QG_ADD_GREEN"`
	Debug            bool   `yaml:"debug" env:"QG_DEBUG"`
	UseDefaults      bool   `yaml:"use_defaults" env:"QG_USE_DEFAULTS"`
	// DataErrorPolicy is "abort" or "skip".
	DataErrorPolicy string `yaml:"data_error_policy" env:"QG_DATA_ERROR_POLICY"`
}

// LimitsConfig holds the verdict tolerances in percent. Unset limits
// never fail the run.
type LimitsConfig struct {
	MissedThresholdsRate *float64 `yaml:"missed_thresholds_rate,omitempty" env:"QG_LIMIT_MISSED_THRESHOLDS_RATE"`
	DegradationRate      *float64 `yaml:"degradation_rate,omitempty" env:"QG_LIMIT_DEGRADATION_RATE"`
	ErrorRate            *float64 `yaml:"error_rate,omitempty" env:"QG_LIMIT_ERROR_RATE"`
}

// PlatformConfig locates the platform that stores thresholds and baselines.
type PlatformConfig struct {
	URL       string        `yaml:"url" env:"QG_PLATFORM_URL"`
	Token     string        `yaml:"token" env:"QG_PLATFORM_TOKEN"`
	ProjectID string        `yaml:"project_id" env:"QG_PLATFORM_PROJECT_ID"`
	Timeout   time.Duration `yaml:"timeout" env:"QG_PLATFORM_TIMEOUT"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:       ":8080",
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  30 * time.Second,
			EnableCORS:    false,
			BodyLimit:     16 * 1024 * 1024,
			EnableMetrics: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stderr",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		},
		Evaluation: EvaluationConfig{
			ComparisonMetric: qualitygate.DefaultComparisonMetric,
			DataErrorPolicy:  string(qualitygate.DataErrorAbort),
		},
		Platform: PlatformConfig{
			Timeout: 30 * time.Second,
		},
	}
}

// LoggerConfig converts the logging section for logger.Init.
func (c *Config) LoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		Output:     c.Logging.Output,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}

// QualityGateLimits converts the limits section for the verdict.
func (c *Config) QualityGateLimits() qualitygate.Limits {
	return qualitygate.Limits{
		MissedThresholdsRate: c.Limits.MissedThresholdsRate,
		DegradationRate:      c.Limits.DegradationRate,
		ErrorRate:            c.Limits.ErrorRate,
	}
}

// PlatformClientConfig converts the platform section for platform.New.
func (c *Config) PlatformClientConfig() platform.Config {
	return platform.Config{
		URL:       c.Platform.URL,
		Token:     c.Platform.Token,
		ProjectID: c.Platform.ProjectID,
		Timeout:   c.Platform.Timeout,
	}
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
	cmdArgs    map[string]string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		cmdArgs: make(map[string]string),
	}
}

// WithConfigPath sets the path to the YAML configuration file.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithCmdArgs sets dotted-path overrides, e.g. "server.address".
func (l *Loader) WithCmdArgs(args map[string]string) *Loader {
	l.cmdArgs = args
	return l
}

// Load loads configuration from all sources with proper precedence:
// defaults < YAML file < environment variables < command-line flags
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := l.applyCmdOverrides(cfg); err != nil {
		return nil, fmt.Errorf("apply flag overrides: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file. A missing file
// leaves the defaults in place.
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	return nil
}

func (l *Loader) applyEnvOverrides(cfg *Config) error {
	return l.applyEnvToStruct(reflect.ValueOf(cfg).Elem())
}

// applyEnvToStruct recursively applies environment variables to struct fields.
func (l *Loader) applyEnvToStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := l.applyEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("set %s from %s: %w", fieldType.Name, envTag, err)
		}
	}

	return nil
}

func (l *Loader) applyCmdOverrides(cfg *Config) error {
	for key, value := range l.cmdArgs {
		if err := l.setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a configuration value by dot-notation path. Path
// parts match field names case-insensitively with underscores removed.
func (l *Loader) setConfigValue(cfg *Config, path, value string) error {
	parts := strings.Split(path, ".")
	v := reflect.ValueOf(cfg).Elem()

	for i, part := range parts {
		fieldName := strings.ReplaceAll(part, "_", "")

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return fmt.Errorf("unknown config path: %s", path)
		}

		if i == len(parts)-1 {
			return setFieldValue(field, value)
		}

		if field.Kind() != reflect.Struct {
			return fmt.Errorf("expected %s to be a struct, got %s", part, field.Kind())
		}
		v = field
	}

	return nil
}

// setFieldValue sets a reflect.Value from a string value.
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid unsigned integer: %w", err)
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float: %w", err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool: %w", err)
		}
		field.SetBool(b)

	case reflect.Ptr:
		// optional scalar; "none" clears it
		if strings.EqualFold(value, "none") {
			field.Set(reflect.Zero(field.Type()))
			return nil
		}
		elem := reflect.New(field.Type().Elem())
		if err := setFieldValue(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Serialize serializes the configuration to YAML bytes.
func (c *Config) Serialize() ([]byte, error) {
	return yaml.Marshal(c)
}

// ParseConfig parses a YAML configuration on top of the defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	data, _ := c.Serialize()
	clone, _ := ParseConfig(data)
	return clone
}
