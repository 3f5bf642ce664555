package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/quality-gate/internal/qualitygate"
	"yqhp/quality-gate/internal/reporter"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "pct95", cfg.Evaluation.ComparisonMetric)
	assert.Equal(t, "abort", cfg.Evaluation.DataErrorPolicy)
	assert.Nil(t, cfg.Limits.ErrorRate)
	assert.Equal(t, 30*time.Second, cfg.Platform.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadAndValidate_File(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  address: ":9000"
  read_timeout: 60s
  write_timeout: 60s
  enable_cors: true

logging:
  level: debug
  format: json

evaluation:
  comparison_metric: pct99
  add_green: true
  data_error_policy: skip

limits:
  missed_thresholds_rate: 20
  error_rate: 5

platform:
  url: https://perf.example.com
  token: secret
  project_id: "12"
  timeout: 5s

reporters:
  - type: console
    enabled: true
  - type: json
    enabled: true
    config:
      path: out/gate.json
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := LoadAndValidate(configPath, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Server.EnableCORS)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "pct99", cfg.Evaluation.ComparisonMetric)
	assert.True(t, cfg.Evaluation.AddGreen)
	assert.Equal(t, "skip", cfg.Evaluation.DataErrorPolicy)

	require.NotNil(t, cfg.Limits.MissedThresholdsRate)
	assert.Equal(t, 20.0, *cfg.Limits.MissedThresholdsRate)
	assert.Nil(t, cfg.Limits.DegradationRate)
	require.NotNil(t, cfg.Limits.ErrorRate)
	assert.Equal(t, 5.0, *cfg.Limits.ErrorRate)

	assert.Equal(t, "https://perf.example.com", cfg.Platform.URL)
	assert.Equal(t, "12", cfg.Platform.ProjectID)
	assert.Equal(t, 5*time.Second, cfg.Platform.Timeout)

	require.Len(t, cfg.Reporters, 2)
	assert.Equal(t, reporter.ReporterTypeJSON, cfg.Reporters[1].Type)
	assert.Equal(t, "out/gate.json", cfg.Reporters[1].Config["path"])

	assert.NoError(t, cfg.Validate())
}

func TestLoadAndValidate_MissingFile(t *testing.T) {
	cfg, err := LoadAndValidate("/nonexistent/path/config.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Address, cfg.Server.Address)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QG_SERVER_ADDRESS", ":7070")
	t.Setenv("QG_SERVER_READ_TIMEOUT", "45s")
	t.Setenv("QG_SERVER_ENABLE_CORS", "true")
	t.Setenv("QG_LOG_LEVEL", "warn")
	t.Setenv("QG_COMPARISON_METRIC", "pct90")
	t.Setenv("QG_ADD_GREEN", "true")
	t.Setenv("QG_LIMIT_DEGRADATION_RATE", "12.5")
	t.Setenv("QG_PLATFORM_URL", "http://platform:8080")
	t.Setenv("QG_PLATFORM_PROJECT_ID", "3")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Server.EnableCORS)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "pct90", cfg.Evaluation.ComparisonMetric)
	assert.True(t, cfg.Evaluation.AddGreen)
	require.NotNil(t, cfg.Limits.DegradationRate)
	assert.Equal(t, 12.5, *cfg.Limits.DegradationRate)
	assert.Equal(t, "http://platform:8080", cfg.Platform.URL)
	assert.Equal(t, "3", cfg.Platform.ProjectID)
}

func TestCmdOverrides(t *testing.T) {
	cmdArgs := map[string]string{
		"server.address":                ":6060",
		"server.read_timeout":           "90s",
		"logging.level":                 "error",
		"evaluation.data_error_policy":  "skip",
		"limits.missed_thresholds_rate": "10",
	}

	cfg, err := NewLoader().WithCmdArgs(cmdArgs).Load()
	require.NoError(t, err)

	assert.Equal(t, ":6060", cfg.Server.Address)
	assert.Equal(t, 90*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "skip", cfg.Evaluation.DataErrorPolicy)
	require.NotNil(t, cfg.Limits.MissedThresholdsRate)
	assert.Equal(t, 10.0, *cfg.Limits.MissedThresholdsRate)
}

func TestCmdOverrides_ClearLimit(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("limits:\n  error_rate: 2\n"), 0644))

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		WithCmdArgs(map[string]string{"limits.error_rate": "none"}).
		Load()
	require.NoError(t, err)
	assert.Nil(t, cfg.Limits.ErrorRate)
}

func TestPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  address: ":9000"
logging:
  level: debug
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	// env overrides the file
	t.Setenv("QG_SERVER_ADDRESS", ":8000")
	t.Setenv("QG_LOG_LEVEL", "info")

	// flags override env
	cmdArgs := map[string]string{
		"server.address": ":7000",
	}

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		WithCmdArgs(cmdArgs).
		Load()
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestConversions(t *testing.T) {
	cfg := DefaultConfig()
	rate := 15.0
	cfg.Limits.DegradationRate = &rate
	cfg.Logging.Output = "both"
	cfg.Logging.FilePath = "/var/log/qg.log"
	cfg.Platform = PlatformConfig{URL: "http://p", Token: "t", ProjectID: "7", Timeout: time.Second}

	lc := cfg.LoggerConfig()
	assert.Equal(t, "both", lc.Output)
	assert.Equal(t, "/var/log/qg.log", lc.FilePath)
	assert.Equal(t, 100, lc.MaxSize)

	limits := cfg.QualityGateLimits()
	assert.Equal(t, &rate, limits.DegradationRate)
	assert.Nil(t, limits.ErrorRate)

	pc := cfg.PlatformClientConfig()
	assert.Equal(t, "7", pc.ProjectID)
	assert.Equal(t, time.Second, pc.Timeout)
	assert.True(t, pc.Enabled())

	assert.Equal(t, qualitygate.DataErrorAbort, qualitygate.ParseDataErrorPolicy(cfg.Evaluation.DataErrorPolicy))
}

func TestSerializeAndParse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Address = ":5000"
	cfg.Evaluation.ComparisonMetric = "pct75"
	cfg.Reporters = []reporter.ReporterConfig{{Type: reporter.ReporterTypeCSV, Enabled: true}}

	data, err := cfg.Serialize()
	require.NoError(t, err)

	parsed, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, cfg.Server.Address, parsed.Server.Address)
	assert.Equal(t, cfg.Evaluation.ComparisonMetric, parsed.Evaluation.ComparisonMetric)
	assert.Equal(t, cfg.Reporters[0].Type, parsed.Reporters[0].Type)
	assert.NotContains(t, string(data), "error_rate")
}

func TestClone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Address = ":5000"
	rate := 3.0
	cfg.Limits.ErrorRate = &rate

	clone := cfg.Clone()

	cfg.Server.Address = ":6000"
	*cfg.Limits.ErrorRate = 9

	assert.Equal(t, ":5000", clone.Server.Address)
	assert.Equal(t, 3.0, *clone.Limits.ErrorRate)
}

func TestInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidContent := `
server:
  address: ":9000"
  invalid yaml content here
    - broken
`
	err := os.WriteFile(configPath, []byte(invalidContent), 0644)
	require.NoError(t, err)

	_, err = LoadAndValidate(configPath, nil)
	assert.Error(t, err)
}

func TestInvalidEnvValue(t *testing.T) {
	t.Setenv("QG_SERVER_READ_TIMEOUT", "invalid-duration")

	_, err := NewLoader().Load()
	assert.Error(t, err)
}

func TestInvalidEnvLimit(t *testing.T) {
	t.Setenv("QG_LIMIT_ERROR_RATE", "five")

	_, err := NewLoader().Load()
	assert.ErrorContains(t, err, "invalid float")
}

func TestInvalidCmdPath(t *testing.T) {
	cmdArgs := map[string]string{
		"nonexistent.path": "value",
	}

	_, err := NewLoader().WithCmdArgs(cmdArgs).Load()
	assert.Error(t, err)
}
