package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfig = `{
	"SLA": {"checked": true},
	"baseline": {"checked": false},
	"settings": {
		"summary_results": {
			"check_response_time": true,
			"check_error_rate": true,
			"check_throughput": false,
			"response_time_deviation": 500,
			"throughput_deviation": 2.5,
			"error_rate_deviation": 1
		},
		"per_request_results": {
			"check_response_time": true,
			"check_error_rate": false,
			"check_throughput": false,
			"response_time_deviation": 50,
			"throughput_deviation": 0,
			"error_rate_deviation": 0
		}
	}
}`

func TestDecodeQualityGateConfig_Full(t *testing.T) {
	cfg, issues, err := DecodeQualityGateConfig([]byte(fullConfig), FormatAuto)
	require.NoError(t, err)
	assert.Empty(t, issues)

	assert.True(t, cfg.SLA.Checked)
	assert.False(t, cfg.Baseline.Checked)
	assert.True(t, cfg.Settings.SummaryResults.CheckResponseTime)
	assert.False(t, cfg.Settings.SummaryResults.CheckThroughput)
	assert.Equal(t, 500.0, cfg.Settings.SummaryResults.ResponseTimeDeviation)
	assert.Equal(t, 2.5, cfg.Settings.SummaryResults.ThroughputDeviation)
	assert.Equal(t, 50.0, cfg.Settings.PerRequestResults.ResponseTimeDeviation)
}

func TestDecodeQualityGateConfig_NestedInJobArgs(t *testing.T) {
	cfg, _, err := DecodeQualityGateConfig([]byte(`{"build_id": "b1", "quality_gate_config": `+fullConfig+`}`), FormatJSON)
	require.NoError(t, err)
	assert.True(t, cfg.SLA.Checked)
	assert.Equal(t, 1.0, cfg.Settings.SummaryResults.ErrorRateDeviation)
}

func TestDecodeQualityGateConfig_Lenient(t *testing.T) {
	cfg, issues, err := DecodeQualityGateConfig([]byte(`
SLA:
  checked: "true"
baseline:
  checked: maybe
settings:
  summary_results:
    check_response_time: 1
    response_time_deviation: "250"
    throughput_deviation: lots
`), FormatYAML)
	require.NoError(t, err)

	assert.True(t, cfg.SLA.Checked)
	assert.False(t, cfg.Baseline.Checked)
	assert.True(t, cfg.Settings.SummaryResults.CheckResponseTime)
	assert.Equal(t, 250.0, cfg.Settings.SummaryResults.ResponseTimeDeviation)
	assert.Equal(t, 0.0, cfg.Settings.SummaryResults.ThroughputDeviation)

	paths := make(map[string]string)
	for _, i := range issues {
		paths[i.Path] = i.Message
	}
	assert.Equal(t, "not a boolean, using false", paths["baseline.checked"])
	assert.Equal(t, "not a number, using 0", paths["settings.summary_results.throughput_deviation"])
	assert.Equal(t, "missing, using false", paths["settings.per_request_results.check_response_time"])
	assert.NotContains(t, paths, "SLA.checked")
}

func TestDecodeQualityGateConfig_Empty(t *testing.T) {
	cfg, issues, err := DecodeQualityGateConfig([]byte(`{}`), FormatJSON)
	require.NoError(t, err)
	assert.False(t, cfg.SLA.Checked)
	assert.Len(t, issues, 14)

	_, issues, err = DecodeQualityGateConfig([]byte(`[1, 2]`), FormatJSON)
	require.NoError(t, err)
	require.Len(t, issues, 1)

	_, _, err = DecodeQualityGateConfig([]byte(`{`), FormatJSON)
	assert.Error(t, err)
}
