package parser

import (
	"os"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/pkg/errors"

	"yqhp/quality-gate/pkg/logger"
	"yqhp/quality-gate/pkg/types"
)

// configRootPaths locate the quality gate config inside a larger document,
// e.g. the arguments of a post-processing job.
var configRootPaths = []string{"$.quality_gate_config", "$.quality_gate"}

// DecodeQualityGateConfig decodes a quality gate config leniently: missing
// or malformed keys fall back to false or 0 and are reported as issues.
// Only a document that cannot be decoded at all is an error.
func DecodeQualityGateConfig(data []byte, format Format) (types.QualityGateConfig, []ConfigIssue, error) {
	doc, err := DecodeDocument(data, format)
	if err != nil {
		return types.QualityGateConfig{}, nil, err
	}
	cfg, issues := QualityGateConfigFrom(doc)
	return cfg, issues, nil
}

// ReadQualityGateConfigFile reads a quality gate config from a JSON or YAML file.
func ReadQualityGateConfigFile(path string) (types.QualityGateConfig, []ConfigIssue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.QualityGateConfig{}, nil, errors.Wrapf(err, "read %s", path)
	}
	return DecodeQualityGateConfig(data, FormatFromPath(path))
}

// QualityGateConfigFrom builds a config from an already decoded document.
func QualityGateConfigFrom(doc any) (types.QualityGateConfig, []ConfigIssue) {
	r := &configReader{}
	var cfg types.QualityGateConfig

	root := extractObject(doc, configRootPaths)
	if root == nil {
		r.issue("", "missing, using defaults")
		r.log()
		return cfg, r.issues
	}
	if _, ok := root.(map[string]any); !ok {
		r.issue("", "expected an object, using defaults")
		r.log()
		return cfg, r.issues
	}

	cfg.SLA.Checked = r.boolAt(root, "SLA.checked")
	cfg.Baseline.Checked = r.boolAt(root, "baseline.checked")
	cfg.Settings.SummaryResults = r.section(root, "settings.summary_results")
	cfg.Settings.PerRequestResults = r.section(root, "settings.per_request_results")

	r.log()
	return cfg, r.issues
}

type configReader struct {
	issues []ConfigIssue
}

func (r *configReader) issue(path, msg string) {
	r.issues = append(r.issues, ConfigIssue{Path: path, Message: msg})
}

func (r *configReader) log() {
	for _, i := range r.issues {
		logger.Warn("Quality gate config key defaulted", "key", i.Path, "reason", i.Message)
	}
}

func (r *configReader) section(root any, prefix string) types.ResultSettings {
	return types.ResultSettings{
		CheckResponseTime:     r.boolAt(root, prefix+".check_response_time"),
		CheckErrorRate:        r.boolAt(root, prefix+".check_error_rate"),
		CheckThroughput:       r.boolAt(root, prefix+".check_throughput"),
		ResponseTimeDeviation: r.numberAt(root, prefix+".response_time_deviation"),
		ThroughputDeviation:   r.numberAt(root, prefix+".throughput_deviation"),
		ErrorRateDeviation:    r.numberAt(root, prefix+".error_rate_deviation"),
	}
}

// lookup resolves a dotted key path. Keys are looked up with bracket
// notation so names such as "SLA" need no escaping.
func lookup(root any, path string) (any, bool) {
	var b strings.Builder
	b.WriteString("$")
	for _, part := range strings.Split(path, ".") {
		b.WriteString("['")
		b.WriteString(part)
		b.WriteString("']")
	}
	expr, err := jp.ParseString(b.String())
	if err != nil {
		return nil, false
	}
	results := expr.Get(root)
	if len(results) == 0 {
		return nil, false
	}
	return results[0], true
}

func (r *configReader) boolAt(root any, path string) bool {
	v, ok := lookup(root, path)
	if !ok || v == nil {
		r.issue(path, "missing, using false")
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err == nil {
			return parsed
		}
	case int:
		return b != 0
	case int64:
		return b != 0
	case float64:
		return b != 0
	}
	r.issue(path, "not a boolean, using false")
	return false
}

func (r *configReader) numberAt(root any, path string) float64 {
	v, ok := lookup(root, path)
	if !ok || v == nil {
		r.issue(path, "missing, using 0")
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err == nil {
			return parsed
		}
	}
	r.issue(path, "not a number, using 0")
	return 0
}
