package parser

import (
	"os"
	"sort"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/pkg/errors"

	"yqhp/quality-gate/pkg/metrics"
	"yqhp/quality-gate/pkg/types"
)

// Envelope paths tried, in order, when a document is not a bare list.
var (
	recordPaths    = []string{"$.rows", "$.data", "$.results", "$.test"}
	baselinePaths  = []string{"$.baseline", "$.rows", "$.data"}
	thresholdPaths = []string{"$.rows", "$.thresholds", "$.data"}
	stepPaths      = []string{"$.results", "$.steps", "$.data"}
	allPaths       = []string{"$.all", "$.all_results", "$.summary"}
	samplePaths    = []string{"$.samples", "$.data"}
)

// extract returns doc itself when it is a list, otherwise the first
// envelope path that resolves to a list.
func extract(doc any, paths []string) (any, error) {
	if list, ok := doc.([]any); ok {
		return list, nil
	}
	for _, p := range paths {
		expr, err := jp.ParseString(p)
		if err != nil {
			return nil, errors.Wrapf(err, "parse path %s", p)
		}
		for _, v := range expr.Get(doc) {
			if list, ok := v.([]any); ok {
				return list, nil
			}
		}
	}
	return nil, NewParseError(0, 0, "expected a list or an object with one of "+joinPaths(paths), nil)
}

// extractObject returns the first envelope path that resolves to an
// object, or doc itself when none does.
func extractObject(doc any, paths []string) any {
	for _, p := range paths {
		expr := jp.MustParseString(p)
		for _, v := range expr.Get(doc) {
			if m, ok := v.(map[string]any); ok {
				return m
			}
		}
	}
	return doc
}

func joinPaths(paths []string) string {
	return strings.Join(paths, ", ")
}

func stepsFromMap(byName map[string]map[string][]float64) []types.StepResult {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	steps := make([]types.StepResult, 0, len(names))
	for _, name := range names {
		steps = append(steps, types.StepResult{Name: name, Metrics: byName[name]})
	}
	return steps
}

// DecodeRecords decodes current-run metric records.
func DecodeRecords(data []byte, format Format) ([]types.MetricRecord, error) {
	doc, err := DecodeDocument(data, format)
	if err != nil {
		return nil, err
	}
	return recordsFrom(doc, recordPaths)
}

// DecodeBaseline decodes baseline records. A null document or an empty
// envelope yields no rows.
func DecodeBaseline(data []byte, format Format) ([]types.BaselineRecord, error) {
	doc, err := DecodeDocument(data, format)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return recordsFrom(doc, baselinePaths)
}

func recordsFrom(doc any, paths []string) ([]types.MetricRecord, error) {
	list, err := extract(doc, paths)
	if err != nil {
		return nil, err
	}
	var records []types.MetricRecord
	if err := convert(list, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// DecodeThresholds decodes threshold definitions. The platform wraps them
// as {"total": N, "rows": [...]}; a bare list is also accepted.
func DecodeThresholds(data []byte, format Format) ([]types.ThresholdDefinition, error) {
	doc, err := DecodeDocument(data, format)
	if err != nil {
		return nil, err
	}
	return thresholdsFrom(doc)
}

func thresholdsFrom(doc any) ([]types.ThresholdDefinition, error) {
	if doc == nil {
		return nil, nil
	}
	list, err := extract(doc, thresholdPaths)
	if err != nil {
		return nil, err
	}
	var thresholds []types.ThresholdDefinition
	if err := convert(list, &thresholds); err != nil {
		return nil, err
	}
	return thresholds, nil
}

// DecodeSteps decodes per-step sample lists. Both a list of
// {name, metrics} objects and a map of step name to metric lists are
// accepted; map entries come out sorted by step name.
func DecodeSteps(data []byte, format Format) ([]types.StepResult, error) {
	doc, err := DecodeDocument(data, format)
	if err != nil {
		return nil, err
	}

	if list, err := extract(doc, stepPaths); err == nil {
		var steps []types.StepResult
		if err := convert(list, &steps); err != nil {
			return nil, err
		}
		return steps, nil
	}

	var byName map[string]map[string][]float64
	if err := convert(extractObject(doc, stepPaths), &byName); err != nil {
		return nil, err
	}
	return stepsFromMap(byName), nil
}

// DecodeAllResults decodes the whole-test scalar map used by "all" scoped
// UI thresholds.
func DecodeAllResults(data []byte, format Format) (map[string]float64, error) {
	doc, err := DecodeDocument(data, format)
	if err != nil {
		return nil, err
	}
	var all map[string]float64
	if err := convert(extractObject(doc, allPaths), &all); err != nil {
		return nil, err
	}
	return all, nil
}

// DecodeSamples decodes raw response samples, as a list or under
// "samples".
func DecodeSamples(data []byte, format Format) ([]metrics.Sample, error) {
	doc, err := DecodeDocument(data, format)
	if err != nil {
		return nil, err
	}
	return samplesFrom(doc)
}

func samplesFrom(doc any) ([]metrics.Sample, error) {
	list, err := extract(doc, samplePaths)
	if err != nil {
		return nil, err
	}
	var samples []metrics.Sample
	if err := convert(list, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// ReadSamplesFile reads raw response samples from a JSON or YAML file.
func ReadSamplesFile(path string) ([]metrics.Sample, error) {
	doc, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return samplesFrom(doc)
}

// ReadRecordsFile reads current-run records from a JSON or YAML file.
func ReadRecordsFile(path string) ([]types.MetricRecord, error) {
	doc, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return recordsFrom(doc, recordPaths)
}

// ReadBaselineFile reads baseline records from a JSON or YAML file.
func ReadBaselineFile(path string) ([]types.BaselineRecord, error) {
	doc, err := readFile(path)
	if err != nil || doc == nil {
		return nil, err
	}
	return recordsFrom(doc, baselinePaths)
}

// ReadThresholdsFile reads threshold definitions from a JSON or YAML file.
func ReadThresholdsFile(path string) ([]types.ThresholdDefinition, error) {
	doc, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return thresholdsFrom(doc)
}

// ReadStepsFile reads per-step sample lists from a JSON or YAML file.
func ReadStepsFile(path string) ([]types.StepResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return DecodeSteps(data, FormatFromPath(path))
}

// ReadAllResultsFile reads whole-test scalars from a JSON or YAML file.
func ReadAllResultsFile(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return DecodeAllResults(data, FormatFromPath(path))
}
