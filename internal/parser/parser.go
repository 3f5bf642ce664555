// Package parser decodes metric records, baselines, thresholds and quality
// gate configs from JSON or YAML documents.
package parser

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a document.
type Format int

const (
	// FormatAuto guesses from the first non-space byte.
	FormatAuto Format = iota
	FormatJSON
	FormatYAML
)

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatAuto
}

func detect(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

// DecodeDocument decodes data into a generic tree of maps, slices and
// scalars suitable for JSONPath queries.
func DecodeDocument(data []byte, format Format) (any, error) {
	if format == FormatAuto {
		format = detect(data)
	}
	var doc any
	switch format {
	case FormatJSON:
		if err := sonic.Unmarshal(data, &doc); err != nil {
			return nil, NewParseError(0, 0, "invalid JSON", err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			line, column := extractLineColumn(err.Error())
			return nil, NewParseError(line, column, cleanYAMLErrorMessage(err.Error()), err)
		}
	}
	return doc, nil
}

// readFile reads path and decodes it, tagging errors with the file name.
func readFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	doc, err := DecodeDocument(data, FormatFromPath(path))
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Source = path
		}
		return nil, err
	}
	return doc, nil
}

// convert re-encodes a generic value into v.
func convert(value any, v any) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "encode intermediate value")
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return NewParseError(0, 0, "unexpected document shape", err)
	}
	return nil
}
