// Package casefile loads analysis requests from YAML or JSON case files.
package casefile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/docket/internal/model"
	"gopkg.in/yaml.v3"
)

// Load reads a case file. The format is chosen by extension: .json, or
// .yaml/.yml.
func Load(path string) (model.AnalysisRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.AnalysisRequest{}, fmt.Errorf("read case file: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes case file contents in the format named by ext
func Parse(data []byte, ext string) (model.AnalysisRequest, error) {
	var req model.AnalysisRequest

	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("parse JSON case file: %w", err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("parse YAML case file: %w", err)
		}
	default:
		return req, fmt.Errorf("unsupported case file extension %q (supported: .json, .yaml, .yml)", ext)
	}

	return req, nil
}

// IsCaseFile reports whether path has a supported extension
func IsCaseFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
