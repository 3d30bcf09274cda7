// Copyright 2025 The Kubernetes Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package loader reads form definitions and answer files for the CLI.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"sigs.k8s.io/yaml"

	"github.com/getodk/web-forms-sub004/pkg/graph"
)

// FormLoadResult is the outcome of building one form file.
type FormLoadResult struct {
	Path  string
	Model *graph.Model
	Err   error
}

// collectFormFiles returns a list of XML file paths from the given path.
// If path is a file, it returns a single-element slice.
// If path is a directory, it returns all .xml files in the directory (non-recursive).
func collectFormFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		if filepath.Ext(path) != ".xml" {
			return nil, fmt.Errorf("file %q must have a .xml extension", path)
		}
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".xml" {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}

	sort.Strings(files)
	return files, nil
}

// LoadFormsDetailed builds every form found at path, returning per-file
// results so callers can continue on failure. Only errors accessing the
// path itself are returned directly.
func LoadFormsDetailed(path string, builder *graph.Builder) ([]FormLoadResult, error) {
	files, err := collectFormFiles(path)
	if err != nil {
		return nil, err
	}

	results := make([]FormLoadResult, 0, len(files))
	for _, file := range files {
		model, loadErr := loadForm(file, builder)
		results = append(results, FormLoadResult{Path: file, Model: model, Err: loadErr})
	}
	return results, nil
}

// LoadForm builds the single form file at path.
func LoadForm(path string, builder *graph.Builder) (*graph.Model, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path %q is a directory, provide a path to a form (.xml)", path)
	}
	return loadForm(path, builder)
}

func loadForm(path string, builder *graph.Builder) (*graph.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()

	model, err := builder.Build(f)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return model, nil
}

// LoadAnswers reads a YAML or JSON document mapping node-sets to values.
// A value is either a scalar or a list of scalars, one per repeat instance.
func LoadAnswers(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read answers: %w", err)
	}
	return ParseAnswers(data)
}

// ParseAnswers decodes answers as read by LoadAnswers.
func ParseAnswers(data []byte) (map[string][]string, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
	}

	answers := make(map[string][]string, len(raw))
	for nodeset, v := range raw {
		switch v := v.(type) {
		case []any:
			values := make([]string, len(v))
			for i, item := range v {
				values[i] = scalar(item)
			}
			answers[nodeset] = values
		case map[string]any:
			return nil, fmt.Errorf("answer for %q must be a scalar or a list", nodeset)
		default:
			answers[nodeset] = []string{scalar(v)}
		}
	}
	return answers, nil
}

func scalar(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		// sigs.k8s.io/yaml decodes every number as float64.
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
