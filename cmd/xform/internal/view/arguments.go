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

package view

import (
	"fmt"
	"strings"
)

// ViewType represents which view layer to use.
type ViewType rune

const (
	ViewNone  ViewType = 0
	ViewHuman ViewType = 'H'
	ViewJSON  ViewType = 'J'
	ViewYAML  ViewType = 'Y'
	ViewXML   ViewType = 'X'
	ViewTable ViewType = 'T'
)

// String returns the string representation of the ViewType.
func (vt ViewType) String() string {
	switch vt {
	case ViewNone:
		return "none"
	case ViewHuman:
		return "human"
	case ViewJSON:
		return "json"
	case ViewYAML:
		return "yaml"
	case ViewXML:
		return "xml"
	case ViewTable:
		return "table"
	default:
		return "unknown"
	}
}

// Structured reports whether the view emits machine-readable documents.
func (vt ViewType) Structured() bool {
	return vt == ViewJSON || vt == ViewYAML
}

// ParseOutputFormat maps the value of the --output flag to a ViewType.
// An empty value selects the human view.
func ParseOutputFormat(format string) (ViewType, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "human":
		return ViewHuman, nil
	case "json":
		return ViewJSON, nil
	case "yaml", "yml":
		return ViewYAML, nil
	case "xml":
		return ViewXML, nil
	case "table":
		return ViewTable, nil
	default:
		return ViewNone, fmt.Errorf("unknown output format %q", format)
	}
}
