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
	"time"

	"github.com/fatih/color"
)

type ValidateView interface {
	Render(result ValidateResult)
}

// ValidateResult is the outcome of validating one or more form files.
type ValidateResult struct {
	FileCount int
	Errors    []ValidateFileError
}

type ValidateFileError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

func (r ValidateResult) HasErrors() bool {
	return len(r.Errors) > 0
}

type validateHumanView struct {
	*HumanView
}

func newValidateHumanView(hv *HumanView) *validateHumanView {
	return &validateHumanView{HumanView: hv}
}

func (v *validateHumanView) Render(result ValidateResult) {
	if result.HasErrors() {
		for _, e := range result.Errors {
			v.Println(color.RGB(229, 50, 50).Sprintf("Error!"), e.File+":", e.Message)
		}
		return
	}

	v.Println(color.RGB(50, 108, 229).Sprintf("Valid!"), "no errors found.")
}

type validateJSONView struct {
	*JSONView
}

func newValidateJSONView(jv *JSONView) *validateJSONView {
	return &validateJSONView{JSONView: jv}
}

type validateJSONResult struct {
	Type      string              `json:"type"`
	Status    string              `json:"status"`
	Timestamp time.Time           `json:"timestamp"`
	Files     int                 `json:"files"`
	Errors    []ValidateFileError `json:"errors,omitempty"`
}

func (v *validateJSONView) Render(result ValidateResult) {
	out := validateJSONResult{
		Type:      "validate",
		Timestamp: time.Now(),
		Files:     result.FileCount,
	}

	if result.HasErrors() {
		out.Status = "error"
		out.Errors = result.Errors
	} else {
		out.Status = "success"
	}

	if err := v.printDocument(v.Type(), out); err != nil {
		v.Logger().Error("rendering validation result", "error", err)
	}
}

func NewValidateView(v Viewer) ValidateView {
	switch vt := v.(type) {
	case *HumanView:
		return newValidateHumanView(vt)
	case *JSONView:
		return newValidateJSONView(vt)
	default:
		panic("unknown view type")
	}
}
