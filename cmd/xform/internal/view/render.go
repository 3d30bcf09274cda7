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
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/rodaine/table"
)

// RenderResult is the state of a form session after answers were applied.
type RenderResult struct {
	Form     string       `json:"form"`
	Language string       `json:"language,omitempty"`
	XML      string       `json:"xml"`
	Nodes    []NodeResult `json:"nodes"`
}

// NodeResult is the state of one leaf.
type NodeResult struct {
	Nodeset   string `json:"nodeset"`
	Label     string `json:"label,omitempty"`
	Value     string `json:"value"`
	Relevant  bool   `json:"relevant"`
	Required  bool   `json:"required"`
	Readonly  bool   `json:"readonly"`
	Valid     bool   `json:"valid"`
	Violation string `json:"violation,omitempty"`
	Message   string `json:"message,omitempty"`
}

type RenderView interface {
	Render(result RenderResult) error
}

// NewRenderView picks the rendering for v's output format. The human and
// xml formats print the serialized instance.
func NewRenderView(v Viewer) RenderView {
	switch vt := v.(type) {
	case *HumanView:
		if vt.Type() == ViewTable {
			return &renderTableView{HumanView: vt}
		}
		return &renderXMLView{HumanView: vt}
	case *JSONView:
		return &renderDocumentView{JSONView: vt}
	default:
		panic("unknown view type")
	}
}

type renderXMLView struct {
	*HumanView
}

func (v *renderXMLView) Render(result RenderResult) error {
	v.Println(result.XML)
	return nil
}

type renderTableView struct {
	*HumanView
}

func (v *renderTableView) Render(result RenderResult) error {
	tbl := newTable(v.Stream, "Nodeset", "Value", "Relevant", "Required", "Readonly", "Validation")
	for _, n := range result.Nodes {
		tbl.AddRow(n.Nodeset, n.Value, boolString(n.Relevant), boolString(n.Required), boolString(n.Readonly), validation(n))
	}
	tbl.Print()
	return nil
}

type renderDocumentView struct {
	*JSONView
}

type renderDocument struct {
	Type string `json:"type"`
	RenderResult
}

func (v *renderDocumentView) Render(result RenderResult) error {
	return v.printDocument(v.Type(), renderDocument{Type: "render", RenderResult: result})
}

func newTable(s *Stream, columns ...any) table.Table {
	headerFmt := color.New(color.FgBlue, color.Underline).SprintfFunc()
	columnFmt := color.New(color.Bold).SprintfFunc()
	return table.New(columns...).
		WithWriter(s.Writer).
		WithHeaderFormatter(headerFmt).
		WithFirstColumnFormatter(columnFmt)
}

func boolString(b bool) string {
	return strconv.FormatBool(b)
}

func validation(n NodeResult) string {
	if n.Valid {
		return "ok"
	}
	parts := []string{n.Violation}
	if n.Message != "" {
		parts = append(parts, n.Message)
	}
	return strings.Join(parts, ": ")
}
