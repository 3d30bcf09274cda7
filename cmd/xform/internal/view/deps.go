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
	"strings"
)

// DepsResult lists the dependencies of every bind computation of a form.
type DepsResult struct {
	Form             string    `json:"form"`
	Computations     []DepsRow `json:"computations"`
	CalculationOrder []string  `json:"calculationOrder"`
}

type DepsRow struct {
	Nodeset      string   `json:"nodeset"`
	Computation  string   `json:"computation"`
	Expression   string   `json:"expression"`
	Dependencies []string `json:"dependencies"`
}

type DepsView interface {
	Render(result DepsResult) error
}

func NewDepsView(v Viewer) DepsView {
	switch vt := v.(type) {
	case *HumanView:
		return &depsTableView{HumanView: vt}
	case *JSONView:
		return &depsDocumentView{JSONView: vt}
	default:
		panic("unknown view type")
	}
}

type depsTableView struct {
	*HumanView
}

func (v *depsTableView) Render(result DepsResult) error {
	tbl := newTable(v.Stream, "Nodeset", "Computation", "Expression", "Depends on")
	for _, row := range result.Computations {
		tbl.AddRow(row.Nodeset, row.Computation, row.Expression, strings.Join(row.Dependencies, ", "))
	}
	tbl.Print()

	if len(result.CalculationOrder) > 0 {
		v.Println()
		v.Println("Calculation order:")
		for i, nodeset := range result.CalculationOrder {
			v.Printf("  %d. %s\n", i+1, nodeset)
		}
	}
	return nil
}

type depsDocumentView struct {
	*JSONView
}

type depsDocument struct {
	Type string `json:"type"`
	DepsResult
}

func (v *depsDocumentView) Render(result DepsResult) error {
	return v.printDocument(v.Type(), depsDocument{Type: "deps", DepsResult: result})
}
