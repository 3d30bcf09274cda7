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

package graph

import (
	"strings"

	"github.com/getodk/web-forms-sub004/pkg/xmldom"
)

type assembler struct{}

func newAssembler() Assembler { return &assembler{} }

// Assemble indexes the linked definitions into a Model.
func (a *assembler) Assemble(linked *LinkedForm) (*Model, error) {
	if len(linked.Nodes) == 0 {
		return nil, definition("assembler", ErrNoPrimaryInstance)
	}
	m := &Model{
		Title:        strings.TrimSpace(linked.Title),
		ID:           xmldom.Attr(linked.PrimaryRoot, "id"),
		Version:      xmldom.Attr(linked.PrimaryRoot, "version"),
		nodes:        linked.Nodes,
		byNodeset:    make(map[string][]DefinitionID),
		binds:        linked.Binds,
		body:         linked.Body,
		translations: linked.Translations,
		secondary:    linked.SecondaryInstances,
		dag:          linked.DAG,
		order:        linked.TopologicalOrder,
	}
	for _, n := range linked.Nodes {
		meta := n.Meta()
		m.byNodeset[meta.Nodeset] = append(m.byNodeset[meta.Nodeset], meta.ID)
	}
	return m, nil
}
