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
	"maps"
	"slices"

	"github.com/santhosh-tekuri/dom"

	"github.com/getodk/web-forms-sub004/pkg/graph/dag"
)

// Model is an immutable form definition: the node definition tree, binds,
// body, translations and the calculation order. It is safe to share between
// form sessions.
type Model struct {
	Title string
	// ID and Version come from the root element's id and version attributes.
	ID      string
	Version string

	nodes        []NodeDefinition
	byNodeset    map[string][]DefinitionID
	binds        *BindMap
	body         *BodyDefinition
	translations *Translations
	secondary    map[string]*dom.Element
	dag          *dag.DirectedAcyclicGraph[string]
	order        []string
}

// Root returns the definition of the primary instance root.
func (m *Model) Root() *RootDefinition {
	return m.nodes[0].(*RootDefinition)
}

// Node returns the definition with the given ID.
func (m *Model) Node(id DefinitionID) NodeDefinition {
	if id < 0 || int(id) >= len(m.nodes) {
		return nil
	}
	return m.nodes[id]
}

// Parent returns the parent definition; the root has none.
func (m *Model) Parent(id DefinitionID) (NodeDefinition, bool) {
	n := m.Node(id)
	if n == nil || n.Meta().Parent == NoDefinition {
		return nil, false
	}
	return m.nodes[n.Meta().Parent], true
}

// Children returns the child definitions of id in document order. The
// children of a range are its form-defined instances.
func (m *Model) Children(id DefinitionID) []NodeDefinition {
	p, ok := m.Node(id).(ParentDefinition)
	if !ok {
		return nil
	}
	out := make([]NodeDefinition, 0, len(p.ChildIDs()))
	for _, child := range p.ChildIDs() {
		out = append(out, m.nodes[child])
	}
	return out
}

// Lookup returns every definition with the given node-set: a repeat
// node-set maps to its range, template and instances.
func (m *Model) Lookup(nodeset string) []NodeDefinition {
	ids := m.byNodeset[nodeset]
	out := make([]NodeDefinition, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.nodes[id])
	}
	return out
}

// Bind returns the bind for nodeset.
func (m *Model) Bind(nodeset string) (*BindDefinition, bool) {
	return m.binds.Get(nodeset)
}

// BindFor returns the bind of a node definition.
func (m *Model) BindFor(id DefinitionID) *BindDefinition {
	n := m.Node(id)
	if n == nil {
		return nil
	}
	return n.Meta().Bind
}

// Binds returns every bind, explicit and synthesized.
func (m *Model) Binds() *BindMap { return m.binds }

// Body returns the form body.
func (m *Model) Body() *BodyDefinition { return m.body }

// Translations returns the itext table.
func (m *Model) Translations() *Translations { return m.translations }

// SecondaryInstances returns the root elements of the secondary instances
// by id. External instances map to nil.
func (m *Model) SecondaryInstances() map[string]*dom.Element {
	return maps.Clone(m.secondary)
}

// TopologicalOrder returns the calculated node-sets, each after every
// calculation it reads.
func (m *Model) TopologicalOrder() []string { return slices.Clone(m.order) }

// DAG returns the calculation dependency graph.
func (m *Model) DAG() *dag.DirectedAcyclicGraph[string] { return m.dag }

// Len returns the number of node definitions, templates included.
func (m *Model) Len() int { return len(m.nodes) }

// Walk visits definitions depth first from the root, ranges before their
// template and instances. Returning false skips the subtree.
func (m *Model) Walk(fn func(NodeDefinition) bool) {
	var visit func(id DefinitionID)
	visit = func(id DefinitionID) {
		n := m.nodes[id]
		if !fn(n) {
			return
		}
		if r, ok := n.(*RepeatRangeDefinition); ok {
			visit(r.Template)
		}
		if p, ok := n.(ParentDefinition); ok {
			for _, child := range p.ChildIDs() {
				visit(child)
			}
		}
	}
	visit(0)
}
