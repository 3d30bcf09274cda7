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

package runtime

import (
	"strings"

	"github.com/getodk/web-forms-sub004/pkg/graph"
	"github.com/getodk/web-forms-sub004/pkg/xpath"
)

// evalNode is the view of the instance tree expressions navigate. Ranges
// are flattened: their instances appear as element children of the range's
// parent. Values are relevance-filtered.
type evalNode struct {
	in   *Instance
	kind xpath.NodeKind
	id   NodeID
	attr int
}

var _ xpath.Node = evalNode{}

func (in *Instance) document() evalNode {
	return evalNode{in: in, kind: xpath.DocumentNode, id: noNode}
}

func (in *Instance) element(id NodeID) evalNode {
	return evalNode{in: in, kind: xpath.ElementNode, id: id}
}

// contextNode is the element expressions of n are evaluated against. A
// range has no element of its own, so it gets an anchor: an empty element
// named like its instances whose parent is the range's parent. Expressions
// of a range, jr:count among them, resolve their dependencies against the
// repeat nodeset and are evaluated from the same position.
func (in *Instance) contextNode(n *Node) xpath.Node {
	return in.element(n.id)
}

func (e evalNode) isAnchor() bool {
	return e.kind == xpath.ElementNode && e.node().kind == graph.NodeKindRepeatRange
}

func (e evalNode) node() *Node { return e.in.nodes[e.id] }

func (e evalNode) Kind() xpath.NodeKind { return e.kind }

func (e evalNode) LocalName() string {
	switch e.kind {
	case xpath.ElementNode:
		return e.node().Name()
	case xpath.AttributeNode:
		return e.in.model.Root().Attributes[e.attr].Local
	}
	return ""
}

func (e evalNode) NamespaceURI() string {
	switch e.kind {
	case xpath.ElementNode:
		if el := e.node().def.Meta().Element; el != nil {
			return el.URI
		}
	case xpath.AttributeNode:
		return e.in.model.Root().Attributes[e.attr].URI
	}
	return ""
}

func (e evalNode) Parent() xpath.Node {
	switch e.kind {
	case xpath.DocumentNode:
		return nil
	case xpath.AttributeNode, xpath.TextNode:
		return e.in.element(e.id)
	}
	p := e.node().Parent()
	if p != nil && p.kind == graph.NodeKindRepeatRange {
		p = p.Parent()
	}
	if p == nil {
		return e.in.document()
	}
	return e.in.element(p.id)
}

func (e evalNode) Children() []xpath.Node {
	switch e.kind {
	case xpath.DocumentNode:
		return []xpath.Node{e.in.element(e.in.root)}
	case xpath.ElementNode:
		if e.isAnchor() {
			return nil
		}
	default:
		return nil
	}

	n := e.node()
	if _, ok := n.AsLeaf(); ok {
		if e.value(n) == "" {
			return nil
		}
		return []xpath.Node{evalNode{in: e.in, kind: xpath.TextNode, id: e.id}}
	}
	out := make([]xpath.Node, 0, len(n.children))
	for _, id := range n.children {
		child := e.in.nodes[id]
		if child.kind == graph.NodeKindRepeatRange {
			for _, instance := range child.children {
				out = append(out, e.in.element(instance))
			}
			continue
		}
		out = append(out, e.in.element(id))
	}
	return out
}

// Attributes exposes the attributes of the root element, such as id and
// version. Other elements carry none.
func (e evalNode) Attributes() []xpath.Node {
	if e.kind != xpath.ElementNode || e.id != e.in.root {
		return nil
	}
	var out []xpath.Node
	for i := range e.in.model.Root().Attributes {
		out = append(out, evalNode{in: e.in, kind: xpath.AttributeNode, id: e.id, attr: i})
	}
	return out
}

func (e evalNode) StringValue() string {
	switch e.kind {
	case xpath.DocumentNode:
		return e.in.element(e.in.root).StringValue()
	case xpath.AttributeNode:
		return e.in.model.Root().Attributes[e.attr].Value
	case xpath.TextNode:
		return e.value(e.node())
	}
	n := e.node()
	if _, ok := n.AsLeaf(); ok {
		return e.value(n)
	}
	var b strings.Builder
	for _, c := range e.Children() {
		b.WriteString(c.StringValue())
	}
	return b.String()
}

func (e evalNode) value(n *Node) string {
	v, err := e.in.readValue(n)
	if err != nil {
		e.in.fail(err)
	}
	return v
}
