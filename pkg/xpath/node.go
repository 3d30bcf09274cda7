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

package xpath

import (
	"slices"

	"github.com/santhosh-tekuri/xpathparser"
)

type NodeKind int

const (
	DocumentNode NodeKind = iota
	ElementNode
	AttributeNode
	TextNode
)

// Node is a read-only view over a tree the evaluator can navigate.
//
// Implementations must be comparable with ==, and two views of the same
// underlying node must compare equal: node-sets are de-duplicated with a
// map keyed by Node.
type Node interface {
	Kind() NodeKind
	LocalName() string
	NamespaceURI() string
	// Parent is nil for the document node. Attributes report their element.
	Parent() Node
	// Children returns element and text children in document order.
	Children() []Node
	Attributes() []Node
	StringValue() string
}

// Root walks up from n to the top of its tree.
func Root(n Node) Node {
	for {
		p := n.Parent()
		if p == nil {
			return n
		}
		n = p
	}
}

// CompareDocumentOrder returns a negative number when a precedes b, zero
// when they are the same node and a positive number otherwise. Attributes
// sort before the children of their element. Nodes from different trees are
// ordered arbitrarily but consistently for a given pair.
func CompareDocumentOrder(a, b Node) int {
	if a == b {
		return 0
	}
	pa, pb := ancestry(a), ancestry(b)
	i := 0
	for i < len(pa) && i < len(pb) && pa[i] == pb[i] {
		i++
	}
	switch {
	case i == 0:
		return -1
	case i == len(pa):
		return -1
	case i == len(pb):
		return 1
	}
	parent := pa[i-1]
	return indexAmong(parent, pa[i]) - indexAmong(parent, pb[i])
}

// ancestry lists n's ancestors from the root down to n itself.
func ancestry(n Node) []Node {
	var out []Node
	for cur := n; cur != nil; cur = cur.Parent() {
		out = append(out, cur)
	}
	slices.Reverse(out)
	return out
}

func indexAmong(parent, child Node) int {
	attrs := parent.Attributes()
	for i, a := range attrs {
		if a == child {
			return i
		}
	}
	for i, c := range parent.Children() {
		if c == child {
			return len(attrs) + i
		}
	}
	return -1
}

// SortDocumentOrder sorts nodes in place and drops duplicates.
func SortDocumentOrder(nodes []Node) []Node {
	if len(nodes) < 2 {
		return nodes
	}
	slices.SortStableFunc(nodes, CompareDocumentOrder)
	return slices.Compact(nodes)
}

func descendants(n Node, out []Node) []Node {
	for _, c := range n.Children() {
		out = append(out, c)
		out = descendants(c, out)
	}
	return out
}

func siblings(n Node) (before, after []Node) {
	if n.Kind() == AttributeNode {
		return nil, nil
	}
	p := n.Parent()
	if p == nil {
		return nil, nil
	}
	children := p.Children()
	for i, c := range children {
		if c == n {
			return children[:i], children[i+1:]
		}
	}
	return nil, nil
}

// axisNodes returns the nodes reachable from n along axis, in the axis'
// own order: document order for forward axes, reverse for reverse axes.
func axisNodes(n Node, axis xpathparser.Axis) []Node {
	switch axis {
	case xpathparser.Child:
		return n.Children()
	case xpathparser.Attribute:
		return n.Attributes()
	case xpathparser.Self:
		return []Node{n}
	case xpathparser.Parent:
		if p := n.Parent(); p != nil {
			return []Node{p}
		}
		return nil
	case xpathparser.Descendant:
		return descendants(n, nil)
	case xpathparser.DescendantOrSelf:
		return descendants(n, []Node{n})
	case xpathparser.Ancestor, xpathparser.AncestorOrSelf:
		var out []Node
		if axis == xpathparser.AncestorOrSelf {
			out = append(out, n)
		}
		for p := n.Parent(); p != nil; p = p.Parent() {
			out = append(out, p)
		}
		return out
	case xpathparser.FollowingSibling:
		_, after := siblings(n)
		return slices.Clone(after)
	case xpathparser.PrecedingSibling:
		before, _ := siblings(n)
		out := slices.Clone(before)
		slices.Reverse(out)
		return out
	case xpathparser.Following:
		var out []Node
		cur := n
		if cur.Kind() == AttributeNode {
			cur = cur.Parent()
			out = descendants(cur, out)
		}
		for ; cur != nil; cur = cur.Parent() {
			_, after := siblings(cur)
			for _, s := range after {
				out = append(out, s)
				out = descendants(s, out)
			}
		}
		return out
	case xpathparser.Preceding:
		var out []Node
		cur := n
		if cur.Kind() == AttributeNode {
			cur = cur.Parent()
		}
		for ; cur != nil; cur = cur.Parent() {
			before, _ := siblings(cur)
			for i := len(before) - 1; i >= 0; i-- {
				sub := descendants(before[i], nil)
				slices.Reverse(sub)
				out = append(out, sub...)
				out = append(out, before[i])
			}
		}
		return out
	}
	return nil
}

func matchesTest(n Node, axis xpathparser.Axis, test xpathparser.NodeTest) bool {
	switch t := test.(type) {
	case xpathparser.NodeType:
		switch t {
		case xpathparser.Node:
			return true
		case xpathparser.Text:
			return n.Kind() == TextNode
		}
		return false
	case *xpathparser.NameTest:
		principal := ElementNode
		if axis == xpathparser.Attribute {
			principal = AttributeNode
		}
		if n.Kind() != principal {
			return false
		}
		// Names match on local name only; form expressions address the
		// default namespace without a prefix.
		return t.Local == "*" || t.Local == n.LocalName()
	}
	return false
}
