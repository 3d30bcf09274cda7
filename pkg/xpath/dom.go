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
	"github.com/santhosh-tekuri/dom"

	"github.com/getodk/web-forms-sub004/pkg/xmldom"
)

// domNode adapts a dom tree. top is the element treated as the document
// element, so a subtree of a larger document (a secondary instance inside a
// form) navigates as a document of its own. Attribute and text nodes are
// addressed by their element and an index into Attrs or ChildNodes.
type domNode struct {
	kind NodeKind
	el   *dom.Element
	top  *dom.Element
	idx  int
}

// FromDOM returns the document node of a tree rooted at el.
func FromDOM(el *dom.Element) Node {
	return domNode{kind: DocumentNode, el: el, top: el}
}

func (n domNode) Kind() NodeKind { return n.kind }

func (n domNode) LocalName() string {
	switch n.kind {
	case ElementNode:
		return n.el.Local
	case AttributeNode:
		return n.el.Attrs[n.idx].Local
	}
	return ""
}

func (n domNode) NamespaceURI() string {
	switch n.kind {
	case ElementNode:
		return n.el.URI
	case AttributeNode:
		return n.el.Attrs[n.idx].URI
	}
	return ""
}

func (n domNode) Parent() Node {
	switch n.kind {
	case DocumentNode:
		return nil
	case AttributeNode, TextNode:
		return domNode{kind: ElementNode, el: n.el, top: n.top}
	}
	if n.el == n.top {
		return domNode{kind: DocumentNode, el: n.top, top: n.top}
	}
	p := xmldom.ParentElement(n.el)
	if p == nil {
		return nil
	}
	return domNode{kind: ElementNode, el: p, top: n.top}
}

func (n domNode) Children() []Node {
	switch n.kind {
	case DocumentNode:
		return []Node{domNode{kind: ElementNode, el: n.top, top: n.top}}
	case ElementNode:
		out := make([]Node, 0, len(n.el.ChildNodes))
		for i, c := range n.el.ChildNodes {
			switch c := c.(type) {
			case *dom.Element:
				out = append(out, domNode{kind: ElementNode, el: c, top: n.top})
			case *dom.Text:
				out = append(out, domNode{kind: TextNode, el: n.el, top: n.top, idx: i})
			}
		}
		return out
	}
	return nil
}

func (n domNode) Attributes() []Node {
	if n.kind != ElementNode {
		return nil
	}
	var out []Node
	for i, a := range n.el.Attrs {
		if xmldom.IsNamespaceDecl(a) {
			continue
		}
		out = append(out, domNode{kind: AttributeNode, el: n.el, top: n.top, idx: i})
	}
	return out
}

func (n domNode) StringValue() string {
	switch n.kind {
	case AttributeNode:
		return n.el.Attrs[n.idx].Value
	case TextNode:
		return xmldom.Text(n.el.ChildNodes[n.idx])
	case DocumentNode:
		return xmldom.Text(n.top)
	}
	return xmldom.Text(n.el)
}

// DOMElement returns the element behind a node created by FromDOM.
func DOMElement(n Node) (*dom.Element, bool) {
	d, ok := n.(domNode)
	if !ok || d.kind != ElementNode {
		return nil, false
	}
	return d.el, true
}
