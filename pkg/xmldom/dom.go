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

// Package xmldom reads form definitions and instance documents into
// github.com/santhosh-tekuri/dom trees and offers the element helpers the
// form builder and runtime share.
//
// Parse normalizes the tree: only elements and non-blank text are kept, and
// adjacent text is merged. Comments, processing instructions and
// whitespace-only text between elements are dropped, since nothing
// downstream gives them meaning.
package xmldom

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/dom"
)

const (
	xmlnsPrefix = "xmlns"
	xmlnsURI    = "http://www.w3.org/2000/xmlns/"
)

// ErrNoRootElement is returned when a document has no element at all.
var ErrNoRootElement = errors.New("document has no root element")

// Parse reads a document and returns its root element.
func Parse(r io.Reader) (*dom.Element, error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = true
	doc, err := dom.Unmarshal(decoder)
	if err != nil {
		return nil, fmt.Errorf("parsing xml: %w", err)
	}
	for _, n := range doc.Children() {
		if el, ok := n.(*dom.Element); ok {
			normalize(el)
			return el, nil
		}
	}
	return nil, ErrNoRootElement
}

// ParseString is Parse over a string.
func ParseString(s string) (*dom.Element, error) {
	return Parse(strings.NewReader(s))
}

func normalize(el *dom.Element) {
	kept := el.ChildNodes[:0]
	var last *dom.Text
	for _, c := range el.ChildNodes {
		switch c := c.(type) {
		case *dom.Element:
			normalize(c)
			kept = append(kept, c)
			last = nil
		case *dom.Text:
			if last != nil {
				last.Data += c.Data
				continue
			}
			kept = append(kept, c)
			last = c
		}
	}
	out := kept[:0]
	for _, c := range kept {
		if t, ok := c.(*dom.Text); ok && strings.TrimSpace(t.Data) == "" {
			continue
		}
		out = append(out, c)
	}
	el.ChildNodes = out
}

// NewElement creates a detached element.
func NewElement(uri, prefix, local string) *dom.Element {
	return &dom.Element{Name: &dom.Name{URI: uri, Prefix: prefix, Local: local}}
}

// QualifiedName returns prefix:local, or local when unprefixed.
func QualifiedName(n *dom.Name) string {
	if n.Prefix == "" {
		return n.Local
	}
	return n.Prefix + ":" + n.Local
}

// IsNamespaceDecl reports whether the attribute is an xmlns declaration.
func IsNamespaceDecl(a *dom.Attr) bool {
	return a.Prefix == xmlnsPrefix || a.URI == xmlnsURI || a.URI == xmlnsPrefix ||
		(a.Prefix == "" && a.Local == xmlnsPrefix)
}

// ChildElements returns the element children of el in document order.
func ChildElements(el *dom.Element) []*dom.Element {
	out := make([]*dom.Element, 0, len(el.ChildNodes))
	for _, c := range el.ChildNodes {
		if e, ok := c.(*dom.Element); ok {
			out = append(out, e)
		}
	}
	return out
}

// HasChildElements reports whether el has at least one element child.
func HasChildElements(el *dom.Element) bool {
	for _, c := range el.ChildNodes {
		if _, ok := c.(*dom.Element); ok {
			return true
		}
	}
	return false
}

// Attr returns the value of the unprefixed attribute local.
func Attr(el *dom.Element, local string) string {
	v, _ := LookupAttr(el, "", local)
	return v
}

// LookupAttr finds an attribute by namespace URI and local name.
func LookupAttr(el *dom.Element, uri, local string) (string, bool) {
	for _, a := range el.Attrs {
		if a.URI == uri && a.Local == local && !IsNamespaceDecl(a) {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets or adds an unnamespaced attribute.
func SetAttr(el *dom.Element, local, value string) {
	for _, a := range el.Attrs {
		if a.URI == "" && a.Local == local {
			a.Value = value
			return
		}
	}
	el.Attrs = append(el.Attrs, &dom.Attr{Owner: el, Name: &dom.Name{Local: local}, Value: value})
}

// Text concatenates all descendant text of n.
func Text(n dom.Node) string {
	switch n := n.(type) {
	case *dom.Text:
		return n.Data
	case *dom.Element:
		var b strings.Builder
		for _, c := range n.ChildNodes {
			b.WriteString(Text(c))
		}
		return b.String()
	}
	return ""
}

// SetText replaces the children of el with a single text node.
func SetText(el *dom.Element, s string) {
	el.ChildNodes = nil
	if s != "" {
		el.Append(&dom.Text{Data: s})
	}
}

// Clone deep-copies el. The copy is detached from any parent.
func Clone(el *dom.Element) *dom.Element {
	name := *el.Name
	c := &dom.Element{Name: &name}
	for _, a := range el.Attrs {
		an := *a.Name
		c.Attrs = append(c.Attrs, &dom.Attr{Owner: c, Name: &an, Value: a.Value})
	}
	for _, child := range el.ChildNodes {
		switch child := child.(type) {
		case *dom.Element:
			c.Append(Clone(child))
		case *dom.Text:
			c.Append(&dom.Text{Data: child.Data})
		}
	}
	return c
}

// Walk visits el and its descendant elements depth first. Returning false
// from fn skips the element's children.
func Walk(el *dom.Element, fn func(*dom.Element) bool) {
	if !fn(el) {
		return
	}
	for _, c := range ChildElements(el) {
		Walk(c, fn)
	}
}

// ParentElement returns el's parent element, nil at the document element.
func ParentElement(el *dom.Element) *dom.Element {
	p, _ := el.Parent().(*dom.Element)
	return p
}
