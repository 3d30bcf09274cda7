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

package xmldom

import (
	"strings"

	"github.com/santhosh-tekuri/dom"
)

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

// EscapeText escapes s for use as element content.
func EscapeText(s string) string { return textEscaper.Replace(s) }

// EscapeAttr escapes s for use inside a double-quoted attribute.
func EscapeAttr(s string) string { return attrEscaper.Replace(s) }

// Serialize renders el as XML text. Elements without children are
// self-closing. A namespace is declared on the outermost element whose name
// or attributes need it and is not yet in scope; existing xmlns attributes
// are not copied.
func Serialize(el *dom.Element) string {
	var b strings.Builder
	write(&b, el, map[string]string{"xml": "http://www.w3.org/XML/1998/namespace"})
	return b.String()
}

func write(b *strings.Builder, el *dom.Element, scope map[string]string) {
	name := QualifiedName(el.Name)
	b.WriteByte('<')
	b.WriteString(name)

	inner := scope
	copied := false
	declare := func(prefix, uri string) {
		cur, found := inner[prefix]
		if cur == uri && (found || uri == "") {
			return
		}
		if !copied {
			inner = make(map[string]string, len(scope)+1)
			for k, v := range scope {
				inner[k] = v
			}
			copied = true
		}
		inner[prefix] = uri
		b.WriteByte(' ')
		if prefix == "" {
			b.WriteString(xmlnsPrefix)
		} else {
			b.WriteString(xmlnsPrefix + ":" + prefix)
		}
		b.WriteString(`="`)
		b.WriteString(EscapeAttr(uri))
		b.WriteByte('"')
	}
	declare(el.Prefix, el.URI)
	for _, a := range el.Attrs {
		if a.Prefix != "" && !IsNamespaceDecl(a) {
			declare(a.Prefix, a.URI)
		}
	}
	for _, a := range el.Attrs {
		if IsNamespaceDecl(a) {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(QualifiedName(a.Name))
		b.WriteString(`="`)
		b.WriteString(EscapeAttr(a.Value))
		b.WriteByte('"')
	}

	if len(el.ChildNodes) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	for _, c := range el.ChildNodes {
		switch c := c.(type) {
		case *dom.Element:
			write(b, c, inner)
		case *dom.Text:
			b.WriteString(EscapeText(c.Data))
		}
	}
	b.WriteString("</")
	b.WriteString(name)
	b.WriteByte('>')
}
