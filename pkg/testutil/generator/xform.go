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

package generator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/getodk/web-forms-sub004/pkg/xmldom"
)

// XForm is a form document under construction.
type XForm struct {
	Title     string
	Primary   string
	Secondary []Instance
	Binds     []Bind
	Itext     []Translation
	Body      []string
}

// Instance is a secondary instance.
type Instance struct {
	ID      string
	Content string
}

// Bind is a <bind> element; attributes keep the order they were added in.
type Bind struct {
	Nodeset string
	Attrs   [][2]string
}

// Translation is one <translation> of the itext block.
type Translation struct {
	Lang    string
	Default bool
	// Texts maps text ids to their value.
	Texts map[string]string
}

// XFormOption is a functional option for XForm
type XFormOption func(*XForm)

// BindOption is a functional option for Bind
type BindOption func(*Bind)

// NewXForm creates a form with the given title and options and returns its
// XML.
func NewXForm(title string, opts ...XFormOption) string {
	f := &XForm{Title: title}
	for _, opt := range opts {
		opt(f)
	}
	return f.String()
}

// WithPrimaryInstance sets the primary instance content, root element
// included.
func WithPrimaryInstance(content string) XFormOption {
	return func(f *XForm) { f.Primary = content }
}

// WithSecondaryInstance adds an <instance id="..."> after the primary one.
func WithSecondaryInstance(id, content string) XFormOption {
	return func(f *XForm) { f.Secondary = append(f.Secondary, Instance{ID: id, Content: content}) }
}

// WithBind adds a <bind> for nodeset.
func WithBind(nodeset string, opts ...BindOption) XFormOption {
	return func(f *XForm) {
		b := Bind{Nodeset: nodeset}
		for _, opt := range opts {
			opt(&b)
		}
		f.Binds = append(f.Binds, b)
	}
}

// WithTranslation adds a translation to the itext block.
func WithTranslation(lang string, isDefault bool, texts map[string]string) XFormOption {
	return func(f *XForm) {
		f.Itext = append(f.Itext, Translation{Lang: lang, Default: isDefault, Texts: texts})
	}
}

// WithBody appends raw body elements.
func WithBody(elements ...string) XFormOption {
	return func(f *XForm) { f.Body = append(f.Body, elements...) }
}

// WithAttr sets an arbitrary bind attribute, such as jr:preload.
func WithAttr(name, value string) BindOption {
	return func(b *Bind) { b.Attrs = append(b.Attrs, [2]string{name, value}) }
}

// WithType sets the bind type.
func WithType(t string) BindOption { return WithAttr("type", t) }

// WithCalculate sets the calculate expression.
func WithCalculate(expr string) BindOption { return WithAttr("calculate", expr) }

// WithRelevant sets the relevant expression.
func WithRelevant(expr string) BindOption { return WithAttr("relevant", expr) }

// WithReadonly sets the readonly expression.
func WithReadonly(expr string) BindOption { return WithAttr("readonly", expr) }

// WithRequired sets the required expression.
func WithRequired(expr string) BindOption { return WithAttr("required", expr) }

// WithConstraint sets the constraint expression and, if given, its message.
func WithConstraint(expr string, msg ...string) BindOption {
	return func(b *Bind) {
		WithAttr("constraint", expr)(b)
		if len(msg) > 0 {
			WithAttr("jr:constraintMsg", msg[0])(b)
		}
	}
}

// String renders the form.
func (f *XForm) String() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?>` + "\n")
	b.WriteString(`<h:html xmlns="http://www.w3.org/2002/xforms" xmlns:h="http://www.w3.org/1999/xhtml" xmlns:jr="http://openrosa.org/javarosa" xmlns:orx="http://openrosa.org/xforms">` + "\n")
	b.WriteString("<h:head>\n")
	fmt.Fprintf(&b, "<h:title>%s</h:title>\n", xmldom.EscapeText(f.Title))
	b.WriteString("<model>\n")
	if len(f.Itext) > 0 {
		b.WriteString("<itext>\n")
		for _, t := range f.Itext {
			fmt.Fprintf(&b, `<translation lang="%s"`, xmldom.EscapeAttr(t.Lang))
			if t.Default {
				b.WriteString(` default="true()"`)
			}
			b.WriteString(">\n")
			ids := make([]string, 0, len(t.Texts))
			for id := range t.Texts {
				ids = append(ids, id)
			}
			slices.Sort(ids)
			for _, id := range ids {
				fmt.Fprintf(&b, `<text id="%s"><value>%s</value></text>`+"\n", xmldom.EscapeAttr(id), xmldom.EscapeText(t.Texts[id]))
			}
			b.WriteString("</translation>\n")
		}
		b.WriteString("</itext>\n")
	}
	fmt.Fprintf(&b, "<instance>\n%s\n</instance>\n", f.Primary)
	for _, s := range f.Secondary {
		fmt.Fprintf(&b, "<instance id=\"%s\">\n%s\n</instance>\n", xmldom.EscapeAttr(s.ID), s.Content)
	}
	for _, bind := range f.Binds {
		fmt.Fprintf(&b, `<bind nodeset="%s"`, xmldom.EscapeAttr(bind.Nodeset))
		for _, a := range bind.Attrs {
			fmt.Fprintf(&b, ` %s="%s"`, a[0], xmldom.EscapeAttr(a[1]))
		}
		b.WriteString("/>\n")
	}
	b.WriteString("</model>\n</h:head>\n<h:body>\n")
	for _, el := range f.Body {
		b.WriteString(el)
		b.WriteString("\n")
	}
	b.WriteString("</h:body>\n</h:html>\n")
	return b.String()
}
