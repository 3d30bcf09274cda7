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
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/dom"

	"github.com/getodk/web-forms-sub004/pkg/xmldom"
)

// ParsedForm is the parse-stage output: the pieces of the XForm document
// located but not yet interpreted.
type ParsedForm struct {
	Document *dom.Element
	Title    string
	Model    *dom.Element
	// PrimaryRoot is the root element of the first <instance>.
	PrimaryRoot *dom.Element
	// SecondaryInstances maps instance ids to their root elements; external
	// instances (src attribute, no content) map to nil.
	SecondaryInstances map[string]*dom.Element
	Binds              []*dom.Element
	Itext              *dom.Element
	Body               *dom.Element
}

type parser struct{}

func newParser() Parser { return &parser{} }

func (p *parser) Parse(data []byte) (*ParsedForm, error) {
	doc, err := xmldom.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, definition("parser", err)
	}

	form := &ParsedForm{
		Document:           doc,
		SecondaryInstances: make(map[string]*dom.Element),
	}

	xmldom.Walk(doc, func(n *dom.Element) bool {
		switch n.Local {
		case "title":
			if form.Title == "" {
				form.Title = xmldom.Text(n)
			}
		case "model":
			if form.Model == nil {
				form.Model = n
			}
			return false
		case "body":
			if form.Body == nil {
				form.Body = n
			}
			return false
		}
		return true
	})
	if form.Model == nil {
		return nil, definitionf("parser", "form has no model")
	}

	for _, child := range xmldom.ChildElements(form.Model) {
		switch child.Local {
		case "instance":
			if err := p.parseInstance(form, child); err != nil {
				return nil, definition("parser", err)
			}
		case "bind":
			form.Binds = append(form.Binds, child)
		case "itext":
			form.Itext = child
		}
	}
	if form.PrimaryRoot == nil {
		return nil, definition("parser", ErrNoPrimaryInstance)
	}
	return form, nil
}

func (p *parser) parseInstance(form *ParsedForm, instance *dom.Element) error {
	roots := xmldom.ChildElements(instance)
	if form.PrimaryRoot == nil {
		if len(roots) != 1 {
			return fmt.Errorf("%w: primary instance must have exactly one root element, found %d", ErrNoPrimaryInstance, len(roots))
		}
		form.PrimaryRoot = roots[0]
		return nil
	}

	id := xmldom.Attr(instance, "id")
	if id == "" {
		return fmt.Errorf("secondary instance: %w: id", ErrMissingReference)
	}
	if _, dup := form.SecondaryInstances[id]; dup {
		return fmt.Errorf("secondary instance %q: %w", id, ErrDuplicateReference)
	}
	if len(roots) == 0 {
		form.SecondaryInstances[id] = nil
		return nil
	}
	form.SecondaryInstances[id] = roots[0]
	return nil
}
