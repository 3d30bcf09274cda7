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
	"fmt"

	"github.com/santhosh-tekuri/dom"

	"github.com/getodk/web-forms-sub004/pkg/xmldom"
)

type validator struct{}

func newValidator() Validator { return &validator{} }

// Validate checks the structural rules that need no expression analysis:
// required reference attributes and select item shapes.
func (v *validator) Validate(form *ParsedForm) error {
	for i, bind := range form.Binds {
		if _, ok := xmldom.LookupAttr(bind, "", "nodeset"); !ok {
			return definitionf("validator", "bind #%d: %w: nodeset", i+1, ErrMissingReference)
		}
	}
	if form.Body == nil {
		return nil
	}
	for _, el := range xmldom.ChildElements(form.Body) {
		if err := v.validateBodyElement(el); err != nil {
			return definition("validator", err)
		}
	}
	return nil
}

func (v *validator) validateBodyElement(el *dom.Element) error {
	name := el.Local
	switch {
	case name == string(BodyRepeat):
		if _, ok := xmldom.LookupAttr(el, "", "nodeset"); !ok {
			return fmt.Errorf("<repeat>: %w: nodeset", ErrMissingReference)
		}
	case name == string(BodyGroup):
		// A group's ref is optional.
	case controlTypes[name] != "":
		if _, ok := controlReference(el); !ok {
			return fmt.Errorf("<%s>: %w: ref", name, ErrMissingReference)
		}
		if err := v.validateItems(el); err != nil {
			return fmt.Errorf("<%s ref=%q>: %w", name, xmldom.Attr(el, "ref"), err)
		}
		return nil
	default:
		return nil
	}
	for _, child := range xmldom.ChildElements(el) {
		if err := v.validateBodyElement(child); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) validateItems(control *dom.Element) error {
	var items, itemsets int
	for _, child := range xmldom.ChildElements(control) {
		switch child.Local {
		case "item":
			items++
		case "itemset":
			itemsets++
			if _, ok := xmldom.LookupAttr(child, "", "nodeset"); !ok {
				return fmt.Errorf("<itemset>: %w: nodeset", ErrMissingReference)
			}
		}
	}
	if items > 0 && itemsets > 0 {
		return ErrMixedItems
	}
	return nil
}

// controlReference returns the ref of a control, falling back to nodeset
// which older forms use on selects.
func controlReference(el *dom.Element) (string, bool) {
	if ref, ok := xmldom.LookupAttr(el, "", "ref"); ok {
		return ref, true
	}
	return xmldom.LookupAttr(el, "", "nodeset")
}
