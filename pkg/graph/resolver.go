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
	"strings"

	"github.com/go-logr/logr"
	"github.com/samber/lo"
	"github.com/santhosh-tekuri/dom"

	"github.com/getodk/web-forms-sub004/pkg/xmldom"
	"github.com/getodk/web-forms-sub004/pkg/xpath"
	"github.com/getodk/web-forms-sub004/pkg/xpath/nodeset"
)

// ResolvedForm is the resolver-stage output: binds and body elements keyed
// by canonical node-set, with every expression analysed.
type ResolvedForm struct {
	*ParsedForm
	// RootReference is the canonical node-set of the primary instance root.
	RootReference      string
	Binds              *BindMap
	Body               *BodyDefinition
	Translations       *Translations
	SecondaryInstances map[string]*dom.Element
}

type resolver struct {
	log         logr.Logger
	exprOptions []ExpressionOption
}

func newResolver(log logr.Logger, opts ...ExpressionOption) Resolver {
	return &resolver{log: log, exprOptions: opts}
}

func (r *resolver) Resolve(form *ParsedForm) (*ResolvedForm, error) {
	rootRef := "/" + form.PrimaryRoot.Local
	resolved := &ResolvedForm{
		ParsedForm:         form,
		RootReference:      rootRef,
		Binds:              newBindMap(r.exprOptions...),
		Body:               &BodyDefinition{byRef: make(map[string]BodyElement)},
		Translations:       parseTranslations(form.Itext),
		SecondaryInstances: form.SecondaryInstances,
	}

	if err := r.resolveBinds(resolved, form.Binds); err != nil {
		return nil, definition("resolver", err)
	}
	if form.Body != nil {
		elements, err := r.resolveBodyElements(resolved.Body, form.Body, rootRef)
		if err != nil {
			return nil, definition("resolver", err)
		}
		resolved.Body.Elements = elements
	}

	r.log.V(1).Info("resolved form",
		"root", rootRef,
		"binds", resolved.Binds.Len(),
		"bodyElements", len(resolved.Body.byRef),
		"languages", resolved.Translations.Languages(),
	)
	return resolved, nil
}

// resolveBinds merges <bind> elements per canonical node-set, then
// synthesizes binds for the root and every bound node-set's ancestors.
func (r *resolver) resolveBinds(resolved *ResolvedForm, elements []*dom.Element) error {
	attrs := make(map[string]bindAttributes)
	var order []string
	firstElement := make(map[string]*dom.Element)
	for _, el := range elements {
		ref, err := canonicalReference(resolved.RootReference, xmldom.Attr(el, "nodeset"), false)
		if err != nil {
			return fmt.Errorf("bind nodeset %q: %w", xmldom.Attr(el, "nodeset"), err)
		}
		if _, ok := attrs[ref]; !ok {
			attrs[ref] = bindAttributes{}
			order = append(order, ref)
			firstElement[ref] = el
		} else {
			r.log.V(1).Info("merging duplicate bind", "nodeset", ref)
		}
		readBindAttributes(el, attrs[ref])
	}

	binds := resolved.Binds
	for _, ref := range order {
		b, err := newBindDefinition(binds, ref, attrs[ref], r.exprOptions...)
		if err != nil {
			return err
		}
		b.Element = firstElement[ref]
		binds.add(b)
	}

	binds.getOrSynthesize(resolved.RootReference)
	for _, ref := range order {
		b, _ := binds.Get(ref)
		synthesizeAncestors(b)
	}
	return nil
}

func synthesizeAncestors(b *BindDefinition) {
	for b != nil {
		b = b.ParentBind()
	}
}

func (r *resolver) resolveBodyElements(body *BodyDefinition, parent *dom.Element, context string) ([]BodyElement, error) {
	var out []BodyElement
	for _, el := range xmldom.ChildElements(parent) {
		var (
			def BodyElement
			err error
		)
		switch name := el.Local; {
		case name == string(BodyGroup):
			def, err = r.resolveGroup(body, el, context)
		case name == string(BodyRepeat):
			def, err = r.resolveRepeat(body, el, context)
		case controlTypes[name] != "":
			def, err = r.resolveControl(body, el, context)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		if def != nil {
			out = append(out, def)
		}
	}
	return out, nil
}

func (r *resolver) resolveGroup(body *BodyDefinition, el *dom.Element, context string) (BodyElement, error) {
	ref := ""
	if raw, ok := xmldom.LookupAttr(el, "", "ref"); ok {
		var err error
		if ref, err = canonicalReference(context, raw, false); err != nil {
			return nil, fmt.Errorf("<group ref=%q>: %w", raw, err)
		}
	}

	childContext := context
	if ref != "" {
		childContext = ref
	}
	g := &GroupDefinition{
		DependencyContext: newDependencyContext(childContext),
		Element:           el,
		Appearances:       appearances(el),
	}
	label, err := r.resolveLabel(&g.DependencyContext, firstChild(el, "label"))
	if err != nil {
		return nil, err
	}
	g.Label = label

	if g.Children, err = r.resolveBodyElements(body, el, childContext); err != nil {
		return nil, err
	}
	if ref == "" {
		return g, nil
	}

	// <group ref="x"><repeat nodeset="x"> is the usual way of labelling a
	// repeat; the group does not claim the reference.
	for _, child := range g.Children {
		if rep, ok := child.(*RepeatDefinition); ok && rep.Reference() == ref {
			if rep.Label == nil {
				rep.Label = g.Label
			}
			return g, nil
		}
	}
	if err := body.register(g); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *resolver) resolveRepeat(body *BodyDefinition, el *dom.Element, context string) (BodyElement, error) {
	raw := xmldom.Attr(el, "nodeset")
	ref, err := canonicalReference(context, raw, false)
	if err != nil {
		return nil, fmt.Errorf("<repeat nodeset=%q>: %w", raw, err)
	}
	rep := &RepeatDefinition{
		DependencyContext: newDependencyContext(ref),
		Element:           el,
		Appearances:       appearances(el),
	}
	if rep.Label, err = r.resolveLabel(&rep.DependencyContext, firstChild(el, "label")); err != nil {
		return nil, err
	}
	if count, ok := xmldom.LookupAttr(el, javarosaNamespace, "count"); ok && strings.TrimSpace(count) != "" {
		if rep.Count, err = NewDependentExpression(&rep.DependencyContext, xpath.NumberResult, count, r.exprOptions...); err != nil {
			return nil, fmt.Errorf("<repeat nodeset=%q> jr:count: %w", raw, err)
		}
	}
	if v, ok := xmldom.LookupAttr(el, javarosaNamespace, "noAddRemove"); ok {
		rep.NoAddRemove = isTruthyAttribute(v)
	}
	if err := body.register(rep); err != nil {
		return nil, err
	}
	if rep.Children, err = r.resolveBodyElements(body, el, ref); err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *resolver) resolveControl(body *BodyDefinition, el *dom.Element, context string) (BodyElement, error) {
	raw, _ := controlReference(el)
	ref, err := canonicalReference(context, raw, false)
	if err != nil {
		return nil, fmt.Errorf("<%s ref=%q>: %w", el.Local, raw, err)
	}
	c := &ControlDefinition{
		DependencyContext: newDependencyContext(ref),
		ControlType:       controlTypes[el.Local],
		Element:           el,
		Appearances:       appearances(el),
	}
	if c.Label, err = r.resolveLabel(&c.DependencyContext, firstChild(el, "label")); err != nil {
		return nil, err
	}
	if c.Hint, err = r.resolveLabel(&c.DependencyContext, firstChild(el, "hint")); err != nil {
		return nil, err
	}

	for _, child := range xmldom.ChildElements(el) {
		switch child.Local {
		case "item":
			item := &ItemDefinition{}
			if v := firstChild(child, "value"); v != nil {
				item.Value = strings.TrimSpace(xmldom.Text(v))
			}
			if item.Label, err = r.resolveLabel(&c.DependencyContext, firstChild(child, "label")); err != nil {
				return nil, err
			}
			c.Items = append(c.Items, item)
		case "itemset":
			if c.Itemset, err = r.resolveItemset(c, child); err != nil {
				return nil, err
			}
		}
	}
	if err := body.register(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *resolver) resolveItemset(c *ControlDefinition, el *dom.Element) (*ItemsetDefinition, error) {
	raw := xmldom.Attr(el, "nodeset")
	nodes, err := NewDependentExpression(&c.DependencyContext, xpath.NodesResult, raw, r.exprOptions...)
	if err != nil {
		return nil, fmt.Errorf("<itemset>: %w", err)
	}
	// Value and label are evaluated per item, so their context is the item
	// node-set without its filters.
	itemRef, err := canonicalReference(c.Reference(), raw, true)
	if err != nil {
		return nil, fmt.Errorf("<itemset nodeset=%q>: %w", raw, err)
	}
	is := &ItemsetDefinition{
		DependencyContext: newDependencyContext(itemRef),
		Nodeset:           nodes,
	}
	if v := firstChild(el, "value"); v != nil {
		if is.Value, err = NewDependentExpression(&is.DependencyContext, xpath.StringResult, xmldom.Attr(v, "ref"), r.exprOptions...); err != nil {
			return nil, fmt.Errorf("<itemset> value: %w", err)
		}
	}
	if l := firstChild(el, "label"); l != nil {
		if is.Label, err = NewDependentExpression(&is.DependencyContext, xpath.StringResult, xmldom.Attr(l, "ref"), r.exprOptions...); err != nil {
			return nil, fmt.Errorf("<itemset> label: %w", err)
		}
	}
	return is, nil
}

// resolveLabel reads a <label> or <hint>: either a ref expression or text
// interleaved with <output value="..."/>.
func (r *resolver) resolveLabel(owner *DependencyContext, el *dom.Element) (*LabelDefinition, error) {
	if el == nil {
		return nil, nil
	}
	if ref, ok := xmldom.LookupAttr(el, "", "ref"); ok {
		e, err := NewDependentExpression(owner, xpath.StringResult, ref, r.exprOptions...)
		if err != nil {
			return nil, fmt.Errorf("<%s ref=%q>: %w", el.Local, ref, err)
		}
		return &LabelDefinition{Reference: e}, nil
	}
	label := &LabelDefinition{}
	for _, c := range el.ChildNodes {
		switch child := c.(type) {
		case *dom.Text:
			label.Parts = append(label.Parts, LabelPart{Text: child.Data})
		case *dom.Element:
			if child.Local != "output" {
				continue
			}
			value := xmldom.Attr(child, "value")
			if value == "" {
				value = xmldom.Attr(child, "ref")
			}
			e, err := NewDependentExpression(owner, xpath.StringResult, value, r.exprOptions...)
			if err != nil {
				return nil, fmt.Errorf("<output value=%q>: %w", value, err)
			}
			label.Parts = append(label.Parts, LabelPart{Expression: e})
		}
	}
	return label, nil
}

func (b *BodyDefinition) register(e BodyElement) error {
	if prev, ok := b.byRef[e.Reference()]; ok {
		return fmt.Errorf("<%s> and <%s> both reference %q: %w", prev.Type(), e.Type(), e.Reference(), ErrDuplicateReference)
	}
	b.byRef[e.Reference()] = e
	return nil
}

func (m *BindMap) add(b *BindDefinition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert(b)
}

// canonicalReference resolves a ref or nodeset attribute against context.
// Predicates are kept unless strip is set.
func canonicalReference(context, reference string, strip bool) (string, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", ErrMissingReference
	}
	target, err := nodeset.Parse(reference)
	if err != nil {
		return "", err
	}
	var ctx nodeset.Path
	if context != "" {
		if ctx, err = nodeset.Parse(context); err != nil {
			return "", err
		}
	}
	return nodeset.Serialize(nodeset.Resolve(ctx, target), strip), nil
}

func firstChild(el *dom.Element, local string) *dom.Element {
	child, _ := lo.Find(xmldom.ChildElements(el), func(c *dom.Element) bool {
		return c.Local == local
	})
	return child
}

func appearances(el *dom.Element) []string {
	return strings.Fields(xmldom.Attr(el, "appearance"))
}
