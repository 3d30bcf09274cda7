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

	"github.com/go-logr/logr"
	"github.com/santhosh-tekuri/dom"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/getodk/web-forms-sub004/pkg/graph/dag"
	"github.com/getodk/web-forms-sub004/pkg/xmldom"
)

// LinkedForm is the linker-stage output: the node definition arena and the
// calculation graph.
type LinkedForm struct {
	*ResolvedForm
	Nodes []NodeDefinition
	// DAG has one vertex per calculated node-set; edges point at the
	// calculations it reads.
	DAG              *dag.DirectedAcyclicGraph[string]
	TopologicalOrder []string
}

type linker struct {
	log          logr.Logger
	detectCycles bool
}

func newLinker(log logr.Logger, detectCycles bool) Linker {
	return &linker{log: log, detectCycles: detectCycles}
}

// Link builds the node tree top-down from the primary instance, then orders
// calculations.
func (l *linker) Link(resolved *ResolvedForm) (*LinkedForm, error) {
	linked := &LinkedForm{ResolvedForm: resolved}

	root := &RootDefinition{
		NodeMeta:   l.meta(linked, NoDefinition, resolved.RootReference, resolved.PrimaryRoot),
		Attributes: rootAttributes(resolved.PrimaryRoot),
	}
	l.add(linked, root)
	children, err := l.buildChildren(linked, root.ID, resolved.PrimaryRoot, resolved.RootReference)
	if err != nil {
		return nil, definition("linker", err)
	}
	root.Children = children

	if err := l.linkCalculations(linked); err != nil {
		return nil, definition("linker", err)
	}
	l.log.V(1).Info("linked form", "nodes", len(linked.Nodes), "calculations", len(linked.TopologicalOrder))
	return linked, nil
}

func (l *linker) add(linked *LinkedForm, def NodeDefinition) DefinitionID {
	id := DefinitionID(len(linked.Nodes))
	def.Meta().ID = id
	linked.Nodes = append(linked.Nodes, def)
	return id
}

func (l *linker) meta(linked *LinkedForm, parent DefinitionID, ref string, el *dom.Element) NodeMeta {
	m := NodeMeta{
		Parent:  parent,
		Nodeset: ref,
		Element: el,
		Bind:    linked.Binds.getOrSynthesize(ref),
	}
	if el != nil {
		m.NodeName = el.Local
	}
	if body, ok := linked.Body.Get(ref); ok {
		m.BodyElement = body
	}

	deps := sets.New(m.Bind.DependencyExpressions()...)
	m.IsTranslated = m.Bind.IsTranslated()
	if m.BodyElement != nil {
		deps.Insert(m.BodyElement.Dependencies().DependencyExpressions()...)
		m.IsTranslated = m.IsTranslated || m.BodyElement.Dependencies().IsTranslated()
		if c, ok := m.BodyElement.(*ControlDefinition); ok && c.Itemset != nil {
			deps.Insert(c.Itemset.DependencyExpressions()...)
			m.IsTranslated = m.IsTranslated || c.Itemset.IsTranslated()
		}
	}
	m.DependencyExpressions = sets.List(deps)
	return m
}

// buildChildren groups child elements by name, in order of first
// appearance. Only a repeat may have several same-named elements.
func (l *linker) buildChildren(linked *LinkedForm, parent DefinitionID, el *dom.Element, ref string) ([]DefinitionID, error) {
	var names []string
	groups := make(map[string][]*dom.Element)
	for _, child := range xmldom.ChildElements(el) {
		name := child.Local
		if _, seen := groups[name]; !seen {
			names = append(names, name)
		}
		groups[name] = append(groups[name], child)
	}

	ids := make([]DefinitionID, 0, len(names))
	for _, name := range names {
		childRef := ref + "/" + name
		elements := groups[name]
		if repeat, ok := linked.Body.Repeat(childRef); ok {
			id, err := l.buildRange(linked, parent, childRef, repeat, elements)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
			continue
		}
		if len(elements) > 1 {
			return nil, fmt.Errorf("%s: %d elements named %q: %w", ref, len(elements), name, ErrDuplicateSiblingName)
		}
		id, err := l.buildElement(linked, parent, childRef, elements[0])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (l *linker) buildElement(linked *LinkedForm, parent DefinitionID, ref string, el *dom.Element) (DefinitionID, error) {
	meta := l.meta(linked, parent, ref, el)
	if !xmldom.HasChildElements(el) {
		if isNote(meta) {
			return l.add(linked, &NoteDefinition{NodeMeta: meta, DefaultValue: xmldom.Text(el)}), nil
		}
		return l.add(linked, &LeafDefinition{NodeMeta: meta, DefaultValue: xmldom.Text(el)}), nil
	}
	subtree := &SubtreeDefinition{NodeMeta: meta}
	id := l.add(linked, subtree)
	children, err := l.buildChildren(linked, id, el, ref)
	if err != nil {
		return 0, err
	}
	subtree.Children = children
	return id, nil
}

// buildRange splits the elements of a repeat into its template and its
// initial instances. A jr:template element is the template verbatim;
// otherwise the template is the first element with its leaf values cleared
// and every element is an instance.
func (l *linker) buildRange(linked *LinkedForm, parent DefinitionID, ref string, repeat *RepeatDefinition, elements []*dom.Element) (DefinitionID, error) {
	var (
		templateEl *dom.Element
		explicit   bool
		instances  []*dom.Element
	)
	for _, el := range elements {
		if _, ok := xmldom.LookupAttr(el, javarosaNamespace, "template"); ok && templateEl == nil {
			templateEl, explicit = el, true
			continue
		}
		instances = append(instances, el)
	}
	if templateEl == nil {
		templateEl = blankTemplate(elements[0])
	}

	meta := l.meta(linked, parent, ref, nil)
	meta.NodeName = elements[0].Local
	rng := &RepeatRangeDefinition{
		NodeMeta:   meta,
		Repeat:     repeat,
		Count:      repeat.Count,
		FixedCount: repeat.FixedCount(len(instances)),
	}
	rangeID := l.add(linked, rng)

	template := &RepeatTemplateDefinition{
		NodeMeta: l.meta(linked, rangeID, ref, templateEl),
		Range:    rangeID,
		Explicit: explicit,
	}
	templateID := l.add(linked, template)
	children, err := l.buildChildren(linked, templateID, templateEl, ref)
	if err != nil {
		return 0, err
	}
	template.Children = children
	rng.Template = templateID

	for _, el := range instances {
		instance := &RepeatInstanceDefinition{
			NodeMeta: l.meta(linked, rangeID, ref, el),
			Range:    rangeID,
		}
		id := l.add(linked, instance)
		if instance.Children, err = l.buildChildren(linked, id, el, ref); err != nil {
			return 0, err
		}
		rng.Instances = append(rng.Instances, id)
	}

	l.log.V(1).Info("built repeat range",
		"nodeset", ref,
		"explicitTemplate", explicit,
		"instances", len(rng.Instances),
		"controlled", rng.Controlled(),
	)
	return rangeID, nil
}

// blankTemplate clones el and clears the text of every leaf below it.
func blankTemplate(el *dom.Element) *dom.Element {
	clone := xmldom.Clone(el)
	if !xmldom.HasChildElements(clone) {
		xmldom.SetText(clone, "")
		return clone
	}
	xmldom.Walk(clone, func(n *dom.Element) bool {
		if n != clone && !xmldom.HasChildElements(n) {
			xmldom.SetText(n, "")
		}
		return true
	})
	return clone
}

func isNote(meta NodeMeta) bool {
	c, ok := meta.BodyElement.(*ControlDefinition)
	if !ok || c.ControlType != BodyInput || (c.Label == nil && c.Hint == nil) {
		return false
	}
	ro := meta.Bind.Readonly
	return ro != nil && ro.Expression != nil && ro.Expression.IsConstantTruthy
}

// rootAttributes copies the root's attributes, namespace declarations
// excluded.
func rootAttributes(el *dom.Element) []*dom.Attr {
	var out []*dom.Attr
	for _, a := range el.Attrs {
		if xmldom.IsNamespaceDecl(a) {
			continue
		}
		name := *a.Name
		out = append(out, &dom.Attr{Name: &name, Value: a.Value})
	}
	return out
}

// linkCalculations adds one vertex per calculated node-set and an edge for
// every calculation it reads.
func (l *linker) linkCalculations(linked *LinkedForm) error {
	d := dag.NewDirectedAcyclicGraph[string]()
	var calculated []*BindDefinition
	for i, ref := range linked.Binds.Nodesets() {
		b, _ := linked.Binds.Get(ref)
		if b.Calculate.IsDefault() {
			continue
		}
		if err := d.AddVertex(ref, i); err != nil {
			return err
		}
		calculated = append(calculated, b)
	}

	for _, b := range calculated {
		var deps []string
		for _, dep := range b.Calculate.Expression.Dependencies {
			if _, ok := d.Vertices[dep]; ok && dep != b.Nodeset {
				deps = append(deps, dep)
			}
		}
		if len(deps) == 0 {
			continue
		}
		if l.detectCycles {
			if err := d.AddDependencies(b.Nodeset, deps); err != nil {
				if ce := dag.AsCycleError[string](err); ce != nil {
					return fmt.Errorf("%w: %v", ErrCalculationCycle, ce)
				}
				return err
			}
			continue
		}
		for _, dep := range deps {
			if err := d.AddDependencies(b.Nodeset, []string{dep}); err != nil {
				l.log.Info("ignoring cyclic calculation dependency", "nodeset", b.Nodeset, "dependency", dep, "error", err.Error())
			}
		}
	}

	order, err := d.TopologicalSort()
	if err != nil {
		return err
	}
	linked.DAG = d
	linked.TopologicalOrder = order
	return nil
}
