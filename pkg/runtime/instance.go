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
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	"github.com/santhosh-tekuri/dom"

	"github.com/getodk/web-forms-sub004/pkg/graph"
	"github.com/getodk/web-forms-sub004/pkg/xmldom"
	"github.com/getodk/web-forms-sub004/pkg/xpath"
)

// Instance is one form session: the live instance tree of a model together
// with its reactive state. An Instance is not safe for concurrent use.
type Instance struct {
	model *graph.Model
	opts  Options
	log   logr.Logger
	ev    *xpath.Evaluator

	nodes     map[NodeID]*Node
	nextID    NodeID
	root      NodeID
	byNodeset map[string][]NodeID

	language string

	versions         map[string]uint64
	triggerCache     map[*graph.DependentExpression][]string
	effectCache      map[*graph.DependentExpression][]string
	templateNodesets map[graph.DefinitionID][]string

	evaluating map[cellKey]struct{}
	pendingErr error
	flushing   bool
	batchDepth int
}

// Instantiate starts a session with a new instance built from the model's
// default values.
func Instantiate(model *graph.Model, opts Options) (*Instance, error) {
	in, err := newInstance(model, opts)
	if err != nil {
		return nil, err
	}
	if err := in.load(nil); err != nil {
		return nil, err
	}
	return in, nil
}

// Edit starts a session restoring an existing instance document. Leaf values
// and repeat instances are taken from the document; calculations run once
// it is loaded.
func Edit(model *graph.Model, instanceXML io.Reader, opts Options) (*Instance, error) {
	doc, err := xmldom.Parse(instanceXML)
	if err != nil {
		return nil, fmt.Errorf("parsing instance: %w", err)
	}
	root := model.Root()
	if doc.Local != root.NodeName {
		return nil, fmt.Errorf("%w: root element %q, form expects %q", ErrInstanceMismatch, doc.Local, root.NodeName)
	}
	in, err := newInstance(model, opts)
	if err != nil {
		return nil, err
	}
	if err := in.load(doc); err != nil {
		return nil, err
	}
	return in, nil
}

// EditString is Edit for an instance held in a string.
func EditString(model *graph.Model, instanceXML string, opts Options) (*Instance, error) {
	return Edit(model, strings.NewReader(instanceXML), opts)
}

func newInstance(model *graph.Model, opts Options) (*Instance, error) {
	opts = opts.withDefaults()
	in := &Instance{
		model:            model,
		opts:             opts,
		log:              opts.Logger.WithName("runtime").WithValues("form", model.ID),
		versions:         make(map[string]uint64),
		triggerCache:     make(map[*graph.DependentExpression][]string),
		effectCache:      make(map[*graph.DependentExpression][]string),
		templateNodesets: make(map[graph.DefinitionID][]string),
		evaluating:       make(map[cellKey]struct{}),
	}

	translations := model.Translations()
	in.language = translations.DefaultLanguage()
	if opts.Language != "" {
		if !translations.HasLanguage(opts.Language) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, opts.Language)
		}
		in.language = opts.Language
	}

	evOpts := []xpath.Option{
		xpath.WithTranslator(in.translate),
		xpath.WithClock(opts.Clock),
		xpath.WithMetrics(opts.XPathMetrics),
	}
	for id, el := range model.SecondaryInstances() {
		if el == nil {
			continue
		}
		evOpts = append(evOpts, xpath.WithInstance(id, xpath.FromDOM(el)))
	}
	in.ev = xpath.NewEvaluator(evOpts...)
	return in, nil
}

// load replaces the instance tree and brings calculations up to date. src
// is the instance document being edited, nil for a new instance.
func (in *Instance) load(src *dom.Element) error {
	in.nodes = make(map[NodeID]*Node)
	in.byNodeset = make(map[string][]NodeID)
	in.root = in.build(in.model.Root(), graph.NodeKindRoot, noNode, src)
	in.log.V(1).Info("loaded instance", "nodes", len(in.nodes), "edit", src != nil)
	return in.flush()
}

// Reset discards all answers and rebuilds the instance from the model
// defaults. Nodes obtained before the reset are detached.
func (in *Instance) Reset() error {
	if in.flushing {
		return ErrReentrantWrite
	}
	for _, n := range in.nodes {
		n.attached = false
	}
	return in.load(nil)
}

// Model returns the form model the session was started from.
func (in *Instance) Model() *graph.Model { return in.model }

// Root returns the root node.
func (in *Instance) Root() *Node { return in.nodes[in.root] }

// Node returns the attached node with the given ID.
func (in *Instance) Node(id NodeID) (*Node, bool) {
	n, ok := in.nodes[id]
	return n, ok
}

// Find returns the attached nodes with the given canonical node-set, in
// document order. Repeat instances of a range share its node-set; the range
// itself is listed first.
func (in *Instance) Find(nodeset string) []*Node {
	var out []*Node
	in.walk(in.Root(), func(n *Node) {
		if n.Nodeset() == nodeset {
			out = append(out, n)
		}
	})
	return out
}

// FindLeaf returns the first leaf with the given node-set.
func (in *Instance) FindLeaf(nodeset string) (Leaf, bool) {
	for _, n := range in.Find(nodeset) {
		if l, ok := n.AsLeaf(); ok {
			return l, true
		}
	}
	return Leaf{}, false
}

// FindRepeatRange returns the first range with the given node-set.
func (in *Instance) FindRepeatRange(nodeset string) (RepeatRange, bool) {
	for _, n := range in.Find(nodeset) {
		if r, ok := n.AsRepeatRange(); ok {
			return r, true
		}
	}
	return RepeatRange{}, false
}

func (in *Instance) walk(n *Node, fn func(*Node)) {
	fn(n)
	for _, id := range n.children {
		in.walk(in.nodes[id], fn)
	}
}

// Batch runs fn with calculations deferred, then flushes once. Derived
// state read inside fn may be stale until Batch returns.
func (in *Instance) Batch(fn func() error) error {
	if in.flushing {
		return ErrReentrantWrite
	}
	err := func() error {
		in.batchDepth++
		defer func() { in.batchDepth-- }()
		return fn()
	}()
	if in.batchDepth > 0 {
		return err
	}
	return errors.Join(err, in.flush())
}

// EvaluateString evaluates expression with the root element as context.
func (in *Instance) EvaluateString(expression string) (string, error) {
	v, err := in.ev.Evaluate(expression, in.element(in.root))
	if perr := in.takePendingErr(); err == nil {
		err = perr
	}
	if err != nil {
		return "", err
	}
	return xpath.ToString(v), nil
}

// Languages lists the form's translation languages.
func (in *Instance) Languages() []string { return in.model.Translations().Languages() }

// Language returns the active translation language.
func (in *Instance) Language() string { return in.language }

// SetLanguage switches the active translation language. Translated labels,
// messages and calculations are re-evaluated.
func (in *Instance) SetLanguage(lang string) error {
	if in.flushing {
		return ErrReentrantWrite
	}
	if !in.model.Translations().HasLanguage(lang) {
		return fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
	if lang == in.language {
		return nil
	}
	in.language = lang
	in.bump(languageKey)
	in.log.V(1).Info("switched language", "language", lang)
	return in.settle()
}

func (in *Instance) translate(id string) (string, bool) {
	return in.model.Translations().Lookup(in.language, id)
}

// build creates the runtime node for def and its subtree. src is the
// instance element the values come from; nil takes definition defaults.
func (in *Instance) build(def graph.NodeDefinition, kind graph.NodeKind, parent NodeID, src *dom.Element) NodeID {
	n := &Node{
		inst:     in,
		id:       in.nextID,
		def:      def,
		kind:     kind,
		parent:   parent,
		attached: true,
	}
	in.nextID++
	in.nodes[n.id] = n
	in.byNodeset[n.Nodeset()] = append(in.byNodeset[n.Nodeset()], n.id)

	switch d := def.(type) {
	case *graph.LeafDefinition, *graph.NoteDefinition:
		if src != nil {
			n.value = xmldom.Text(src)
		} else {
			n.value, _ = graph.DefaultValue(d)
		}
	case *graph.RepeatRangeDefinition:
		in.buildRange(n, d, src)
	default:
		for _, child := range in.model.Children(def.Meta().ID) {
			if child.Kind() == graph.NodeKindRepeatRange {
				// Instances are children of the parent element.
				n.children = append(n.children, in.build(child, child.Kind(), n.id, src))
				continue
			}
			var childSrc *dom.Element
			if src != nil {
				childSrc = childElement(src, child.Meta().NodeName)
			}
			n.children = append(n.children, in.build(child, child.Kind(), n.id, childSrc))
		}
	}
	return n.id
}

// buildRange creates the instances of a range. parentSrc is the element
// holding the instances when editing.
func (in *Instance) buildRange(n *Node, def *graph.RepeatRangeDefinition, parentSrc *dom.Element) {
	template := in.model.Node(def.Template)
	if parentSrc != nil {
		for _, el := range xmldom.ChildElements(parentSrc) {
			if el.Local != def.NodeName || isTemplateElement(el) {
				continue
			}
			n.children = append(n.children, in.build(template, graph.NodeKindRepeatInstance, n.id, el))
		}
	} else {
		for _, id := range def.Instances {
			instance := in.model.Node(id)
			n.children = append(n.children, in.build(instance, graph.NodeKindRepeatInstance, n.id, nil))
		}
	}
	if def.FixedCount != nil {
		for len(n.children) < *def.FixedCount {
			n.children = append(n.children, in.build(template, graph.NodeKindRepeatInstance, n.id, nil))
		}
	}
}

func childElement(el *dom.Element, name string) *dom.Element {
	for _, c := range xmldom.ChildElements(el) {
		if c.Local == name {
			return c
		}
	}
	return nil
}

const javarosaNamespace = "http://openrosa.org/javarosa"

func isTemplateElement(el *dom.Element) bool {
	_, ok := xmldom.LookupAttr(el, javarosaNamespace, "template")
	return ok
}

// detach removes n and its subtree from the arena.
func (in *Instance) detach(id NodeID) {
	n, ok := in.nodes[id]
	if !ok {
		return
	}
	for _, child := range n.children {
		in.detach(child)
	}
	n.attached = false
	delete(in.nodes, id)
	ids := in.byNodeset[n.Nodeset()]
	for i, other := range ids {
		if other == id {
			in.byNodeset[n.Nodeset()] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
}
