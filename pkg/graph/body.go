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
	"github.com/santhosh-tekuri/dom"
	"k8s.io/utils/ptr"
)

// BodyElementType names a body element.
type BodyElementType string

const (
	BodyInput    BodyElementType = "input"
	BodySelect   BodyElementType = "select"
	BodySelect1  BodyElementType = "select1"
	BodyTextarea BodyElementType = "textarea"
	BodyTrigger  BodyElementType = "trigger"
	BodyUpload   BodyElementType = "upload"
	BodyRange    BodyElementType = "range"
	BodyRank     BodyElementType = "rank"
	BodyGroup    BodyElementType = "group"
	BodyRepeat   BodyElementType = "repeat"
)

var controlTypes = map[string]BodyElementType{
	"input":    BodyInput,
	"select":   BodySelect,
	"select1":  BodySelect1,
	"textarea": BodyTextarea,
	"trigger":  BodyTrigger,
	"upload":   BodyUpload,
	"range":    BodyRange,
	"rank":     BodyRank,
}

// BodyElement is a control, group or repeat of the form body.
type BodyElement interface {
	Type() BodyElementType
	// Reference is the canonical node-set of the element. A group without a
	// ref reports the enclosing context and is not indexed by reference.
	Reference() string
	Dependencies() *DependencyContext
	bodyElement()
}

// LabelPart is a literal piece of label text or an <output value="..."/>.
type LabelPart struct {
	Text       string
	Expression *DependentExpression
}

// LabelDefinition is a label or hint: either a ref expression, usually
// jr:itext(), or inline text with outputs.
type LabelDefinition struct {
	Reference *DependentExpression
	Parts     []LabelPart
}

// ItemDefinition is a static select choice.
type ItemDefinition struct {
	Value string
	Label *LabelDefinition
}

// ItemsetDefinition is a dynamic list of select choices.
type ItemsetDefinition struct {
	DependencyContext
	Nodeset *DependentExpression
	Value   *DependentExpression
	Label   *DependentExpression
}

// ControlDefinition is an input-like body element bound to a leaf.
type ControlDefinition struct {
	DependencyContext
	ControlType BodyElementType
	Element     *dom.Element
	Appearances []string
	Label       *LabelDefinition
	Hint        *LabelDefinition
	Items       []*ItemDefinition
	Itemset     *ItemsetDefinition
}

func (c *ControlDefinition) Type() BodyElementType            { return c.ControlType }
func (c *ControlDefinition) Reference() string                { return c.DependencyContext.Reference }
func (c *ControlDefinition) Dependencies() *DependencyContext { return &c.DependencyContext }
func (*ControlDefinition) bodyElement()                       {}

// IsSelect reports whether the control offers choices.
func (c *ControlDefinition) IsSelect() bool {
	switch c.ControlType {
	case BodySelect, BodySelect1, BodyRank:
		return true
	}
	return false
}

// GroupDefinition is a <group>, optionally bound to a subtree.
type GroupDefinition struct {
	DependencyContext
	Element     *dom.Element
	Appearances []string
	Label       *LabelDefinition
	Children    []BodyElement
}

func (g *GroupDefinition) Type() BodyElementType            { return BodyGroup }
func (g *GroupDefinition) Reference() string                { return g.DependencyContext.Reference }
func (g *GroupDefinition) Dependencies() *DependencyContext { return &g.DependencyContext }
func (*GroupDefinition) bodyElement()                       {}

// RepeatDefinition is a <repeat>. A group wrapping a repeat with the same
// reference lends the repeat its label.
type RepeatDefinition struct {
	DependencyContext
	Element     *dom.Element
	Appearances []string
	Label       *LabelDefinition
	Children    []BodyElement
	// Count is jr:count, a numeric expression controlling the size.
	Count *DependentExpression
	// NoAddRemove is jr:noAddRemove evaluated as a constant.
	NoAddRemove bool
}

func (r *RepeatDefinition) Type() BodyElementType            { return BodyRepeat }
func (r *RepeatDefinition) Reference() string                { return r.DependencyContext.Reference }
func (r *RepeatDefinition) Dependencies() *DependencyContext { return &r.DependencyContext }
func (*RepeatDefinition) bodyElement()                       {}

// FixedCount returns the size of a repeat that is controlled without a
// count expression, given how many instances the form defines.
func (r *RepeatDefinition) FixedCount(defined int) *int {
	if r.Count != nil || !r.NoAddRemove {
		return nil
	}
	return ptr.To(max(defined, 1))
}

// BodyDefinition is the parsed form body.
type BodyDefinition struct {
	Elements []BodyElement
	byRef    map[string]BodyElement
}

// Get returns the body element bound to reference.
func (b *BodyDefinition) Get(reference string) (BodyElement, bool) {
	if b == nil {
		return nil, false
	}
	e, ok := b.byRef[reference]
	return e, ok
}

// Repeat returns the repeat for reference, if the body declares one.
func (b *BodyDefinition) Repeat(reference string) (*RepeatDefinition, bool) {
	e, ok := b.Get(reference)
	if !ok {
		return nil, false
	}
	r, ok := e.(*RepeatDefinition)
	return r, ok
}

// Control returns the control for reference, if any.
func (b *BodyDefinition) Control(reference string) (*ControlDefinition, bool) {
	e, ok := b.Get(reference)
	if !ok {
		return nil, false
	}
	c, ok := e.(*ControlDefinition)
	return c, ok
}
