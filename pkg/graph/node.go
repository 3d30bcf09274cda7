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
)

// DefinitionID indexes a node definition in the model's arena.
type DefinitionID int

// NoDefinition is the parent of the root.
const NoDefinition DefinitionID = -1

// NodeKind identifies the variant of a node definition.
type NodeKind int

const (
	NodeKindRoot NodeKind = iota
	NodeKindSubtree
	NodeKindRepeatRange
	NodeKindRepeatTemplate
	NodeKindRepeatInstance
	NodeKindLeaf
	NodeKindNote
)

// String returns a human-readable string for the node kind.
func (k NodeKind) String() string {
	switch k {
	case NodeKindRoot:
		return "root"
	case NodeKindSubtree:
		return "subtree"
	case NodeKindRepeatRange:
		return "repeat-range"
	case NodeKindRepeatTemplate:
		return "repeat-template"
	case NodeKindRepeatInstance:
		return "repeat-instance"
	case NodeKindLeaf:
		return "leaf-node"
	case NodeKindNote:
		return "note"
	default:
		return "unknown"
	}
}

// NodeMeta holds the fields every node definition has.
type NodeMeta struct {
	ID       DefinitionID
	Parent   DefinitionID
	Nodeset  string
	NodeName string
	Bind     *BindDefinition
	// BodyElement is the control, group or repeat bound to Nodeset.
	BodyElement BodyElement
	// Element is the instance element this definition was built from.
	Element *dom.Element

	// DependencyExpressions is the union of bind and body dependencies.
	DependencyExpressions []string
	IsTranslated          bool
}

// NodeDefinition is one of RootDefinition, SubtreeDefinition,
// RepeatRangeDefinition, RepeatTemplateDefinition, RepeatInstanceDefinition,
// LeafDefinition or NoteDefinition.
type NodeDefinition interface {
	Meta() *NodeMeta
	Kind() NodeKind
	nodeDefinition()
}

// ParentDefinition is implemented by variants with child definitions.
type ParentDefinition interface {
	NodeDefinition
	ChildIDs() []DefinitionID
}

// RootDefinition is the primary instance root element.
type RootDefinition struct {
	NodeMeta
	Children []DefinitionID
	// Attributes of the root element, such as id and version, serialized
	// with the instance.
	Attributes []*dom.Attr
}

// SubtreeDefinition is a non-repeat element with child elements.
type SubtreeDefinition struct {
	NodeMeta
	Children []DefinitionID
}

// RepeatRangeDefinition is the sequence of instances of a repeat. It has no
// element of its own; its instances are children of its parent element.
type RepeatRangeDefinition struct {
	NodeMeta
	Repeat    *RepeatDefinition
	Template  DefinitionID
	Instances []DefinitionID
	// Count is the jr:count expression, if any.
	Count *DependentExpression
	// FixedCount is the size of a range fixed by jr:noAddRemove.
	FixedCount *int
}

// Controlled reports whether instances can only change through jr:count or
// not at all.
func (r *RepeatRangeDefinition) Controlled() bool {
	return r.Count != nil || r.FixedCount != nil
}

// RepeatTemplateDefinition is the blank subtree new instances are cloned
// from.
type RepeatTemplateDefinition struct {
	NodeMeta
	Range    DefinitionID
	Children []DefinitionID
	// Explicit is set when the form marks the template with jr:template.
	Explicit bool
}

// RepeatInstanceDefinition is an instance present in the form definition.
type RepeatInstanceDefinition struct {
	NodeMeta
	Range    DefinitionID
	Children []DefinitionID
}

// LeafDefinition is an element without child elements.
type LeafDefinition struct {
	NodeMeta
	DefaultValue string
}

// NoteDefinition is a leaf with a constant true readonly and an input with
// a label or hint.
type NoteDefinition struct {
	NodeMeta
	DefaultValue string
}

func (d *RootDefinition) Meta() *NodeMeta           { return &d.NodeMeta }
func (d *SubtreeDefinition) Meta() *NodeMeta        { return &d.NodeMeta }
func (d *RepeatRangeDefinition) Meta() *NodeMeta    { return &d.NodeMeta }
func (d *RepeatTemplateDefinition) Meta() *NodeMeta { return &d.NodeMeta }
func (d *RepeatInstanceDefinition) Meta() *NodeMeta { return &d.NodeMeta }
func (d *LeafDefinition) Meta() *NodeMeta           { return &d.NodeMeta }
func (d *NoteDefinition) Meta() *NodeMeta           { return &d.NodeMeta }

func (*RootDefinition) Kind() NodeKind           { return NodeKindRoot }
func (*SubtreeDefinition) Kind() NodeKind        { return NodeKindSubtree }
func (*RepeatRangeDefinition) Kind() NodeKind    { return NodeKindRepeatRange }
func (*RepeatTemplateDefinition) Kind() NodeKind { return NodeKindRepeatTemplate }
func (*RepeatInstanceDefinition) Kind() NodeKind { return NodeKindRepeatInstance }
func (*LeafDefinition) Kind() NodeKind           { return NodeKindLeaf }
func (*NoteDefinition) Kind() NodeKind           { return NodeKindNote }

func (*RootDefinition) nodeDefinition()           {}
func (*SubtreeDefinition) nodeDefinition()        {}
func (*RepeatRangeDefinition) nodeDefinition()    {}
func (*RepeatTemplateDefinition) nodeDefinition() {}
func (*RepeatInstanceDefinition) nodeDefinition() {}
func (*LeafDefinition) nodeDefinition()           {}
func (*NoteDefinition) nodeDefinition()           {}

func (d *RootDefinition) ChildIDs() []DefinitionID           { return d.Children }
func (d *SubtreeDefinition) ChildIDs() []DefinitionID        { return d.Children }
func (d *RepeatTemplateDefinition) ChildIDs() []DefinitionID { return d.Children }
func (d *RepeatInstanceDefinition) ChildIDs() []DefinitionID { return d.Children }

// ChildIDs of a range are its instances; the template is reached through
// Template.
func (d *RepeatRangeDefinition) ChildIDs() []DefinitionID { return d.Instances }

// DefaultValue returns the default value of a leaf or note.
func DefaultValue(d NodeDefinition) (string, bool) {
	switch t := d.(type) {
	case *LeafDefinition:
		return t.DefaultValue, true
	case *NoteDefinition:
		return t.DefaultValue, true
	}
	return "", false
}
