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
	"github.com/getodk/web-forms-sub004/pkg/graph"
)

// NodeID indexes a node in its instance's arena. IDs are never reused
// within a session.
type NodeID int

const noNode NodeID = -1

// memo caches a derived value until the sum of its trigger versions moves.
type memo[T any] struct {
	stamp uint64
	valid bool
	value T
}

// Node is a live node of a form instance. Parent and children are arena
// indexes owned by the Instance.
type Node struct {
	inst     *Instance
	id       NodeID
	def      graph.NodeDefinition
	kind     graph.NodeKind
	parent   NodeID
	children []NodeID
	attached bool

	// value is the stored value of a leaf, kept while the leaf is not
	// relevant.
	value string

	relevant   memo[bool]
	readonly   memo[bool]
	required   memo[bool]
	constraint memo[bool]

	// calcStamp and countStamp hold the trigger stamp of the last effect
	// run.
	calcStamp  uint64
	calcRan    bool
	countStamp uint64
	countRan   bool
}

// ID returns the node's arena index.
func (n *Node) ID() NodeID { return n.id }

// Kind returns the node variant. Instances created at runtime report
// NodeKindRepeatInstance even though they are stamped from the template.
func (n *Node) Kind() graph.NodeKind { return n.kind }

// Definition returns the definition the node was built from.
func (n *Node) Definition() graph.NodeDefinition { return n.def }

// Nodeset returns the canonical node-set of the node.
func (n *Node) Nodeset() string { return n.def.Meta().Nodeset }

// Name returns the element name of the node.
func (n *Node) Name() string { return n.def.Meta().NodeName }

// Attached reports whether the node is still part of the instance.
func (n *Node) Attached() bool { return n.attached }

// Parent returns the parent node, nil for the root. The parent of a repeat
// instance is its range.
func (n *Node) Parent() *Node {
	if n.parent == noNode {
		return nil
	}
	return n.inst.nodes[n.parent]
}

// Children returns the child nodes in document order. The children of a
// range are its instances.
func (n *Node) Children() []*Node {
	out := make([]*Node, 0, len(n.children))
	for _, id := range n.children {
		out = append(out, n.inst.nodes[id])
	}
	return out
}

// Index returns the 0-based position of a repeat instance in its range, or
// -1 for any other node.
func (n *Node) Index() int {
	if n.kind != graph.NodeKindRepeatInstance {
		return -1
	}
	p := n.Parent()
	if p == nil {
		return -1
	}
	for i, id := range p.children {
		if id == n.id {
			return i
		}
	}
	return -1
}

// AsLeaf returns the node as a Leaf when it holds a value.
func (n *Node) AsLeaf() (Leaf, bool) {
	if n.kind == graph.NodeKindLeaf || n.kind == graph.NodeKindNote {
		return Leaf{n}, true
	}
	return Leaf{}, false
}

// AsRepeatRange returns the node as a RepeatRange.
func (n *Node) AsRepeatRange() (RepeatRange, bool) {
	if n.kind == graph.NodeKindRepeatRange {
		return RepeatRange{n}, true
	}
	return RepeatRange{}, false
}

// Violation names the failed validation rule.
type Violation string

const (
	ViolationNone       Violation = ""
	ViolationRequired   Violation = "required"
	ViolationConstraint Violation = "constraint"
)

// ValidationState is the validity of a leaf.
type ValidationState struct {
	Valid     bool
	Violation Violation
	// Message is jr:requiredMsg or jr:constraintMsg, translated when it is
	// an itext reference.
	Message string
}

// State is a snapshot of a node's derived state.
type State struct {
	// Value is the relevance-filtered value of a leaf.
	Value    string
	Relevant bool
	Readonly bool
	Required bool
	Label    string
	Hint     string
	Children []*Node
	// Validation is set for leaves.
	Validation ValidationState
}

// CurrentState derives the node's state from the current instance.
func (n *Node) CurrentState() (State, error) {
	if !n.attached {
		return State{}, ErrDetached
	}
	in := n.inst
	var (
		s   State
		err error
	)
	if s.Relevant, err = in.isRelevant(n); err != nil {
		return State{}, err
	}
	if s.Readonly, err = in.isReadonly(n); err != nil {
		return State{}, err
	}
	if s.Label, s.Hint, err = in.labels(n); err != nil {
		return State{}, err
	}
	s.Children = n.Children()

	if _, ok := n.AsLeaf(); ok {
		if s.Required, err = in.isRequired(n); err != nil {
			return State{}, err
		}
		if s.Value, err = in.readValue(n); err != nil {
			return State{}, err
		}
		if s.Validation, err = in.validate(n); err != nil {
			return State{}, err
		}
	}
	return s, nil
}

// Leaf is a node holding a value.
type Leaf struct{ *Node }

// Value returns the value, blank while the leaf is not relevant.
func (l Leaf) Value() (string, error) {
	if !l.attached {
		return "", ErrDetached
	}
	return l.inst.readValue(l.Node)
}

// SetValue writes the value and brings calculations up to date before
// returning, unless called inside Batch.
func (l Leaf) SetValue(value string) error {
	in := l.inst
	if in.flushing {
		in.opts.Metrics.write("reentrant")
		return ErrReentrantWrite
	}
	if !l.attached {
		return ErrDetached
	}
	readonly, err := in.isReadonly(l.Node)
	if err != nil {
		return err
	}
	if readonly {
		in.opts.Metrics.write("readonly")
		return &IllegalWriteError{Nodeset: l.Nodeset()}
	}
	in.opts.Metrics.write("success")
	if l.value == value {
		return nil
	}
	l.value = value
	in.bumpValue(l.Node)
	return in.settle()
}

// Validation returns the validity of the leaf. Non-relevant leaves are
// always valid.
func (l Leaf) Validation() (ValidationState, error) {
	if !l.attached {
		return ValidationState{}, ErrDetached
	}
	return l.inst.validate(l.Node)
}

// SelectOption is a choice of a select control.
type SelectOption struct {
	Value string
	Label string
}

// Options evaluates the items or itemset of a select control. Other leaves
// have no options.
func (l Leaf) Options() ([]SelectOption, error) {
	if !l.attached {
		return nil, ErrDetached
	}
	return l.inst.options(l.Node)
}

// RepeatRange is the sequence of instances of a repeat.
type RepeatRange struct{ *Node }

func (r RepeatRange) definition() *graph.RepeatRangeDefinition {
	return r.def.(*graph.RepeatRangeDefinition)
}

// Controlled reports whether the range size is set by jr:count or
// jr:noAddRemove. Controlled ranges reject AddInstances and
// RemoveInstances.
func (r RepeatRange) Controlled() bool { return r.definition().Controlled() }

// Instances returns the repeat instances in order.
func (r RepeatRange) Instances() []*Node { return r.Children() }

// AddInstances inserts count new instances after the instance at
// afterIndex; -1 inserts at the front.
func (r RepeatRange) AddInstances(afterIndex, count int) ([]*Node, error) {
	in := r.inst
	if in.flushing {
		return nil, ErrReentrantWrite
	}
	if !r.attached {
		return nil, ErrDetached
	}
	if r.Controlled() {
		return nil, ErrControlledRange
	}
	if afterIndex < -1 || afterIndex >= len(r.children) {
		return nil, ErrIndexOutOfRange
	}
	if count < 1 {
		return nil, ErrIndexOutOfRange
	}
	added, err := in.addInstances(r.Node, afterIndex+1, count)
	if err != nil {
		return nil, err
	}
	return added, in.settle()
}

// Append adds count instances at the end of the range.
func (r RepeatRange) Append(count int) ([]*Node, error) {
	return r.AddInstances(len(r.children)-1, count)
}

// RemoveInstances removes count instances starting at start.
func (r RepeatRange) RemoveInstances(start, count int) error {
	in := r.inst
	if in.flushing {
		return ErrReentrantWrite
	}
	if !r.attached {
		return ErrDetached
	}
	if r.Controlled() {
		return ErrControlledRange
	}
	if count < 1 || start < 0 || start+count > len(r.children) {
		return ErrIndexOutOfRange
	}
	in.removeInstances(r.Node, start, count)
	return in.settle()
}
