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
	"fmt"
	"strings"

	"github.com/getodk/web-forms-sub004/pkg/graph"
	"github.com/getodk/web-forms-sub004/pkg/xpath"
)

// validate checks required and constraint. A constraint is only checked
// against a non-blank value.
func (in *Instance) validate(n *Node) (ValidationState, error) {
	relevant, err := in.isRelevant(n)
	if err != nil {
		return ValidationState{}, err
	}
	if !relevant {
		return ValidationState{Valid: true}, nil
	}
	b := n.def.Meta().Bind
	if b == nil {
		return ValidationState{Valid: true}, nil
	}

	required, err := in.isRequired(n)
	if err != nil {
		return ValidationState{}, err
	}
	if required && n.value == "" {
		msg, err := in.message(n, b.RequiredMsg)
		if err != nil {
			return ValidationState{}, err
		}
		return ValidationState{Violation: ViolationRequired, Message: msg}, nil
	}

	if n.value != "" && !b.Constraint.IsDefault() {
		ok, err := in.computeBool(n, graph.ComputeConstraint, &n.constraint, b.Constraint.Expression)
		if err != nil {
			return ValidationState{}, err
		}
		if !ok {
			msg, err := in.message(n, b.ConstraintMsg)
			if err != nil {
				return ValidationState{}, err
			}
			return ValidationState{Violation: ViolationConstraint, Message: msg}, nil
		}
	}
	return ValidationState{Valid: true}, nil
}

func (in *Instance) message(n *Node, m *graph.Message) (string, error) {
	switch {
	case m == nil:
		return "", nil
	case m.Expression != nil:
		return in.evaluateString(n, computeMessage, m.Expression)
	default:
		return m.Text, nil
	}
}

// labels evaluates the label and hint of the body element bound to n.
func (in *Instance) labels(n *Node) (label, hint string, err error) {
	var labelDef, hintDef *graph.LabelDefinition
	switch body := n.def.Meta().BodyElement.(type) {
	case *graph.ControlDefinition:
		labelDef, hintDef = body.Label, body.Hint
	case *graph.GroupDefinition:
		labelDef = body.Label
	case *graph.RepeatDefinition:
		labelDef = body.Label
	}
	if label, err = in.labelText(n, labelDef, in.contextNode(n)); err != nil {
		return "", "", err
	}
	if hint, err = in.labelText(n, hintDef, in.contextNode(n)); err != nil {
		return "", "", err
	}
	return label, hint, nil
}

func (in *Instance) labelText(n *Node, def *graph.LabelDefinition, ctx xpath.Node) (string, error) {
	if def == nil {
		return "", nil
	}
	if def.Reference != nil {
		v, err := in.evaluate(n, computeLabel, def.Reference, ctx)
		if err != nil {
			return "", err
		}
		return xpath.ToString(v), nil
	}
	var b strings.Builder
	for _, part := range def.Parts {
		if part.Expression == nil {
			b.WriteString(part.Text)
			continue
		}
		v, err := in.evaluate(n, computeLabel, part.Expression, ctx)
		if err != nil {
			return "", err
		}
		b.WriteString(xpath.ToString(v))
	}
	return b.String(), nil
}

// options evaluates the static items or the itemset of a select control.
func (in *Instance) options(n *Node) ([]SelectOption, error) {
	control, ok := n.def.Meta().BodyElement.(*graph.ControlDefinition)
	if !ok || !control.IsSelect() {
		return nil, nil
	}
	ctx := in.contextNode(n)

	if control.Itemset == nil {
		out := make([]SelectOption, 0, len(control.Items))
		for _, item := range control.Items {
			label, err := in.labelText(n, item.Label, ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, SelectOption{Value: item.Value, Label: label})
		}
		return out, nil
	}

	itemset := control.Itemset
	v, err := in.evaluate(n, computeItemset, itemset.Nodeset, ctx)
	if err != nil {
		return nil, err
	}
	nodes, ok := v.(xpath.NodeSet)
	if !ok {
		return nil, &EvaluationError{
			Nodeset:     n.Nodeset(),
			Computation: computeItemset,
			Expression:  itemset.Nodeset.Expression,
			Err:         fmt.Errorf("%w: itemset does not select nodes", xpath.ErrType),
		}
	}
	out := make([]SelectOption, 0, len(nodes))
	for _, item := range nodes {
		opt := SelectOption{Value: item.StringValue()}
		if itemset.Value != nil {
			if opt.Value, err = in.itemString(n, itemset.Value, item); err != nil {
				return nil, err
			}
		}
		if itemset.Label != nil {
			if opt.Label, err = in.itemString(n, itemset.Label, item); err != nil {
				return nil, err
			}
		}
		out = append(out, opt)
	}
	return out, nil
}

func (in *Instance) itemString(n *Node, e *graph.DependentExpression, item xpath.Node) (string, error) {
	v, err := in.evaluate(n, computeItemset, e, item)
	if err != nil {
		return "", err
	}
	return xpath.ToString(v), nil
}
