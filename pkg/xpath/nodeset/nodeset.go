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

// Package nodeset resolves node-set references to canonical form.
//
// A reference is flattened to a Path: a head (the root of an absolute path,
// a filter expression such as instance('x'), or the first step of a relative
// path) followed by location steps. Resolution folds a context path and a
// target path together, dropping self steps and collapsing parent steps
// where the path allows it.
package nodeset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/xpathparser"

	"github.com/getodk/web-forms-sub004/pkg/xpath"
)

// Kind classifies a Node of a Path.
type Kind int

const (
	// Root is the leading "/" of an absolute path.
	Root Kind = iota
	// Filter is a filter expression head, e.g. current() or instance('x').
	Filter
	// Step is a location step, including the empty step of "//".
	Step
)

// Node is one element of a flattened path.
type Node struct {
	Kind   Kind
	Filter *xpathparser.FilterExpr
	Step   *xpathparser.Step
}

// Path is a flattened node-set reference.
type Path []Node

// ErrNotAPath is returned by Parse for expressions that do not denote a
// location.
var ErrNotAPath = errors.New("expression is not a node-set reference")

func rootNode() Node { return Node{Kind: Root} }

func stepNode(s *xpathparser.Step) Node { return Node{Kind: Step, Step: s} }

func filterNode(f *xpathparser.FilterExpr) Node { return Node{Kind: Filter, Filter: f} }

// asFilter lets every path head be handled as a filter expression, with or
// without predicates.
func asFilter(e xpath.Expr) *xpathparser.FilterExpr {
	if f, ok := e.(*xpathparser.FilterExpr); ok {
		return f
	}
	return &xpathparser.FilterExpr{Expr: e}
}

// FromExpr flattens a node-set producing expression. It reports false for
// expressions that have no path shape.
func FromExpr(e xpath.Expr) (Path, bool) {
	switch t := e.(type) {
	case *xpathparser.LocationPath:
		p := make(Path, 0, len(t.Steps)+1)
		if t.Abs {
			p = append(p, rootNode())
		}
		for _, s := range t.Steps {
			p = append(p, stepNode(s))
		}
		return p, len(p) > 0
	case *xpathparser.PathExpr:
		p := Path{filterNode(asFilter(t.Filter))}
		if t.LocationPath != nil {
			for _, s := range t.LocationPath.Steps {
				p = append(p, stepNode(s))
			}
		}
		return p, true
	case *xpathparser.FilterExpr:
		return Path{filterNode(t)}, true
	case *xpathparser.FuncCall:
		return Path{filterNode(asFilter(t))}, true
	}
	return nil, false
}

// Parse parses a node-set reference such as a bind nodeset attribute.
func Parse(reference string) (Path, error) {
	e, err := xpath.Parse(reference)
	if err != nil {
		return nil, err
	}
	p, ok := FromExpr(e)
	if !ok {
		return nil, fmt.Errorf("%q: %w", reference, ErrNotAPath)
	}
	return p, nil
}

// IsAbsolute reports whether the path starts at the document root.
func (p Path) IsAbsolute() bool {
	return len(p) > 0 && p[0].Kind == Root
}

func (n Node) isCurrent() bool {
	if n.Kind != Filter {
		return false
	}
	call, ok := n.Filter.Expr.(*xpathparser.FuncCall)
	return ok && call.Local == "current" && len(call.Args) == 0
}

// isBareCurrent is current() without predicates, which means the context
// itself wherever it appears after the head.
func (n Node) isBareCurrent() bool {
	return n.isCurrent() && len(n.Filter.Predicates) == 0
}

// StartsWithCurrent reports whether the path is headed by current().
func (p Path) StartsWithCurrent() bool {
	return len(p) > 0 && p[0].isCurrent()
}

// Resolve contextualizes target against context. A nil or empty context, an
// absolute target, or a target headed by a filter other than current()
// resolves on its own; otherwise the two are concatenated and folded.
func Resolve(context, target Path) Path {
	if len(target) == 0 {
		return fold(context)
	}
	if len(context) == 0 || target.IsAbsolute() || (target[0].Kind == Filter && !target[0].isCurrent()) {
		return fold(target)
	}
	joined := make(Path, 0, len(context)+len(target))
	joined = append(joined, context...)
	joined = append(joined, target...)
	return fold(joined)
}

// ResolvePredicate resolves a path found inside a predicate. Paths headed by
// current() refer to the context of the whole expression (outer); all other
// paths are relative to the step carrying the predicate, given as prefix
// (the resolved path up to and including that step).
func ResolvePredicate(outer, prefix, target Path) Path {
	if target.StartsWithCurrent() {
		return Resolve(outer, target)
	}
	return Resolve(prefix, target)
}

func fold(nodes Path) Path {
	if len(nodes) == 0 {
		return nil
	}
	acc := Path{nodes[0]}
	for _, n := range nodes[1:] {
		switch {
		case n.Kind == Step && xpath.IsSelfStep(n.Step), n.isBareCurrent():
			continue
		case n.Kind == Step && xpath.IsParentStep(n.Step):
			acc = parent(acc, n)
		case n.Kind == Filter:
			// current()[p] past the head filters the context node.
			acc = append(acc, stepNode(&xpathparser.Step{
				Axis:       xpathparser.Self,
				NodeTest:   xpathparser.Node,
				Predicates: n.Filter.Predicates,
			}))
		default:
			acc = append(acc, n)
		}
	}
	return acc
}

func parent(acc Path, dotdot Node) Path {
	if len(acc) > 1 {
		last := acc[len(acc)-1]
		if last.Kind == Step && (xpath.IsDescendantStep(last.Step) || xpath.IsParentStep(last.Step)) {
			return append(acc, dotdot)
		}
		return acc[:len(acc)-1]
	}
	head := acc[0]
	if head.Kind == Step && xpath.IsSelfStep(head.Step) {
		return Path{dotdot}
	}
	// "/..", a filter head, or a named step: nothing to collapse into.
	return append(acc, dotdot)
}

// PredicateSite is a predicate found on a resolved path together with the
// prefix of the path it applies to.
type PredicateSite struct {
	Prefix    Path
	Predicate xpath.Expr
}

// Predicates lists every predicate of the path in order, each with the path
// up to and including the node it decorates.
func (p Path) Predicates() []PredicateSite {
	var out []PredicateSite
	for i, n := range p {
		var preds []xpath.Expr
		switch n.Kind {
		case Step:
			preds = n.Step.Predicates
		case Filter:
			preds = n.Filter.Predicates
		}
		for _, pred := range preds {
			out = append(out, PredicateSite{Prefix: p[:i+1], Predicate: pred})
		}
	}
	return out
}

// HeadCall returns the function call heading the path, if any.
func (p Path) HeadCall() (*xpathparser.FuncCall, bool) {
	if len(p) == 0 || p[0].Kind != Filter {
		return nil, false
	}
	call, ok := p[0].Filter.Expr.(*xpathparser.FuncCall)
	return call, ok
}

// Serialize renders a path back to text. With stripPredicates set the result
// is suitable as a dependency key.
func Serialize(p Path, stripPredicates bool) string {
	if len(p) == 0 {
		return ""
	}
	var steps []*xpathparser.Step
	for _, n := range p {
		if n.Kind == Step {
			s := n.Step
			if stripPredicates {
				s = xpath.WithoutPredicates(s)
			}
			steps = append(steps, s)
		}
	}
	switch p[0].Kind {
	case Root:
		return "/" + xpath.JoinSteps(steps)
	case Filter:
		var b strings.Builder
		if stripPredicates {
			b.WriteString(xpath.Format(p[0].Filter.Expr))
		} else {
			b.WriteString(xpath.Format(p[0].Filter))
		}
		if len(steps) > 0 {
			b.WriteString("/" + xpath.JoinSteps(steps))
		}
		return b.String()
	}
	return xpath.JoinSteps(steps)
}

func (p Path) String() string { return Serialize(p, false) }
