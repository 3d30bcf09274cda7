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

package xpath

import (
	"fmt"
	"math"
	"time"

	"github.com/santhosh-tekuri/xpathparser"
)

// Translator looks up a translated text by itext id in the active language.
type Translator func(id string) (string, bool)

// Context is the dynamic evaluation context handed to functions.
type Context struct {
	Node     Node
	Position int
	Size     int
	// Current is the node current() returns: the context node of the
	// outermost expression, unchanged inside predicates.
	Current Node

	ev *Evaluator
}

// Evaluator evaluates expressions against Node trees. It caches parsed
// expressions by source text.
//
// An Evaluator is not safe for concurrent use.
type Evaluator struct {
	functions  map[string]Function
	instances  map[string]Node
	translator Translator
	now        func() time.Time
	metrics    *Metrics
	cache      map[string]Expr
}

type Option func(*Evaluator)

// WithInstance makes a secondary instance reachable via instance(id).
// instance(id) returns root itself, so forms address a document node as
// instance('id')/root/item.
func WithInstance(id string, root Node) Option {
	return func(ev *Evaluator) { ev.instances[id] = root }
}

// WithTranslator sets the lookup used by itext().
func WithTranslator(t Translator) Option {
	return func(ev *Evaluator) { ev.translator = t }
}

// WithFunction adds or replaces a library function, keyed by local name.
func WithFunction(name string, fn Function) Option {
	return func(ev *Evaluator) { ev.functions[name] = fn }
}

// WithClock overrides the time source of now() and today().
func WithClock(now func() time.Time) Option {
	return func(ev *Evaluator) { ev.now = now }
}

// WithMetrics records parse and evaluation timings.
func WithMetrics(m *Metrics) Option {
	return func(ev *Evaluator) { ev.metrics = m }
}

func NewEvaluator(opts ...Option) *Evaluator {
	ev := &Evaluator{
		functions: defaultFunctions(),
		instances: map[string]Node{},
		now:       time.Now,
		cache:     map[string]Expr{},
	}
	for _, opt := range opts {
		opt(ev)
	}
	return ev
}

// Compile parses expression, reusing a cached tree when available.
func (ev *Evaluator) Compile(expression string) (Expr, error) {
	if e, ok := ev.cache[expression]; ok {
		ev.metrics.observeCache(true)
		return e, nil
	}
	ev.metrics.observeCache(false)

	start := time.Now()
	e, err := Parse(expression)
	ev.metrics.ObserveParse(time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}
	ev.cache[expression] = e
	return e, nil
}

// Evaluate evaluates expression with contextNode as both the context node and
// the current() node.
func (ev *Evaluator) Evaluate(expression string, contextNode Node) (Value, error) {
	e, err := ev.Compile(expression)
	if err != nil {
		return nil, err
	}
	return ev.EvaluateExpr(e, contextNode)
}

// EvaluateExpr evaluates an already parsed expression.
func (ev *Evaluator) EvaluateExpr(e Expr, contextNode Node) (Value, error) {
	start := time.Now()
	ctx := &Context{Node: contextNode, Position: 1, Size: 1, Current: contextNode, ev: ev}
	v, err := ev.eval(ctx, e)
	ev.metrics.ObserveEvaluation(time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("evaluating %q: %w", Format(e), err)
	}
	return v, nil
}

func (ev *Evaluator) EvaluateBoolean(expression string, contextNode Node) (bool, error) {
	v, err := ev.Evaluate(expression, contextNode)
	if err != nil {
		return false, err
	}
	return ToBoolean(v), nil
}

func (ev *Evaluator) EvaluateString(expression string, contextNode Node) (string, error) {
	v, err := ev.Evaluate(expression, contextNode)
	if err != nil {
		return "", err
	}
	return ToString(v), nil
}

func (ev *Evaluator) EvaluateNumber(expression string, contextNode Node) (float64, error) {
	v, err := ev.Evaluate(expression, contextNode)
	if err != nil {
		return math.NaN(), err
	}
	return ToNumber(v), nil
}

func (ev *Evaluator) EvaluateNodes(expression string, contextNode Node) ([]Node, error) {
	v, err := ev.Evaluate(expression, contextNode)
	if err != nil {
		return nil, err
	}
	nodes, ok := v.(NodeSet)
	if !ok {
		return nil, fmt.Errorf("%w: %q does not produce a node-set", ErrType, expression)
	}
	return nodes, nil
}

func (ev *Evaluator) eval(ctx *Context, e Expr) (Value, error) {
	switch t := e.(type) {
	case xpathparser.Number:
		return float64(t), nil
	case xpathparser.String:
		return string(t), nil
	case *xpathparser.VarRef:
		return nil, fmt.Errorf("unbound variable %s", Format(t))
	case *xpathparser.NegateExpr:
		v, err := ev.eval(ctx, t.Expr)
		if err != nil {
			return nil, err
		}
		return -ToNumber(v), nil
	case *xpathparser.BinaryExpr:
		return ev.evalBinary(ctx, t)
	case *xpathparser.FuncCall:
		return ev.call(ctx, t)
	case *xpathparser.FilterExpr:
		return ev.evalFilter(ctx, t.Expr, t.Predicates)
	case *xpathparser.PathExpr:
		head, err := ev.eval(ctx, t.Filter)
		if err != nil {
			return nil, err
		}
		nodes, ok := head.(NodeSet)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a node-set", ErrType, Format(t.Filter))
		}
		if t.LocationPath == nil {
			return nodes, nil
		}
		return ev.evalSteps(ctx, nodes, t.LocationPath.Steps)
	case *xpathparser.LocationPath:
		var start NodeSet
		switch {
		case ctx.Node == nil:
			return NodeSet{}, nil
		case t.Abs:
			start = NodeSet{Root(ctx.Node)}
		default:
			start = NodeSet{ctx.Node}
		}
		return ev.evalSteps(ctx, start, t.Steps)
	}
	return nil, fmt.Errorf("unsupported expression %T", e)
}

func (ev *Evaluator) evalBinary(ctx *Context, b *xpathparser.BinaryExpr) (Value, error) {
	left, err := ev.eval(ctx, b.LHS)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case xpathparser.Or:
		if ToBoolean(left) {
			return true, nil
		}
		right, err := ev.eval(ctx, b.RHS)
		if err != nil {
			return nil, err
		}
		return ToBoolean(right), nil
	case xpathparser.And:
		if !ToBoolean(left) {
			return false, nil
		}
		right, err := ev.eval(ctx, b.RHS)
		if err != nil {
			return nil, err
		}
		return ToBoolean(right), nil
	}

	right, err := ev.eval(ctx, b.RHS)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case xpathparser.EQ, xpathparser.NEQ, xpathparser.LT, xpathparser.LTE, xpathparser.GT, xpathparser.GTE:
		return compare(b.Op, left, right), nil
	case xpathparser.Add:
		return ToNumber(left) + ToNumber(right), nil
	case xpathparser.Subtract:
		return ToNumber(left) - ToNumber(right), nil
	case xpathparser.Multiply:
		return ToNumber(left) * ToNumber(right), nil
	case xpathparser.Div:
		return ToNumber(left) / ToNumber(right), nil
	case xpathparser.Mod:
		return math.Mod(ToNumber(left), ToNumber(right)), nil
	case xpathparser.Union:
		ln, lok := left.(NodeSet)
		rn, rok := right.(NodeSet)
		if !lok || !rok {
			return nil, fmt.Errorf("%w: union operands must be node-sets", ErrType)
		}
		merged := make([]Node, 0, len(ln)+len(rn))
		merged = append(merged, ln...)
		merged = append(merged, rn...)
		return NodeSet(SortDocumentOrder(merged)), nil
	}
	return nil, fmt.Errorf("unsupported operator %q", opText[b.Op])
}

func (ev *Evaluator) evalFilter(ctx *Context, primary Expr, preds []Expr) (Value, error) {
	v, err := ev.eval(ctx, primary)
	if err != nil || len(preds) == 0 {
		return v, err
	}
	nodes, ok := v.(NodeSet)
	if !ok {
		return nil, fmt.Errorf("%w: predicates applied to %s", ErrType, Format(primary))
	}
	result := []Node(nodes)
	for _, pred := range preds {
		result, err = ev.filter(ctx, result, pred)
		if err != nil {
			return nil, err
		}
	}
	return NodeSet(result), nil
}

func (ev *Evaluator) evalSteps(ctx *Context, input NodeSet, steps []*xpathparser.Step) (Value, error) {
	current := []Node(input)
	for _, step := range steps {
		var next []Node
		seen := map[Node]struct{}{}
		for _, n := range current {
			var candidates []Node
			for _, c := range axisNodes(n, step.Axis) {
				if matchesTest(c, step.Axis, step.NodeTest) {
					candidates = append(candidates, c)
				}
			}
			for _, pred := range step.Predicates {
				var err error
				candidates, err = ev.filter(ctx, candidates, pred)
				if err != nil {
					return nil, err
				}
			}
			for _, c := range candidates {
				if _, dup := seen[c]; !dup {
					seen[c] = struct{}{}
					next = append(next, c)
				}
			}
		}
		current = SortDocumentOrder(next)
	}
	if current == nil {
		current = []Node{}
	}
	return NodeSet(current), nil
}

// filter keeps the nodes for which pred holds. A numeric predicate selects
// by proximity position.
func (ev *Evaluator) filter(ctx *Context, nodes []Node, pred Expr) ([]Node, error) {
	var out []Node
	for i, n := range nodes {
		inner := &Context{Node: n, Position: i + 1, Size: len(nodes), Current: ctx.Current, ev: ev}
		v, err := ev.eval(inner, pred)
		if err != nil {
			return nil, err
		}
		keep := false
		if f, isNum := v.(float64); isNum {
			keep = f == float64(i+1)
		} else {
			keep = ToBoolean(v)
		}
		if keep {
			out = append(out, n)
		}
	}
	return out, nil
}

func (ev *Evaluator) call(ctx *Context, f *xpathparser.FuncCall) (Value, error) {
	fn, ok := ev.functions[f.Local]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, FuncName(f))
	}
	args := make([]Value, len(f.Args))
	for i, a := range f.Args {
		v, err := ev.eval(ctx, a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return fn(ctx, args)
}
