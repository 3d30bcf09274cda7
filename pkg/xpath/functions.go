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
	"regexp"
	"strings"
	"unicode/utf8"

	"k8s.io/apimachinery/pkg/util/uuid"
)

// Function is a library function. Arguments are evaluated before the call.
type Function func(ctx *Context, args []Value) (Value, error)

func checkArity(name string, args []Value, lo, hi int) error {
	if len(args) < lo || (hi >= 0 && len(args) > hi) {
		switch {
		case hi < 0:
			return functionErrorf(name, ErrArgumentCount, "want at least %d, got %d", lo, len(args))
		case lo == hi:
			return functionErrorf(name, ErrArgumentCount, "want %d, got %d", lo, len(args))
		}
		return functionErrorf(name, ErrArgumentCount, "want %d to %d, got %d", lo, hi, len(args))
	}
	return nil
}

func nodeSetArg(name string, v Value) (NodeSet, error) {
	nodes, ok := v.(NodeSet)
	if !ok {
		return nil, functionErrorf(name, ErrType, "argument is not a node-set")
	}
	return nodes, nil
}

// contextOr returns args[0] when present, else a node-set holding the
// context node.
func contextOr(ctx *Context, args []Value) Value {
	if len(args) > 0 {
		return args[0]
	}
	if ctx.Node == nil {
		return NodeSet{}
	}
	return NodeSet{ctx.Node}
}

func fixed(name string, lo, hi int, fn func(ctx *Context, args []Value) (Value, error)) Function {
	return func(ctx *Context, args []Value) (Value, error) {
		if err := checkArity(name, args, lo, hi); err != nil {
			return nil, err
		}
		return fn(ctx, args)
	}
}

func stringFn(name string, fn func(s string) Value) Function {
	return fixed(name, 0, 1, func(ctx *Context, args []Value) (Value, error) {
		return fn(ToString(contextOr(ctx, args))), nil
	})
}

func mathFn(name string, fn func(float64) float64) Function {
	return fixed(name, 1, 1, func(_ *Context, args []Value) (Value, error) {
		return fn(ToNumber(args[0])), nil
	})
}

func defaultFunctions() map[string]Function {
	return map[string]Function{
		// XPath 1.0 node-set functions.
		"last": fixed("last", 0, 0, func(ctx *Context, _ []Value) (Value, error) {
			return float64(ctx.Size), nil
		}),
		"position": fixed("position", 0, 1, position),
		"count": fixed("count", 1, 1, func(_ *Context, args []Value) (Value, error) {
			nodes, err := nodeSetArg("count", args[0])
			return float64(len(nodes)), err
		}),
		"id": fixed("id", 1, 1, func(_ *Context, _ []Value) (Value, error) {
			return NodeSet{}, nil
		}),
		"local-name":    fixed("local-name", 0, 1, nameOf("local-name", Node.LocalName)),
		"name":          fixed("name", 0, 1, nameOf("name", Node.LocalName)),
		"namespace-uri": fixed("namespace-uri", 0, 1, nameOf("namespace-uri", Node.NamespaceURI)),

		// String functions.
		"string": fixed("string", 0, 1, func(ctx *Context, args []Value) (Value, error) {
			return ToString(contextOr(ctx, args)), nil
		}),
		"concat": fixed("concat", 0, -1, func(_ *Context, args []Value) (Value, error) {
			var b strings.Builder
			for _, a := range args {
				b.WriteString(ToString(a))
			}
			return b.String(), nil
		}),
		"starts-with": fixed("starts-with", 2, 2, func(_ *Context, args []Value) (Value, error) {
			return strings.HasPrefix(ToString(args[0]), ToString(args[1])), nil
		}),
		"ends-with": fixed("ends-with", 2, 2, func(_ *Context, args []Value) (Value, error) {
			return strings.HasSuffix(ToString(args[0]), ToString(args[1])), nil
		}),
		"contains": fixed("contains", 2, 2, func(_ *Context, args []Value) (Value, error) {
			return strings.Contains(ToString(args[0]), ToString(args[1])), nil
		}),
		"substring-before": fixed("substring-before", 2, 2, func(_ *Context, args []Value) (Value, error) {
			before, _, found := strings.Cut(ToString(args[0]), ToString(args[1]))
			if !found {
				return "", nil
			}
			return before, nil
		}),
		"substring-after": fixed("substring-after", 2, 2, func(_ *Context, args []Value) (Value, error) {
			_, after, _ := strings.Cut(ToString(args[0]), ToString(args[1]))
			return after, nil
		}),
		"substring": fixed("substring", 2, 3, substring),
		"substr":    fixed("substr", 2, 3, substr),
		"string-length": stringFn("string-length", func(s string) Value {
			return float64(utf8.RuneCountInString(s))
		}),
		"normalize-space": stringFn("normalize-space", func(s string) Value {
			return strings.Join(strings.Fields(s), " ")
		}),
		"translate": fixed("translate", 3, 3, translate),

		// Boolean functions.
		"boolean": fixed("boolean", 1, 1, func(_ *Context, args []Value) (Value, error) {
			return ToBoolean(args[0]), nil
		}),
		"not": fixed("not", 1, 1, func(_ *Context, args []Value) (Value, error) {
			return !ToBoolean(args[0]), nil
		}),
		"true": fixed("true", 0, 0, func(_ *Context, _ []Value) (Value, error) { return true, nil }),
		"false": fixed("false", 0, 0, func(_ *Context, _ []Value) (Value, error) {
			return false, nil
		}),
		"lang": fixed("lang", 1, 1, func(_ *Context, _ []Value) (Value, error) { return false, nil }),

		// Number functions.
		"number": fixed("number", 0, 1, func(ctx *Context, args []Value) (Value, error) {
			return ToNumber(contextOr(ctx, args)), nil
		}),
		"sum": fixed("sum", 1, 1, func(_ *Context, args []Value) (Value, error) {
			nodes, err := nodeSetArg("sum", args[0])
			if err != nil {
				return nil, err
			}
			total := 0.0
			for _, n := range nodes {
				total += ParseNumber(n.StringValue())
			}
			return total, nil
		}),
		"floor":   mathFn("floor", math.Floor),
		"ceiling": mathFn("ceiling", math.Ceil),
		"round":   mathFn("round", round),
		"abs":     mathFn("abs", math.Abs),
		"sqrt":    mathFn("sqrt", math.Sqrt),
		"exp":     mathFn("exp", math.Exp),
		"log":     mathFn("log", math.Log),
		"log10":   mathFn("log10", math.Log10),
		"int":     mathFn("int", math.Trunc),
		"pi": fixed("pi", 0, 0, func(_ *Context, _ []Value) (Value, error) {
			return math.Pi, nil
		}),
		"pow": fixed("pow", 2, 2, func(_ *Context, args []Value) (Value, error) {
			return math.Pow(ToNumber(args[0]), ToNumber(args[1])), nil
		}),
		"min": fixed("min", 1, -1, extremum(math.Min)),
		"max": fixed("max", 1, -1, extremum(math.Max)),

		// Form functions.
		"current": fixed("current", 0, 0, func(ctx *Context, _ []Value) (Value, error) {
			if ctx.Current == nil {
				return NodeSet{}, nil
			}
			return NodeSet{ctx.Current}, nil
		}),
		"instance": fixed("instance", 1, 1, instance),
		"if": fixed("if", 3, 3, func(_ *Context, args []Value) (Value, error) {
			if ToBoolean(args[0]) {
				return args[1], nil
			}
			return args[2], nil
		}),
		"coalesce": fixed("coalesce", 2, 2, func(_ *Context, args []Value) (Value, error) {
			if s := ToString(args[0]); s != "" {
				return s, nil
			}
			return ToString(args[1]), nil
		}),
		"once": fixed("once", 1, 1, func(ctx *Context, args []Value) (Value, error) {
			if ctx.Node != nil {
				if s := ctx.Node.StringValue(); s != "" {
					return s, nil
				}
			}
			return ToString(args[0]), nil
		}),
		"selected": fixed("selected", 2, 2, func(_ *Context, args []Value) (Value, error) {
			want := strings.TrimSpace(ToString(args[1]))
			for _, item := range strings.Fields(ToString(args[0])) {
				if item == want {
					return true, nil
				}
			}
			return false, nil
		}),
		"count-selected": fixed("count-selected", 1, 1, func(_ *Context, args []Value) (Value, error) {
			return float64(len(strings.Fields(ToString(args[0])))), nil
		}),
		"selected-at": fixed("selected-at", 2, 2, func(_ *Context, args []Value) (Value, error) {
			items := strings.Fields(ToString(args[0]))
			i := ToNumber(args[1])
			if math.IsNaN(i) || i < 0 || int(i) >= len(items) {
				return "", nil
			}
			return items[int(i)], nil
		}),
		"count-non-empty": fixed("count-non-empty", 1, 1, func(_ *Context, args []Value) (Value, error) {
			nodes, err := nodeSetArg("count-non-empty", args[0])
			if err != nil {
				return nil, err
			}
			n := 0
			for _, node := range nodes {
				if node.StringValue() != "" {
					n++
				}
			}
			return float64(n), nil
		}),
		"boolean-from-string": fixed("boolean-from-string", 1, 1, func(_ *Context, args []Value) (Value, error) {
			s := strings.TrimSpace(ToString(args[0]))
			return s == "true" || s == "1", nil
		}),
		"regex": fixed("regex", 2, 2, func(_ *Context, args []Value) (Value, error) {
			re, err := regexp.Compile(ToString(args[1]))
			if err != nil {
				return nil, fmt.Errorf("regex(): %w", err)
			}
			return re.MatchString(ToString(args[0])), nil
		}),
		"join": fixed("join", 1, -1, func(_ *Context, args []Value) (Value, error) {
			var parts []string
			for _, a := range args[1:] {
				if nodes, ok := a.(NodeSet); ok {
					for _, n := range nodes {
						parts = append(parts, n.StringValue())
					}
					continue
				}
				parts = append(parts, ToString(a))
			}
			return strings.Join(parts, ToString(args[0])), nil
		}),
		"itext": fixed("itext", 1, 1, func(ctx *Context, args []Value) (Value, error) {
			if ctx.ev.translator == nil {
				return "", nil
			}
			text, _ := ctx.ev.translator(ToString(args[0]))
			return text, nil
		}),
		"uuid": fixed("uuid", 0, 1, func(_ *Context, _ []Value) (Value, error) {
			return "uuid:" + string(uuid.NewUUID()), nil
		}),
		"today": fixed("today", 0, 0, func(ctx *Context, _ []Value) (Value, error) {
			return ctx.ev.now().Format("2006-01-02"), nil
		}),
		"now": fixed("now", 0, 0, func(ctx *Context, _ []Value) (Value, error) {
			return ctx.ev.now().Format("2006-01-02T15:04:05.000-07:00"), nil
		}),
	}
}

// position with an argument is the 1-based index of the node among its
// same-named siblings, which is how repeat instances are numbered.
func position(ctx *Context, args []Value) (Value, error) {
	if len(args) == 0 {
		return float64(ctx.Position), nil
	}
	nodes, err := nodeSetArg("position", args[0])
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return math.NaN(), nil
	}
	n := nodes[0]
	before, _ := siblings(n)
	pos := 1
	for _, s := range before {
		if s.Kind() == n.Kind() && s.LocalName() == n.LocalName() {
			pos++
		}
	}
	return float64(pos), nil
}

func nameOf(fname string, get func(Node) string) func(ctx *Context, args []Value) (Value, error) {
	return func(ctx *Context, args []Value) (Value, error) {
		nodes, err := nodeSetArg(fname, contextOr(ctx, args))
		if err != nil || len(nodes) == 0 {
			return "", err
		}
		return get(nodes[0]), nil
	}
}

func instance(ctx *Context, args []Value) (Value, error) {
	id := ToString(args[0])
	root, ok := ctx.ev.instances[id]
	if !ok {
		return NodeSet{}, nil
	}
	return NodeSet{root}, nil
}

// round rounds half up, toward positive infinity, as XPath requires.
func round(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	if f < 0 && f >= -0.5 {
		return math.Copysign(0, -1)
	}
	return math.Floor(f + 0.5)
}

func substring(_ *Context, args []Value) (Value, error) {
	runes := []rune(ToString(args[0]))
	start := round(ToNumber(args[1]))
	end := math.Inf(1)
	if len(args) == 3 {
		end = start + round(ToNumber(args[2]))
	}
	var b strings.Builder
	for i, r := range runes {
		p := float64(i + 1)
		if p >= start && p < end {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// substr is the zero-based substring with an exclusive end.
func substr(_ *Context, args []Value) (Value, error) {
	runes := []rune(ToString(args[0]))
	start := clampIndex(ToNumber(args[1]), len(runes))
	end := len(runes)
	if len(args) == 3 {
		end = clampIndex(ToNumber(args[2]), len(runes))
	}
	if start >= end {
		return "", nil
	}
	return string(runes[start:end]), nil
}

func clampIndex(f float64, n int) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f < 0:
		i := n + int(f)
		return max(i, 0)
	case int(f) > n:
		return n
	}
	return int(f)
}

func translate(_ *Context, args []Value) (Value, error) {
	from := []rune(ToString(args[1]))
	to := []rune(ToString(args[2]))
	mapping := map[rune]rune{}
	drop := map[rune]bool{}
	for i, r := range from {
		if _, seen := mapping[r]; seen || drop[r] {
			continue
		}
		if i < len(to) {
			mapping[r] = to[i]
		} else {
			drop[r] = true
		}
	}
	var b strings.Builder
	for _, r := range ToString(args[0]) {
		if drop[r] {
			continue
		}
		if m, ok := mapping[r]; ok {
			b.WriteRune(m)
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

// extremum folds numbers from node-set and scalar arguments; any NaN or an
// empty input yields NaN.
func extremum(pick func(a, b float64) float64) func(*Context, []Value) (Value, error) {
	return func(_ *Context, args []Value) (Value, error) {
		var nums []float64
		for _, a := range args {
			if nodes, ok := a.(NodeSet); ok {
				for _, n := range nodes {
					nums = append(nums, ParseNumber(n.StringValue()))
				}
				continue
			}
			nums = append(nums, ToNumber(a))
		}
		if len(nums) == 0 {
			return math.NaN(), nil
		}
		out := nums[0]
		for _, n := range nums[1:] {
			if math.IsNaN(n) {
				return math.NaN(), nil
			}
			out = pick(out, n)
		}
		return out, nil
	}
}
