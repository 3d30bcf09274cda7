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

// Package inspector finds the node-set producing parts of an expression and
// classifies whole expressions.
package inspector

import (
	"github.com/santhosh-tekuri/xpathparser"

	"github.com/getodk/web-forms-sub004/pkg/xpath"
)

// Options controls FindNodesetExpressions.
type Options struct {
	// IgnoreNullExpressions drops the bare path `null`, a legacy keyword
	// meaning "no reference".
	IgnoreNullExpressions bool
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{IgnoreNullExpressions: true}
}

// nodesetFunctions always return node-sets even when called bare.
var nodesetFunctions = map[string]bool{
	"current":  true,
	"instance": true,
}

// IsNodesetExpression reports whether e produces a node-set by its shape:
// a location path, a filter continued by steps or predicates, or a bare call
// to current() or instance().
func IsNodesetExpression(e xpath.Expr) bool {
	switch t := e.(type) {
	case *xpathparser.LocationPath, *xpathparser.PathExpr, *xpathparser.FilterExpr:
		return true
	case *xpathparser.FuncCall:
		return nodesetFunctions[t.Local]
	}
	return false
}

// IsCurrentCall reports whether e is a call to current().
func IsCurrentCall(e xpath.Expr) bool {
	call, ok := e.(*xpathparser.FuncCall)
	return ok && call.Local == "current" && len(call.Args) == 0
}

// IsNullExpression reports whether e is the bare relative path `null`.
func IsNullExpression(e xpath.Expr) bool {
	lp, ok := e.(*xpathparser.LocationPath)
	if !ok || lp.Abs || len(lp.Steps) != 1 {
		return false
	}
	step := lp.Steps[0]
	if step.Axis != xpathparser.Child || len(step.Predicates) != 0 {
		return false
	}
	name, ok := step.NodeTest.(*xpathparser.NameTest)
	return ok && name.Prefix == "" && name.Local == "null"
}

// FindNodesetExpressions returns the top-level node-set sub-expressions of e
// in source order. The search stops at each match: predicates and steps of a
// match are not scanned, so their own paths are not reported here.
func FindNodesetExpressions(e xpath.Expr, opts Options) []xpath.Expr {
	var out []xpath.Expr
	var walk func(xpath.Expr)
	walk = func(e xpath.Expr) {
		if IsNodesetExpression(e) {
			if opts.IgnoreNullExpressions && IsNullExpression(e) {
				return
			}
			out = append(out, e)
			return
		}
		switch t := e.(type) {
		case *xpathparser.BinaryExpr:
			walk(t.LHS)
			walk(t.RHS)
		case *xpathparser.NegateExpr:
			walk(t.Expr)
		case *xpathparser.FuncCall:
			for _, a := range t.Args {
				walk(a)
			}
		}
	}
	walk(e)
	return out
}

// Walk visits every node of e depth first, predicates and step contents
// included. Returning false stops descent below the visited node.
func Walk(e xpath.Expr, fn func(xpath.Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	walkSteps := func(steps []*xpathparser.Step) {
		for _, s := range steps {
			for _, p := range s.Predicates {
				Walk(p, fn)
			}
		}
	}
	switch t := e.(type) {
	case *xpathparser.BinaryExpr:
		Walk(t.LHS, fn)
		Walk(t.RHS, fn)
	case *xpathparser.NegateExpr:
		Walk(t.Expr, fn)
	case *xpathparser.FuncCall:
		for _, a := range t.Args {
			Walk(a, fn)
		}
	case *xpathparser.FilterExpr:
		Walk(t.Expr, fn)
		for _, p := range t.Predicates {
			Walk(p, fn)
		}
	case *xpathparser.PathExpr:
		Walk(t.Filter, fn)
		if t.LocationPath != nil {
			walkSteps(t.LocationPath.Steps)
		}
	case *xpathparser.LocationPath:
		walkSteps(t.Steps)
	}
}

// ReferencesFunction reports whether e calls the function local anywhere.
func ReferencesFunction(e xpath.Expr, local string) bool {
	found := false
	Walk(e, func(n xpath.Expr) bool {
		if call, ok := n.(*xpathparser.FuncCall); ok && call.Local == local {
			found = true
		}
		return !found
	})
	return found
}

// IsTranslationExpression reports whether e is exactly one call to itext
// (any prefix) with a single string literal or path argument.
func IsTranslationExpression(e xpath.Expr) bool {
	call, ok := e.(*xpathparser.FuncCall)
	if !ok || call.Local != "itext" || len(call.Args) != 1 {
		return false
	}
	switch call.Args[0].(type) {
	case xpathparser.String, *xpathparser.LocationPath, *xpathparser.PathExpr, *xpathparser.FilterExpr:
		return true
	}
	return false
}

// contextFunctions read the evaluation context, the clock or randomness.
var contextFunctions = map[string]bool{
	"current":  true,
	"instance": true,
	"position": true,
	"last":     true,
	"itext":    true,
	"once":     true,
	"now":      true,
	"today":    true,
	"uuid":     true,
	"random":   true,
}

// argumentless calls of these read the context node.
var contextDefaultFunctions = map[string]bool{
	"string":          true,
	"number":          true,
	"string-length":   true,
	"normalize-space": true,
	"local-name":      true,
	"name":            true,
	"namespace-uri":   true,
}

// IsConstantExpression reports whether e evaluates to the same value in any
// context: no paths, no variables and no context-reading functions.
func IsConstantExpression(e xpath.Expr) bool {
	constant := true
	Walk(e, func(n xpath.Expr) bool {
		switch t := n.(type) {
		case *xpathparser.LocationPath, *xpathparser.PathExpr, *xpathparser.FilterExpr, *xpathparser.VarRef:
			constant = false
		case *xpathparser.FuncCall:
			if contextFunctions[t.Local] || (len(t.Args) == 0 && contextDefaultFunctions[t.Local]) {
				constant = false
			}
		}
		return constant
	})
	return constant
}

// IsConstantTruthyExpression reports whether e is constant and evaluates to
// true. Constant expressions that fail to evaluate are not truthy.
func IsConstantTruthyExpression(e xpath.Expr) bool {
	if !IsConstantExpression(e) {
		return false
	}
	v, err := xpath.NewEvaluator().EvaluateExpr(e, nil)
	if err != nil {
		return false
	}
	return xpath.ToBoolean(v)
}
