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
	"runtime"

	"github.com/santhosh-tekuri/xpathparser"
)

// Expr is a parsed expression as produced by xpathparser: one of
// *BinaryExpr, *NegateExpr, *LocationPath, *FilterExpr, *PathExpr,
// *FuncCall, *VarRef, Number or String from that package.
type Expr = xpathparser.Expr

// Parse parses an XPath 1.0 expression.
func Parse(expression string) (e Expr, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			e, err = nil, &SyntaxError{Expression: expression, Err: fmt.Errorf("%v", r)}
		}
	}()
	e, err = xpathparser.Parse(expression)
	if err != nil {
		return nil, &SyntaxError{Expression: expression, Err: err}
	}
	return e, nil
}

// MustParse is Parse for expressions known to be valid. It panics on error.
func MustParse(expression string) Expr {
	e, err := Parse(expression)
	if err != nil {
		panic(err)
	}
	return e
}

// FuncName returns the call's name as written.
func FuncName(f *xpathparser.FuncCall) string {
	if f.Prefix != "" {
		return f.Prefix + ":" + f.Local
	}
	return f.Local
}

// IsAnyNodeTest reports whether test is "*" or node(), the tests that make
// self:: and parent:: steps equivalent to "." and "..".
func IsAnyNodeTest(test xpathparser.NodeTest) bool {
	switch t := test.(type) {
	case xpathparser.NodeType:
		return t == xpathparser.Node
	case *xpathparser.NameTest:
		return t.Prefix == "" && t.Local == "*"
	}
	return false
}

// IsSelfStep reports whether s is ".", self::* or self::node() without
// predicates.
func IsSelfStep(s *xpathparser.Step) bool {
	return s.Axis == xpathparser.Self && len(s.Predicates) == 0 && IsAnyNodeTest(s.NodeTest)
}

// IsParentStep reports whether s is "..", parent::* or parent::node()
// without predicates.
func IsParentStep(s *xpathparser.Step) bool {
	return s.Axis == xpathparser.Parent && len(s.Predicates) == 0 && IsAnyNodeTest(s.NodeTest)
}

// IsDescendantStep reports whether s is the implicit step of "//".
func IsDescendantStep(s *xpathparser.Step) bool {
	if s.Axis != xpathparser.DescendantOrSelf || len(s.Predicates) != 0 {
		return false
	}
	t, ok := s.NodeTest.(xpathparser.NodeType)
	return ok && t == xpathparser.Node
}

// IsChildNameStep reports whether s selects child elements by a plain name
// test. Such steps are the only ones whose targets a path can name.
func IsChildNameStep(s *xpathparser.Step) bool {
	if s.Axis != xpathparser.Child {
		return false
	}
	_, ok := s.NodeTest.(*xpathparser.NameTest)
	return ok
}

// WithoutPredicates returns a shallow copy of s with predicates removed.
func WithoutPredicates(s *xpathparser.Step) *xpathparser.Step {
	c := *s
	c.Predicates = nil
	return &c
}

// IsReverseAxis reports whether the axis walks backwards in document order,
// which changes what position() means inside its predicates.
func IsReverseAxis(a xpathparser.Axis) bool {
	switch a {
	case xpathparser.Parent, xpathparser.Ancestor, xpathparser.AncestorOrSelf,
		xpathparser.PrecedingSibling, xpathparser.Preceding:
		return true
	}
	return false
}
