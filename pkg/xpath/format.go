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
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/xpathparser"
)

var axisNames = map[xpathparser.Axis]string{
	xpathparser.Child:            "child",
	xpathparser.Descendant:       "descendant",
	xpathparser.Parent:           "parent",
	xpathparser.Ancestor:         "ancestor",
	xpathparser.FollowingSibling: "following-sibling",
	xpathparser.PrecedingSibling: "preceding-sibling",
	xpathparser.Following:        "following",
	xpathparser.Preceding:        "preceding",
	xpathparser.Attribute:        "attribute",
	xpathparser.Namespace:        "namespace",
	xpathparser.Self:             "self",
	xpathparser.DescendantOrSelf: "descendant-or-self",
	xpathparser.AncestorOrSelf:   "ancestor-or-self",
}

var opText = map[xpathparser.Op]string{
	xpathparser.EQ:       "=",
	xpathparser.NEQ:      "!=",
	xpathparser.LT:       "<",
	xpathparser.LTE:      "<=",
	xpathparser.GT:       ">",
	xpathparser.GTE:      ">=",
	xpathparser.Add:      "+",
	xpathparser.Subtract: "-",
	xpathparser.Multiply: "*",
	xpathparser.Mod:      "mod",
	xpathparser.Div:      "div",
	xpathparser.And:      "and",
	xpathparser.Or:       "or",
	xpathparser.Union:    "|",
}

// binding strength of operators, loosest first
var opPrecedence = map[xpathparser.Op]int{
	xpathparser.Or:       1,
	xpathparser.And:      2,
	xpathparser.EQ:       3,
	xpathparser.NEQ:      3,
	xpathparser.LT:       4,
	xpathparser.LTE:      4,
	xpathparser.GT:       4,
	xpathparser.GTE:      4,
	xpathparser.Add:      5,
	xpathparser.Subtract: 5,
	xpathparser.Multiply: 6,
	xpathparser.Div:      6,
	xpathparser.Mod:      6,
	xpathparser.Union:    8,
}

const (
	negatePrecedence  = 7
	primaryPrecedence = 9
)

// AxisName returns the XPath name of an axis.
func AxisName(a xpathparser.Axis) string { return axisNames[a] }

// Format renders e back to XPath text. The rendering is stable, so it is
// used as a cache and dependency key. Grouping parentheses are emitted only
// where operator precedence needs them.
func Format(e Expr) string {
	var b strings.Builder
	writeExpr(&b, e)
	return b.String()
}

func precedence(e Expr) int {
	switch t := e.(type) {
	case *xpathparser.BinaryExpr:
		return opPrecedence[t.Op]
	case *xpathparser.NegateExpr:
		return negatePrecedence
	}
	return primaryPrecedence
}

func writeExpr(b *strings.Builder, e Expr) {
	switch t := e.(type) {
	case xpathparser.Number:
		b.WriteString(strconv.FormatFloat(float64(t), 'f', -1, 64))
	case xpathparser.String:
		b.WriteString(quote(string(t)))
	case *xpathparser.VarRef:
		b.WriteByte('$')
		if t.Prefix != "" {
			b.WriteString(t.Prefix + ":")
		}
		b.WriteString(t.Local)
	case *xpathparser.FuncCall:
		b.WriteString(FuncName(t) + "(")
		for i, a := range t.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, a)
		}
		b.WriteByte(')')
	case *xpathparser.NegateExpr:
		b.WriteByte('-')
		writeOperand(b, t.Expr, precedence(t.Expr) < negatePrecedence)
	case *xpathparser.BinaryExpr:
		p := opPrecedence[t.Op]
		writeOperand(b, t.LHS, precedence(t.LHS) < p)
		b.WriteString(" " + opText[t.Op] + " ")
		writeOperand(b, t.RHS, precedence(t.RHS) <= p)
	case *xpathparser.LocationPath:
		if t.Abs {
			b.WriteByte('/')
		}
		b.WriteString(JoinSteps(t.Steps))
	case *xpathparser.FilterExpr:
		writeFilterPrimary(b, t.Expr)
		writePredicates(b, t.Predicates)
	case *xpathparser.PathExpr:
		writeFilterPrimary(b, t.Filter)
		if t.LocationPath != nil && len(t.LocationPath.Steps) > 0 {
			b.WriteString("/" + JoinSteps(t.LocationPath.Steps))
		}
	}
}

func writeOperand(b *strings.Builder, e Expr, group bool) {
	if group {
		b.WriteByte('(')
		writeExpr(b, e)
		b.WriteByte(')')
		return
	}
	writeExpr(b, e)
}

// writeFilterPrimary groups everything that is not a primary expression on
// its own, such as the union in (a | b)[1].
func writeFilterPrimary(b *strings.Builder, e Expr) {
	switch e.(type) {
	case *xpathparser.FuncCall, *xpathparser.VarRef, xpathparser.Number, xpathparser.String, *xpathparser.FilterExpr:
		writeExpr(b, e)
	default:
		writeOperand(b, e, true)
	}
}

func writePredicates(b *strings.Builder, preds []Expr) {
	for _, p := range preds {
		b.WriteByte('[')
		writeExpr(b, p)
		b.WriteByte(']')
	}
}

// FormatNodeTest renders a step's node test.
func FormatNodeTest(test xpathparser.NodeTest) string {
	switch t := test.(type) {
	case *xpathparser.NameTest:
		if t.Prefix != "" {
			return t.Prefix + ":" + t.Local
		}
		return t.Local
	case xpathparser.NodeType:
		switch t {
		case xpathparser.Comment:
			return "comment()"
		case xpathparser.Text:
			return "text()"
		}
		return "node()"
	case xpathparser.PITest:
		if t != "" {
			return "processing-instruction(" + quote(string(t)) + ")"
		}
		return "processing-instruction()"
	}
	return ""
}

// FormatStep renders one location step using the abbreviated syntax where
// it exists. The "//" step renders as the empty string.
func FormatStep(s *xpathparser.Step) string {
	var b strings.Builder
	switch {
	case IsDescendantStep(s):
		return ""
	case IsSelfStep(s) && isNodeTypeTest(s.NodeTest):
		b.WriteString(".")
	case IsParentStep(s) && isNodeTypeTest(s.NodeTest):
		b.WriteString("..")
	case s.Axis == xpathparser.Attribute:
		b.WriteString("@" + FormatNodeTest(s.NodeTest))
	case s.Axis == xpathparser.Child:
		b.WriteString(FormatNodeTest(s.NodeTest))
	default:
		b.WriteString(AxisName(s.Axis) + "::" + FormatNodeTest(s.NodeTest))
	}
	writePredicates(&b, s.Predicates)
	return b.String()
}

func isNodeTypeTest(test xpathparser.NodeTest) bool {
	_, ok := test.(xpathparser.NodeType)
	return ok
}

// JoinSteps renders steps separated by "/", letting descendant steps render
// as the empty segment of "//".
func JoinSteps(steps []*xpathparser.Step) string {
	segs := make([]string, len(steps))
	for i, s := range steps {
		segs[i] = FormatStep(s)
	}
	out := strings.Join(segs, "/")
	if n := len(steps); n > 0 && IsDescendantStep(steps[n-1]) {
		out += "/"
	}
	return out
}

func quote(s string) string {
	if strings.Contains(s, "'") {
		return `"` + s + `"`
	}
	return "'" + s + "'"
}
