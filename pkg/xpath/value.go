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
	"math"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/xpathparser"
)

// Value is the result of evaluating an expression: bool, float64, string or
// NodeSet.
type Value any

// NodeSet is an ordered, duplicate-free list of nodes.
type NodeSet []Node

// ResultType names the four XPath value types.
type ResultType int

const (
	BooleanResult ResultType = iota
	NumberResult
	StringResult
	NodesResult
)

func (t ResultType) String() string {
	switch t {
	case BooleanResult:
		return "boolean"
	case NumberResult:
		return "number"
	case StringResult:
		return "string"
	case NodesResult:
		return "nodes"
	default:
		return "unknown"
	}
}

// ToString converts v with the XPath string() rules.
func ToString(v Value) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return FormatNumber(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case NodeSet:
		if len(t) == 0 {
			return ""
		}
		return t[0].StringValue()
	}
	return ""
}

// ToNumber converts v with the XPath number() rules.
func ToNumber(v Value) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		return ParseNumber(t)
	case bool:
		if t {
			return 1
		}
		return 0
	case NodeSet:
		return ParseNumber(ToString(t))
	}
	return math.NaN()
}

// ToBoolean converts v with the XPath boolean() rules.
func ToBoolean(v Value) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	case NodeSet:
		return len(t) > 0
	}
	return false
}

// FormatNumber renders f the way XPath string() does: NaN, Infinity,
// integers without a fractional part, everything else in plain decimal.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseNumber accepts only the XPath Number grammar with an optional
// leading minus and surrounding whitespace. Anything else is NaN.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	body := strings.TrimPrefix(s, "-")
	if body == "" || body == "." {
		return math.NaN()
	}
	dot := false
	for i := 0; i < len(body); i++ {
		switch c := body[i]; {
		case c == '.':
			if dot {
				return math.NaN()
			}
			dot = true
		case c < '0' || c > '9':
			return math.NaN()
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// compare implements the XPath comparison rules for =, !=, <, <=, > and >=.
func compare(op xpathparser.Op, left, right Value) bool {
	ln, lIsNodes := left.(NodeSet)
	rn, rIsNodes := right.(NodeSet)

	switch {
	case lIsNodes && rIsNodes:
		for _, a := range ln {
			for _, b := range rn {
				if compareAtomic(op, a.StringValue(), b.StringValue()) {
					return true
				}
			}
		}
		return false
	case lIsNodes:
		return compareNodesWith(op, ln, right, false)
	case rIsNodes:
		return compareNodesWith(op, rn, left, true)
	}
	return compareAtomic(op, left, right)
}

func compareNodesWith(op xpathparser.Op, nodes NodeSet, other Value, swapped bool) bool {
	if b, ok := other.(bool); ok {
		l, r := len(nodes) > 0, b
		if swapped {
			l, r = r, l
		}
		return compareAtomic(op, l, r)
	}
	for _, n := range nodes {
		var item Value = n.StringValue()
		if _, isNum := other.(float64); isNum {
			item = ParseNumber(n.StringValue())
		}
		l, r := item, other
		if swapped {
			l, r = r, l
		}
		if compareAtomic(op, l, r) {
			return true
		}
	}
	return false
}

func compareAtomic(op xpathparser.Op, left, right Value) bool {
	if op == xpathparser.EQ || op == xpathparser.NEQ {
		var eq bool
		_, lb := left.(bool)
		_, rb := right.(bool)
		_, lf := left.(float64)
		_, rf := right.(float64)
		switch {
		case lb || rb:
			eq = ToBoolean(left) == ToBoolean(right)
		case lf || rf:
			eq = ToNumber(left) == ToNumber(right)
		default:
			eq = ToString(left) == ToString(right)
		}
		if op == xpathparser.EQ {
			return eq
		}
		return !eq
	}

	l, r := ToNumber(left), ToNumber(right)
	switch op {
	case xpathparser.LT:
		return l < r
	case xpathparser.LTE:
		return l <= r
	case xpathparser.GT:
		return l > r
	case xpathparser.GTE:
		return l >= r
	}
	return false
}
