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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getodk/web-forms-sub004/pkg/xmldom"
)

const evalDoc = `<data id="households">
  <name>Ada</name>
  <age>36</age>
  <empty/>
  <colors>red blue</colors>
  <person><first>Grace</first><score>3</score></person>
  <person><first>Alan</first><score>5</score></person>
  <person><first>Edsger</first><score>x</score></person>
</data>`

const listDoc = `<root>
  <item><value>a</value><label>Alpha</label></item>
  <item><value>b</value><label>Beta</label></item>
</root>`

func mustDOM(t *testing.T, src string) Node {
	t.Helper()
	el, err := xmldom.ParseString(src)
	require.NoError(t, err)
	return FromDOM(el)
}

func dataElement(t *testing.T, doc Node) Node {
	t.Helper()
	children := doc.Children()
	require.Len(t, children, 1)
	return children[0]
}

func TestEvaluateString(t *testing.T) {
	doc := mustDOM(t, evalDoc)
	list := mustDOM(t, listDoc)
	translations := map[string]string{"greeting": "Hello"}
	ev := NewEvaluator(
		WithInstance("list", list),
		WithTranslator(func(id string) (string, bool) {
			s, ok := translations[id]
			return s, ok
		}),
		WithClock(func() time.Time { return time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC) }),
	)
	data := dataElement(t, doc)

	tests := []struct {
		name string
		expr string
		want string
	}{
		{name: "absolute path", expr: "/data/name", want: "Ada"},
		{name: "relative path", expr: "age", want: "36"},
		{name: "attribute", expr: "/data/@id", want: "households"},
		{name: "arithmetic", expr: "/data/age * 2", want: "72"},
		{name: "decimal", expr: "1 div 4", want: "0.25"},
		{name: "blank to number is NaN", expr: "/data/empty * 2", want: "NaN"},
		{name: "division by zero", expr: "1 div 0", want: "Infinity"},
		{name: "negative zero", expr: "-0", want: "0"},
		{name: "concat", expr: "concat(name, ' is ', age)", want: "Ada is 36"},
		{name: "predicate by position", expr: "person[2]/first", want: "Alan"},
		{name: "predicate by value", expr: "person[score = 5]/first", want: "Alan"},
		{name: "last", expr: "person[last()]/first", want: "Edsger"},
		{name: "count", expr: "count(person)", want: "3"},
		{name: "sum with NaN", expr: "sum(person/score)", want: "NaN"},
		{name: "sum", expr: "sum(person[position() < 3]/score)", want: "8"},
		{name: "descendant", expr: "count(//first)", want: "3"},
		{name: "parent step", expr: "person[1]/first/../score", want: "3"},
		{name: "if", expr: "if(age > 18, 'adult', 'minor')", want: "adult"},
		{name: "selected", expr: "selected(colors, 'blue')", want: "true"},
		{name: "count-selected", expr: "count-selected(colors)", want: "2"},
		{name: "selected-at", expr: "selected-at(colors, 1)", want: "blue"},
		{name: "coalesce", expr: "coalesce(empty, name)", want: "Ada"},
		{name: "instance", expr: "instance('list')/root/item[value = 'b']/label", want: "Beta"},
		{name: "missing instance", expr: "count(instance('nope')/root/item)", want: "0"},
		{name: "itext", expr: "jr:itext('greeting')", want: "Hello"},
		{name: "itext missing", expr: "jr:itext('nope')", want: ""},
		{name: "substring", expr: "substring('12345', 1.5, 2.6)", want: "234"},
		{name: "substr", expr: "substr('12345', 1, 3)", want: "23"},
		{name: "translate", expr: "translate('--aaa--', 'abc-', 'ABC')", want: "AAA"},
		{name: "normalize-space", expr: "normalize-space('  a   b ')", want: "a b"},
		{name: "round half up", expr: "round(2.5)", want: "3"},
		{name: "round negative half", expr: "round(-2.5)", want: "-2"},
		{name: "int truncates", expr: "int(-3.7)", want: "-3"},
		{name: "pow", expr: "pow(2, 10)", want: "1024"},
		{name: "max over nodes", expr: "max(person[position() < 3]/score)", want: "5"},
		{name: "min with scalars", expr: "min(4, 2, 8)", want: "2"},
		{name: "join", expr: "join(', ', person/first)", want: "Grace, Alan, Edsger"},
		{name: "position of node", expr: "position(person[3])", want: "3"},
		{name: "today", expr: "today()", want: "2024-03-09"},
		{name: "boolean-from-string", expr: "boolean-from-string('1')", want: "true"},
		{name: "regex", expr: "regex(name, '^A')", want: "true"},
		{name: "count-non-empty", expr: "count-non-empty(*)", want: "6"},
		{name: "string-length", expr: "string-length(name)", want: "3"},
		{name: "current", expr: "current()/name", want: "Ada"},
		{name: "union order", expr: "concat((person[3] | person[1])/first, '')", want: "Grace"},
		{name: "local-name", expr: "local-name(person)", want: "person"},
		{name: "ends-with", expr: "ends-with(name, 'da')", want: "true"},
		{name: "following-sibling", expr: "name/following-sibling::age", want: "36"},
		{name: "preceding-sibling nearest first", expr: "person[3]/preceding-sibling::person[1]/first", want: "Alan"},
		{name: "ancestor", expr: "local-name(person[1]/first/ancestor::*[last()])", want: "data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.EvaluateString(tt.expr, data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateComparisons(t *testing.T) {
	doc := mustDOM(t, evalDoc)
	ev := NewEvaluator()
	data := dataElement(t, doc)

	tests := []struct {
		expr string
		want bool
	}{
		{expr: "person/score = 5", want: true},
		{expr: "person/score != 5", want: true},
		{expr: "person/score > 4", want: true},
		{expr: "person/score > 5", want: false},
		{expr: "person/first = 'Alan'", want: true},
		{expr: "person/nothing = ''", want: false},
		{expr: "person = true()", want: true},
		{expr: "missing = false()", want: true},
		{expr: "'1' = 1", want: true},
		{expr: "'abc' = 'abc'", want: true},
		{expr: "true() = 'x'", want: true},
		{expr: "'10' < '9'", want: false},
		{expr: "1 < 2 and 2 < 3", want: true},
		{expr: "1 > 2 or empty = ''", want: true},
		{expr: "not(empty)", want: false},
		{expr: "not(string(empty))", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ev.EvaluateBoolean(tt.expr, data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateNodes(t *testing.T) {
	doc := mustDOM(t, evalDoc)
	ev := NewEvaluator()
	data := dataElement(t, doc)

	nodes, err := ev.EvaluateNodes("person/first", data)
	require.NoError(t, err)
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.StringValue()
	}
	assert.Equal(t, []string{"Grace", "Alan", "Edsger"}, names)

	_, err = ev.EvaluateNodes("1 + 1", data)
	assert.ErrorIs(t, err, ErrType)

	el, ok := DOMElement(nodes[0])
	require.True(t, ok)
	assert.Equal(t, "first", el.Local)
}

func TestEvaluateErrors(t *testing.T) {
	ev := NewEvaluator()

	_, err := ev.EvaluateString("bogus(1)", nil)
	assert.ErrorIs(t, err, ErrUnknownFunction)

	_, err = ev.EvaluateString("concat('a', 'b'", nil)
	assert.ErrorIs(t, err, ErrSyntax)

	_, err = ev.EvaluateString("count(1)", nil)
	assert.ErrorIs(t, err, ErrType)

	_, err = ev.EvaluateString("true(1)", nil)
	assert.ErrorIs(t, err, ErrArgumentCount)

	_, err = ev.EvaluateString("1 | 2", nil)
	assert.ErrorIs(t, err, ErrType)
}

func TestEvaluateWithoutContext(t *testing.T) {
	ev := NewEvaluator()

	n, err := ev.EvaluateNumber("/data/a", nil)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(n))

	s, err := ev.EvaluateString("uuid()", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s, "uuid:"))
}

func TestNumberConversions(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{in: "1", want: 1},
		{in: " 2.5 ", want: 2.5},
		{in: "-3", want: -3},
		{in: ".5", want: 0.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseNumber(tt.in), tt.in)
	}
	for _, bad := range []string{"", "abc", "1e3", "+1", "1.2.3", "-", "Infinity", "0x10"} {
		assert.True(t, math.IsNaN(ParseNumber(bad)), bad)
	}

	assert.Equal(t, "NaN", FormatNumber(math.NaN()))
	assert.Equal(t, "2", FormatNumber(2))
	assert.Equal(t, "-0.5", FormatNumber(-0.5))
	assert.Equal(t, "1000000", FormatNumber(1e6))
}

func TestCompareDocumentOrder(t *testing.T) {
	doc := mustDOM(t, evalDoc)
	ev := NewEvaluator()
	data := dataElement(t, doc)

	people, err := ev.EvaluateNodes("person", data)
	require.NoError(t, err)
	attrs, err := ev.EvaluateNodes("@id", data)
	require.NoError(t, err)

	assert.Negative(t, CompareDocumentOrder(people[0], people[1]))
	assert.Positive(t, CompareDocumentOrder(people[2], people[0]))
	assert.Negative(t, CompareDocumentOrder(data, people[0]))
	assert.Negative(t, CompareDocumentOrder(attrs[0], people[0]))
	assert.Zero(t, CompareDocumentOrder(people[1], people[1]))
}
