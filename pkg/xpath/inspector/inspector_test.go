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

package inspector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/getodk/web-forms-sub004/pkg/xpath"
)

func TestFindNodesetExpressions(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		opts       Options
		want       []string
	}{
		{
			name:       "single path",
			expression: "/data/a",
			opts:       DefaultOptions(),
			want:       []string{"/data/a"},
		},
		{
			name:       "arithmetic over paths",
			expression: "/data/a * 2 + ../b",
			opts:       DefaultOptions(),
			want:       []string{"/data/a", "../b"},
		},
		{
			name:       "function arguments are scanned",
			expression: "concat(name, ' ', count(/data/rep))",
			opts:       DefaultOptions(),
			want:       []string{"name", "/data/rep"},
		},
		{
			name:       "predicates are not scanned",
			expression: "/data/item[../flag = 'x']",
			opts:       DefaultOptions(),
			want:       []string{"/data/item[../flag = 'x']"},
		},
		{
			name:       "bare current and instance calls",
			expression: "current() = instance('x')",
			opts:       DefaultOptions(),
			want:       []string{"current()", "instance('x')"},
		},
		{
			name:       "function call continued by steps",
			expression: "instance('list')/root/item",
			opts:       DefaultOptions(),
			want:       []string{"instance('list')/root/item"},
		},
		{
			name:       "function call with predicate",
			expression: "some-fn(/data/a)[1]",
			opts:       DefaultOptions(),
			want:       []string{"some-fn(/data/a)[1]"},
		},
		{
			name:       "other functions are not node-sets",
			expression: "position() = 2",
			opts:       DefaultOptions(),
			want:       nil,
		},
		{
			name:       "union operands",
			expression: "a | b",
			opts:       DefaultOptions(),
			want:       []string{"a", "b"},
		},
		{
			name:       "null keyword ignored",
			expression: "if(null, /data/a, null)",
			opts:       DefaultOptions(),
			want:       []string{"/data/a"},
		},
		{
			name:       "null keyword kept",
			expression: "null",
			opts:       Options{},
			want:       []string{"null"},
		},
		{
			name:       "parenthesized path",
			expression: "(/data/a)",
			opts:       DefaultOptions(),
			want:       []string{"/data/a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found := FindNodesetExpressions(xpath.MustParse(tt.expression), tt.opts)
			var got []string
			for _, e := range found {
				got = append(got, xpath.Format(e))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsTranslationExpression(t *testing.T) {
	tests := []struct {
		expression string
		want       bool
	}{
		{expression: "jr:itext('label')", want: true},
		{expression: "itext('label')", want: true},
		{expression: "jr:itext(/data/key)", want: true},
		{expression: "jr:itext(concat('a', 'b'))", want: false},
		{expression: "concat(jr:itext('a'), 'b')", want: false},
		{expression: "jr:itext('a', 'b')", want: false},
		{expression: "'label'", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTranslationExpression(xpath.MustParse(tt.expression)))
		})
	}
}

func TestConstantClassifiers(t *testing.T) {
	tests := []struct {
		expression string
		constant   bool
		truthy     bool
	}{
		{expression: "true()", constant: true, truthy: true},
		{expression: "false()", constant: true, truthy: false},
		{expression: "1 = 1", constant: true, truthy: true},
		{expression: "'yes'", constant: true, truthy: true},
		{expression: "0", constant: true, truthy: false},
		{expression: "/data/a", constant: false, truthy: false},
		{expression: "not(/data/a)", constant: false, truthy: false},
		{expression: "string-length()", constant: false, truthy: false},
		{expression: "string-length('abc') > 1", constant: true, truthy: true},
		{expression: "today()", constant: false, truthy: false},
		{expression: "position() = 1", constant: false, truthy: false},
		{expression: "bogus()", constant: true, truthy: false},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			e := xpath.MustParse(tt.expression)
			assert.Equal(t, tt.constant, IsConstantExpression(e))
			assert.Equal(t, tt.truthy, IsConstantTruthyExpression(e))
		})
	}
}

func TestReferencesFunction(t *testing.T) {
	assert.True(t, ReferencesFunction(xpath.MustParse("concat(jr:itext('a'), /data/b)"), "itext"))
	assert.True(t, ReferencesFunction(xpath.MustParse("/data/item[label = jr:itext('x')]"), "itext"))
	assert.False(t, ReferencesFunction(xpath.MustParse("/data/a"), "itext"))
}
