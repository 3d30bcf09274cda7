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

package dependency

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/getodk/web-forms-sub004/pkg/xpath"
)

func TestResolveDependencyNodesets(t *testing.T) {
	tests := []struct {
		name       string
		context    string
		expression string
		opts       []Option
		want       []string
	}{
		{
			name:       "child of context",
			context:    "/data/grp",
			expression: "./foo/bar",
			want:       []string{"/data/grp/foo/bar"},
		},
		{
			name:       "sibling of context",
			context:    "/data/grp",
			expression: "../quux",
			want:       []string{"/data/quux"},
		},
		{
			name:       "no context leaves relative paths",
			expression: "foo/bar",
			want:       []string{"foo/bar"},
		},
		{
			name:       "current paths",
			context:    "/data/foo",
			expression: "current()/zag | current()/../zag",
			want:       []string{"/data/foo/zag", "/data/zag"},
		},
		{
			name:       "predicates collapse",
			context:    "/data/foo",
			expression: "bar[1] | bar[position() = 2]",
			want:       []string{"/data/foo/bar"},
		},
		{
			name:       "self references excluded",
			context:    "/data/foo",
			expression: ". | current() | ../foo",
			opts:       []Option{IgnoreReferenceToContextPath(true)},
			want:       []string{},
		},
		{
			name:       "self references kept",
			context:    "/data/foo",
			expression: ". | current() | ../foo",
			want:       []string{"/data/foo"},
		},
		{
			name:       "constraint reads its own value",
			context:    "/data/age",
			expression: ". > 0 and . < ../max",
			want:       []string{"/data/age", "/data/max"},
		},
		{
			name:       "itemset with current filter",
			context:    "/data/city",
			expression: "instance('cities')/root/item[country = current()/../country]",
			want: []string{
				"/data/country",
				"instance('cities')/root/item",
				"instance('cities')/root/item/country",
			},
		},
		{
			name:       "null keyword ignored",
			context:    "/data/a",
			expression: "if(null, 1, /data/b)",
			want:       []string{"/data/b"},
		},
		{
			name:       "null keyword resolved when enabled",
			context:    "/data/a",
			expression: "if(null, 1, /data/b)",
			opts:       []Option{IgnoreNullExpressions(false)},
			want:       []string{"/data/a/null", "/data/b"},
		},
		{
			name:       "function arguments",
			context:    "/data/a",
			expression: "concat(../b, count(/data/rep))",
			want:       []string{"/data/b", "/data/rep"},
		},
		{
			name:       "inferred node-set function head",
			context:    "/data/a",
			expression: "some-fn(../b)[1]",
			want:       []string{"/data/b", "some-fn(../b)"},
		},
		{
			name:       "translations have no node-set dependency",
			context:    "/data/a",
			expression: "jr:itext('label')",
			want:       []string{},
		},
		{
			name:       "descendant shorthand",
			context:    "/data/foo",
			expression: "count(//item)",
			want:       []string{"//item"},
		},
		{
			name:       "nested predicates",
			context:    "/data/x",
			expression: "/data/rep[item[. = current()/../y]]/v",
			want:       []string{"/data/rep/item", "/data/rep/v", "/data/y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDependencyNodesets(tt.context, tt.expression, tt.opts...)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveDistributesOverUnion(t *testing.T) {
	exprs := []string{
		"./a",
		"../b[. = current()/c]",
		"instance('x')/root/item",
		"count(/data/rep) + ../d",
		"current()",
	}
	const ctx = "/data/grp/q"

	for _, left := range exprs {
		for _, right := range exprs {
			t.Run(left+" | "+right, func(t *testing.T) {
				l, err := ResolveDependencyNodesets(ctx, left)
				require.NoError(t, err)
				r, err := ResolveDependencyNodesets(ctx, right)
				require.NoError(t, err)
				union, err := ResolveDependencyNodesets(ctx, left+" | "+right)
				require.NoError(t, err)

				want := sets.List(sets.New(l...).Insert(r...))
				assert.Equal(t, want, union)
			})
		}
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	exprs := []string{
		"./foo/bar",
		"../quux",
		"current()/zag | current()/../zag",
		"/data/item[../flag = 'x']/name",
		"instance('cities')/root/item[country = current()/../country]",
		"sum(../rep/n) div count(../rep)",
	}
	const ctx = "/data/foo"

	for _, e := range exprs {
		t.Run(e, func(t *testing.T) {
			once, err := ResolveDependencyNodesets(ctx, e)
			require.NoError(t, err)
			require.NotEmpty(t, once)

			twice, err := ResolveDependencyNodesets(ctx, strings.Join(once, " | "))
			require.NoError(t, err)
			assert.Equal(t, once, twice)
		})
	}
}

func TestResolveErrors(t *testing.T) {
	_, err := ResolveDependencyNodesets("/data/a", "concat(")
	assert.True(t, xpath.IsSyntaxError(err))

	_, err = ResolveDependencyNodesets("1 + 1", "a")
	assert.Error(t, err)
}
