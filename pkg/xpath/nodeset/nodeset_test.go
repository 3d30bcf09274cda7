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

package nodeset

import (
	"testing"

	"github.com/santhosh-tekuri/xpathparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getodk/web-forms-sub004/pkg/xpath"
)

func mustPath(t *testing.T, s string) Path {
	t.Helper()
	if s == "" {
		return nil
	}
	p, err := Parse(s)
	require.NoError(t, err)
	return p
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		context string
		target  string
		want    string
	}{
		{name: "child of context", context: "/data/grp", target: "./foo/bar", want: "/data/grp/foo/bar"},
		{name: "sibling of context", context: "/data/grp", target: "../quux", want: "/data/quux"},
		{name: "bare relative", context: "/data/grp", target: "foo", want: "/data/grp/foo"},
		{name: "no context", context: "", target: "foo/bar", want: "foo/bar"},
		{name: "no context keeps leading dot", context: "", target: "./foo", want: "./foo"},
		{name: "absolute target ignores context", context: "/data/grp", target: "/data/x", want: "/data/x"},
		{name: "absolute with parent steps", context: "", target: "/data/a/../b", want: "/data/b"},
		{name: "root parent cannot collapse", context: "", target: "/..", want: "/.."},
		{name: "self then parent becomes parent", context: "", target: "./..", want: ".."},
		{name: "parent of parent without context", context: "", target: "../..", want: "../.."},
		{name: "named head keeps parent", context: "", target: "foo/..", want: "foo/.."},
		{name: "current is context", context: "/data/foo", target: "current()", want: "/data/foo"},
		{name: "current child", context: "/data/foo", target: "current()/zag", want: "/data/foo/zag"},
		{name: "current parent", context: "/data/foo", target: "current()/../zag", want: "/data/zag"},
		{name: "current without context", context: "", target: "current()/zag", want: "current()/zag"},
		{name: "instance head is self contained", context: "/data/foo", target: "instance('x')/root/item", want: "instance('x')/root/item"},
		{name: "instance head parent", context: "", target: "instance('x')/..", want: "instance('x')/.."},
		{name: "descendant shorthand kept", context: "/data/foo", target: ".//a", want: "/data/foo//a"},
		{name: "trailing descendant shorthand remains", context: "", target: "/data//a/..", want: "/data//"},
		{name: "parent after shorthand step", context: "/data", target: ".//..", want: "/data//.."},
		{name: "explicit self axis", context: "/data/foo", target: "self::node()/bar", want: "/data/foo/bar"},
		{name: "explicit parent axis", context: "/data/foo", target: "parent::*/bar", want: "/data/bar"},
		{name: "sibling axis is a step", context: "/data/rep/q", target: "../preceding-sibling::rep", want: "/data/rep/preceding-sibling::rep"},
		{name: "named parent axis is a step", context: "/data/foo", target: "parent::data", want: "/data/foo/parent::data"},
		{name: "predicate keeps step", context: "/data/foo", target: "bar[1]", want: "/data/foo/bar[1]"},
		{name: "self with predicate is kept", context: "/data/foo", target: "self::node()[. = 1]", want: "/data/foo/self::node()[. = 1]"},
		{name: "context with parent steps", context: "/data/a/../b", target: "c", want: "/data/b/c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(mustPath(t, tt.context), mustPath(t, tt.target))
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	targets := []string{"./foo/bar", "../quux", "current()/../zag", "foo/..", "instance('x')/a", ".//a", "/.."}
	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			ctx := mustPath(t, "/data/grp")
			once := Resolve(ctx, mustPath(t, target))
			twice := Resolve(ctx, mustPath(t, once.String()))
			assert.Equal(t, once.String(), twice.String())
		})
	}
}

func TestResolvePredicate(t *testing.T) {
	outer := mustPath(t, "/data/sel")
	resolved := Resolve(outer, mustPath(t, "../item[value = current()/../filter][../flag = 'x']"))
	require.Equal(t, "/data/item[value = current()/../filter][../flag = 'x']", resolved.String())

	sites := resolved.Predicates()
	require.Len(t, sites, 2)
	assert.Equal(t, "/data/item", Serialize(sites[0].Prefix, true))

	var got []string
	for _, site := range sites {
		cmp, ok := site.Predicate.(*xpathparser.BinaryExpr)
		require.True(t, ok)
		for _, side := range []xpath.Expr{cmp.LHS, cmp.RHS} {
			p, ok := FromExpr(side)
			if !ok {
				continue
			}
			got = append(got, Serialize(ResolvePredicate(outer, site.Prefix, p), true))
		}
	}
	assert.Equal(t, []string{"/data/item/value", "/data/filter", "/data/flag"}, got)
}

func TestSerialize(t *testing.T) {
	tests := []struct {
		in       string
		stripped string
	}{
		{in: "/data/item[1]/name", stripped: "/data/item/name"},
		{in: "/", stripped: "/"},
		{in: "//a[@x]", stripped: "//a"},
		{in: "instance('x')[2]/item[value = 'a']", stripped: "instance('x')/item"},
		{in: "current()", stripped: "current()"},
		{in: "../a", stripped: "../a"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p := mustPath(t, tt.in)
			assert.Equal(t, tt.in, Serialize(p, false))
			assert.Equal(t, tt.stripped, Serialize(p, true))
		})
	}
}

func TestParse(t *testing.T) {
	_, err := Parse("1 + 1")
	assert.ErrorIs(t, err, ErrNotAPath)

	_, err = Parse("/data/[")
	assert.True(t, xpath.IsSyntaxError(err))

	p, err := Parse("instance('x')/a")
	require.NoError(t, err)
	call, ok := p.HeadCall()
	require.True(t, ok)
	assert.Equal(t, "instance", call.Local)
	assert.False(t, p.IsAbsolute())
}
