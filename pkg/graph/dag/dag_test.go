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

package dag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// build creates a graph from comma separated vertices and "dep->vertex"
// edges.
func build(t *testing.T, vertices, edges string) *DirectedAcyclicGraph[string] {
	t.Helper()
	d := NewDirectedAcyclicGraph[string]()
	for i, v := range strings.Split(vertices, ",") {
		require.NoError(t, d.AddVertex(v, i))
	}
	if edges == "" {
		return d
	}
	for _, edge := range strings.Split(edges, ",") {
		tokens := strings.SplitN(edge, "->", 2)
		require.NoError(t, d.AddDependencies(tokens[1], []string{tokens[0]}), "edge %q", edge)
	}
	return d
}

func TestAddVertex(t *testing.T) {
	d := NewDirectedAcyclicGraph[string]()
	require.NoError(t, d.AddVertex("/data/a", 0))
	assert.Error(t, d.AddVertex("/data/a", 1))
	assert.Len(t, d.Vertices, 1)
}

func TestAddDependencies(t *testing.T) {
	d := build(t, "/data/a,/data/b", "")

	assert.NoError(t, d.AddDependencies("/data/a", []string{"/data/b"}))
	assert.Error(t, d.AddDependencies("/data/a", []string{"/data/missing"}))
	assert.Error(t, d.AddDependencies("/data/missing", []string{"/data/a"}))
	assert.Error(t, d.AddDependencies("/data/a", []string{"/data/a"}))
}

func TestCycles(t *testing.T) {
	d := build(t, "/data/a,/data/b,/data/c", "/data/b->/data/a,/data/c->/data/b")

	cyclic, _ := d.hasCycle()
	assert.False(t, cyclic)

	err := d.AddDependencies("/data/c", []string{"/data/a"})
	require.Error(t, err)
	cycleErr := AsCycleError[string](err)
	require.NotNil(t, cycleErr)
	assert.Equal(t, cycleErr.Cycle[0], cycleErr.Cycle[len(cycleErr.Cycle)-1])
	assert.Contains(t, err.Error(), "/data/a")

	// The rejected edge is rolled back.
	_, stillThere := d.Vertices["/data/c"].DependsOn["/data/a"]
	assert.False(t, stillThere)
	_, err = d.TopologicalSort()
	require.NoError(t, err)

	// Force a cycle past the guard.
	d.Vertices["/data/c"].DependsOn["/data/a"] = struct{}{}
	cyclic, cycle := d.hasCycle()
	assert.True(t, cyclic)
	assert.Len(t, cycle, 4)

	_, err = d.TopologicalSort()
	require.Error(t, err)
	assert.NotNil(t, AsCycleError[string](err))
	assert.Nil(t, AsCycleError[int](err))
}

func TestTopologicalSort(t *testing.T) {
	tests := []struct {
		vertices string
		edges    string
		want     string
	}{
		{vertices: "A,B", want: "A,B"},
		{vertices: "A,B", edges: "A->B", want: "A,B"},
		{vertices: "A,B", edges: "B->A", want: "B,A"},
		{vertices: "A,B,C,D,E,F", want: "A,B,C,D,E,F"},
		{vertices: "A,B,C,D,E,F", edges: "D->C", want: "A,B,D,E,F,C"},
		{vertices: "A,B,C,D,E,F", edges: "F->A,F->B,B->A", want: "C,D,E,F,B,A"},
		{vertices: "A,B,C,D,E,F", edges: "B->A,C->A,D->B,D->C,F->E,A->E", want: "D,F,B,C,A,E"},
	}

	for _, tt := range tests {
		t.Run(tt.vertices+"|"+tt.edges, func(t *testing.T) {
			d := build(t, tt.vertices, tt.edges)
			order, err := d.TopologicalSort()
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.Join(order, ","))

			pos := make(map[string]int, len(order))
			for i, v := range order {
				pos[v] = i
			}
			for _, v := range order {
				for dep := range d.Vertices[v].DependsOn {
					assert.Less(t, pos[dep], pos[v], "%s must come after %s", v, dep)
				}
			}
		})
	}
}

func TestTopologicalSortLevels(t *testing.T) {
	tests := []struct {
		name     string
		vertices string
		edges    string
		want     [][]string
	}{
		{
			name:     "chain",
			vertices: "A,B,C",
			edges:    "A->B,B->C",
			want:     [][]string{{"A"}, {"B"}, {"C"}},
		},
		{
			name:     "fan in",
			vertices: "A,B,C",
			edges:    "A->C,B->C",
			want:     [][]string{{"A", "B"}, {"C"}},
		},
		{
			name:     "diamond",
			vertices: "A,B,C,D",
			edges:    "A->B,A->C,B->D,C->D",
			want:     [][]string{{"A"}, {"B", "C"}, {"D"}},
		},
		{
			name:     "independent",
			vertices: "A,B,C",
			want:     [][]string{{"A", "B", "C"}},
		},
		{
			name:     "order kept within a level",
			vertices: "Z,Y,X,W,V,U",
			edges:    "Z->U,Y->U,X->U",
			want:     [][]string{{"Z", "Y", "X", "W", "V"}, {"U"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := build(t, tt.vertices, tt.edges)
			levels, err := d.TopologicalSortLevels()
			require.NoError(t, err)
			assert.Equal(t, tt.want, levels)
		})
	}
}
