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

// Package dag implements the directed acyclic graph used to order
// calculations and reject calculation cycles.
package dag

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Vertex is a node of the graph. Order is the insertion order used to break
// ties between vertices that are otherwise unordered.
type Vertex[T cmp.Ordered] struct {
	ID    T
	Order int
	// DependsOn holds the IDs this vertex must come after.
	DependsOn map[T]struct{}
}

// DirectedAcyclicGraph is a graph that refuses edges which would close a
// cycle.
type DirectedAcyclicGraph[T cmp.Ordered] struct {
	Vertices map[T]*Vertex[T]
}

func NewDirectedAcyclicGraph[T cmp.Ordered]() *DirectedAcyclicGraph[T] {
	return &DirectedAcyclicGraph[T]{Vertices: make(map[T]*Vertex[T])}
}

// CycleError reports a dependency cycle. Cycle lists the vertices in edge
// order and repeats the first vertex at the end.
type CycleError[T cmp.Ordered] struct {
	Cycle []T
}

func (e *CycleError[T]) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, v := range e.Cycle {
		parts[i] = fmt.Sprint(v)
	}
	return "graph contains a cycle: " + strings.Join(parts, " -> ")
}

// AsCycleError returns the CycleError in err's chain, or nil.
func AsCycleError[T cmp.Ordered](err error) *CycleError[T] {
	var ce *CycleError[T]
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}

// AddVertex adds a vertex with the given order. IDs must be unique.
func (d *DirectedAcyclicGraph[T]) AddVertex(id T, order int) error {
	if _, exists := d.Vertices[id]; exists {
		return fmt.Errorf("vertex %v already exists", id)
	}
	d.Vertices[id] = &Vertex[T]{
		ID:        id,
		Order:     order,
		DependsOn: make(map[T]struct{}),
	}
	return nil
}

// AddDependencies records that id depends on each of deps. The call fails,
// leaving the graph unchanged, when a vertex is missing, when id depends on
// itself, or when an edge would close a cycle.
func (d *DirectedAcyclicGraph[T]) AddDependencies(id T, deps []T) error {
	v, ok := d.Vertices[id]
	if !ok {
		return fmt.Errorf("vertex %v not found", id)
	}
	for _, dep := range deps {
		if dep == id {
			return fmt.Errorf("vertex %v cannot depend on itself", id)
		}
		if _, ok := d.Vertices[dep]; !ok {
			return fmt.Errorf("dependency %v of vertex %v not found", dep, id)
		}
	}

	var added []T
	for _, dep := range deps {
		if _, exists := v.DependsOn[dep]; exists {
			continue
		}
		v.DependsOn[dep] = struct{}{}
		added = append(added, dep)
	}
	if cyclic, cycle := d.hasCycle(); cyclic {
		for _, dep := range added {
			delete(v.DependsOn, dep)
		}
		return &CycleError[T]{Cycle: cycle}
	}
	return nil
}

// sortedIDs returns vertex IDs by Order, then by ID.
func (d *DirectedAcyclicGraph[T]) sortedIDs() []T {
	ids := make([]T, 0, len(d.Vertices))
	for id := range d.Vertices {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b T) int {
		if c := cmp.Compare(d.Vertices[a].Order, d.Vertices[b].Order); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return ids
}

// hasCycle runs a depth first search over DependsOn edges and returns the
// first cycle found.
func (d *DirectedAcyclicGraph[T]) hasCycle() (bool, []T) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[T]int, len(d.Vertices))
	var stack []T

	var visit func(id T) []T
	visit = func(id T) []T {
		state[id] = visiting
		stack = append(stack, id)
		deps := make([]T, 0, len(d.Vertices[id].DependsOn))
		for dep := range d.Vertices[id].DependsOn {
			deps = append(deps, dep)
		}
		slices.Sort(deps)
		for _, dep := range deps {
			switch state[dep] {
			case visiting:
				start := slices.Index(stack, dep)
				cycle := slices.Clone(stack[start:])
				return append(cycle, dep)
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, id := range d.sortedIDs() {
		if state[id] != unvisited {
			continue
		}
		if cycle := visit(id); cycle != nil {
			return true, cycle
		}
	}
	return false, nil
}

// TopologicalSortLevels groups vertices into levels: every vertex of a level
// depends only on vertices of earlier levels. Within a level vertices keep
// their Order.
func (d *DirectedAcyclicGraph[T]) TopologicalSortLevels() ([][]T, error) {
	if cyclic, cycle := d.hasCycle(); cyclic {
		return nil, &CycleError[T]{Cycle: cycle}
	}

	pending := make(map[T]int, len(d.Vertices))
	dependents := make(map[T][]T, len(d.Vertices))
	for id, v := range d.Vertices {
		pending[id] = len(v.DependsOn)
		for dep := range v.DependsOn {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var current []T
	for _, id := range d.sortedIDs() {
		if pending[id] == 0 {
			current = append(current, id)
		}
	}

	var levels [][]T
	for len(current) > 0 {
		levels = append(levels, current)
		var next []T
		for _, id := range current {
			for _, dependent := range dependents[id] {
				pending[dependent]--
				if pending[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		slices.SortFunc(next, func(a, b T) int {
			if c := cmp.Compare(d.Vertices[a].Order, d.Vertices[b].Order); c != 0 {
				return c
			}
			return cmp.Compare(a, b)
		})
		current = next
	}
	return levels, nil
}

// TopologicalSort returns every vertex after all of its dependencies.
func (d *DirectedAcyclicGraph[T]) TopologicalSort() ([]T, error) {
	levels, err := d.TopologicalSortLevels()
	if err != nil {
		return nil, err
	}
	order := make([]T, 0, len(d.Vertices))
	for _, level := range levels {
		order = append(order, level...)
	}
	return order, nil
}
