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

package runtime

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/getodk/web-forms-sub004/pkg/graph"
	"github.com/getodk/web-forms-sub004/pkg/xpath"
)

const (
	// wildcardKey is bumped by every change. Dependencies that cannot be
	// pinned to a single node-set are keyed on it.
	wildcardKey = "*"
	languageKey = "$language"
)

const (
	computeCount   graph.Computation = "count"
	computeLabel   graph.Computation = "label"
	computeItemset graph.Computation = "itemset"
	computeMessage graph.Computation = "message"
)

type cellKey struct {
	id          NodeID
	computation graph.Computation
}

func (in *Instance) bump(key string) { in.versions[key]++ }

// bumpPath bumps a node-set and every ancestor node-set, since the string
// value of an element covers its descendants.
func (in *Instance) bumpPath(nodeset string) {
	for p := nodeset; p != ""; p = parentPath(p) {
		in.bump(p)
	}
}

func (in *Instance) bumpValue(n *Node) {
	in.bumpPath(n.Nodeset())
	in.bump(wildcardKey)
}

// bumpStructure marks a range and everything its instances contain as
// changed.
func (in *Instance) bumpStructure(r *Node) {
	in.bumpPath(r.Nodeset())
	for _, nodeset := range in.rangeNodesets(r.def.(*graph.RepeatRangeDefinition)) {
		in.bump(nodeset)
	}
	in.bump(wildcardKey)
}

func (in *Instance) rangeNodesets(def *graph.RepeatRangeDefinition) []string {
	if cached, ok := in.templateNodesets[def.ID]; ok {
		return cached
	}
	nodesets := sets.New[string]()
	var visit func(id graph.DefinitionID)
	visit = func(id graph.DefinitionID) {
		d := in.model.Node(id)
		nodesets.Insert(d.Meta().Nodeset)
		if r, ok := d.(*graph.RepeatRangeDefinition); ok {
			visit(r.Template)
		}
		if p, ok := d.(graph.ParentDefinition); ok {
			for _, child := range p.ChildIDs() {
				visit(child)
			}
		}
	}
	visit(def.Template)
	out := sets.List(nodesets)
	in.templateNodesets[def.ID] = out
	return out
}

func parentPath(nodeset string) string {
	i := strings.LastIndexByte(nodeset, '/')
	if i <= 0 {
		return ""
	}
	return nodeset[:i]
}

// dependencyKey maps a dependency node-set to the version key that tracks
// it. References into secondary instances never change and have no key.
// Only absolute child-name paths are tracked precisely; anything reaching
// through an axis (siblings, ancestors, "//", "..") falls back to the
// wildcard, which every write and repeat change bumps.
func dependencyKey(dep string) (string, bool) {
	if strings.HasPrefix(dep, "instance(") {
		return "", false
	}
	if !strings.HasPrefix(dep, "/") || strings.ContainsAny(dep, "*@([") ||
		strings.Contains(dep, "//") || strings.Contains(dep, "..") || strings.Contains(dep, "::") {
		return wildcardKey, true
	}
	return dep, true
}

// closure returns the version keys of deps, plus the keys of every
// relevant expression that filters them.
func (in *Instance) closure(deps []string) []string {
	keys := sets.New[string]()
	seen := sets.New[string]()
	queue := slices.Clone(deps)
	for len(queue) > 0 {
		dep := queue[0]
		queue = queue[1:]
		if seen.Has(dep) {
			continue
		}
		seen.Insert(dep)

		key, ok := dependencyKey(dep)
		if !ok {
			continue
		}
		keys.Insert(key)
		if key == wildcardKey {
			continue
		}
		for p := key; p != ""; p = parentPath(p) {
			b, ok := in.model.Bind(p)
			if !ok || b.Relevant.IsDefault() {
				continue
			}
			queue = append(queue, b.Relevant.Expression.Dependencies...)
		}
	}
	return sets.List(keys)
}

// triggers returns the version keys whose change invalidates e.
func (in *Instance) triggers(e *graph.DependentExpression) []string {
	if cached, ok := in.triggerCache[e]; ok {
		return cached
	}
	keys := in.closure(e.Dependencies)
	if e.IsTranslated || e.UsesTranslations {
		keys = append(keys, languageKey)
	}
	in.triggerCache[e] = keys
	return keys
}

// effectTriggers extends the triggers of a calculate with the keys of the
// node it writes, so manual writes and relevance changes re-run it.
func (in *Instance) effectTriggers(e *graph.DependentExpression) []string {
	if cached, ok := in.effectCache[e]; ok {
		return cached
	}
	keys := sets.New(in.triggers(e)...)
	keys.Insert(in.closure([]string{e.Context})...)
	out := sets.List(keys)
	in.effectCache[e] = out
	return out
}

func (in *Instance) stamp(keys []string) uint64 {
	var s uint64
	for _, k := range keys {
		s += in.versions[k]
	}
	return s
}

// computeBool returns the memoized boolean value of e for n, evaluating it
// again only when one of its triggers moved.
func (in *Instance) computeBool(n *Node, c graph.Computation, m *memo[bool], e *graph.DependentExpression) (bool, error) {
	stamp := in.stamp(in.triggers(e))
	if m.valid && m.stamp == stamp {
		return m.value, nil
	}
	v, err := in.evaluate(n, c, e, in.contextNode(n))
	if err != nil {
		return false, err
	}
	*m = memo[bool]{stamp: stamp, valid: true, value: xpath.ToBoolean(v)}
	return m.value, nil
}

func (in *Instance) evaluateString(n *Node, c graph.Computation, e *graph.DependentExpression) (string, error) {
	v, err := in.evaluate(n, c, e, in.contextNode(n))
	if err != nil {
		return "", err
	}
	return xpath.ToString(v), nil
}

// evaluate runs e with ctx as context node. A computation that reads itself
// while being evaluated fails with ErrCycle.
func (in *Instance) evaluate(n *Node, c graph.Computation, e *graph.DependentExpression, ctx xpath.Node) (xpath.Value, error) {
	key := cellKey{id: n.id, computation: c}
	if _, busy := in.evaluating[key]; busy {
		return nil, &EvaluationError{Nodeset: n.Nodeset(), Computation: c, Expression: e.Expression, Err: ErrCycle}
	}
	in.evaluating[key] = struct{}{}
	defer delete(in.evaluating, key)

	v, err := in.ev.EvaluateExpr(e.Expr, ctx)
	if perr := in.takePendingErr(); err == nil {
		err = perr
	}
	if err != nil {
		var ee *EvaluationError
		if errors.As(err, &ee) {
			return nil, err
		}
		return nil, &EvaluationError{Nodeset: n.Nodeset(), Computation: c, Expression: e.Expression, Err: err}
	}
	return v, nil
}

// fail records an error raised where the xpath.Node interface cannot
// return one. The evaluation in progress reports it when it finishes.
func (in *Instance) fail(err error) {
	if in.pendingErr == nil {
		in.pendingErr = err
	}
}

func (in *Instance) takePendingErr() error {
	err := in.pendingErr
	in.pendingErr = nil
	return err
}

// isRelevant reports effective relevance: n and every ancestor must be
// relevant. A range has no bind of its own; its instances carry it.
func (in *Instance) isRelevant(n *Node) (bool, error) {
	if p := n.Parent(); p != nil {
		ok, err := in.isRelevant(p)
		if err != nil || !ok {
			return false, err
		}
	}
	if n.kind == graph.NodeKindRepeatRange {
		return true, nil
	}
	b := n.def.Meta().Bind
	if b == nil || b.Relevant.IsDefault() {
		return true, nil
	}
	return in.computeBool(n, graph.ComputeRelevant, &n.relevant, b.Relevant.Expression)
}

// isReadonly reports effective readonly: n or any ancestor is readonly.
func (in *Instance) isReadonly(n *Node) (bool, error) {
	if n.kind != graph.NodeKindRepeatRange {
		if b := n.def.Meta().Bind; b != nil && !b.Readonly.IsDefault() {
			ro, err := in.computeBool(n, graph.ComputeReadonly, &n.readonly, b.Readonly.Expression)
			if err != nil || ro {
				return ro, err
			}
		}
	}
	if p := n.Parent(); p != nil {
		return in.isReadonly(p)
	}
	return false, nil
}

func (in *Instance) isRequired(n *Node) (bool, error) {
	b := n.def.Meta().Bind
	if b == nil || b.Required.IsDefault() {
		return false, nil
	}
	return in.computeBool(n, graph.ComputeRequired, &n.required, b.Required.Expression)
}

// readValue returns the stored value of a leaf, or blank while it is not
// relevant.
func (in *Instance) readValue(n *Node) (string, error) {
	relevant, err := in.isRelevant(n)
	if err != nil || !relevant {
		return "", err
	}
	return n.value, nil
}

// settle flushes unless a batch is open.
func (in *Instance) settle() error {
	if in.batchDepth > 0 {
		return nil
	}
	return in.flush()
}

// flush runs count and calculate effects until nothing changes.
func (in *Instance) flush() error {
	if in.flushing {
		return nil
	}
	in.flushing = true
	start := time.Now()
	defer func() {
		in.flushing = false
		in.opts.Metrics.flushed(time.Since(start).Seconds())
	}()

	for pass := 1; pass <= in.opts.MaxEffectPasses; pass++ {
		counted, err := in.runCounts()
		if err != nil {
			return err
		}
		calculated, err := in.runCalculations()
		if err != nil {
			return err
		}
		if !counted && !calculated {
			in.log.V(2).Info("flushed effects", "passes", pass)
			return nil
		}
	}
	return fmt.Errorf("%w after %d passes", ErrCycle, in.opts.MaxEffectPasses)
}

func (in *Instance) runCalculations() (bool, error) {
	changed := false
	for _, nodeset := range in.model.TopologicalOrder() {
		b, ok := in.model.Bind(nodeset)
		if !ok || b.Calculate.IsDefault() {
			continue
		}
		for _, id := range slices.Clone(in.byNodeset[nodeset]) {
			n, ok := in.nodes[id]
			if !ok {
				continue
			}
			if _, ok := n.AsLeaf(); !ok {
				continue
			}
			wrote, err := in.runCalculation(n, b.Calculate.Expression)
			if err != nil {
				return changed, err
			}
			changed = changed || wrote
		}
	}
	return changed, nil
}

// runCalculation overwrites the value of n with its calculation while n is
// attached and relevant.
func (in *Instance) runCalculation(n *Node, e *graph.DependentExpression) (bool, error) {
	if !n.attached {
		return false, nil
	}
	relevant, err := in.isRelevant(n)
	if err != nil || !relevant {
		return false, err
	}
	keys := in.effectTriggers(e)
	stamp := in.stamp(keys)
	if n.calcRan && n.calcStamp == stamp {
		return false, nil
	}

	in.opts.Metrics.effectRun("calculate")
	value, err := in.evaluateString(n, graph.ComputeCalculate, e)
	if err != nil {
		return false, err
	}
	changed := value != n.value
	if changed {
		n.value = value
		in.bumpValue(n)
	}
	in.log.V(2).Info("ran calculation", "nodeset", n.Nodeset(), "value", value, "changed", changed)
	n.calcRan, n.calcStamp = true, in.stamp(keys)
	return changed, nil
}

func (in *Instance) runCounts() (bool, error) {
	var ranges []*Node
	in.walk(in.Root(), func(n *Node) {
		if r, ok := n.def.(*graph.RepeatRangeDefinition); ok && n.kind == graph.NodeKindRepeatRange && r.Count != nil {
			ranges = append(ranges, n)
		}
	})
	changed := false
	for _, r := range ranges {
		resized, err := in.runCount(r)
		if err != nil {
			return changed, err
		}
		changed = changed || resized
	}
	return changed, nil
}

// runCount resizes a jr:count range at its tail.
func (in *Instance) runCount(r *Node) (bool, error) {
	if !r.attached {
		return false, nil
	}
	relevant, err := in.isRelevant(r)
	if err != nil || !relevant {
		return false, err
	}
	e := r.def.(*graph.RepeatRangeDefinition).Count
	keys := in.triggers(e)
	stamp := in.stamp(keys)
	if r.countRan && r.countStamp == stamp {
		return false, nil
	}

	in.opts.Metrics.effectRun("count")
	v, err := in.evaluate(r, computeCount, e, in.contextNode(r))
	if err != nil {
		return false, err
	}
	want := instanceCount(xpath.ToNumber(v), in.opts.MaxRepeatInstances)
	have := len(r.children)
	switch {
	case want > have:
		if _, err := in.addInstances(r, have, want-have); err != nil {
			return false, err
		}
	case want < have:
		in.removeInstances(r, want, have-want)
	}
	r.countRan, r.countStamp = true, in.stamp(keys)
	return want != have, nil
}
