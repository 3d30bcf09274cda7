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

// Package dependency computes the canonical node-sets an expression reads.
package dependency

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/getodk/web-forms-sub004/pkg/xpath"
	"github.com/getodk/web-forms-sub004/pkg/xpath/inspector"
	"github.com/getodk/web-forms-sub004/pkg/xpath/nodeset"
)

type options struct {
	ignoreContext bool
	ignoreNull    bool
}

// Option configures ResolveDependencyNodesets.
type Option func(*options)

// IgnoreReferenceToContextPath drops the entry equal to the context node-set.
// Computations that must not depend on their own node use it; constraints,
// which read their own value, do not.
func IgnoreReferenceToContextPath(ignore bool) Option {
	return func(o *options) { o.ignoreContext = ignore }
}

// IgnoreNullExpressions controls whether the bare path `null` is treated as
// "no reference". It is on by default.
func IgnoreNullExpressions(ignore bool) Option {
	return func(o *options) { o.ignoreNull = ignore }
}

// ResolveDependencyNodesets parses expression and returns the sorted,
// de-duplicated dependency keys it reads when evaluated for the node-set
// context. An empty context leaves relative references unresolved.
func ResolveDependencyNodesets(context, expression string, opts ...Option) ([]string, error) {
	e, err := xpath.Parse(expression)
	if err != nil {
		return nil, err
	}
	return ResolveExpr(context, e, opts...)
}

// ResolveExpr is ResolveDependencyNodesets for an already parsed expression.
func ResolveExpr(context string, e xpath.Expr, opts ...Option) ([]string, error) {
	o := options{ignoreNull: true}
	for _, opt := range opts {
		opt(&o)
	}

	var outer nodeset.Path
	if context != "" {
		p, err := nodeset.Parse(context)
		if err != nil {
			return nil, fmt.Errorf("context %q: %w", context, err)
		}
		outer = nodeset.Resolve(nil, p)
	}

	r := &resolver{
		outer: outer,
		opts:  o,
		found: sets.New[string](),
		seen:  sets.New[string](),
	}
	r.expression(e)

	if o.ignoreContext && outer != nil {
		r.found.Delete(nodeset.Serialize(outer, true))
	}
	return sets.List(r.found), nil
}

type resolver struct {
	outer nodeset.Path
	opts  options
	found sets.Set[string]
	// seen holds predicate sites already walked, keyed by prefix and
	// predicate text; a predicate path resolved against its prefix carries
	// that prefix's predicates again.
	seen sets.Set[string]
}

func (r *resolver) find(e xpath.Expr) []xpath.Expr {
	return inspector.FindNodesetExpressions(e, inspector.Options{IgnoreNullExpressions: r.opts.ignoreNull})
}

func (r *resolver) expression(e xpath.Expr) {
	for _, sub := range r.find(e) {
		target, ok := nodeset.FromExpr(sub)
		if !ok {
			continue
		}
		r.add(nodeset.Resolve(r.outer, target))
	}
}

// add records a resolved path, then walks its predicates and the arguments
// of its head call.
func (r *resolver) add(resolved nodeset.Path) {
	r.found.Insert(nodeset.Serialize(resolved, true))

	for _, site := range resolved.Predicates() {
		key := nodeset.Serialize(site.Prefix, false) + "[" + xpath.Format(site.Predicate) + "]"
		if r.seen.Has(key) {
			continue
		}
		r.seen.Insert(key)
		for _, sub := range r.find(site.Predicate) {
			target, ok := nodeset.FromExpr(sub)
			if !ok {
				continue
			}
			r.add(nodeset.ResolvePredicate(r.outer, site.Prefix, target))
		}
	}

	if call, ok := resolved.HeadCall(); ok {
		for _, arg := range call.Args {
			r.expression(arg)
		}
	}
}
