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

package graph

import (
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/getodk/web-forms-sub004/pkg/graph/dependency"
	"github.com/getodk/web-forms-sub004/pkg/xpath"
	"github.com/getodk/web-forms-sub004/pkg/xpath/inspector"
)

// DependencyContext is the owner of a group of expressions: a bind, a body
// element or a label. Expressions register with their owner so the owner can
// report the union of their dependencies and whether any is translated.
type DependencyContext struct {
	// Reference is the canonical node-set expressions are evaluated against.
	// Empty means no context.
	Reference string

	expressions []*DependentExpression
	translated  bool
}

func newDependencyContext(reference string) DependencyContext {
	return DependencyContext{Reference: reference}
}

func (c *DependencyContext) register(e *DependentExpression) {
	c.expressions = append(c.expressions, e)
	if e.IsTranslated || e.UsesTranslations {
		c.translated = true
	}
}

// Expressions returns the registered expressions in registration order.
func (c *DependencyContext) Expressions() []*DependentExpression { return c.expressions }

// IsTranslated reports whether any registered expression reads translated
// text.
func (c *DependencyContext) IsTranslated() bool { return c.translated }

// DependencyExpressions returns the sorted union of the registered
// expressions' dependencies.
func (c *DependencyContext) DependencyExpressions() []string {
	deps := sets.New[string]()
	for _, e := range c.expressions {
		deps.Insert(e.Dependencies...)
	}
	return sets.List(deps)
}

// DependentExpression is an expression of the form together with the
// node-sets it reads. It is built once and never recomputed.
type DependentExpression struct {
	// Context is the node-set the expression is evaluated for.
	Context    string
	ResultType xpath.ResultType
	Expression string
	Expr       xpath.Expr

	Dependencies []string
	// IsTranslated is set for a single jr:itext() call; its value changes
	// with the active language.
	IsTranslated bool
	// UsesTranslations is set when itext() appears anywhere in the
	// expression.
	UsesTranslations bool
	IsConstant       bool
	IsConstantTruthy bool
}

type expressionOptions struct {
	ignoreContextReference bool
	ignoreNull             bool
}

// ExpressionOption configures NewDependentExpression.
type ExpressionOption func(*expressionOptions)

// IgnoreContextReference excludes the context node-set from the
// dependencies.
func IgnoreContextReference() ExpressionOption {
	return func(o *expressionOptions) { o.ignoreContextReference = true }
}

// KeepNullReferences resolves the bare path `null` like any other path.
func KeepNullReferences() ExpressionOption {
	return func(o *expressionOptions) { o.ignoreNull = false }
}

// NewDependentExpression parses expression, computes its dependencies
// relative to the owner's reference and registers it with owner.
func NewDependentExpression(owner *DependencyContext, resultType xpath.ResultType, expression string, opts ...ExpressionOption) (*DependentExpression, error) {
	o := expressionOptions{ignoreNull: true}
	for _, opt := range opts {
		opt(&o)
	}

	e, err := xpath.Parse(expression)
	if err != nil {
		return nil, &ExpressionError{Expression: expression, Err: err}
	}
	deps, err := dependency.ResolveExpr(owner.Reference, e,
		dependency.IgnoreReferenceToContextPath(o.ignoreContextReference),
		dependency.IgnoreNullExpressions(o.ignoreNull),
	)
	if err != nil {
		return nil, &ExpressionError{Expression: expression, Err: err}
	}

	de := &DependentExpression{
		Context:          owner.Reference,
		ResultType:       resultType,
		Expression:       expression,
		Expr:             e,
		Dependencies:     deps,
		IsTranslated:     inspector.IsTranslationExpression(e),
		UsesTranslations: inspector.ReferencesFunction(e, "itext"),
		IsConstant:       inspector.IsConstantExpression(e),
		IsConstantTruthy: inspector.IsConstantTruthyExpression(e),
	}
	owner.register(de)
	return de, nil
}
