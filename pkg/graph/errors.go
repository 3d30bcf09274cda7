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
	"errors"
	"fmt"
)

var (
	// ErrMissingReference is returned when a bind, control or repeat lacks
	// its nodeset or ref attribute.
	ErrMissingReference = errors.New("missing reference")
	// ErrDuplicateReference is returned when two body elements claim the
	// same node-set.
	ErrDuplicateReference = errors.New("duplicate reference")
	// ErrMixedItems is returned for a select with both item and itemset
	// children.
	ErrMixedItems = errors.New("select has both items and an itemset")
	// ErrDuplicateSiblingName is returned when a non-repeat element has
	// several children with the same name.
	ErrDuplicateSiblingName = errors.New("duplicate sibling name")
	// ErrCalculationCycle is returned when calculations depend on each other
	// in a cycle.
	ErrCalculationCycle = errors.New("calculation cycle")
	// ErrNoPrimaryInstance is returned when the model has no instance with a
	// root element.
	ErrNoPrimaryInstance = errors.New("model has no primary instance")
)

// DefinitionError is a fatal problem with the form definition. Form load
// fails and nothing is partially built.
type DefinitionError struct {
	Stage string
	Err   error
}

func (e *DefinitionError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *DefinitionError) Unwrap() error { return e.Err }

// ExpressionError is an expression of the form that cannot be parsed or
// analysed.
type ExpressionError struct {
	Expression string
	Err        error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("expression %q: %v", e.Expression, e.Err)
}
func (e *ExpressionError) Unwrap() error { return e.Err }

// IsDefinitionError reports whether err (or any error in its chain) is a
// definition error.
func IsDefinitionError(err error) bool {
	var de *DefinitionError
	return errors.As(err, &de)
}

// IsExpressionError reports whether err (or any error in its chain) is an
// expression error.
func IsExpressionError(err error) bool {
	var ee *ExpressionError
	return errors.As(err, &ee)
}

func definition(stage string, err error) error { return &DefinitionError{Stage: stage, Err: err} }
func definitionf(stage, format string, a ...any) error {
	return definition(stage, fmt.Errorf(format, a...))
}
