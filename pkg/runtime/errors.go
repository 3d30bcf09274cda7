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

	"github.com/getodk/web-forms-sub004/pkg/graph"
)

var (
	// ErrReadonlyWrite is returned when writing a node that is readonly,
	// itself or through an ancestor.
	ErrReadonlyWrite = errors.New("write to readonly node")
	// ErrControlledRange is returned when adding or removing instances of a
	// repeat whose size is set by jr:count or jr:noAddRemove.
	ErrControlledRange = errors.New("repeat range is controlled")
	// ErrReentrantWrite is returned for a write made while calculations are
	// being flushed.
	ErrReentrantWrite = errors.New("write during calculation flush")
	// ErrCycle is returned when calculations do not settle within
	// Options.MaxEffectPasses passes, or when a computation reads itself.
	ErrCycle = errors.New("calculations do not converge")
	// ErrRepeatLimit is returned when a repeat would exceed
	// Options.MaxRepeatInstances instances.
	ErrRepeatLimit = errors.New("too many repeat instances")
	// ErrIndexOutOfRange is returned for repeat positions outside the range.
	ErrIndexOutOfRange = errors.New("repeat index out of range")
	// ErrDetached is returned when using a node that has been removed.
	ErrDetached = errors.New("node is no longer attached")
	// ErrUnknownLanguage is returned when selecting a language the form has
	// no translation for.
	ErrUnknownLanguage = errors.New("unknown language")
	// ErrInstanceMismatch is returned by Edit when the instance document
	// does not match the form's primary instance.
	ErrInstanceMismatch = errors.New("instance does not match form")
)

// IllegalWriteError reports a rejected write to a readonly node.
type IllegalWriteError struct {
	Nodeset string
}

func (e *IllegalWriteError) Error() string {
	return fmt.Sprintf("%v: %s", ErrReadonlyWrite, e.Nodeset)
}

func (e *IllegalWriteError) Unwrap() error { return ErrReadonlyWrite }

// EvaluationError is a failed evaluation of a form expression. It is not
// recovered; callers present it as a form failure.
type EvaluationError struct {
	Nodeset     string
	Computation graph.Computation
	Expression  string
	Err         error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluating %s of %s (%q): %v", e.Computation, e.Nodeset, e.Expression, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// IsEvaluationError reports whether err (or any error in its chain) is an
// evaluation error.
func IsEvaluationError(err error) bool {
	var ee *EvaluationError
	return errors.As(err, &ee)
}
