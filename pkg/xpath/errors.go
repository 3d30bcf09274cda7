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

package xpath

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax is the root of every parse failure.
	ErrSyntax = errors.New("invalid xpath expression")
	// ErrUnknownFunction is returned when an expression calls a function
	// that is not in the evaluator's library.
	ErrUnknownFunction = errors.New("unknown function")
	// ErrArgumentCount is returned when a function gets the wrong arity.
	ErrArgumentCount = errors.New("wrong number of arguments")
	// ErrType is returned when a node-set is required but another value
	// type was produced.
	ErrType = errors.New("type error")
)

// SyntaxError wraps the parser's error for an expression.
type SyntaxError struct {
	Expression string
	Err        error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v: %q: %v", ErrSyntax, e.Expression, e.Err)
}

func (e *SyntaxError) Unwrap() []error { return []error{ErrSyntax, e.Err} }

// IsSyntaxError reports whether err was produced by the parser.
func IsSyntaxError(err error) bool {
	return errors.Is(err, ErrSyntax)
}

func functionErrorf(name string, sentinel error, format string, a ...any) error {
	return fmt.Errorf("%s(): %w: %s", name, sentinel, fmt.Sprintf(format, a...))
}
