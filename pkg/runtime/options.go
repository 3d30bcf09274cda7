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
	"time"

	"github.com/go-logr/logr"

	"github.com/getodk/web-forms-sub004/pkg/xpath"
)

const (
	// DefaultMaxRepeatInstances is the maximum number of instances a single
	// repeat range may hold. It guards against jr:count expressions that
	// evaluate to huge numbers.
	DefaultMaxRepeatInstances = 1000

	// DefaultMaxEffectPasses bounds the calculation flush loop.
	DefaultMaxEffectPasses = 100
)

// Options configures a form session.
type Options struct {
	Logger logr.Logger
	// Metrics records engine activity. Nil records nothing.
	Metrics *Metrics
	// XPathMetrics records expression parse and evaluation timings.
	XPathMetrics *xpath.Metrics

	MaxRepeatInstances int
	MaxEffectPasses    int

	// Language is the initial itext language; empty selects the form's
	// default translation.
	Language string
	// Clock is the time source of now() and today().
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger.GetSink() == nil {
		o.Logger = logr.Discard()
	}
	if o.MaxRepeatInstances <= 0 {
		o.MaxRepeatInstances = DefaultMaxRepeatInstances
	}
	if o.MaxEffectPasses <= 0 {
		o.MaxEffectPasses = DefaultMaxEffectPasses
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}
