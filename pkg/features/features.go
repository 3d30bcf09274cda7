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

package features

import (
	"k8s.io/component-base/featuregate"
)

const (
	// CalculationCycleDetection makes form load fail when calculate
	// expressions depend on each other in a cycle. Without it a cyclic form
	// loads and the runtime stops after a bounded number of effect passes.
	CalculationCycleDetection featuregate.Feature = "CalculationCycleDetection"

	// NullReferenceKeyword treats the bare path `null` in expressions as "no
	// reference" when computing dependencies, as older forms expect.
	NullReferenceKeyword featuregate.Feature = "NullReferenceKeyword"
)

// defaultFormFeatureGates consists of all known feature keys.
// To add a new feature, define a Feature constant above and add it here with
// its default state and maturity stage (Alpha, Beta, or GA).
var defaultFormFeatureGates = map[featuregate.Feature]featuregate.FeatureSpec{
	CalculationCycleDetection: {Default: true, PreRelease: featuregate.Beta},
	NullReferenceKeyword:      {Default: true, PreRelease: featuregate.GA},
}

// FeatureGate is the shared MutableFeatureGate. It is populated at init time
// and can be configured with the --feature-gates flag of the xform binary.
// Libraries take a featuregate.FeatureGate through their options and fall
// back to this one.
var FeatureGate featuregate.MutableFeatureGate = featuregate.NewFeatureGate()

func init() {
	if err := FeatureGate.Add(defaultFormFeatureGates); err != nil {
		panic(err)
	}
}
