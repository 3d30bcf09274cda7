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

// Package runtime runs a form session over a graph.Model.
//
// An Instance owns an arena of runtime nodes mirroring the model's node
// definitions, with repeat ranges holding a variable number of instances.
// Derived state (relevant, readonly, required, constraint) is pulled and
// memoized: each memo stores the sum of the version counters of the
// node-sets its expression reads, and is recomputed when that sum moves.
// Writes bump the version of the written node-set and its ancestors.
//
// Calculations and jr:count are effects. After every write, repeat change
// or language switch the instance flushes them in topological order until
// a pass changes nothing. A calculation only runs while its node is
// attached and relevant, and always wins over a manual value once it runs.
//
// Reads of a non-relevant leaf return "" while the stored value is kept and
// reappears when the leaf becomes relevant again.
//
//	model, _ := graph.NewBuilder().BuildString(form)
//	in, _ := runtime.Instantiate(model, runtime.Options{})
//	a, _ := in.FindLeaf("/data/a")
//	_ = a.SetValue("1")
//	xml, _ := in.Serialize()
package runtime
