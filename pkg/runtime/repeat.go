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
	"fmt"
	"math"
	"slices"

	"github.com/getodk/web-forms-sub004/pkg/graph"
)

// addInstances stamps count instances from the range template and inserts
// them at position at. The splice is visible to expressions only once it
// is complete.
func (in *Instance) addInstances(r *Node, at, count int) ([]*Node, error) {
	if len(r.children)+count > in.opts.MaxRepeatInstances {
		return nil, fmt.Errorf("%w: %s would hold %d instances, limit is %d",
			ErrRepeatLimit, r.Nodeset(), len(r.children)+count, in.opts.MaxRepeatInstances)
	}
	def := r.def.(*graph.RepeatRangeDefinition)
	template := in.model.Node(def.Template)

	ids := make([]NodeID, 0, count)
	for range count {
		ids = append(ids, in.build(template, graph.NodeKindRepeatInstance, r.id, nil))
	}
	r.children = slices.Insert(r.children, at, ids...)
	in.bumpStructure(r)

	in.opts.Metrics.repeatChanged("add", count)
	in.log.V(1).Info("added repeat instances", "nodeset", r.Nodeset(), "at", at, "count", count, "instances", len(r.children))

	added := make([]*Node, 0, count)
	for _, id := range ids {
		added = append(added, in.nodes[id])
	}
	return added, nil
}

// removeInstances detaches count instances starting at start. Later
// instances shift down.
func (in *Instance) removeInstances(r *Node, start, count int) {
	removed := slices.Clone(r.children[start : start+count])
	r.children = slices.Delete(r.children, start, start+count)
	for _, id := range removed {
		in.detach(id)
	}
	in.bumpStructure(r)

	in.opts.Metrics.repeatChanged("remove", count)
	in.log.V(1).Info("removed repeat instances", "nodeset", r.Nodeset(), "start", start, "count", count, "instances", len(r.children))
}

// instanceCount converts a jr:count result to a range size. NaN and
// negative counts mean no instances; fractions are truncated.
func instanceCount(f float64, limit int) int {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= float64(limit) {
		return limit
	}
	return int(math.Floor(f))
}
