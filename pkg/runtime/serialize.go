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
	"github.com/santhosh-tekuri/dom"

	"github.com/getodk/web-forms-sub004/pkg/graph"
	"github.com/getodk/web-forms-sub004/pkg/xmldom"
)

// Serialize renders the current instance as XML. Non-relevant nodes are
// written as empty elements. Only the root element keeps its attributes.
// Namespaces declared outside the instance, such as on the form's html
// element, are redeclared where the instance first uses them.
func (in *Instance) Serialize() (string, error) {
	el, err := in.serializeNode(in.Root())
	if err != nil {
		return "", err
	}
	return xmldom.Serialize(el), nil
}

func (in *Instance) serializeNode(n *Node) (*dom.Element, error) {
	el := newElement(n)
	if n.kind == graph.NodeKindRoot {
		el.Attrs = append(el.Attrs, in.model.Root().Attributes...)
	}

	relevant, err := in.isRelevant(n)
	if err != nil {
		return nil, err
	}
	if !relevant {
		return el, nil
	}
	if _, ok := n.AsLeaf(); ok {
		xmldom.SetText(el, n.value)
		return el, nil
	}
	for _, child := range n.Children() {
		if child.kind == graph.NodeKindRepeatRange {
			for _, instance := range child.Children() {
				c, err := in.serializeNode(instance)
				if err != nil {
					return nil, err
				}
				el.Append(c)
			}
			continue
		}
		c, err := in.serializeNode(child)
		if err != nil {
			return nil, err
		}
		el.Append(c)
	}
	return el, nil
}

func newElement(n *Node) *dom.Element {
	src := n.def.Meta().Element
	if src == nil {
		return xmldom.NewElement("", "", n.Name())
	}
	return xmldom.NewElement(src.URI, src.Prefix, src.Local)
}
