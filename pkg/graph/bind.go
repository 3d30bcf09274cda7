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
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/dom"
	"github.com/santhosh-tekuri/xpathparser"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/getodk/web-forms-sub004/pkg/xmldom"
	"github.com/getodk/web-forms-sub004/pkg/xpath"
	"github.com/getodk/web-forms-sub004/pkg/xpath/nodeset"
)

// DataType is the value type declared by a bind's type attribute.
type DataType string

const (
	DataTypeString   DataType = "string"
	DataTypeInt      DataType = "int"
	DataTypeInteger  DataType = "integer"
	DataTypeDecimal  DataType = "decimal"
	DataTypeDate     DataType = "date"
	DataTypeTime     DataType = "time"
	DataTypeDateTime DataType = "dateTime"
	DataTypeBoolean  DataType = "boolean"
	DataTypeSelect   DataType = "select"
	DataTypeSelect1  DataType = "select1"
	DataTypeGeopoint DataType = "geopoint"
	DataTypeGeotrace DataType = "geotrace"
	DataTypeGeoshape DataType = "geoshape"
	DataTypeBinary   DataType = "binary"
	DataTypeBarcode  DataType = "barcode"
	DataTypeIntent   DataType = "intent"

	// DataTypeUnsupported is any type outside the list above.
	DataTypeUnsupported DataType = "UNSUPPORTED"
	// DataTypeNull is the type of a bind without a type attribute.
	DataTypeNull DataType = "NULL"
)

var knownDataTypes = sets.New(
	DataTypeString, DataTypeInt, DataTypeInteger, DataTypeDecimal,
	DataTypeDate, DataTypeTime, DataTypeDateTime, DataTypeBoolean,
	DataTypeSelect, DataTypeSelect1, DataTypeGeopoint, DataTypeGeotrace,
	DataTypeGeoshape, DataTypeBinary, DataTypeBarcode, DataTypeIntent,
)

// ParseDataType maps a type attribute, with or without an xsd: prefix.
func ParseDataType(attr string) DataType {
	attr = strings.TrimSpace(attr)
	if attr == "" {
		return DataTypeNull
	}
	if i := strings.LastIndexByte(attr, ':'); i >= 0 {
		attr = attr[i+1:]
	}
	if t := DataType(attr); knownDataTypes.Has(t) {
		return t
	}
	return DataTypeUnsupported
}

// Computation names a bind computation.
type Computation string

const (
	ComputeCalculate      Computation = "calculate"
	ComputeReadonly       Computation = "readonly"
	ComputeRelevant       Computation = "relevant"
	ComputeRequired       Computation = "required"
	ComputeConstraint     Computation = "constraint"
	ComputeSaveIncomplete Computation = "saveIncomplete"
)

// defaultExpressions hold the value used when a bind does not author the
// computation. calculate has none.
var defaultExpressions = map[Computation]string{
	ComputeReadonly:       "false()",
	ComputeRelevant:       "true()",
	ComputeRequired:       "false()",
	ComputeConstraint:     "true()",
	ComputeSaveIncomplete: "false()",
}

// BindComputation is one computation of a bind.
type BindComputation struct {
	Computation Computation
	// Expression is nil only for an absent calculate.
	Expression *DependentExpression
	// Authored is false when Expression is the fixed default.
	Authored bool
}

// IsDefault reports whether the computation uses its fixed default.
func (c *BindComputation) IsDefault() bool { return c == nil || !c.Authored }

// Message is a constraint or required message: static text or an itext
// reference.
type Message struct {
	Text       string
	Expression *DependentExpression
}

// BindDefinition holds the computations for one node-set. There is exactly
// one per node-set; ancestors without a <bind> get a synthesized one.
type BindDefinition struct {
	DependencyContext

	Nodeset  string
	DataType DataType
	// Explicit is set when the bind was authored with a <bind> element.
	Explicit bool
	Element  *dom.Element

	Calculate      *BindComputation
	Readonly       *BindComputation
	Relevant       *BindComputation
	Required       *BindComputation
	Constraint     *BindComputation
	SaveIncomplete *BindComputation

	ConstraintMsg *Message
	RequiredMsg   *Message
	// Preload holds jr:preload and jr:preloadParams when present.
	Preload       string
	PreloadParams string

	binds      *BindMap
	parentOnce sync.Once
	parent     *BindDefinition
}

// ParentBind returns the bind of the parent node-set, synthesizing one when
// the form has none. The root bind has no parent.
func (b *BindDefinition) ParentBind() *BindDefinition {
	b.parentOnce.Do(func() {
		parentNodeset, ok := parentReference(b.Nodeset)
		if !ok || b.binds == nil {
			return
		}
		b.parent = b.binds.getOrSynthesize(parentNodeset)
	})
	return b.parent
}

// Computations returns the non-nil computations in a fixed order.
func (b *BindDefinition) Computations() []*BindComputation {
	out := make([]*BindComputation, 0, 6)
	for _, c := range []*BindComputation{b.Calculate, b.Readonly, b.Relevant, b.Required, b.Constraint, b.SaveIncomplete} {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// parentReference trims the last step of a canonical node-set.
func parentReference(reference string) (string, bool) {
	p, err := nodeset.Parse(reference)
	if err != nil || len(p) < 2 {
		return "", false
	}
	parent := nodeset.Serialize(p[:len(p)-1], false)
	if parent == "/" {
		return "", false
	}
	return parent, true
}

// BindMap indexes binds by canonical node-set.
type BindMap struct {
	mu      sync.Mutex
	binds   map[string]*BindDefinition
	order   []string
	options []ExpressionOption
}

func newBindMap(opts ...ExpressionOption) *BindMap {
	return &BindMap{binds: make(map[string]*BindDefinition), options: opts}
}

// Get returns the bind for nodeset.
func (m *BindMap) Get(nodeset string) (*BindDefinition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.binds[nodeset]
	return b, ok
}

// Nodesets returns the bound node-sets in the order binds were created.
func (m *BindMap) Nodesets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// Len returns the number of binds.
func (m *BindMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.binds)
}

func (m *BindMap) getOrSynthesize(nodeset string) *BindDefinition {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.binds[nodeset]; ok {
		return b
	}
	b, err := newBindDefinition(m, nodeset, nil, m.options...)
	if err != nil {
		// Defaults are constant expressions and always parse.
		panic(fmt.Sprintf("synthesizing bind %q: %v", nodeset, err))
	}
	m.insert(b)
	return b
}

func (m *BindMap) insert(b *BindDefinition) {
	m.binds[b.Nodeset] = b
	m.order = append(m.order, b.Nodeset)
}

const javarosaNamespace = "http://openrosa.org/javarosa"

// bindAttributes lists the bind attributes read from an element. Later
// <bind> elements for the same node-set override earlier ones attribute by
// attribute.
type bindAttributes map[string]string

func readBindAttributes(el *dom.Element, into bindAttributes) {
	for _, name := range []string{"type", string(ComputeCalculate), string(ComputeReadonly), string(ComputeRelevant), string(ComputeRequired), string(ComputeConstraint)} {
		if v, ok := xmldom.LookupAttr(el, "", name); ok {
			into[name] = v
		}
	}
	for _, name := range []string{"constraintMsg", "requiredMsg", "saveIncomplete", "preload", "preloadParams"} {
		if v, ok := xmldom.LookupAttr(el, javarosaNamespace, name); ok {
			into[name] = v
		}
	}
}

// newBindDefinition builds a bind from the attributes of its <bind>
// elements; nil attributes synthesize a bind with defaults only.
func newBindDefinition(binds *BindMap, reference string, attrs bindAttributes, opts ...ExpressionOption) (*BindDefinition, error) {
	b := &BindDefinition{
		DependencyContext: newDependencyContext(reference),
		Nodeset:           reference,
		DataType:          ParseDataType(attrs["type"]),
		Explicit:          attrs != nil,
		binds:             binds,
	}

	var err error
	if b.Calculate, err = b.computation(ComputeCalculate, attrs, xpath.StringResult, opts); err != nil {
		return nil, err
	}
	if b.Readonly, err = b.computation(ComputeReadonly, attrs, xpath.BooleanResult, opts); err != nil {
		return nil, err
	}
	if b.Relevant, err = b.computation(ComputeRelevant, attrs, xpath.BooleanResult, opts); err != nil {
		return nil, err
	}
	if b.Required, err = b.computation(ComputeRequired, attrs, xpath.BooleanResult, opts); err != nil {
		return nil, err
	}
	// Constraints read their own value, so the self reference stays.
	if b.Constraint, err = b.computation(ComputeConstraint, attrs, xpath.BooleanResult, opts); err != nil {
		return nil, err
	}
	if b.SaveIncomplete, err = b.computation(ComputeSaveIncomplete, attrs, xpath.BooleanResult, opts); err != nil {
		return nil, err
	}

	if b.ConstraintMsg, err = b.message(attrs["constraintMsg"], opts); err != nil {
		return nil, err
	}
	if b.RequiredMsg, err = b.message(attrs["requiredMsg"], opts); err != nil {
		return nil, err
	}
	b.Preload = attrs["preload"]
	b.PreloadParams = attrs["preloadParams"]
	return b, nil
}

func (b *BindDefinition) computation(c Computation, attrs bindAttributes, rt xpath.ResultType, opts []ExpressionOption) (*BindComputation, error) {
	expression, authored := attrs[string(c)]
	authored = authored && strings.TrimSpace(expression) != ""
	if !authored {
		def, ok := defaultExpressions[c]
		if !ok {
			return &BindComputation{Computation: c}, nil
		}
		expression = def
	}
	if c != ComputeConstraint {
		opts = append(append([]ExpressionOption(nil), opts...), IgnoreContextReference())
	}
	e, err := NewDependentExpression(&b.DependencyContext, rt, expression, opts...)
	if err != nil {
		return nil, fmt.Errorf("bind %q %s: %w", b.Nodeset, c, err)
	}
	return &BindComputation{Computation: c, Expression: e, Authored: authored}, nil
}

// message reads a bind message. A message that is exactly a jr:itext() call
// is translated; anything else is literal text.
func (b *BindDefinition) message(text string, opts []ExpressionOption) (*Message, error) {
	if text == "" {
		return nil, nil
	}
	if e, err := xpath.Parse(text); err == nil {
		if call, ok := e.(*xpathparser.FuncCall); ok && call.Local == "itext" {
			de, err := NewDependentExpression(&b.DependencyContext, xpath.StringResult, text, opts...)
			if err != nil {
				return nil, err
			}
			return &Message{Expression: de}, nil
		}
	}
	return &Message{Text: text}, nil
}
