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
	"io"

	"github.com/go-logr/logr"
	"k8s.io/component-base/featuregate"

	"github.com/getodk/web-forms-sub004/pkg/features"
)

// Parser locates the model, instances, binds, itext and body of an XForm.
type Parser interface {
	// Parse decodes the XML document. It does not interpret expressions.
	Parse(data []byte) (*ParsedForm, error)
}

// Validator enforces structural rules on the parsed form.
type Validator interface {
	// Validate returns an error for missing references or malformed selects.
	Validate(*ParsedForm) error
}

// Resolver canonicalizes references and analyses every expression.
type Resolver interface {
	// Resolve builds the bind map, body definitions and translations.
	Resolve(*ParsedForm) (*ResolvedForm, error)
}

// Linker builds the node definition tree and orders calculations.
type Linker interface {
	// Link returns the node arena together with the calculation DAG.
	Link(*ResolvedForm) (*LinkedForm, error)
}

// Assembler materializes the final Model.
type Assembler interface {
	Assemble(*LinkedForm) (*Model, error)
}

// Builder builds form models from XForm documents. Each stage can be
// replaced through options for testing or custom behavior.
type Builder struct {
	log         logr.Logger
	featureGate featuregate.FeatureGate

	parser    Parser
	validator Validator
	resolver  Resolver
	linker    Linker
	assembler Assembler
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used by the default stages.
func WithLogger(log logr.Logger) Option { return func(b *Builder) { b.log = log } }

// WithFeatureGate overrides the process-wide feature gate.
func WithFeatureGate(gate featuregate.FeatureGate) Option {
	return func(b *Builder) { b.featureGate = gate }
}

// WithParser overrides the parser stage implementation.
func WithParser(p Parser) Option { return func(b *Builder) { b.parser = p } }

// WithValidator overrides the validator stage implementation.
func WithValidator(v Validator) Option { return func(b *Builder) { b.validator = v } }

// WithResolver overrides the resolver stage implementation.
func WithResolver(r Resolver) Option { return func(b *Builder) { b.resolver = r } }

// WithLinker overrides the linker stage implementation.
func WithLinker(l Linker) Option { return func(b *Builder) { b.linker = l } }

// WithAssembler overrides the assembler stage implementation.
func WithAssembler(a Assembler) Option { return func(b *Builder) { b.assembler = a } }

// NewBuilder constructs a Builder. Stages not provided through options use
// the package defaults, configured from the logger and feature gate.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{log: logr.Discard(), featureGate: features.FeatureGate}
	for _, opt := range opts {
		opt(b)
	}

	if b.parser == nil {
		b.parser = newParser()
	}
	if b.validator == nil {
		b.validator = newValidator()
	}
	if b.resolver == nil {
		var exprOpts []ExpressionOption
		if !b.featureGate.Enabled(features.NullReferenceKeyword) {
			exprOpts = append(exprOpts, KeepNullReferences())
		}
		b.resolver = newResolver(b.log.WithName("resolver"), exprOpts...)
	}
	if b.linker == nil {
		b.linker = newLinker(b.log.WithName("linker"), b.featureGate.Enabled(features.CalculationCycleDetection))
	}
	if b.assembler == nil {
		b.assembler = newAssembler()
	}
	return b
}

// Build reads an XForm and builds its Model. Any error is fatal; nothing is
// partially built.
//
//	Parse -> Validate -> Resolve -> Link -> Assemble
func (b *Builder) Build(r io.Reader) (*Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading form: %w", err)
	}
	return b.BuildBytes(data)
}

// BuildBytes builds a Model from an XForm document.
func (b *Builder) BuildBytes(data []byte) (*Model, error) {
	parsed, err := b.parser.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := b.validator.Validate(parsed); err != nil {
		return nil, err
	}
	resolved, err := b.resolver.Resolve(parsed)
	if err != nil {
		return nil, err
	}
	linked, err := b.linker.Link(resolved)
	if err != nil {
		return nil, err
	}
	model, err := b.assembler.Assemble(linked)
	if err != nil {
		return nil, err
	}
	b.log.V(1).Info("built form model", "title", model.Title, "nodes", model.Len())
	return model, nil
}

// BuildString builds a Model from XForm text.
func (b *Builder) BuildString(xform string) (*Model, error) {
	return b.BuildBytes([]byte(xform))
}
