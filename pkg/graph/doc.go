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

// Package graph builds an immutable form Model from an ODK XForm document.
//
// The Builder runs a fixed multi-stage pipeline:
//
//	Parse -> Validate -> Resolve -> Link -> Assemble
//
// Each stage produces a more explicit representation:
//
//   - Parse: XML -> ParsedForm
//   - Resolve: ParsedForm -> ResolvedForm
//   - Link: ResolvedForm -> LinkedForm
//   - Assemble: LinkedForm -> Model (final output)
//
// Phase responsibilities:
//
//   - Parse:
//     Decodes the document and locates the model, the primary and secondary
//     instances, binds, itext and the body.
//
//   - Validate:
//     Requires nodeset/ref attributes and rejects selects mixing items and
//     itemsets.
//
//   - Resolve:
//     Canonicalizes bind and body references, merges binds per node-set,
//     synthesizes ancestor binds and analyses the dependencies of every
//     expression.
//
//   - Link:
//     Walks the primary instance into the NodeDefinition arena, derives repeat
//     templates, and orders calculations through a DAG. With the
//     CalculationCycleDetection feature enabled a cycle fails the build.
//
//   - Assemble:
//     Indexes definitions by node-set and emits the Model.
//
// Error model:
//
//   - DefinitionError: a malformed form. Form load fails.
//   - ExpressionError: an expression that does not parse. Wrapped in a
//     DefinitionError and equally fatal.
package graph
