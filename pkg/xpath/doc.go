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

// Package xpath parses and evaluates XPath 1.0 expressions as used by
// XForms.
//
// Parse wraps github.com/santhosh-tekuri/xpathparser and returns its syntax
// tree unchanged; Format renders a tree back to stable XPath text. The
// inspector and nodeset packages walk that tree to analyse dependencies. An
// Evaluator runs expressions against any tree exposed
// through the Node interface, with the XPath 1.0 core library plus the
// form functions (current, instance, if, selected, itext, ...).
//
// Name tests compare local names only. Form expressions address the
// instance's default namespace without prefixes, and prefixed steps such as
// orx:meta are matched the same way.
package xpath
