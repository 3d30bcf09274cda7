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

package command

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/getodk/web-forms-sub004/cmd/xform/internal/view"
	"github.com/getodk/web-forms-sub004/pkg/features"
	"github.com/getodk/web-forms-sub004/pkg/graph"
)

// CLI carries the view layer shared by every command.
type CLI struct {
	view.Viewer
	*view.Stream
}

// Highlight formats text in the CLI accent color.
func Highlight(format string, a ...any) string {
	return color.RGB(50, 108, 229).Sprintf(format, a...)
}

func NewCLI(vt view.ViewType, w io.Writer, logLevel view.LogLevel) *CLI {
	s := view.NewStream(w)

	return &CLI{
		Viewer: view.NewViewer(vt, s, logLevel),
		Stream: s,
	}
}

// Builder returns a form builder logging through the CLI logger and
// honouring --feature-gates.
func (c *CLI) Builder() *graph.Builder {
	return graph.NewBuilder(
		graph.WithLogger(c.Logger().Logr().WithName("graph")),
		graph.WithFeatureGate(features.FeatureGate),
	)
}

// ExactArgs returns an error if there are not exactly n args.
func ExactArgs(number int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == number {
			return nil
		}
		return fmt.Errorf("expected %d arguments, got %d", number, len(args))
	}
}

// MaxArgs returns an error if there are more than n args.
func MaxArgs(number int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) <= number {
			return nil
		}
		return fmt.Errorf("expected at most %d arguments, got %d", number, len(args))
	}
}
