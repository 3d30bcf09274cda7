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
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/getodk/web-forms-sub004/cmd/xform/internal/loader"
	"github.com/getodk/web-forms-sub004/cmd/xform/internal/view"
	"github.com/getodk/web-forms-sub004/pkg/graph"
)

type DepsOptions struct {
	Path string
}

func NewDepsCommand(cli *CLI) *cobra.Command {
	var opts DepsOptions

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Show the dependencies of a form's computations",
		Long: Highlight("xform deps -f <form>") + "\n\n" +
			"List every authored bind computation of a form with the node-sets\n" +
			"it reads, followed by the order calculations run in.\n\n" +
			"Examples:\n" +
			"  xform deps -f household.xml\n" +
			"  xform deps -f household.xml -o yaml\n",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunDeps(cli, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Path, "file", "f", "", "Path to the form")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func RunDeps(cli *CLI, opts DepsOptions) error {
	model, err := loader.LoadForm(opts.Path, cli.Builder())
	if err != nil {
		return err
	}
	return view.NewDepsView(cli.Viewer).Render(dependencies(model))
}

func dependencies(model *graph.Model) view.DepsResult {
	result := view.DepsResult{
		Form:             model.ID,
		CalculationOrder: model.TopologicalOrder(),
	}
	for _, nodeset := range model.Binds().Nodesets() {
		b, _ := model.Binds().Get(nodeset)
		authored := lo.Filter(b.Computations(), func(c *graph.BindComputation, _ int) bool {
			return !c.IsDefault() && c.Expression != nil
		})
		for _, c := range authored {
			result.Computations = append(result.Computations, view.DepsRow{
				Nodeset:      nodeset,
				Computation:  string(c.Computation),
				Expression:   c.Expression.Expression,
				Dependencies: c.Expression.Dependencies,
			})
		}
	}
	return result
}
