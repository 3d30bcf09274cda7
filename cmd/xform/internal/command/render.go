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
	"os"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/getodk/web-forms-sub004/cmd/xform/internal/loader"
	"github.com/getodk/web-forms-sub004/cmd/xform/internal/view"
	"github.com/getodk/web-forms-sub004/pkg/graph"
	"github.com/getodk/web-forms-sub004/pkg/runtime"
)

type RenderOptions struct {
	Path         string
	InstancePath string
	AnswersPath  string
	Language     string
}

func NewRenderCommand(cli *CLI) *cobra.Command {
	var opts RenderOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Fill in a form and print the resulting instance",
		Long: Highlight("xform render -f <form> [-i <instance>] [-a <answers>]") + "\n\n" +
			"Start a form session, apply answers and print the instance.\n\n" +
			"Answers are a YAML or JSON map from node-set to value. A list of\n" +
			"values fills one repeat instance each, adding instances as needed.\n\n" +
			"Examples:\n" +
			"  # Print the blank instance\n" +
			"  xform render -f household.xml\n\n" +
			"  # Apply answers and show every field with its state\n" +
			"  xform render -f household.xml -a answers.yaml -o table\n\n" +
			"  # Edit a submitted instance\n" +
			"  xform render -f household.xml -i submission.xml -o json\n",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunRender(cli, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Path, "file", "f", "", "Path to the form")
	cmd.Flags().StringVarP(&opts.InstancePath, "instance", "i", "", "Path to an existing instance to edit")
	cmd.Flags().StringVarP(&opts.AnswersPath, "answers", "a", "", "Path to a YAML or JSON answers file")
	cmd.Flags().StringVar(&opts.Language, "lang", "", "Translation language")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func RunRender(cli *CLI, opts RenderOptions) error {
	model, err := loader.LoadForm(opts.Path, cli.Builder())
	if err != nil {
		return err
	}

	in, err := openSession(cli, model, opts)
	if err != nil {
		return err
	}

	if opts.AnswersPath != "" {
		answers, err := loader.LoadAnswers(opts.AnswersPath)
		if err != nil {
			return err
		}
		if err := applyAnswers(in, answers); err != nil {
			return err
		}
	}

	result, err := renderResult(in)
	if err != nil {
		return err
	}
	return view.NewRenderView(cli.Viewer).Render(result)
}

func openSession(cli *CLI, model *graph.Model, opts RenderOptions) (*runtime.Instance, error) {
	runtimeOpts := runtime.Options{
		Logger:   cli.Logger().Logr(),
		Language: opts.Language,
	}
	if opts.InstancePath == "" {
		return runtime.Instantiate(model, runtimeOpts)
	}

	f, err := os.Open(opts.InstancePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read instance: %w", err)
	}
	defer f.Close()
	return runtime.Edit(model, f, runtimeOpts)
}

// applyAnswers writes answers in node-set order within one batch. A single
// value is written to every matching leaf; a list is written one value per
// match, appending repeat instances when there are fewer matches.
func applyAnswers(in *runtime.Instance, answers map[string][]string) error {
	nodesets := lo.Keys(answers)
	slices.Sort(nodesets)

	return in.Batch(func() error {
		for _, nodeset := range nodesets {
			values := answers[nodeset]
			leaves, err := answerTargets(in, nodeset, len(values))
			if err != nil {
				return err
			}
			for i, leaf := range leaves {
				v := values[0]
				if len(values) > 1 {
					v = values[i]
				}
				if err := leaf.SetValue(v); err != nil {
					return fmt.Errorf("failed to answer %s: %w", nodeset, err)
				}
			}
		}
		return nil
	})
}

func answerTargets(in *runtime.Instance, nodeset string, want int) ([]runtime.Leaf, error) {
	nodes := in.Find(nodeset)
	if len(nodes) == 0 && len(in.Model().Lookup(nodeset)) == 0 {
		return nil, fmt.Errorf("no node matches %s", nodeset)
	}
	if want > 1 && len(nodes) < want {
		r, ok := enclosingRange(in, nodeset)
		if !ok {
			return nil, fmt.Errorf("%d answers for %s but only %d nodes", want, nodeset, len(nodes))
		}
		if _, err := r.Append(want - len(nodes)); err != nil {
			return nil, fmt.Errorf("failed to add instances for %s: %w", nodeset, err)
		}
		nodes = in.Find(nodeset)
	}
	if want > 1 && len(nodes) > want {
		nodes = nodes[:want]
	}

	leaves := make([]runtime.Leaf, 0, len(nodes))
	for _, n := range nodes {
		leaf, ok := n.AsLeaf()
		if !ok {
			return nil, fmt.Errorf("%s is not a leaf node", nodeset)
		}
		leaves = append(leaves, leaf)
	}
	return leaves, nil
}

// enclosingRange returns the innermost repeat range whose node-set is a
// prefix of nodeset.
func enclosingRange(in *runtime.Instance, nodeset string) (runtime.RepeatRange, bool) {
	for prefix := nodeset; prefix != ""; {
		if r, ok := in.FindRepeatRange(prefix); ok {
			return r, true
		}
		i := strings.LastIndex(prefix, "/")
		if i <= 0 {
			break
		}
		prefix = prefix[:i]
	}
	return runtime.RepeatRange{}, false
}

func renderResult(in *runtime.Instance) (view.RenderResult, error) {
	xml, err := in.Serialize()
	if err != nil {
		return view.RenderResult{}, err
	}
	result := view.RenderResult{
		Form:     in.Model().ID,
		Language: in.Language(),
		XML:      xml,
	}
	if err := collectLeaves(in.Root(), &result.Nodes); err != nil {
		return view.RenderResult{}, err
	}
	return result, nil
}

func collectLeaves(n *runtime.Node, into *[]view.NodeResult) error {
	if _, ok := n.AsLeaf(); ok {
		state, err := n.CurrentState()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", n.Nodeset(), err)
		}
		*into = append(*into, view.NodeResult{
			Nodeset:   n.Nodeset(),
			Label:     state.Label,
			Value:     state.Value,
			Relevant:  state.Relevant,
			Required:  state.Required,
			Readonly:  state.Readonly,
			Valid:     state.Validation.Valid,
			Violation: string(state.Validation.Violation),
			Message:   state.Validation.Message,
		})
		return nil
	}
	for _, child := range n.Children() {
		if err := collectLeaves(child, into); err != nil {
			return err
		}
	}
	return nil
}
