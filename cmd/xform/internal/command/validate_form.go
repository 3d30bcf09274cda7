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
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getodk/web-forms-sub004/cmd/xform/internal/loader"
	"github.com/getodk/web-forms-sub004/cmd/xform/internal/view"
)

type ValidateFormOptions struct {
	Path string
}

func NewValidateFormCommand(cli *CLI) *cobra.Command {
	var opts ValidateFormOptions

	cmd := &cobra.Command{
		Use:   "form",
		Short: "Validate an XForm",
		Long: Highlight("xform validate form -f <path>") + "\n\n" +
			"Validate an XForm by file or directory.\n\n" +
			"When targeting a directory, all .xml files will be validated.\n\n" +
			"Examples:\n" +
			"  # Validate a single form\n" +
			"  xform validate form -f household.xml\n\n" +
			"  # Validate all forms in a directory\n" +
			"  xform validate form -f .\n",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunValidateForm(cli, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Path, "file", "f", "", "Path to form file or directory")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func RunValidateForm(cli *CLI, opts ValidateFormOptions) error {
	validateView := view.NewValidateView(cli.Viewer)

	results, err := loader.LoadFormsDetailed(opts.Path, cli.Builder())
	if err != nil {
		return err
	}

	if len(results) == 0 {
		return fmt.Errorf("no XML files found in %q", opts.Path)
	}

	resultView := view.ValidateResult{FileCount: len(results)}
	for _, result := range results {
		if result.Err != nil {
			resultView.Errors = append(resultView.Errors, view.ValidateFileError{File: result.Path, Message: result.Err.Error()})
			continue
		}
		cli.Logger().Debug("form is valid", "file", result.Path, "nodes", result.Model.Len())
	}

	validateView.Render(resultView)
	if resultView.HasErrors() {
		return errors.New("")
	}
	return nil
}
