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
	"github.com/spf13/cobra"
)

func NewValidateCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [subcommand]",
		Short: "Validate form definitions",
		Long: Highlight("xform validate [subcommand]") + "\n\n" +
			"Validate ODK XForm definitions.\n\n" +
			"Checks the XML, every bind and body reference, every expression\n" +
			"and the calculations for cycles. You can validate a single file\n" +
			"or an entire directory of forms.\n",
	}

	cmd.AddCommand(
		NewValidateFormCommand(cli),
	)

	return cmd
}
