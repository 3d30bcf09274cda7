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
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"sigs.k8s.io/release-utils/version"

	"github.com/getodk/web-forms-sub004/cmd/xform/internal/view"
	"github.com/getodk/web-forms-sub004/pkg/features"
)

var (
	outputFlag string
	debugFlag  bool
	rootCmd    *cobra.Command
)

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use: "xform",
		Short: Highlight("xform [global options] <subcommand> [args]") + "\n" +
			"A CLI utility for working with ODK XForms",
		Long: Highlight("Usage: xform [global options] <subcommand> [args]\n") +
			`
__  ___ __
\ \/ / |/ _| ___  _ __ _ __ ___
 \  /| | |_ / _ \| '__| '_ ' _ \
 /  \| |  _| (_) | |  | | | | | |
/_/\_\_|_|  \___/|_|  |_| |_| |_|
		` + "\n" +
			"xform loads ODK XForm definitions and runs form sessions over them.\n" +
			"It includes commands for validating forms, inspecting the dependencies\n" +
			"of their computations and rendering filled-in instances.\n\n",
		Version:       version.GetVersionInfo().GitVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				_ = cmd.Help()
			}
		},
	}

	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "", "Output format. One of: (json | yaml | xml | table)")
	cmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Set log level to debug")
	features.FeatureGate.AddFlag(cmd.PersistentFlags())
	return cmd
}

func setCobraUsageTemplate() {
	cobra.AddTemplateFunc("StyleHeading", color.RGB(50, 108, 229).SprintFunc())
	usageTemplate := rootCmd.UsageTemplate()
	usageTemplate = strings.NewReplacer(
		`Usage:`, `{{StyleHeading "Usage:"}}`,
		`Examples:`, `{{StyleHeading "Examples:"}}`,
		`Available Commands:`, `{{StyleHeading "Available Commands:"}}`,
		`Additional Commands:`, `{{StyleHeading "Additional Commands:"}}`,
		`Flags:`, `{{StyleHeading "Options:"}}`,
		`Global Flags:`, `{{StyleHeading "Global Options:"}}`,
	).Replace(usageTemplate)
	rootCmd.SetUsageTemplate(usageTemplate)
}

func setVersionTemplate() {
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// logLevel resolves the log level from XFORM_LOG and --debug.
func logLevel(env string, debug bool) view.LogLevel {
	if debug {
		return view.LogLevelDebug
	}
	switch strings.ToLower(env) {
	case "debug":
		return view.LogLevelDebug
	case "info":
		return view.LogLevelInfo
	case "warn":
		return view.LogLevelWarn
	case "error":
		return view.LogLevelError
	default:
		return view.LogLevelSilent
	}
}

func Execute() {
	rootCmd = NewRootCommand()

	setCobraUsageTemplate()
	setVersionTemplate()

	_, noColor := os.LookupEnv("NO_COLOR")
	color.NoColor = noColor

	// Reconfigured in PersistentPreRun once flags are parsed.
	cli := NewCLI(view.ViewHuman, os.Stdout, view.LogLevelSilent)

	AddCommands(rootCmd, cli)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		viewType, err := view.ParseOutputFormat(outputFlag)
		if err != nil {
			cli.Println("Error: invalid output format:", outputFlag)
			os.Exit(1)
		}

		s := view.NewStream(os.Stdout)
		cli.Viewer = view.NewViewer(viewType, s, logLevel(os.Getenv("XFORM_LOG"), debugFlag))
		cli.Stream = s
	}

	if err := rootCmd.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			cli.Println(msg)
		}
		os.Exit(1)
	}

	os.Exit(0)
}

func AddCommands(root *cobra.Command, cli *CLI) {
	root.AddCommand(
		NewVersionCommand(cli),
		NewValidateCommand(cli),
		NewDepsCommand(cli),
		NewRenderCommand(cli),
	)
}
