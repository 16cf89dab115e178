/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"slidecast/internal/config"
	applog "slidecast/internal/log"
	"slidecast/internal/storage"
	"slidecast/internal/version"
)

// app carries what every command needs after config is loaded.
type app struct {
	cfg       config.AppConfig
	apiKey    string
	workspace string
	verbose   bool
	log       *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "slidecast",
		Short:         "Turn markdown documents into two-speaker slide video scripts",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVarP(&a.workspace, "workspace", "w", "", "workspace directory (default from config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newConvertCmd(a),
		newPlanCmd(a),
		newParseCmd(a),
		newTimelineCmd(a),
		newExportCmd(a),
		newPublishCmd(a),
		newArchiveCmd(a),
		newHistoryCmd(a),
		newBundleCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{msg: err.Error()}
	})
	markUsageErrors(root)
	return root
}

// groupRunE backs commands that only hold subcommands: bare invocation shows
// help and anything else is an unknown subcommand.
func groupRunE(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	return usageError{msg: fmt.Sprintf("unknown command %q for %q", args[0], cmd.CommandPath())}
}

// markUsageErrors wraps every argument validator in the tree so a wrong
// argument count surfaces as a usageError.
func markUsageErrors(cmd *cobra.Command) {
	if validate := cmd.Args; validate != nil {
		cmd.Args = func(c *cobra.Command, args []string) error {
			if err := validate(c, args); err != nil {
				return usageError{msg: err.Error()}
			}
			return nil
		}
	}
	for _, sub := range cmd.Commands() {
		markUsageErrors(sub)
	}
}

func (a *app) setup() error {
	cfg, key, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg, a.apiKey = cfg, key
	opts := applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	}
	if a.verbose {
		opts.Level = "debug"
	}
	applog.Init(opts)
	a.log = applog.WithComponent("cli")
	if a.workspace == "" {
		a.workspace = cfg.Storage.Workspace
	}
	if abs, err := filepath.Abs(a.workspace); err == nil {
		a.workspace = abs
	}
	a.log.Debug("config loaded", slog.String("workspace", a.workspace), slog.String("provider", cfg.LLM.Provider))
	return nil
}

// openWorkspace opens the workspace and registers it with the crash handler.
func (a *app) openWorkspace() (*storage.Workspace, error) {
	ws, err := storage.Open(a.workspace)
	if err != nil {
		return nil, err
	}
	session.Workspace = ws
	return ws, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "slidecast", version.String())
		},
	}
}
