/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"slidecast/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change the user configuration",
		RunE:  groupRunE,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := config.ConfigPath()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), p)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				out, err := yaml.Marshal(a.cfg)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), string(out))
				key := dimStyle.Render("not set")
				if a.apiKey != "" {
					key = maskKey(a.apiKey)
				}
				if env, ok := config.EnvOverrideFor("llm.api_key"); ok {
					key += dimStyle.Render(" (from " + env + ")")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "api key:", key)
				for _, k := range []string{"llm.provider", "llm.model", "timeline.fps", "storage.workspace", "storage.postgres", "logging.level"} {
					if env, ok := config.EnvOverrideFor(k); ok {
						fmt.Fprintln(cmd.OutOrStdout(), warnStyle.Render(fmt.Sprintf("%s overridden by %s", k, env)))
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write the current configuration to the config file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.Save(a.cfg, ""); err != nil {
					return err
				}
				p, _ := config.ConfigPath()
				fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("wrote "+p))
				return nil
			},
		},
		&cobra.Command{
			Use:   "set-key [key]",
			Short: "Store the Gemini API key in the OS keychain (reads stdin when no key is given)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				key := firstArg(args)
				if key == "" {
					fmt.Fprint(cmd.OutOrStdout(), "Gemini API key: ")
					line, err := bufio.NewReader(os.Stdin).ReadString('\n')
					if err != nil && line == "" {
						return fmt.Errorf("read key: %w", err)
					}
					key = line
				}
				key = strings.TrimSpace(key)
				if key == "" {
					return usageError{msg: "empty API key"}
				}
				if err := config.SetAPIKey(key); err != nil {
					return fmt.Errorf("store key: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("API key stored in keychain"))
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete-key",
			Short: "Remove the Gemini API key from the OS keychain",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.DeleteAPIKey(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("API key removed"))
				return nil
			},
		},
	)
	return cmd
}

func maskKey(k string) string {
	if len(k) <= 8 {
		return strings.Repeat("*", len(k))
	}
	return k[:4] + strings.Repeat("*", len(k)-8) + k[len(k)-4:]
}
