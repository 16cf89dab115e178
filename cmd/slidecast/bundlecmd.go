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

	"github.com/spf13/cobra"

	"slidecast/internal/bundle"
)

func newBundleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Pack or unpack the workspace script and audio as a zip",
		RunE:  groupRunE,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "pack <out.zip>",
		Short: "Write script.json and audio/ into a zip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.openWorkspace()
			if err != nil {
				return err
			}
			m, err := bundle.Pack(ws, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render(m.Title), dimStyle.Render(fmt.Sprintf("%d files, %d scenes", len(m.Files), m.Scenes)))
			return nil
		},
	})
	var overwrite bool
	unpack := &cobra.Command{
		Use:   "unpack <in.zip>",
		Short: "Restore a bundle into the workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.openWorkspace()
			if err != nil {
				return err
			}
			m, n, err := bundle.Unpack(ws, args[0], overwrite)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render(m.Title), dimStyle.Render(fmt.Sprintf("restored script and %d audio file(s)", n)))
			return nil
		},
	}
	unpack.Flags().BoolVar(&overwrite, "overwrite", false, "replace audio files that already exist")
	cmd.AddCommand(unpack)
	return cmd
}
