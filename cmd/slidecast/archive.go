/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"slidecast/internal/backend"
	"slidecast/internal/storage"
)

func (a *app) openArchive(ctx context.Context) (*backend.Archive, error) {
	return backend.Open(ctx, a.cfg.Storage.PostgresDSN)
}

func newPublishCmd(a *app) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "publish [script.json]",
		Short: "Archive the script in PostgreSQL as a new version",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadScript(firstArg(args))
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			ar, err := a.openArchive(ctx)
			if err != nil {
				return err
			}
			defer ar.Close()
			e, err := ar.Publish(ctx, s, runID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render(e.Title), dimStyle.Render(fmt.Sprintf("published as version %d (%d scenes, %d lines)", e.Version, e.Scenes, e.Lines)))
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id to attach (see `slidecast history`)")
	return cmd
}

func newArchiveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Browse scripts published to PostgreSQL",
		RunE:  groupRunE,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List archived scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			ar, err := a.openArchive(ctx)
			if err != nil {
				return err
			}
			defer ar.Close()
			entries, err := ar.List(ctx)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.Title, strconv.Itoa(e.Version), strconv.Itoa(e.Scenes), strconv.Itoa(e.Lines), e.PublishedAt.Local().Format(time.DateTime)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Title", "Version", "Scenes", "Lines", "Published"}, rows))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "pull <title>",
		Short: "Restore the latest archived version into the workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			ar, err := a.openArchive(ctx)
			if err != nil {
				return err
			}
			defer ar.Close()
			s, err := ar.Latest(ctx, args[0])
			if err != nil {
				return err
			}
			ws, err := a.openWorkspace()
			if err != nil {
				return err
			}
			if err := ws.SaveScript(s); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("restored "+ws.ScriptPath()))
			return nil
		},
	})
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversion runs in this workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.openWorkspace()
			if err != nil {
				return err
			}
			ix, err := storage.OpenIndex(ws.Root)
			if err != nil {
				return err
			}
			defer ix.Close()
			runs, err := ix.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				status := "open"
				if !r.FinishedAt.IsZero() {
					status = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
				}
				rows = append(rows, []string{r.ID, r.StartedAt.Local().Format(time.DateTime), r.Title, strconv.Itoa(r.Scenes), strconv.Itoa(r.Fallbacks), status})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Run", "Started", "Title", "Scenes", "Fallbacks", "Took"}, rows))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}
