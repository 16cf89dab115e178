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
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"slidecast/internal/document"
	"slidecast/internal/pipeline"
)

func newParseCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "parse <in.md>",
		Short: "Show the section tree of a markdown document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			doc := document.Parse(string(text))
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			}
			fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render(doc.Title))
			if doc.Summary != "" {
				fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render(doc.Summary))
			}
			for _, f := range document.Flatten(doc.Sections) {
				fmt.Fprintln(cmd.OutOrStdout(), sectionLine(f))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the parsed document as JSON")
	return cmd
}

func sectionLine(f document.FlatSection) string {
	s := f.Section
	indent := strings.Repeat("  ", max(s.Level-1, 0))
	title := s.Title
	if title == "" {
		title = "(untitled)"
	}
	return fmt.Sprintf("%s[%d] %s %s", indent, f.Index, title, dimStyle.Render(document.Summarize(s)))
}

func newPlanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <in.md>",
		Short: "Ask the language model for a scene plan without converting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			gen, err := a.newGenerator()
			if err != nil {
				return err
			}
			res, err := (&pipeline.Pipeline{Generator: gen}).Plan(context.Background(), string(text))
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(res.Plans))
			for i, p := range res.Plans {
				idx := make([]string, len(p.SectionIndices))
				for j, n := range p.SectionIndices {
					idx[j] = strconv.Itoa(n)
				}
				rows = append(rows, []string{strconv.Itoa(i + 1), p.SceneTitle, p.SlideTypeHint, strings.Join(idx, ","), p.Notes})
			}
			fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render(res.Document.Title))
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "Scene", "Hint", "Sections", "Notes"}, rows))
			return nil
		},
	}
}
