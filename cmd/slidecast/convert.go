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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"slidecast/internal/llm"
	"slidecast/internal/pipeline"
	"slidecast/internal/script"
	"slidecast/internal/storage"
	"slidecast/internal/telemetry"
)

const keepSnapshots = 20

func newConvertCmd(a *app) *cobra.Command {
	var (
		output  string
		noCache bool
	)
	cmd := &cobra.Command{
		Use:   "convert <in.md>",
		Short: "Convert a markdown document into script.json",
		Long: `Convert parses the document, asks the language model for a scene plan,
converts every scene and writes the validated script. Scenes the model fails
on are replaced by a placeholder list slide and reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd, args[0], output, noCache)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the script here instead of <workspace>/script.json")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "ignore and do not fill the conversion cache")
	return cmd
}

// newGenerator builds the text-generation client from config.
func (a *app) newGenerator() (*llm.Client, error) {
	c := a.cfg.LLM
	return llm.New(llm.Options{
		Provider:    c.Provider,
		Model:       c.Model,
		BaseURL:     c.BaseURL(),
		APIKey:      a.apiKey,
		Temperature: c.Temperature,
		Timeout:     c.Timeout(),
		MaxRetries:  c.MaxRetries,
		MinInterval: c.MinInterval(),
	})
}

func (a *app) runConvert(cmd *cobra.Command, inPath, output string, noCache bool) error {
	text, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	ws, err := a.openWorkspace()
	if err != nil {
		return err
	}
	gen, err := a.newGenerator()
	if err != nil {
		return err
	}
	p := &pipeline.Pipeline{Generator: gen}

	var ix *storage.Index
	if a.cfg.Storage.Cache {
		ix, err = storage.OpenIndex(ws.Root)
		if err != nil {
			// The index is disposable; convert without it.
			a.log.Warn("index unavailable, running without cache", slog.Any("err", err))
		} else {
			defer ix.Close()
			p.Runs = ix
			if !noCache {
				p.Cache = ix
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	res, err := p.Run(ctx, string(text))
	session.Pending = res.Partial
	if err != nil {
		if errors.Is(err, context.Canceled) {
			if path, aerr := a.autosavePartial(ws, res); aerr == nil && path != "" {
				cmd.PrintErrln(warnStyle.Render("Interrupted. Partial script saved to " + path))
			}
		}
		return err
	}

	if output != "" {
		if err := writeScriptFile(output, res.Script); err != nil {
			return err
		}
	} else if err := ws.SaveScript(res.Script); err != nil {
		return err
	}
	if ix != nil {
		a.snapshot(ix, res.Script)
	}

	telemetry.Default().RunFinished(a.cfg.LLM.Provider, len(res.Script.Scenes), len(res.Fallbacks), time.Since(start))
	flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	telemetry.Default().Flush(flushCtx)
	cancel()

	printConvertSummary(cmd, res, firstNonEmpty(output, ws.ScriptPath()))
	return nil
}

func (a *app) autosavePartial(ws *storage.Workspace, res *pipeline.Result) (string, error) {
	s := res.Partial()
	if s == nil {
		return "", nil
	}
	return ws.AutosaveScript(s)
}

func (a *app) snapshot(ix *storage.Index, s *script.Script) {
	ctx := context.Background()
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := ix.SnapshotScript(ctx, data, time.Now()); err != nil {
		a.log.Warn("snapshot failed", slog.Any("err", err))
		return
	}
	if _, err := ix.PruneSnapshots(ctx, keepSnapshots); err != nil {
		a.log.Warn("snapshot prune failed", slog.Any("err", err))
	}
}

func writeScriptFile(path string, s *script.Script) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal script: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func printConvertSummary(cmd *cobra.Command, res *pipeline.Result, path string) {
	fallback := make(map[int]bool, len(res.Fallbacks))
	for _, i := range res.Fallbacks {
		fallback[i] = true
	}
	rows := make([][]string, 0, len(res.Script.Scenes))
	for i, sc := range res.Script.Scenes {
		note := ""
		if fallback[i] {
			note = warnStyle.Render("fallback")
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), sc.Title, sc.Slide.Type, strconv.Itoa(len(sc.Lines)), note})
	}
	fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render(res.Script.Title))
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "Scene", "Slide", "Lines", ""}, rows))
	fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render(fmt.Sprintf("wrote %s in %s", path, res.Elapsed.Round(time.Millisecond))))
	if n := len(res.Fallbacks); n > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), warnStyle.Render(fmt.Sprintf("%d scene(s) need manual content", n)))
	}
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
