/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"slidecast/internal/export"
	"slidecast/internal/script"
	"slidecast/internal/timeline"
)

// loadScript reads path, or the workspace script when path is empty.
func (a *app) loadScript(path string) (*script.Script, error) {
	if path == "" {
		ws, err := a.openWorkspace()
		if err != nil {
			return nil, err
		}
		return ws.LoadScript()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return script.Decode(data)
}

// loadManifest reads path, or the workspace manifest when path is empty. A
// missing workspace manifest is not an error: every line gets the default duration.
func (a *app) loadManifest(path string) (*timeline.Manifest, error) {
	if path != "" {
		return timeline.LoadManifest(path)
	}
	ws, err := a.openWorkspace()
	if err != nil {
		return nil, err
	}
	m, err := ws.LoadManifest()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return m, err
}

func (a *app) timelineOptions() *timeline.Options {
	t := a.cfg.Timeline
	return &timeline.Options{
		DefaultLineFrames: t.DefaultLineFrames,
		LineGapFrames:     t.LineGapFrames,
		SceneBufferFrames: t.SceneBufferFrames,
	}
}

func (a *app) computeTimeline(s *script.Script, manifestPath string) (timeline.Result, error) {
	m, err := a.loadManifest(manifestPath)
	if err != nil {
		return timeline.Result{}, fmt.Errorf("load manifest: %w", err)
	}
	return timeline.Calculate(len(s.Scenes), s.LinesPerScene(), m, a.timelineOptions()), nil
}

func newTimelineCmd(a *app) *cobra.Command {
	var (
		manifest string
		asYAML   bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "timeline [script.json]",
		Short: "Compute frame timings for a script",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadScript(firstArg(args))
			if err != nil {
				return err
			}
			res, err := a.computeTimeline(s, manifest)
			if err != nil {
				return err
			}
			switch {
			case asYAML:
				out, err := res.YAML()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			case asJSON:
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			rows := make([][]string, 0, len(res.Scenes))
			for _, st := range res.Scenes {
				rows = append(rows, []string{
					strconv.Itoa(st.SceneIndex + 1),
					s.Scenes[st.SceneIndex].Title,
					strconv.Itoa(st.StartFrame),
					strconv.Itoa(st.DurationFrames),
					strconv.Itoa(len(st.Lines)),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "Scene", "Start", "Frames", "Lines"}, rows))
			fps := a.cfg.Timeline.FPS
			if fps <= 0 {
				fps = timeline.DefaultFPS
			}
			fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render(fmt.Sprintf("total %d frames (%.1fs at %d fps)", res.TotalFrames, float64(res.TotalFrames)/float64(fps), fps)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "audio manifest (default <workspace>/audio/manifest.json)")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print timings as YAML")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print timings as JSON")
	cmd.MarkFlagsMutuallyExclusive("yaml", "json")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		manifest string
		pageSize string
		guides   bool
	)
	cmd := &cobra.Command{
		Use:   "export <out.pdf> [script.json]",
		Short: "Render a PDF storyboard of the script",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadScript(firstArg(args[1:]))
			if err != nil {
				return err
			}
			tl, err := a.computeTimeline(s, manifest)
			if err != nil {
				return err
			}
			ws, err := a.openWorkspace()
			if err != nil {
				return err
			}
			opt := export.PDFOptions{
				PageSize:      pageSize,
				FPS:           a.cfg.Timeline.FPS,
				BaseDir:       filepath.Join(ws.Root, "exports"),
				IncludeGuides: guides,
			}
			if err := export.StoryboardPDF(s, tl, args[0], opt); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("storyboard written"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "audio manifest (default <workspace>/audio/manifest.json)")
	cmd.Flags().StringVar(&pageSize, "page", "A4", "page size: A4 or Letter")
	cmd.Flags().BoolVar(&guides, "guides", false, "frame the slide area")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
