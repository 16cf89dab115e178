/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package timeline computes the frame schedule of a script from its line
// counts and the durations reported by the audio step.
package timeline

import (
	"gopkg.in/yaml.v3"
)

// Defaults at 30 fps: a 3s line and a 0.5s pause after each scene.
const (
	DefaultFPS               = 30
	DefaultLineFrames        = 90
	DefaultLineGapFrames     = 0
	DefaultSceneBufferFrames = 15
)

// Options tunes the schedule. A zero Options is not the default; use
// DefaultOptions or pass nil to Calculate.
type Options struct {
	DefaultLineFrames int `yaml:"default_line_frames"`
	LineGapFrames     int `yaml:"line_gap_frames"`
	SceneBufferFrames int `yaml:"scene_buffer_frames"`
}

func DefaultOptions() Options {
	return Options{
		DefaultLineFrames: DefaultLineFrames,
		LineGapFrames:     DefaultLineGapFrames,
		SceneBufferFrames: DefaultSceneBufferFrames,
	}
}

type LineTiming struct {
	LineIndex      int    `json:"lineIndex" yaml:"line"`
	StartFrame     int    `json:"startFrame" yaml:"start"`
	DurationFrames int    `json:"durationFrames" yaml:"duration"`
	AudioPath      string `json:"audioPath,omitempty" yaml:"audio,omitempty"`
}

// SceneTiming places a scene on the global timeline. Line start frames are
// relative to the scene start.
type SceneTiming struct {
	SceneIndex     int          `json:"sceneIndex" yaml:"scene"`
	StartFrame     int          `json:"startFrame" yaml:"start"`
	DurationFrames int          `json:"durationFrames" yaml:"duration"`
	Lines          []LineTiming `json:"lines" yaml:"lines"`
}

type Result struct {
	Scenes      []SceneTiming `json:"scenes" yaml:"scenes"`
	TotalFrames int           `json:"totalFrames" yaml:"total_frames"`
}

// Calculate walks scenes and their lines with running frame cursors. A line
// lasts as long as its manifest entry says (falling back to the default line
// duration), the gap separates consecutive lines of a scene and the buffer
// follows every scene. It is pure: equal inputs give equal results.
//
// linesPerScene must have at least sceneCount entries; missing entries count
// as scenes without lines.
func Calculate(sceneCount int, linesPerScene []int, manifest *Manifest, opts *Options) Result {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}
	if o.DefaultLineFrames <= 0 {
		o.DefaultLineFrames = DefaultLineFrames
	}
	durations := manifest.index()

	res := Result{Scenes: make([]SceneTiming, 0, sceneCount)}
	global := 0
	for s := 0; s < sceneCount; s++ {
		n := 0
		if s < len(linesPerScene) {
			n = linesPerScene[s]
		}
		st := SceneTiming{SceneIndex: s, StartFrame: global, Lines: make([]LineTiming, 0, n)}
		local := 0
		for l := 0; l < n; l++ {
			lt := LineTiming{LineIndex: l, StartFrame: local, DurationFrames: o.DefaultLineFrames}
			if e, ok := durations[key{s, l}]; ok {
				if e.DurationFrames > 0 {
					lt.DurationFrames = e.DurationFrames
				}
				lt.AudioPath = e.Path
			}
			local += lt.DurationFrames
			if l < n-1 {
				local += o.LineGapFrames
			}
			st.Lines = append(st.Lines, lt)
		}
		st.DurationFrames = local + o.SceneBufferFrames
		global += st.DurationFrames
		res.Scenes = append(res.Scenes, st)
	}
	res.TotalFrames = global
	return res
}

// ActiveLineIndex returns the line being spoken at frame, counted from the
// scene start: the last line whose start is not after frame. Frames before
// the first line map to 0 and frames past the scene end to the last line.
func ActiveLineIndex(t SceneTiming, frame int) int {
	for i := len(t.Lines) - 1; i >= 0; i-- {
		if t.Lines[i].StartFrame <= frame {
			return i
		}
	}
	return 0
}

// SceneAt returns the index of the scene that covers the global frame, or -1
// when frame lies outside the timeline.
func (r Result) SceneAt(frame int) int {
	for _, s := range r.Scenes {
		if frame >= s.StartFrame && frame < s.StartFrame+s.DurationFrames {
			return s.SceneIndex
		}
	}
	return -1
}

// YAML renders the schedule for review.
func (r Result) YAML() ([]byte, error) {
	return yaml.Marshal(r)
}
