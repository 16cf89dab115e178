/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package timeline

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestCalculateDefaults(t *testing.T) {
	r := Calculate(2, []int{2, 1}, nil, nil)
	if len(r.Scenes) != 2 {
		t.Fatalf("scenes = %d", len(r.Scenes))
	}
	if s := r.Scenes[0]; s.StartFrame != 0 || s.DurationFrames != 195 {
		t.Fatalf("scene 0 = start %d duration %d", s.StartFrame, s.DurationFrames)
	}
	if s := r.Scenes[1]; s.StartFrame != 195 || s.DurationFrames != 105 {
		t.Fatalf("scene 1 = start %d duration %d", s.StartFrame, s.DurationFrames)
	}
	if r.TotalFrames != 300 {
		t.Fatalf("total = %d", r.TotalFrames)
	}
	want := []LineTiming{{LineIndex: 0, StartFrame: 0, DurationFrames: 90}, {LineIndex: 1, StartFrame: 90, DurationFrames: 90}}
	if !reflect.DeepEqual(r.Scenes[0].Lines, want) {
		t.Fatalf("scene 0 lines = %+v", r.Scenes[0].Lines)
	}
}

func TestCalculateUsesManifestDurations(t *testing.T) {
	m := &Manifest{FPS: 30, Files: []ManifestEntry{
		{Scene: 0, Line: 0, DurationFrames: 60, Path: "audio/s0_l0.wav"},
		{Scene: 0, Line: 1, DurationFrames: 120, Path: "audio/s0_l1.wav"},
	}}
	r := Calculate(1, []int{2}, m, nil)
	s := r.Scenes[0]
	if s.DurationFrames != 60+120+15 {
		t.Fatalf("duration = %d", s.DurationFrames)
	}
	if s.Lines[0].StartFrame != 0 || s.Lines[1].StartFrame != 60 {
		t.Fatalf("line starts = %d, %d", s.Lines[0].StartFrame, s.Lines[1].StartFrame)
	}
	if s.Lines[1].AudioPath != "audio/s0_l1.wav" {
		t.Fatalf("audio path = %q", s.Lines[1].AudioPath)
	}
}

func TestCalculateZeroManifestDurationUsesDefault(t *testing.T) {
	m := &Manifest{Files: []ManifestEntry{{Scene: 0, Line: 0, DurationFrames: 0, Path: "a.wav"}}}
	r := Calculate(1, []int{1}, m, nil)
	if got := r.Scenes[0].Lines[0].DurationFrames; got != 90 {
		t.Fatalf("duration = %d", got)
	}
}

func TestCalculateDuplicateManifestEntryKeepsFirst(t *testing.T) {
	m := &Manifest{Files: []ManifestEntry{
		{Scene: 0, Line: 0, DurationFrames: 40, Path: "first.wav"},
		{Scene: 0, Line: 0, DurationFrames: 70, Path: "second.wav"},
	}}
	r := Calculate(1, []int{1}, m, nil)
	l := r.Scenes[0].Lines[0]
	if l.DurationFrames != 40 || l.AudioPath != "first.wav" {
		t.Fatalf("line = %+v", l)
	}
}

func TestCalculateGapAndBuffer(t *testing.T) {
	opts := &Options{DefaultLineFrames: 30, LineGapFrames: 5, SceneBufferFrames: 10}
	r := Calculate(2, []int{3, 0}, nil, opts)
	starts := []int{r.Scenes[0].Lines[0].StartFrame, r.Scenes[0].Lines[1].StartFrame, r.Scenes[0].Lines[2].StartFrame}
	if !reflect.DeepEqual(starts, []int{0, 35, 70}) {
		t.Fatalf("line starts = %v", starts)
	}
	// no gap after the last line
	if r.Scenes[0].DurationFrames != 30*3+5*2+10 {
		t.Fatalf("scene 0 duration = %d", r.Scenes[0].DurationFrames)
	}
	if r.Scenes[1].DurationFrames != 10 || r.Scenes[1].StartFrame != 110 {
		t.Fatalf("empty scene = %+v", r.Scenes[1])
	}
	if r.TotalFrames != 120 {
		t.Fatalf("total = %d", r.TotalFrames)
	}
}

func TestCalculateNonPositiveDefaultLineFrames(t *testing.T) {
	r := Calculate(1, []int{1}, nil, &Options{SceneBufferFrames: 15})
	if r.Scenes[0].Lines[0].DurationFrames != DefaultLineFrames {
		t.Fatalf("duration = %d", r.Scenes[0].Lines[0].DurationFrames)
	}
}

func TestCalculateShortLineCounts(t *testing.T) {
	r := Calculate(3, []int{1}, nil, nil)
	if len(r.Scenes) != 3 || len(r.Scenes[2].Lines) != 0 {
		t.Fatalf("result = %+v", r)
	}
	if r.TotalFrames != 105+15+15 {
		t.Fatalf("total = %d", r.TotalFrames)
	}
}

func TestCalculateDeterministic(t *testing.T) {
	m := &Manifest{Files: []ManifestEntry{{Scene: 1, Line: 0, DurationFrames: 42}}}
	a := Calculate(3, []int{2, 1, 4}, m, nil)
	b := Calculate(3, []int{2, 1, 4}, m, nil)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("results differ")
	}
}

func TestActiveLineIndex(t *testing.T) {
	st := Calculate(1, []int{2}, nil, nil).Scenes[0]
	cases := map[int]int{-10: 0, 0: 0, 89: 0, 90: 1, 179: 1, 500: 1}
	for frame, want := range cases {
		if got := ActiveLineIndex(st, frame); got != want {
			t.Fatalf("frame %d: got %d want %d", frame, got, want)
		}
	}
	if got := ActiveLineIndex(SceneTiming{}, 10); got != 0 {
		t.Fatalf("no lines: got %d", got)
	}
}

func TestSceneAt(t *testing.T) {
	r := Calculate(2, []int{2, 1}, nil, nil)
	cases := map[int]int{-1: -1, 0: 0, 194: 0, 195: 1, 299: 1, 300: -1}
	for frame, want := range cases {
		if got := r.SceneAt(frame); got != want {
			t.Fatalf("frame %d: got %d want %d", frame, got, want)
		}
	}
}

func TestYAML(t *testing.T) {
	out, err := Calculate(1, []int{1}, nil, nil).YAML()
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "total_frames: 105") || !strings.Contains(s, "duration: 90") {
		t.Fatalf("yaml = %s", s)
	}
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	body := `{"files":[{"scene":0,"line":0,"speaker":"left","text":"hi","path":"audio/0-0.wav","durationSeconds":1.5,"durationFrames":45}]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.FPS != DefaultFPS || len(m.Files) != 1 || m.Files[0].DurationFrames != 45 {
		t.Fatalf("manifest = %+v", m)
	}
	if _, err := LoadManifest(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing manifest")
	}
}

func TestFramesFor(t *testing.T) {
	cases := []struct {
		sec  float64
		fps  int
		want int
	}{
		{1.5, 30, 45},
		{0.1, 30, 3},
		{2.01, 30, 61},
		{0, 30, 0},
		{1, 0, 0},
	}
	for _, c := range cases {
		if got := FramesFor(c.sec, c.fps); got != c.want {
			t.Fatalf("FramesFor(%v, %d) = %d, want %d", c.sec, c.fps, got, c.want)
		}
	}
}
