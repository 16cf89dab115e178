/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package timeline

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Manifest is audio/manifest.json as written by the speech synthesis step.
type Manifest struct {
	FPS   int             `json:"fps"`
	Files []ManifestEntry `json:"files"`
}

// ManifestEntry describes the audio of one line. Scene and Line are 0-based.
type ManifestEntry struct {
	Scene           int     `json:"scene"`
	Line            int     `json:"line"`
	Speaker         string  `json:"speaker,omitempty"`
	Text            string  `json:"text,omitempty"`
	Path            string  `json:"path"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	DurationFrames  int     `json:"durationFrames"`
}

type key struct{ scene, line int }

// index maps (scene, line) to its entry. The first entry for a pair wins.
func (m *Manifest) index() map[key]ManifestEntry {
	if m == nil {
		return nil
	}
	out := make(map[key]ManifestEntry, len(m.Files))
	for _, e := range m.Files {
		k := key{e.Scene, e.Line}
		if _, dup := out[k]; dup {
			continue
		}
		out[k] = e
	}
	return out
}

// LoadManifest reads a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.FPS <= 0 {
		m.FPS = DefaultFPS
	}
	return &m, nil
}

// FramesFor converts an audio duration to whole frames, rounding up so audio
// is never cut off. The epsilon keeps 0.1s at 30 fps at 3 frames.
func FramesFor(seconds float64, fps int) int {
	if seconds <= 0 || fps <= 0 {
		return 0
	}
	return int(math.Ceil(seconds*float64(fps) - 1e-9))
}
