/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"slidecast/internal/document"
	applog "slidecast/internal/log"
	"slidecast/internal/scene"
)

// Sanitize repairs one raw conversion at 0-based position index:
//
//  1. an empty scene title falls back to slideData.title, then "Scene <index+1>"
//  2. an unknown slide type becomes "list"
//  3. a diagram without a known type is removed; slide keys the format does not know are removed
//  4. a scene without lines gets one line by the left speaker reading the title
//
// The input is not modified and Sanitize(Sanitize(c, i), i) equals Sanitize(c, i).
func Sanitize(conv scene.Conversion, index int) scene.Conversion {
	l := applog.WithComponent("assembler").With(slog.Int("scene", index+1))

	title := conv.SceneTitle
	if title == "" {
		if t, ok := conv.SlideData["title"].(string); ok && t != "" {
			title = t
		}
	}
	if title == "" {
		title = fmt.Sprintf("Scene %d", index+1)
	}

	slideType := conv.SlideType
	if !ValidSlideType(slideType) {
		l.Warn("invalid slide type, falling back to list", slog.String("slideType", slideType))
		slideType = "list"
	}

	var data map[string]any
	if conv.SlideData != nil {
		data = make(map[string]any, len(conv.SlideData))
		var dropped []string
		for k, v := range conv.SlideData {
			if _, ok := slideFields[k]; !ok {
				dropped = append(dropped, k)
				continue
			}
			data[k] = v
		}
		if len(dropped) > 0 {
			sort.Strings(dropped)
			l.Debug("dropped unknown slide fields", slog.Any("fields", dropped))
		}
		if d, ok := data["diagram"]; ok && !knownDiagram(d) {
			l.Warn("invalid diagram, removing it", slog.Any("diagram", diagramType(d)))
			delete(data, "diagram")
		}
	}

	lines := conv.Lines
	if len(lines) == 0 {
		lines = []scene.Line{{Speaker: scene.SpeakerLeft, Text: title}}
	}

	return scene.Conversion{
		SceneTitle: title,
		SlideType:  slideType,
		SlideData:  data,
		Lines:      lines,
		Transition: conv.Transition,
	}
}

func knownDiagram(d any) bool {
	m, ok := d.(map[string]any)
	if !ok {
		return false
	}
	t, ok := m["type"].(string)
	return ok && ValidDiagramType(t)
}

func diagramType(d any) any {
	if m, ok := d.(map[string]any); ok {
		return m["type"]
	}
	return d
}

// wireScene is a scene in the canonical JSON shape before it is typed.
type wireScene struct {
	Title      string         `json:"title"`
	Slide      map[string]any `json:"slide"`
	Lines      []scene.Line   `json:"lines"`
	Transition string         `json:"transition,omitempty"`
}

type wireScript struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Scenes      []wireScene `json:"scenes"`
}

// toWire flattens a sanitized conversion into {type, ...slideData}. The
// validated type always wins over a "type" key in the slide data.
func toWire(c scene.Conversion) wireScene {
	slide := make(map[string]any, len(c.SlideData)+1)
	for k, v := range c.SlideData {
		slide[k] = v
	}
	slide["type"] = c.SlideType
	lines := c.Lines
	if lines == nil {
		lines = []scene.Line{}
	}
	return wireScene{Title: c.SceneTitle, Slide: slide, Lines: lines, Transition: c.Transition}
}

// Assemble sanitizes conversions, which must be in plan order, and builds the
// canonical script. It returns *AssemblyError when the result still violates
// the schema.
func Assemble(doc *document.Document, convs []scene.Conversion) (*Script, error) {
	w := wireScript{Title: doc.Title, Description: doc.Summary, Scenes: make([]wireScene, len(convs))}
	for i, c := range convs {
		w.Scenes[i] = toWire(Sanitize(c, i))
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, &AssemblyError{Err: err}
	}
	if err := validateJSON(data); err != nil {
		return nil, err
	}
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &AssemblyError{Err: err}
	}
	applog.WithComponent("assembler").Info("assembled script", slog.String("title", s.Title), slog.Int("scenes", len(s.Scenes)))
	return &s, nil
}

// Check reports whether a single conversion would assemble cleanly. The
// converter uses it to reject generator output early so the scene falls
// back instead of failing the whole script.
func Check(conv scene.Conversion) error {
	data, err := json.Marshal(wireScript{Scenes: []wireScene{toWire(Sanitize(conv, 0))}})
	if err != nil {
		return &AssemblyError{Err: err}
	}
	return validateJSON(data)
}
