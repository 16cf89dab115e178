/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene groups document sections into scene plans and converts each
// plan into a raw scene through a text generation collaborator.
package scene

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Speakers a line can be attributed to.
const (
	SpeakerLeft  = "left"
	SpeakerRight = "right"
)

// Transitions accepted between scenes.
var Transitions = []string{"fade", "wipe", "slide", "zoom", "none"}

// TextGenerator produces a JSON document for a prompt. Implementations own
// their retry and pacing policy; a returned error means the call is given up.
type TextGenerator interface {
	GenerateStructured(ctx context.Context, prompt, systemInstruction string) (json.RawMessage, error)
}

// Plan is one planned scene. SectionIndices refer to document.Flatten order.
type Plan struct {
	SceneTitle     string `json:"sceneTitle"`
	SectionIndices []int  `json:"sectionIndices"`
	SlideTypeHint  string `json:"slideTypeHint"`
	Notes          string `json:"notes,omitempty"`
}

// UnmarshalJSON decodes a plan leniently. Model output drifts in field types,
// so text fields accept any scalar or a list of strings, and section indices
// accept integral numbers or numeric strings. Anything else is dropped rather
// than failing the whole scene list.
func (p *Plan) UnmarshalJSON(data []byte) error {
	*p = Plan{}
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil
	}
	p.SceneTitle = looseString(raw["sceneTitle"])
	p.SlideTypeHint = looseString(raw["slideTypeHint"])
	p.Notes = looseString(raw["notes"])
	if items, ok := raw["sectionIndices"].([]any); ok {
		p.SectionIndices = make([]int, 0, len(items))
		for _, it := range items {
			if idx, ok := looseIndex(it); ok {
				p.SectionIndices = append(p.SectionIndices, idx)
			}
		}
	}
	return nil
}

func looseString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, it := range x {
			if s := looseString(it); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

func looseIndex(v any) (int, bool) {
	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(x)
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// Line is one spoken utterance.
type Line struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Conversion is the untrusted result of converting one plan. SlideData holds
// the slide fields without the type, which is carried in SlideType.
type Conversion struct {
	SceneTitle string         `json:"sceneTitle"`
	SlideType  string         `json:"slideType"`
	SlideData  map[string]any `json:"slideData"`
	Lines      []Line         `json:"lines"`
	Transition string         `json:"transition,omitempty"`
}

// Position tells the converter where a scene sits in the batch.
type Position struct {
	Index int
	Total int
}

func (p Position) First() bool { return p.Index == 0 }
func (p Position) Last() bool  { return p.Index == p.Total-1 }

func validTransition(t string) bool {
	for _, v := range Transitions {
		if v == t {
			return true
		}
	}
	return false
}
