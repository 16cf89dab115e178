/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script assembles converted scenes into the canonical, schema-valid
// script that the renderer and the audio step consume.
package script

// Script is the canonical persisted format (script.json).
type Script struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Scenes      []Scene `json:"scenes"`
}

type Scene struct {
	Title      string `json:"title"`
	Slide      Slide  `json:"slide"`
	Lines      []Line `json:"lines"`
	Transition string `json:"transition,omitempty"`
}

type Line struct {
	Speaker    string       `json:"speaker"`
	Text       string       `json:"text"`
	Expression string       `json:"expression,omitempty"`
	SE         *SoundEffect `json:"se,omitempty"`
}

// Slide carries the slide type plus the fields that type uses. Only the
// fields relevant to Type are expected to be set.
type Slide struct {
	Type         string         `json:"type"`
	Title        string         `json:"title,omitempty"`
	Subtitle     string         `json:"subtitle,omitempty"`
	Items        []string       `json:"items,omitempty"`
	Image        *ImageSource   `json:"image,omitempty"`
	TableHeaders []string       `json:"tableHeaders,omitempty"`
	TableRows    [][]string     `json:"tableRows,omitempty"`
	Diagram      map[string]any `json:"diagram,omitempty"`
	SE           *SoundEffect   `json:"se,omitempty"`
	CTAText      string         `json:"ctaText,omitempty"`
	Annotations  []Annotation   `json:"annotations,omitempty"`
	Definition   string         `json:"definition,omitempty"`
	Quote        string         `json:"quote,omitempty"`
	Attribution  string         `json:"attribution,omitempty"`
	Code         string         `json:"code,omitempty"`
	Language     string         `json:"language,omitempty"`
	StatValue    string         `json:"statValue,omitempty"`
	StatLabel    string         `json:"statLabel,omitempty"`
	LeftColumn   *Column        `json:"leftColumn,omitempty"`
	RightColumn  *Column        `json:"rightColumn,omitempty"`
	Question     string         `json:"question,omitempty"`
	Answer       string         `json:"answer,omitempty"`
	Images       []ImageSource  `json:"images,omitempty"`
	ProfileImage *ImageSource   `json:"profileImage,omitempty"`
	ProfileName  string         `json:"profileName,omitempty"`
	ProfileRole  string         `json:"profileRole,omitempty"`
	Metrics      []Metric       `json:"metrics,omitempty"`
	IconItems    []IconItem     `json:"iconItems,omitempty"`
}

// ImageSource is either a generation prompt (Source "generate") or a static
// file (Source "static").
type ImageSource struct {
	Source string `json:"source"`
	Prompt string `json:"prompt,omitempty"`
	Path   string `json:"path,omitempty"`
}

type SoundEffect struct {
	Path   string   `json:"path"`
	Volume *float64 `json:"volume,omitempty"`
}

type Annotation struct {
	Type         string       `json:"type"`
	X            float64      `json:"x"`
	Y            float64      `json:"y"`
	Width        *float64     `json:"width,omitempty"`
	Height       *float64     `json:"height,omitempty"`
	TargetX      *float64     `json:"targetX,omitempty"`
	TargetY      *float64     `json:"targetY,omitempty"`
	Color        string       `json:"color,omitempty"`
	Label        string       `json:"label,omitempty"`
	TriggerFrame *float64     `json:"triggerFrame,omitempty"`
	SE           *SoundEffect `json:"se,omitempty"`
}

type Column struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

type Metric struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	Change string `json:"change,omitempty"`
}

type IconItem struct {
	Icon string `json:"icon"`
	Text string `json:"text"`
}

// SlideTypes is the closed set of slide templates.
var SlideTypes = []string{
	"title", "list", "steps", "image-text", "table", "summary", "ending",
	"bridge", "quote", "definition", "highlight", "tips", "warning",
	"comparison", "stat", "checklist", "before-after", "code", "qa", "two-column", "agenda",
	"gallery", "process", "profile", "metrics", "icon-list",
}

// DiagramTypes is the closed set of diagram kinds a slide may embed.
var DiagramTypes = []string{
	"timeline", "cycle", "pie", "matrix", "venn", "funnel", "pyramid",
	"bar", "line", "flow", "tree", "radar", "gantt", "area", "network",
}

// slideFields are the keys a slide may carry besides "type".
var slideFields = map[string]struct{}{
	"title": {}, "subtitle": {}, "items": {}, "image": {}, "tableHeaders": {}, "tableRows": {},
	"diagram": {}, "se": {}, "ctaText": {}, "annotations": {}, "definition": {}, "quote": {},
	"attribution": {}, "code": {}, "language": {}, "statValue": {}, "statLabel": {},
	"leftColumn": {}, "rightColumn": {}, "question": {}, "answer": {}, "images": {},
	"profileImage": {}, "profileName": {}, "profileRole": {}, "metrics": {}, "iconItems": {},
}

var (
	slideTypeSet   = toSet(SlideTypes)
	diagramTypeSet = toSet(DiagramTypes)
)

func toSet(vs []string) map[string]struct{} {
	m := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		m[v] = struct{}{}
	}
	return m
}

// ValidSlideType reports whether t is one of SlideTypes.
func ValidSlideType(t string) bool {
	_, ok := slideTypeSet[t]
	return ok
}

// ValidDiagramType reports whether t is one of DiagramTypes.
func ValidDiagramType(t string) bool {
	_, ok := diagramTypeSet[t]
	return ok
}

// LinesPerScene returns the number of lines of each scene, in order.
func (s *Script) LinesPerScene() []int {
	out := make([]int, len(s.Scenes))
	for i, sc := range s.Scenes {
		out[i] = len(sc.Lines)
	}
	return out
}
