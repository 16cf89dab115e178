/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"slidecast/internal/document"
	applog "slidecast/internal/log"
)

const planSystemInstruction = `You split a document into the scenes of a narrated slide video.

Input: the document's sections, one per line, as
[index] (H<level>) title -> content digest

Output JSON:
{"scenes": [{"sceneTitle": "...", "sectionIndices": [0, 1], "slideTypeHint": "title", "notes": "..."}]}

Rules:
- Aim for 5 to 20 scenes.
- Merge small sections, split very large ones.
- Prefer "title" for the first scene and "ending" for the last.
- Collect FAQ style sections into one "qa" scene.
- Skip sections that only have a heading.
- When numbers, processes or relations would read better as a chart, say so in notes (for example "diagram: bar").

Slide types: ` + slideTypeList + `
Diagram types: ` + diagramTypeList

const (
	slideTypeList   = "title, list, steps, image-text, table, summary, ending, bridge, quote, definition, highlight, tips, warning, comparison, stat, checklist, before-after, code, qa, two-column, agenda, gallery, process, profile, metrics, icon-list"
	diagramTypeList = "timeline, cycle, pie, matrix, venn, funnel, pyramid, bar, line, flow, tree, radar, gantt, area, network"
)

// Planner asks the generator how to group a document's sections into scenes.
type Planner struct {
	gen TextGenerator
	log *slog.Logger
}

func NewPlanner(gen TextGenerator) *Planner {
	return &Planner{gen: gen, log: applog.WithComponent("planner")}
}

// Plan issues a single planning call. Any failure, including a generator
// error, is returned as *PlanningError.
func (p *Planner) Plan(ctx context.Context, doc *document.Document) ([]Plan, error) {
	flat := document.Flatten(doc.Sections)
	prompt := PlanPrompt(doc, flat)

	raw, err := p.gen.GenerateStructured(ctx, prompt, planSystemInstruction)
	if err != nil {
		return nil, &PlanningError{Reason: "generation failed", Err: err}
	}
	plans, err := decodePlans(raw)
	if err != nil {
		return nil, err
	}
	p.log.Info("planned scenes", slog.Int("sections", len(flat)), slog.Int("scenes", len(plans)))
	return plans, nil
}

// PlanPrompt renders the document overview sent to the planner.
func PlanPrompt(doc *document.Document, flat []document.FlatSection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document: %s\n", doc.Title)
	summary := doc.Summary
	if summary == "" {
		summary = "(none)"
	}
	fmt.Fprintf(&b, "Summary: %s\n\nSections:\n", summary)
	for _, f := range flat {
		title := f.Section.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&b, "[%d] (H%d) %s -> %s\n", f.Index, f.Section.Level, title, document.Summarize(f.Section))
	}
	return b.String()
}

// decodePlans accepts a bare array or an object with a "scenes" array.
func decodePlans(raw json.RawMessage) ([]Plan, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &PlanningError{Reason: "empty response"}
	}

	list := trimmed
	if trimmed[0] == '{' {
		var wrapper struct {
			Scenes json.RawMessage `json:"scenes"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, &PlanningError{Reason: "malformed response", Response: excerpt(trimmed, 200), Err: err}
		}
		list = bytes.TrimSpace(wrapper.Scenes)
	}
	if len(list) == 0 || list[0] != '[' {
		return nil, &PlanningError{Reason: "response holds no scene list", Response: excerpt(trimmed, 200)}
	}

	var plans []Plan
	if err := json.Unmarshal(list, &plans); err != nil {
		return nil, &PlanningError{Reason: "malformed scene list", Response: excerpt(trimmed, 200), Err: err}
	}
	if len(plans) == 0 {
		return nil, &PlanningError{Reason: "scene list is empty"}
	}
	return plans, nil
}
