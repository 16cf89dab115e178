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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"slidecast/internal/document"
	applog "slidecast/internal/log"
)

const convertSystemInstruction = `You turn one section group of a document into one scene of a narrated slide video.

Decide three things:
1. The slide type, one of: ` + slideTypeList + `
2. The slide data for that type, for example
   list/steps/checklist/tips/warning/agenda/summary/process/image-text: title, items
   table: tableHeaders, tableRows
   title/bridge/highlight: title, subtitle; ending adds ctaText
   quote: quote, attribution; definition: title, definition
   stat: title, statValue, statLabel; code: title, code, language
   qa: question, answer
   comparison/two-column/before-after: title, leftColumn {title, items}, rightColumn {title, items}
   profile: title, profileName, profileRole, items
   metrics: title, metrics [{label, value, change}]; icon-list: title, iconItems [{icon, text}]
   Optionally a diagram {"type": one of ` + diagramTypeList + `, ...} when data is better shown as a chart.
3. A dialogue of 2 to 8 lines between "left" (the presenter, who always speaks first) and "right" (an assistant who asks and summarizes).

When the section has spoken content use it as the basis of the dialogue, otherwise derive the dialogue from the content.

Output JSON:
{"sceneTitle": "...", "slideType": "...", "slideData": {"title": "..."}, "lines": [{"speaker": "left", "text": "..."}], "transition": "fade"}

Do not include type in slideData. Use "fade" unless another transition clearly fits.`

// Cache stores successful conversions by prompt key so reruns of an unchanged
// document skip the generator.
type Cache interface {
	Lookup(ctx context.Context, key string) (Conversion, bool, error)
	Store(ctx context.Context, key string, conv Conversion) error
}

// Converter turns plans into conversions, one generator call per plan.
type Converter struct {
	gen TextGenerator
	log *slog.Logger

	// Cache is optional.
	Cache Cache
	// Check, when set, vets a decoded conversion before it is accepted.
	// A non-nil error makes the scene fall back.
	Check func(Conversion) error
}

func NewConverter(gen TextGenerator) *Converter {
	return &Converter{gen: gen, log: applog.WithComponent("converter")}
}

// Batch is the outcome of ConvertAll. Fallbacks lists the indices that were
// replaced by Fallback.
type Batch struct {
	Conversions []Conversion
	Fallbacks   []int
}

// ConvertAll converts plans strictly in order. A failed scene is replaced by
// Fallback so the batch always has one conversion per plan. The only error is
// the context's: conversions finished before cancellation are kept in the batch.
func (c *Converter) ConvertAll(ctx context.Context, doc *document.Document, plans []Plan) (Batch, error) {
	b := Batch{Conversions: make([]Conversion, 0, len(plans))}
	for i, plan := range plans {
		if err := ctx.Err(); err != nil {
			return b, err
		}
		conv, err := c.Convert(ctx, doc, plan, Position{Index: i, Total: len(plans)})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return b, ctxErr
			}
			c.log.Warn("scene conversion failed, using fallback", slog.Any("err", &ConversionError{Index: i, SceneTitle: plan.SceneTitle, Err: err}))
			conv = Fallback(plan)
			b.Fallbacks = append(b.Fallbacks, i)
		}
		b.Conversions = append(b.Conversions, conv)
	}
	return b, nil
}

// Convert issues one generation call for plan and decodes the result.
func (c *Converter) Convert(ctx context.Context, doc *document.Document, plan Plan, pos Position) (Conversion, error) {
	prompt := ScenePrompt(doc, document.Flatten(doc.Sections), plan, pos)
	key := CacheKey(convertSystemInstruction, prompt)
	l := c.log.With(slog.Int("scene", pos.Index+1), slog.Int("of", pos.Total))

	if c.Cache != nil {
		conv, ok, err := c.Cache.Lookup(ctx, key)
		switch {
		case err != nil:
			l.Warn("conversion cache lookup failed", slog.Any("err", err))
		case ok:
			l.Debug("conversion cache hit")
			return conv, nil
		}
	}

	raw, err := c.gen.GenerateStructured(ctx, prompt, convertSystemInstruction)
	if err != nil {
		return Conversion{}, err
	}
	conv, err := decodeConversion(raw)
	if err != nil {
		return Conversion{}, err
	}
	if c.Check != nil {
		if err := c.Check(conv); err != nil {
			return Conversion{}, fmt.Errorf("rejected conversion: %w", err)
		}
	}
	l.Info("converted scene", slog.String("title", conv.SceneTitle), slog.String("slide", conv.SlideType), slog.Int("lines", len(conv.Lines)))

	if c.Cache != nil {
		if err := c.Cache.Store(ctx, key, conv); err != nil {
			l.Warn("conversion cache store failed", slog.Any("err", err))
		}
	}
	return conv, nil
}

// Fallback is the deterministic stand-in for a scene whose conversion failed.
func Fallback(plan Plan) Conversion {
	return Conversion{
		SceneTitle: plan.SceneTitle,
		SlideType:  "list",
		SlideData: map[string]any{
			"title": plan.SceneTitle,
			"items": []any{"(add content manually)"},
		},
		Lines:      []Line{{Speaker: SpeakerLeft, Text: plan.SceneTitle}},
		Transition: "fade",
	}
}

// CacheKey identifies a generation request by its full input.
func CacheKey(systemInstruction, prompt string) string {
	h := sha256.New()
	h.Write([]byte(systemInstruction))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// ScenePrompt renders the sections referenced by plan. Indices outside flat
// are skipped.
func ScenePrompt(doc *document.Document, flat []document.FlatSection, plan Plan, pos Position) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document: %s\n", doc.Title)
	fmt.Fprintf(&b, "Scene %d of %d\n", pos.Index+1, pos.Total)
	fmt.Fprintf(&b, "Suggested slide type: %s\n", plan.SlideTypeHint)
	if plan.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", plan.Notes)
	}
	b.WriteString("\n")

	for _, idx := range plan.SectionIndices {
		if idx < 0 || idx >= len(flat) {
			continue
		}
		s := flat[idx].Section
		fmt.Fprintf(&b, "### %s\n\n", s.Title)
		for _, el := range s.Content {
			writeElement(&b, el)
		}
	}

	if pos.First() {
		b.WriteString("\nThis is the first scene of the video. Consider slide type \"title\".\n")
	}
	if pos.Last() {
		b.WriteString("\nThis is the last scene of the video. Consider slide type \"ending\".\n")
	}
	return b.String()
}

func writeElement(b *strings.Builder, el document.Element) {
	switch el.Kind {
	case document.KindBlockquote:
		fmt.Fprintf(b, "[spoken]\n%s\n\n", el.Text)
	case document.KindTable:
		fmt.Fprintf(b, "[table]\nheaders: %s\n", strings.Join(el.Headers, " | "))
		for _, row := range el.Rows {
			fmt.Fprintf(b, "  %s\n", strings.Join(row, " | "))
		}
		b.WriteString("\n")
	case document.KindList:
		b.WriteString("[bullets]\n")
		for _, it := range el.Items {
			fmt.Fprintf(b, "- %s\n", it)
		}
		b.WriteString("\n")
	case document.KindDemo:
		fmt.Fprintf(b, "[demo] %s\n\n", el.Text)
	case document.KindCode:
		fmt.Fprintf(b, "[code] (%s)\n```%s\n%s\n```\n\n", el.Language, el.Language, el.Text)
	case document.KindParagraph:
		fmt.Fprintf(b, "%s\n\n", el.Text)
	}
}

var errNotObject = errors.New("conversion is not a JSON object")

// decodeConversion rejects shapes that cannot be a scene: non-objects,
// non-object slideData, unknown speakers and transitions.
func decodeConversion(raw json.RawMessage) (Conversion, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Conversion{}, errNotObject
	}
	var conv Conversion
	if err := json.Unmarshal(trimmed, &conv); err != nil {
		return Conversion{}, fmt.Errorf("decode conversion: %w", err)
	}
	for i, ln := range conv.Lines {
		if ln.Speaker != SpeakerLeft && ln.Speaker != SpeakerRight {
			return Conversion{}, fmt.Errorf("line %d: unknown speaker %q", i+1, ln.Speaker)
		}
	}
	if conv.Transition != "" && !validTransition(conv.Transition) {
		return Conversion{}, fmt.Errorf("unknown transition %q", conv.Transition)
	}
	return conv, nil
}
