/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders review artifacts from a finished script.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"slidecast/internal/script"
	"slidecast/internal/timeline"
)

// PDFOptions controls the storyboard layout. Units are points.
type PDFOptions struct {
	// PageSize is "A4" (default) or "Letter"; pages are always landscape.
	PageSize string
	// FPS converts frames to seconds in the page header. Zero means timeline.DefaultFPS.
	FPS int
	// BaseDir anchors a relative outPath, typically <workspace>/exports.
	BaseDir string
	// IncludeGuides draws a frame around the slide area.
	IncludeGuides bool
}

type rgb struct{ r, g, b int }

var (
	leftColor   = rgb{41, 98, 255}
	rightColor  = rgb{230, 81, 0}
	mutedColor  = rgb{110, 110, 110}
	guideColor  = rgb{200, 200, 200}
	margin      = 36.0
	lineSpacing = 15.0
)

// StoryboardPDF writes one page per scene: title, slide type and frame range
// in the header, the slide's main fields, then every line with its speaker and
// start frame. tl may be the zero Result, in which case timings are omitted.
func StoryboardPDF(s *script.Script, tl timeline.Result, outPath string, opt PDFOptions) error {
	if s == nil {
		return errors.New("script is nil")
	}
	if strings.TrimSpace(outPath) == "" {
		return errors.New("output path is required")
	}
	pdf := storyboard(s, tl, opt)
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if !filepath.IsAbs(outPath) && opt.BaseDir != "" {
		outPath = filepath.Join(opt.BaseDir, outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func storyboard(s *script.Script, tl timeline.Result, opt PDFOptions) *gofpdf.Fpdf {
	size := "A4"
	if strings.EqualFold(opt.PageSize, "letter") {
		size = "Letter"
	}
	fps := opt.FPS
	if fps <= 0 {
		fps = timeline.DefaultFPS
	}
	pdf := gofpdf.New("L", "pt", size, "")
	// Core fonts are cp1252; translate UTF-8 input.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(s.Title), false)
	pdf.SetAuthor("slidecast", false)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 28)
	pdf.SetY(160)
	pdf.MultiCell(0, 34, tr(s.Title), "", "C", false)
	if s.Description != "" {
		pdf.SetFont("Helvetica", "", 14)
		setText(pdf, mutedColor)
		pdf.MultiCell(0, 20, tr(s.Description), "", "C", false)
		setText(pdf, rgb{})
	}
	pdf.Ln(20)
	pdf.SetFont("Helvetica", "", 12)
	summary := fmt.Sprintf("%d scenes", len(s.Scenes))
	if tl.TotalFrames > 0 {
		summary += fmt.Sprintf(" / %d frames (%s at %d fps)", tl.TotalFrames, clock(tl.TotalFrames, fps), fps)
	}
	pdf.CellFormat(0, 16, summary, "", 1, "C", false, 0, "")

	for i, sc := range s.Scenes {
		pdf.AddPage()
		var st *timeline.SceneTiming
		if i < len(tl.Scenes) {
			st = &tl.Scenes[i]
		}
		sceneHeader(pdf, tr, i, sc, st, fps)
		slideBody(pdf, tr, sc.Slide, opt.IncludeGuides)
		sceneLines(pdf, tr, sc.Lines, st)
	}
	return pdf
}

func sceneHeader(pdf *gofpdf.Fpdf, tr func(string) string, i int, sc script.Scene, st *timeline.SceneTiming, fps int) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 22, tr(fmt.Sprintf("%d. %s", i+1, sc.Title)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	setText(pdf, mutedColor)
	meta := "slide: " + sc.Slide.Type
	if sc.Transition != "" {
		meta += "  transition: " + sc.Transition
	}
	if st != nil {
		end := st.StartFrame + st.DurationFrames
		meta += fmt.Sprintf("  frames %d-%d (%s-%s)", st.StartFrame, end, clock(st.StartFrame, fps), clock(end, fps))
	}
	pdf.CellFormat(0, 14, meta, "", 1, "L", false, 0, "")
	setText(pdf, rgb{})
	pdf.Ln(6)
}

func slideBody(pdf *gofpdf.Fpdf, tr func(string) string, sl script.Slide, guides bool) {
	top := pdf.GetY()
	pdf.SetFont("Helvetica", "B", 14)
	if sl.Title != "" {
		pdf.MultiCell(0, 18, tr(sl.Title), "", "L", false)
	}
	pdf.SetFont("Helvetica", "", 11)
	if sl.Subtitle != "" {
		pdf.MultiCell(0, lineSpacing, tr(sl.Subtitle), "", "L", false)
	}
	for _, it := range sl.Items {
		pdf.MultiCell(0, lineSpacing, tr("- "+it), "", "L", false)
	}
	if len(sl.TableHeaders) > 0 {
		pdf.MultiCell(0, lineSpacing, tr(strings.Join(sl.TableHeaders, " | ")), "", "L", false)
		for _, row := range sl.TableRows {
			pdf.MultiCell(0, lineSpacing, tr(strings.Join(row, " | ")), "", "L", false)
		}
	}
	for _, txt := range []string{sl.Quote, sl.Definition, sl.Question, sl.Answer, sl.CTAText} {
		if txt != "" {
			pdf.MultiCell(0, lineSpacing, tr(txt), "", "L", false)
		}
	}
	if sl.StatValue != "" {
		pdf.MultiCell(0, lineSpacing, tr(sl.StatValue+" "+sl.StatLabel), "", "L", false)
	}
	for _, m := range sl.Metrics {
		pdf.MultiCell(0, lineSpacing, tr(m.Label+": "+m.Value), "", "L", false)
	}
	if sl.Code != "" {
		pdf.SetFont("Courier", "", 9)
		pdf.MultiCell(0, 11, tr(sl.Code), "", "L", false)
		pdf.SetFont("Helvetica", "", 11)
	}
	if t, ok := sl.Diagram["type"].(string); ok {
		setText(pdf, mutedColor)
		pdf.MultiCell(0, lineSpacing, "[diagram: "+t+"]", "", "L", false)
		setText(pdf, rgb{})
	}
	if guides {
		w, _ := pdf.GetPageSize()
		pdf.SetDrawColor(guideColor.r, guideColor.g, guideColor.b)
		pdf.SetLineWidth(0.5)
		pdf.Rect(margin-6, top-4, w-2*margin+12, pdf.GetY()-top+8, "D")
	}
	pdf.Ln(12)
}

func sceneLines(pdf *gofpdf.Fpdf, tr func(string) string, lines []script.Line, st *timeline.SceneTiming) {
	for j, ln := range lines {
		c := leftColor
		if ln.Speaker == "right" {
			c = rightColor
		}
		label := ln.Speaker
		if st != nil && j < len(st.Lines) {
			label = fmt.Sprintf("%s @%d", ln.Speaker, st.StartFrame+st.Lines[j].StartFrame)
		}
		pdf.SetFont("Helvetica", "B", 10)
		setText(pdf, c)
		pdf.CellFormat(90, lineSpacing, label, "", 0, "L", false, 0, "")
		setText(pdf, rgb{})
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, lineSpacing, tr(ln.Text), "", "L", false)
	}
}

func setText(pdf *gofpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }

// clock formats a frame count as m:ss.
func clock(frames, fps int) string {
	sec := frames / fps
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
