/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"regexp"
	"strings"

	applog "slidecast/internal/log"
)

var (
	reFrontKey   = regexp.MustCompile(`^([a-zA-Z_]\w*):\s*(.*)$`)
	reHeading    = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	reH1         = regexp.MustCompile(`^#\s+`)
	reTableSep   = regexp.MustCompile(`^\|[\s\-:|]+\|$`)
	reOrdered    = regexp.MustCompile(`^\d+\.\s+`)
	reBullet     = regexp.MustCompile(`^[-*]\s+`)
	reSubBullet  = regexp.MustCompile(`^\s{2,}[-*]\s+`)
	reQuoteMark  = regexp.MustCompile(`^>\s?`)
	reDemoMarker = regexp.MustCompile(`^→\s*`)
)

const fence = "```"

// Parse reads text into a Document. It never fails: malformed input such as
// an unterminated frontmatter block or an over-deep heading is absorbed as
// ordinary body text.
func Parse(text string) *Document {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	fm, body := extractFrontmatter(normalized)
	lines := strings.Split(body, "\n")

	title := fm["title"]
	if title == "" {
		title = firstHeading(lines)
	}
	summary := fm["summary"]
	if summary == "" {
		summary = fm["description"]
	}

	return &Document{
		Frontmatter: fm,
		Title:       title,
		Summary:     summary,
		Sections:    Nest(scanSections(lines)),
		RawText:     text,
	}
}

// extractFrontmatter consumes every leading ---...--- block. Later blocks
// override keys from earlier ones.
func extractFrontmatter(text string) (map[string]string, string) {
	fm := map[string]string{}
	rest := text
	for strings.HasPrefix(rest, "---") {
		end := strings.Index(rest[3:], "---")
		if end < 0 {
			applog.WithComponent("document").Warn("unterminated frontmatter block, treating as body")
			break
		}
		parseFrontmatterBlock(strings.TrimSpace(rest[3:3+end]), fm)
		rest = strings.TrimLeft(rest[3+end+3:], " \t\n\r")
	}
	return fm, rest
}

// parseFrontmatterBlock understands flat "key: value" pairs and "- item" lines,
// which are appended to the last seen key separated by ", ".
func parseFrontmatterBlock(block string, into map[string]string) {
	currentKey := ""
	for _, line := range strings.Split(block, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := reFrontKey.FindStringSubmatch(trimmed); m != nil {
			currentKey = m[1]
			v := strings.TrimSpace(m[2])
			if v != "" && !strings.HasPrefix(v, "-") {
				into[currentKey] = v
			}
			continue
		}
		if currentKey != "" && strings.HasPrefix(trimmed, "- ") {
			item := strings.TrimSpace(trimmed[2:])
			if prev := into[currentKey]; prev != "" {
				into[currentKey] = prev + ", " + item
			} else {
				into[currentKey] = item
			}
		}
	}
}

// firstHeading returns the text of the first H1 outside fenced code.
func firstHeading(lines []string) string {
	inCode := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), fence) {
			inCode = !inCode
			continue
		}
		if inCode || strings.HasPrefix(line, "##") {
			continue
		}
		if loc := reH1.FindStringIndex(line); loc != nil {
			return strings.TrimSpace(line[loc[1]:])
		}
	}
	return ""
}

// scanSections is the single pass line classifier. It returns sections in
// document order with their levels; nesting happens in Nest.
func scanSections(lines []string) []*Section {
	var (
		flat      []*Section
		current   *Section
		inCode    bool
		codeLang  string
		codeLines []string
	)

	ensureSection := func() {
		if current == nil {
			current = &Section{Level: 0}
		}
	}
	flushCode := func() {
		ensureSection()
		current.Content = append(current.Content, Element{Kind: KindCode, Language: codeLang, Text: strings.Join(codeLines, "\n")})
		inCode, codeLang, codeLines = false, "", nil
	}

	for _, line := range lines {
		if lead := strings.TrimLeft(line, " \t"); strings.HasPrefix(lead, fence) {
			if inCode {
				flushCode()
			} else {
				inCode = true
				codeLang = strings.TrimSpace(lead[len(fence):])
				codeLines = nil
			}
			continue
		}
		if inCode {
			codeLines = append(codeLines, line)
			continue
		}

		if m := reHeading.FindStringSubmatch(line); m != nil {
			if current != nil {
				flat = append(flat, current)
			}
			current = &Section{Level: len(m[1]), Title: strings.TrimSpace(m[2])}
			continue
		}

		ensureSection()
		classifyLine(line, current)
	}

	if inCode {
		applog.WithComponent("document").Warn("unterminated code fence at end of input", "language", codeLang)
		flushCode()
	}
	if current != nil {
		flat = append(flat, current)
	}

	kept := flat[:0]
	for _, s := range flat {
		if s.Level > 0 || len(s.Content) > 0 {
			kept = append(kept, s)
		}
	}
	return kept
}

// classifyLine appends one non-heading, non-code line to the section,
// merging into the trailing element when it has the same kind.
func classifyLine(line string, s *Section) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || trimmed == "---" {
		return
	}

	last := func(k Kind) *Element {
		if n := len(s.Content); n > 0 && s.Content[n-1].Kind == k {
			return &s.Content[n-1]
		}
		return nil
	}

	switch {
	case strings.HasPrefix(line, "> ") || line == ">":
		text := reQuoteMark.ReplaceAllString(line, "")
		if el := last(KindBlockquote); el != nil {
			el.Text += "\n" + text
		} else {
			s.Content = append(s.Content, Element{Kind: KindBlockquote, Text: text})
		}

	case strings.HasPrefix(trimmed, "|"):
		if reTableSep.MatchString(trimmed) {
			return
		}
		cells := tableCells(trimmed)
		if el := last(KindTable); el != nil {
			el.Rows = append(el.Rows, cells)
		} else {
			s.Content = append(s.Content, Element{Kind: KindTable, Headers: cells, Rows: [][]string{}})
		}

	case reOrdered.MatchString(trimmed):
		appendItem(s, last(KindList), strings.TrimSpace(reOrdered.ReplaceAllString(trimmed, "")))

	case reBullet.MatchString(trimmed) || reSubBullet.MatchString(line):
		appendItem(s, last(KindList), strings.TrimSpace(reBullet.ReplaceAllString(trimmed, "")))

	case strings.HasPrefix(trimmed, "→"):
		s.Content = append(s.Content, Element{Kind: KindDemo, Text: strings.TrimSpace(reDemoMarker.ReplaceAllString(trimmed, ""))})

	default:
		if el := last(KindParagraph); el != nil {
			el.Text += "\n" + trimmed
		} else {
			s.Content = append(s.Content, Element{Kind: KindParagraph, Text: trimmed})
		}
	}
}

func appendItem(s *Section, list *Element, item string) {
	if list != nil {
		list.Items = append(list.Items, item)
		return
	}
	s.Content = append(s.Content, Element{Kind: KindList, Items: []string{item}})
}

// tableCells splits "| a | b |" into ["a", "b"]. The text before the first
// pipe and after the last one is ignored.
func tableCells(row string) []string {
	parts := strings.Split(row, "|")
	if len(parts) < 2 {
		return []string{}
	}
	parts = parts[1 : len(parts)-1]
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}
