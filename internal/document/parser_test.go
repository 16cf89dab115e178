/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseTitleAndParagraph(t *testing.T) {
	doc := Parse("# Title\n\nParagraph.")
	if doc.Title != "Title" {
		t.Fatalf("title = %q", doc.Title)
	}
	if len(doc.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(doc.Sections))
	}
	s := doc.Sections[0]
	if s.Level != 1 || s.Title != "Title" {
		t.Fatalf("unexpected section: level=%d title=%q", s.Level, s.Title)
	}
	want := []Element{{Kind: KindParagraph, Text: "Paragraph."}}
	if !reflect.DeepEqual(s.Content, want) {
		t.Fatalf("content = %+v", s.Content)
	}
}

func TestParseTableSkipsSeparator(t *testing.T) {
	doc := Parse("|a|b|\n|---|---|\n|1|2|")
	if len(doc.Sections) != 1 || doc.Sections[0].Level != 0 {
		t.Fatalf("expected one implicit level-0 section, got %+v", doc.Sections)
	}
	c := doc.Sections[0].Content
	if len(c) != 1 || c[0].Kind != KindTable {
		t.Fatalf("expected one table element, got %+v", c)
	}
	if !reflect.DeepEqual(c[0].Headers, []string{"a", "b"}) {
		t.Fatalf("headers = %v", c[0].Headers)
	}
	if !reflect.DeepEqual(c[0].Rows, [][]string{{"1", "2"}}) {
		t.Fatalf("rows = %v", c[0].Rows)
	}
}

func TestParseFrontmatterBlocks(t *testing.T) {
	in := "---\ntitle: First\nsummary: short\ntags:\n- a\n- b\n---\n---\ntitle: Second\ntags:\n- c\n---\n# Heading\nbody"
	doc := Parse(in)
	if doc.Title != "Second" {
		t.Fatalf("later block should win: title=%q", doc.Title)
	}
	if doc.Frontmatter["tags"] != "a, b, c" {
		t.Fatalf("tags = %q", doc.Frontmatter["tags"])
	}
	if doc.Summary != "short" {
		t.Fatalf("summary = %q", doc.Summary)
	}
	if len(doc.Sections) != 1 || doc.Sections[0].Title != "Heading" {
		t.Fatalf("body sections = %+v", doc.Sections)
	}
	if doc.RawText != in {
		t.Fatalf("raw text not preserved")
	}
}

func TestParseSummaryFallsBackToDescription(t *testing.T) {
	doc := Parse("---\ndescription: about things\n---\nhello")
	if doc.Summary != "about things" {
		t.Fatalf("summary = %q", doc.Summary)
	}
	if doc.Title != "" {
		t.Fatalf("title should be empty without H1, got %q", doc.Title)
	}
}

func TestParseUnterminatedFrontmatterIsBody(t *testing.T) {
	doc := Parse("---\ntitle: x\nno end")
	if len(doc.Frontmatter) != 0 {
		t.Fatalf("frontmatter should be empty, got %v", doc.Frontmatter)
	}
	if len(doc.Sections) != 1 {
		t.Fatalf("sections = %+v", doc.Sections)
	}
	c := doc.Sections[0].Content
	if len(c) != 1 || c[0].Kind != KindParagraph || c[0].Text != "title: x\nno end" {
		t.Fatalf("content = %+v", c)
	}
}

func TestParseMergesAdjacentElements(t *testing.T) {
	in := strings.Join([]string{
		"# S",
		"> one",
		">",
		"> two",
		"- a",
		"1. b",
		"  - c",
		"first",
		"",
		"second",
		"→ run it",
		"→ again",
		"---",
		"tail",
	}, "\n")
	doc := Parse(in)
	got := doc.Sections[0].Content
	want := []Element{
		{Kind: KindBlockquote, Text: "one\n\ntwo"},
		{Kind: KindList, Items: []string{"a", "b", "c"}},
		{Kind: KindParagraph, Text: "first\nsecond"},
		{Kind: KindDemo, Text: "run it"},
		{Kind: KindDemo, Text: "again"},
		{Kind: KindParagraph, Text: "tail"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("content mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestParseCodeFenceIsVerbatim(t *testing.T) {
	in := "# Code\n```go\nfmt.Println(1)\n# not a heading\n\n| not | table |\n```\nafter"
	doc := Parse(in)
	if len(doc.Sections) != 1 {
		t.Fatalf("headings inside fences must not open sections: %+v", doc.Sections)
	}
	c := doc.Sections[0].Content
	if len(c) != 2 {
		t.Fatalf("content = %+v", c)
	}
	if c[0].Kind != KindCode || c[0].Language != "go" || c[0].Text != "fmt.Println(1)\n# not a heading\n\n| not | table |" {
		t.Fatalf("code element = %+v", c[0])
	}
	if c[1].Kind != KindParagraph || c[1].Text != "after" {
		t.Fatalf("paragraph after fence = %+v", c[1])
	}
}

func TestParseUnterminatedFenceFlushedAtEOF(t *testing.T) {
	doc := Parse("```sh\necho hi")
	if len(doc.Sections) != 1 {
		t.Fatalf("sections = %+v", doc.Sections)
	}
	c := doc.Sections[0].Content
	if len(c) != 1 || c[0].Kind != KindCode || c[0].Text != "echo hi" || c[0].Language != "sh" {
		t.Fatalf("content = %+v", c)
	}
}

func TestParseTitleIgnoresFencedH1(t *testing.T) {
	doc := Parse("```\n# fake\n```\n## Sub\n# Real")
	if doc.Title != "Real" {
		t.Fatalf("title = %q", doc.Title)
	}
}

func TestParseDropsEmptyPreamble(t *testing.T) {
	doc := Parse("\n\n---\n\n# A\ntext")
	if len(doc.Sections) != 1 || doc.Sections[0].Level != 1 {
		t.Fatalf("empty level-0 section should be dropped: %+v", doc.Sections)
	}
}

func TestParseOverDeepHeadingIsParagraph(t *testing.T) {
	doc := Parse("# A\n####### deep")
	c := doc.Sections[0].Content
	if len(c) != 1 || c[0].Kind != KindParagraph || c[0].Text != "####### deep" {
		t.Fatalf("content = %+v", c)
	}
}

func TestParseCRLF(t *testing.T) {
	doc := Parse("# T\r\n\r\nline one\r\nline two\r\n")
	if doc.Title != "T" {
		t.Fatalf("title = %q", doc.Title)
	}
	if got := doc.Sections[0].Content[0].Text; got != "line one\nline two" {
		t.Fatalf("paragraph = %q", got)
	}
}

func TestNestHeadingHierarchy(t *testing.T) {
	doc := Parse("intro\n# A\n## B\n### C\n## D\n# E")
	if got := shape(doc.Sections); got != "[:0 A:1[B:2[C:3] D:2] E:1]" {
		t.Fatalf("shape = %s", got)
	}
}

func TestChildLevelsStrictlyGreater(t *testing.T) {
	doc := Parse("### A\n# B\n## C\n#### D\n## E\n###### F\n### G")
	var check func(parent *Section)
	check = func(parent *Section) {
		for _, c := range parent.Children {
			if c.Level <= parent.Level {
				t.Fatalf("child %q level %d not greater than parent %q level %d", c.Title, c.Level, parent.Title, parent.Level)
			}
			check(c)
		}
	}
	for _, s := range doc.Sections {
		check(s)
	}
	if got := shape(doc.Sections); got != "[A:3 B:1[C:2[D:4] E:2[F:6 G:3]]]" {
		t.Fatalf("shape = %s", got)
	}
}

func TestFlattenPreOrderAndRenest(t *testing.T) {
	doc := Parse("pre\n# A\n## B\n### C\n## D\n# E\n### F\n## G")
	flat := Flatten(doc.Sections)

	wantTitles := []string{"", "A", "B", "C", "D", "E", "F", "G"}
	if len(flat) != len(wantTitles) {
		t.Fatalf("flat len = %d", len(flat))
	}
	plain := make([]*Section, len(flat))
	for i, f := range flat {
		if f.Index != i {
			t.Fatalf("index %d at position %d", f.Index, i)
		}
		if f.Section.Title != wantTitles[i] {
			t.Fatalf("position %d title %q, want %q", i, f.Section.Title, wantTitles[i])
		}
		plain[i] = f.Section
	}

	renested := Nest(plain)
	if shape(renested) != shape(doc.Sections) {
		t.Fatalf("renest mismatch: %s vs %s", shape(renested), shape(doc.Sections))
	}
	// Nest must not mutate its input.
	if len(doc.Sections[1].Children) != 2 {
		t.Fatalf("original tree changed: %s", shape(doc.Sections))
	}
}

func TestFlattenEmpty(t *testing.T) {
	if got := Flatten(nil); len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
}

func TestSummarize(t *testing.T) {
	s := &Section{
		Level: 2,
		Title: "Mixed",
		Content: []Element{
			{Kind: KindParagraph, Text: strings.Repeat("x", 100)},
			{Kind: KindBlockquote, Text: "said"},
			{Kind: KindTable, Headers: []string{"Name", "Score"}, Rows: [][]string{{"a", "1"}, {"b", "2"}}},
			{Kind: KindList, Items: []string{"1", "2", "3"}},
			{Kind: KindDemo, Text: "open the app"},
			{Kind: KindCode, Language: "go"},
		},
		Children: []*Section{{Level: 3}},
	}
	want := strings.Repeat("x", 80) + " / [quote] said / [table] Name, Score (2 rows) / [list] 3 items / [demo] open the app / [code] go / (1 subsections)"
	if got := Summarize(s); got != want {
		t.Fatalf("summary\n got: %s\nwant: %s", got, want)
	}
	if got := Summarize(&Section{Level: 1}); got != "(empty)" {
		t.Fatalf("empty summary = %q", got)
	}
}

func shape(ss []*Section) string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		p := s.Title + ":" + string(rune('0'+s.Level))
		if len(s.Children) > 0 {
			p += shape(s.Children)
		}
		parts[i] = p
	}
	return "[" + strings.Join(parts, " ") + "]"
}
