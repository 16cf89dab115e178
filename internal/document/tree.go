/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"fmt"
	"strings"
)

// Nest builds a tree from sections listed in document order, using each
// section's Level. Level 0 sections always stay at the root. For deeper
// levels an explicit stack is popped until its top is shallower, so an H3
// nests under the preceding H2 while a following H2 becomes a sibling.
//
// The input sections are copied; their Children are ignored and left untouched.
func Nest(flat []*Section) []*Section {
	roots := []*Section{}
	stack := make([]*Section, 0, 8)
	for _, in := range flat {
		s := &Section{Level: in.Level, Title: in.Title, Content: in.Content}
		if s.Level == 0 {
			roots = append(roots, s)
			continue
		}
		for len(stack) > 0 && stack[len(stack)-1].Level >= s.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, s)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, s)
		}
		stack = append(stack, s)
	}
	return roots
}

// Flatten lists the tree in pre-order with indices 0..n-1. The planner refers
// to sections by these indices.
func Flatten(sections []*Section) []FlatSection {
	var out []FlatSection
	stack := make([]*Section, 0, len(sections))
	for i := len(sections) - 1; i >= 0; i-- {
		stack = append(stack, sections[i])
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, FlatSection{Index: len(out), Section: s})
		for i := len(s.Children) - 1; i >= 0; i-- {
			stack = append(stack, s.Children[i])
		}
	}
	return out
}

// Summarize renders a one-line digest of a section's content, e.g.
//
//	Intro text / [table] Name, Score (3 rows) / (2 subsections)
func Summarize(s *Section) string {
	var parts []string
	for _, el := range s.Content {
		switch el.Kind {
		case KindParagraph:
			parts = append(parts, truncate(el.Text, 80))
		case KindBlockquote:
			parts = append(parts, "[quote] "+truncate(el.Text, 60))
		case KindTable:
			parts = append(parts, fmt.Sprintf("[table] %s (%d rows)", strings.Join(el.Headers, ", "), len(el.Rows)))
		case KindList:
			parts = append(parts, fmt.Sprintf("[list] %d items", len(el.Items)))
		case KindDemo:
			parts = append(parts, "[demo] "+el.Text)
		case KindCode:
			parts = append(parts, "[code] "+el.Language)
		}
	}
	if n := len(s.Children); n > 0 {
		parts = append(parts, fmt.Sprintf("(%d subsections)", n))
	}
	if len(parts) == 0 {
		return "(empty)"
	}
	return strings.Join(parts, " / ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
