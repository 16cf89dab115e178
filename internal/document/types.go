/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package document turns loosely structured markdown into a Document with
// frontmatter, title, summary and a nested section tree.
package document

// Kind tags a content element.
type Kind string

const (
	KindParagraph  Kind = "paragraph"
	KindBlockquote Kind = "blockquote"
	KindTable      Kind = "table"
	KindList       Kind = "list"
	KindDemo       Kind = "demo"
	KindCode       Kind = "code"
)

// Element is one classified unit of section content. Which fields are set
// depends on Kind:
//
//	paragraph, blockquote, demo: Text
//	table:                       Headers, Rows
//	list:                        Items
//	code:                        Language, Text
type Element struct {
	Kind     Kind       `json:"kind"`
	Text     string     `json:"text,omitempty"`
	Headers  []string   `json:"headers,omitempty"`
	Rows     [][]string `json:"rows,omitempty"`
	Items    []string   `json:"items,omitempty"`
	Language string     `json:"language,omitempty"`
}

// Section is a heading-delimited region. Level 0 marks content that appeared
// before the first heading. Children always have a greater level than their parent.
type Section struct {
	Level    int        `json:"level"`
	Title    string     `json:"title"`
	Content  []Element  `json:"content"`
	Children []*Section `json:"children,omitempty"`
}

// Document is the parsed form of one input text. It is not modified after Parse returns.
type Document struct {
	Frontmatter map[string]string `json:"frontmatter"`
	Title       string            `json:"title"`
	Summary     string            `json:"summary"`
	Sections    []*Section        `json:"sections"`
	RawText     string            `json:"-"`
}

// FlatSection pairs a section with its pre-order index in the tree.
type FlatSection struct {
	Index   int
	Section *Section
}
