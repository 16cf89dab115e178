/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"fmt"
	"strings"
)

// PlanningError means the planner produced no usable scene list. The whole
// request fails.
type PlanningError struct {
	Reason   string
	Response string // first bytes of the raw response, if any
	Err      error
}

func (e *PlanningError) Error() string {
	var b strings.Builder
	b.WriteString("scene planning failed: ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Response != "" {
		fmt.Fprintf(&b, " (response: %s)", e.Response)
	}
	return b.String()
}

func (e *PlanningError) Unwrap() error { return e.Err }

// ConversionError describes one failed scene conversion. It is recovered with
// Fallback and only ever logged.
type ConversionError struct {
	Index      int
	SceneTitle string
	Err        error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert scene %d (%q): %v", e.Index+1, e.SceneTitle, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

func excerpt(raw []byte, n int) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
