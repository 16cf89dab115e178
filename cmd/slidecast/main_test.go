/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slidecast/internal/script"
	"slidecast/internal/storage"
	"slidecast/internal/timeline"
)

// isolate points config and workspace at temp dirs and keeps the keychain out of the way.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	ws := filepath.Join(dir, "ws")
	t.Setenv("SLC_CONFIG", filepath.Join(dir, "config.yaml"))
	t.Setenv("SLC_WORKSPACE", ws)
	t.Setenv("GEMINI_API_KEY", "test-key-123456")
	t.Setenv("SLC_PG_DSN", "")
	return ws
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseCommand(t *testing.T) {
	isolate(t)
	in := filepath.Join(t.TempDir(), "doc.md")
	body := "# Guide\nIntro text.\n\n## Part A\n- one\n- two\n"
	if err := os.WriteFile(in, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := runCLI(t, "parse", in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.Contains(out, "Guide") || !strings.Contains(out, "[1] Part A") || !strings.Contains(out, "[list] 2 items") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestTimelineCommandJSON(t *testing.T) {
	wsRoot := isolate(t)
	ws, err := storage.Open(wsRoot)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s := &script.Script{
		Title: "T",
		Scenes: []script.Scene{{
			Title: "A",
			Slide: script.Slide{Type: "title", Title: "A"},
			Lines: []script.Line{{Speaker: "left", Text: "x"}, {Speaker: "right", Text: "y"}},
		}},
	}
	if err := ws.SaveScript(s); err != nil {
		t.Fatalf("SaveScript: %v", err)
	}
	out, err := runCLI(t, "timeline", "--json")
	if err != nil {
		t.Fatalf("timeline: %v\n%s", err, out)
	}
	var res timeline.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if res.TotalFrames != 195 || len(res.Scenes) != 1 || res.Scenes[0].Lines[1].StartFrame != 90 {
		t.Fatalf("unexpected timeline: %+v", res)
	}
}

func TestExportCommandWritesIntoWorkspaceExports(t *testing.T) {
	wsRoot := isolate(t)
	ws, _ := storage.Open(wsRoot)
	s := &script.Script{
		Title:  "T",
		Scenes: []script.Scene{{Title: "A", Slide: script.Slide{Type: "title"}, Lines: []script.Line{{Speaker: "left", Text: "x"}}}},
	}
	if err := ws.SaveScript(s); err != nil {
		t.Fatalf("SaveScript: %v", err)
	}
	if out, err := runCLI(t, "export", "board.pdf"); err != nil {
		t.Fatalf("export: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(wsRoot, "exports", "board.pdf")); err != nil {
		t.Fatalf("pdf missing: %v", err)
	}
}

func TestSetKeyRejectsEmpty(t *testing.T) {
	isolate(t)
	_, err := runCLI(t, "config", "set-key", "   ")
	if _, ok := err.(usageError); !ok {
		t.Fatalf("expected usageError, got %v", err)
	}
}

func TestUsageErrorsExitTwo(t *testing.T) {
	isolate(t)
	cases := map[string][]string{
		"missing arg":    {"convert"},
		"extra arg":      {"parse", "a.md", "b.md"},
		"unknown flag":   {"timeline", "--bogus"},
		"unknown subcmd": {"archive", "nope"},
		"unknown cmd":    {"frobnicate"},
	}
	for name, args := range cases {
		if code := execute(args); code != 2 {
			t.Fatalf("%s: exit = %d, want 2", name, code)
		}
	}
	if code := execute([]string{"timeline", filepath.Join(t.TempDir(), "missing.json")}); code != 1 {
		t.Fatalf("runtime failure exit = %d, want 1", code)
	}
}

func TestMaskKey(t *testing.T) {
	if got := maskKey("abcd1234wxyz"); got != "abcd****wxyz" {
		t.Fatalf("maskKey = %s", got)
	}
	if got := maskKey("short"); got != "*****" {
		t.Fatalf("maskKey short = %s", got)
	}
}
