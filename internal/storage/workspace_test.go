/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"slidecast/internal/script"
)

func sampleScript(title string) *script.Script {
	return &script.Script{
		Title: title,
		Scenes: []script.Scene{{
			Title:      "Intro",
			Slide:      script.Slide{Type: "list", Title: "Intro", Items: []string{"one", "two"}},
			Lines:      []script.Line{{Speaker: "left", Text: "Hello"}, {Speaker: "right", Text: "Hi"}},
			Transition: "fade",
		}},
	}
}

func TestOpenCreatesStandardDirs(t *testing.T) {
	root := filepath.Join(t.TempDir(), "talk")
	ws, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, d := range []string{AudioDirName, "exports", BackupsDirName} {
		if st, err := os.Stat(filepath.Join(ws.Root, d)); err != nil || !st.IsDir() {
			t.Fatalf("expected dir %s: %v", d, err)
		}
	}
	if _, err := Open("  "); err == nil {
		t.Fatalf("expected error for blank root")
	}
}

func TestSaveAndLoadScript(t *testing.T) {
	ws, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := ws.SaveScript(sampleScript("First")); err != nil {
		t.Fatalf("SaveScript: %v", err)
	}
	got, err := ws.LoadScript()
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if got.Title != "First" || len(got.Scenes) != 1 || len(got.Scenes[0].Lines) != 2 {
		t.Fatalf("unexpected script: %+v", got)
	}
	// No backup for the first write.
	if b, _ := ws.Backups(); len(b) != 0 {
		t.Fatalf("expected no backups, got %v", b)
	}
	if err := ws.SaveScript(sampleScript("Second")); err != nil {
		t.Fatalf("SaveScript 2: %v", err)
	}
	b, err := ws.Backups()
	if err != nil || len(b) != 1 {
		t.Fatalf("expected one backup, got %v (%v)", b, err)
	}
	// Temp files must not linger.
	ents, _ := os.ReadDir(ws.Root)
	for _, e := range ents {
		if e.Name() != ScriptFileName && !e.IsDir() {
			t.Fatalf("unexpected file left behind: %s", e.Name())
		}
	}
}

func TestLoadScriptFallsBackToBackup(t *testing.T) {
	ws, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := ws.SaveScript(sampleScript("Good")); err != nil {
		t.Fatalf("SaveScript: %v", err)
	}
	if err := ws.SaveScript(sampleScript("Also good")); err != nil {
		t.Fatalf("SaveScript: %v", err)
	}
	if err := os.WriteFile(ws.ScriptPath(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	got, err := ws.LoadScript()
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if got.Title != "Good" {
		t.Fatalf("expected backup title Good, got %q", got.Title)
	}
}

func TestLoadScriptRejectsSchemaInvalidFile(t *testing.T) {
	ws, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := os.WriteFile(ws.ScriptPath(), []byte(`{"title":"x","scenes":[{"title":"a"}]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ws.LoadScript(); err == nil {
		t.Fatalf("expected error for invalid script without backups")
	}
}

func TestLoadScriptEmptyWorkspace(t *testing.T) {
	ws, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := ws.LoadScript(); !errors.Is(err, ErrNoScript) {
		t.Fatalf("expected ErrNoScript, got %v", err)
	}
}

func TestWorkspaceLoadManifest(t *testing.T) {
	ws, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	body := `{"fps": 24, "files": [{"scene": 0, "line": 0, "path": "audio/s0_l0.wav", "durationFrames": 48}]}`
	if err := os.WriteFile(ws.ManifestPath(), []byte(body), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	m, err := ws.LoadManifest()
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.FPS != 24 || len(m.Files) != 1 || m.Files[0].DurationFrames != 48 {
		t.Fatalf("unexpected manifest: %+v", m)
	}
}
