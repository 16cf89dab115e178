/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package bundle

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"slidecast/internal/script"
	"slidecast/internal/storage"
)

func seedWorkspace(t *testing.T) *storage.Workspace {
	t.Helper()
	ws, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s := &script.Script{
		Title: "Bundle Me",
		Scenes: []script.Scene{{
			Title: "One",
			Slide: script.Slide{Type: "title", Title: "One"},
			Lines: []script.Line{{Speaker: "left", Text: "hi"}, {Speaker: "right", Text: "hey"}},
		}},
	}
	if err := ws.SaveScript(s); err != nil {
		t.Fatalf("SaveScript: %v", err)
	}
	if err := os.WriteFile(ws.ManifestPath(), []byte(`{"fps":30,"files":[]}`), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(ws.Root, storage.AudioDirName, "s0_l0.wav"), []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return ws
}

func TestPackAndUnpack(t *testing.T) {
	src := seedWorkspace(t)
	zipPath := filepath.Join(t.TempDir(), "out", "talk.zip")
	m, err := Pack(src, zipPath)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if m.Title != "Bundle Me" || m.Scenes != 1 || m.Lines != 2 || len(m.Files) != 3 {
		t.Fatalf("unexpected manifest: %+v", m)
	}

	dst, _ := storage.Open(t.TempDir())
	got, n, err := Unpack(dst, zipPath, false)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got.Title != "Bundle Me" || n != 2 {
		t.Fatalf("unexpected unpack result: %+v, %d files", got, n)
	}
	s, err := dst.LoadScript()
	if err != nil || s.Title != "Bundle Me" {
		t.Fatalf("LoadScript after unpack: %v %+v", err, s)
	}
	if b, err := os.ReadFile(filepath.Join(dst.Root, storage.AudioDirName, "s0_l0.wav")); err != nil || string(b) != "RIFF" {
		t.Fatalf("audio not extracted: %v", err)
	}

	// A second unpack keeps existing audio and backs up the script.
	if _, n, err := Unpack(dst, zipPath, false); err != nil || n != 0 {
		t.Fatalf("second Unpack: n=%d err=%v", n, err)
	}
	if bk, _ := dst.Backups(); len(bk) != 1 {
		t.Fatalf("expected one script backup, got %v", bk)
	}
	if _, n, _ := Unpack(dst, zipPath, true); n != 2 {
		t.Fatalf("overwrite should rewrite 2 files, got %d", n)
	}
}

func TestPackRequiresScript(t *testing.T) {
	ws, _ := storage.Open(t.TempDir())
	if _, err := Pack(ws, filepath.Join(t.TempDir(), "x.zip")); err == nil {
		t.Fatalf("expected error for workspace without script")
	}
}

func TestUnpackSkipsEscapingPaths(t *testing.T) {
	src := seedWorkspace(t)
	zipPath := filepath.Join(t.TempDir(), "evil.zip")
	if _, err := Pack(src, zipPath); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	// Append an entry that tries to leave the workspace.
	evil := filepath.Join(t.TempDir(), "evil2.zip")
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f, _ := os.Create(evil)
	zw := zip.NewWriter(f)
	for _, e := range r.File {
		if err := zw.Copy(e); err != nil {
			t.Fatalf("copy: %v", err)
		}
	}
	w, _ := zw.Create("audio/../../escape.txt")
	_, _ = w.Write([]byte("x"))
	_ = zw.Close()
	_ = f.Close()
	_ = r.Close()

	dstRoot := filepath.Join(t.TempDir(), "dst")
	dst, _ := storage.Open(dstRoot)
	if _, _, err := Unpack(dst, evil, false); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dstRoot), "escape.txt")); err == nil {
		t.Fatalf("entry escaped the workspace")
	}
}

func TestUnpackWithoutScriptFails(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.zip")
	f, _ := os.Create(p)
	zw := zip.NewWriter(f)
	w, _ := zw.Create(ManifestName)
	_, _ = w.Write([]byte(`{"title":"x"}`))
	_ = zw.Close()
	_ = f.Close()
	ws, _ := storage.Open(t.TempDir())
	if _, _, err := Unpack(ws, p, false); err == nil {
		t.Fatalf("expected error for bundle without script")
	}
}

func TestUnpackInvalidScriptWritesNothing(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.zip")
	f, _ := os.Create(p)
	zw := zip.NewWriter(f)
	w, _ := zw.Create("audio/s0_l0.wav")
	_, _ = w.Write([]byte("RIFF"))
	w, _ = zw.Create(storage.ScriptFileName)
	_, _ = w.Write([]byte(`{"title":"x","scenes":"nope"}`))
	_ = zw.Close()
	_ = f.Close()

	ws, _ := storage.Open(t.TempDir())
	if _, n, err := Unpack(ws, p, false); err == nil || n != 0 {
		t.Fatalf("expected script error with no files written, got n=%d err=%v", n, err)
	}
	if _, err := os.Stat(filepath.Join(ws.Root, storage.AudioDirName, "s0_l0.wav")); err == nil {
		t.Fatalf("audio extracted from a bundle with an invalid script")
	}
}
