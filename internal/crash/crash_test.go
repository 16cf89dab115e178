/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slidecast/internal/script"
	"slidecast/internal/storage"
)

func quietStderr(t *testing.T) {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	t.Cleanup(func() {
		_ = w.Close()
		os.Stderr = old
		_, _ = io.Copy(io.Discard, r)
	})
}

func stubExit(t *testing.T) *int {
	t.Helper()
	code := -1
	old := exitFn
	exitFn = func(c int) { code = c }
	t.Cleanup(func() { exitFn = old })
	return &code
}

func TestWriteReportInTempDir(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "slidecast crash report") || !strings.Contains(s, "Panic: boom") {
		t.Fatalf("unexpected report: %s", s)
	}
}

func TestRecoverWritesReportAndAutosave(t *testing.T) {
	quietStderr(t)
	code := stubExit(t)
	ws, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sess := &Session{
		Workspace: ws,
		Pending: func() *script.Script {
			return &script.Script{Title: "half", Scenes: []script.Scene{}}
		},
	}
	func() {
		defer Recover(sess)
		panic("kaboom")
	}()
	if *code != 2 {
		t.Fatalf("expected exit code 2, got %d", *code)
	}
	ents, err := os.ReadDir(ws.BackupsDir())
	if err != nil {
		t.Fatalf("read backups: %v", err)
	}
	var report, auto string
	for _, e := range ents {
		switch {
		case strings.HasPrefix(e.Name(), "crash-"):
			report = filepath.Join(ws.BackupsDir(), e.Name())
		case strings.HasPrefix(e.Name(), "autosave-"):
			auto = filepath.Join(ws.BackupsDir(), e.Name())
		}
	}
	if report == "" || auto == "" {
		t.Fatalf("expected crash report and autosave, got %v", ents)
	}
	b, _ := os.ReadFile(report)
	if !strings.Contains(string(b), "Panic: kaboom") || !strings.Contains(string(b), ws.Root) {
		t.Fatalf("report missing details: %s", b)
	}
	// Autosaves must not be mistaken for backups of script.json.
	if bk, _ := ws.Backups(); len(bk) != 0 {
		t.Fatalf("autosave listed as backup: %v", bk)
	}
}

func TestRecoverSurvivesPanickingPending(t *testing.T) {
	quietStderr(t)
	code := stubExit(t)
	ws, _ := storage.Open(t.TempDir())
	sess := &Session{Workspace: ws, Pending: func() *script.Script { panic("nested") }}
	func() {
		defer Recover(sess)
		panic("outer")
	}()
	if *code != 2 {
		t.Fatalf("expected exit code 2, got %d", *code)
	}
}

func TestRecoverNoPanicIsNoop(t *testing.T) {
	code := stubExit(t)
	func() {
		defer Recover(nil)
	}()
	if *code != -1 {
		t.Fatalf("exit called without panic")
	}
}
