/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic in the CLI into a logged error, a crash report
// on disk and, when possible, an autosave of the script being worked on.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "slidecast/internal/log"
	"slidecast/internal/script"
	"slidecast/internal/storage"
	"slidecast/internal/telemetry"
	"slidecast/internal/version"
)

// exitFn lets tests observe Recover without terminating the process.
var exitFn = os.Exit

// Session is what Recover knows about the command that panicked. Both fields
// are optional.
type Session struct {
	Workspace *storage.Workspace
	// Pending returns the script assembled so far, or nil.
	Pending func() *script.Script
}

// Recover must be deferred directly: defer crash.Recover(sess).
func Recover(sess *Session) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(sess, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if path, err := autosave(sess); err != nil {
		l.Error("autosave failed", slog.Any("err", err))
	} else if path != "" {
		l.Info("autosave written", slog.String("path", path))
	}

	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func reportDir(sess *Session) string {
	if sess != nil && sess.Workspace != nil && sess.Workspace.Root != "" {
		dir := sess.Workspace.BackupsDir()
		if err := os.MkdirAll(dir, 0o755); err == nil {
			return dir
		}
	}
	return os.TempDir()
}

func writeReport(sess *Session, panicVal any, stack []byte) (string, error) {
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(reportDir(sess), fmt.Sprintf("crash-%s.log", stamp))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "slidecast crash report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if sess != nil && sess.Workspace != nil {
		_, _ = fmt.Fprintf(&buf, "Workspace: %s\n", sess.Workspace.Root)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	telemetry.Default().UploadCrash(buf.Bytes())
	return path, nil
}

// autosave stores the pending script next to the crash report. It never
// touches script.json, whose last good version stays authoritative.
func autosave(sess *Session) (path string, err error) {
	if sess == nil || sess.Workspace == nil || sess.Pending == nil {
		return "", nil
	}
	// The pending callback may itself panic on half-built state.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pending script: %v", r)
		}
	}()
	s := sess.Pending()
	if s == nil {
		return "", nil
	}
	return sess.Workspace.AutosaveScript(s)
}
