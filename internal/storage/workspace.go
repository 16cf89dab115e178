/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	applog "slidecast/internal/log"
	"slidecast/internal/script"
	"slidecast/internal/timeline"
)

const (
	ScriptFileName   = "script.json"
	BackupsDirName   = "backups"
	AudioDirName     = "audio"
	ManifestFileName = "manifest.json"
)

// ErrNoScript is returned by LoadScript when neither script.json nor a backup exists.
var ErrNoScript = errors.New("no script in workspace")

var standardSubDirs = []string{
	AudioDirName,
	"exports",
	BackupsDirName,
}

// Workspace is a directory holding one presentation: the script, its audio
// manifest, exports and backups.
type Workspace struct {
	Root string
}

// Open prepares root as a workspace, creating the standard subfolders.
func Open(root string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return &Workspace{Root: root}, nil
}

func (ws *Workspace) ScriptPath() string { return filepath.Join(ws.Root, ScriptFileName) }
func (ws *Workspace) BackupsDir() string { return filepath.Join(ws.Root, BackupsDirName) }

func (ws *Workspace) ManifestPath() string {
	return filepath.Join(ws.Root, AudioDirName, ManifestFileName)
}

// SaveScript writes s to script.json. The previous file, if any, is copied to
// a timestamped backup first and the new content replaces it via rename.
func (ws *Workspace) SaveScript(s *script.Script) error {
	if s == nil {
		return errors.New("nil script")
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "save_script").With(slog.String("root", ws.Root))
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal script: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(ws.BackupsDir(), 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	dst := ws.ScriptPath()
	if _, statErr := os.Stat(dst); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(ws.BackupsDir(), fmt.Sprintf("%s.%s.bak", ScriptFileName, stamp))
		if cerr := copyFile(dst, bpath); cerr != nil {
			return fmt.Errorf("backup current script: %w", cerr)
		}
		l.Debug("backup written", slog.String("path", bpath))
	}

	temp := filepath.Join(ws.Root, fmt.Sprintf(".%s.tmp-%d-%d", ScriptFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp script: %w", werr)
	}
	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(dst); err == nil {
		_ = os.Remove(dst)
	}
	if rerr := os.Rename(temp, dst); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace script: %w", rerr)
	}
	l.Info("script saved", slog.Int("scenes", len(s.Scenes)))
	return nil
}

// LoadScript reads script.json, falling back to the newest backup when the
// file is missing or does not validate.
func (ws *Workspace) LoadScript() (*script.Script, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "load_script")
	b, err := os.ReadFile(ws.ScriptPath())
	if err == nil {
		s, derr := script.Decode(b)
		if derr == nil {
			return s, nil
		}
		err = derr
	}
	s, berr := ws.loadLatestBackup()
	if berr != nil {
		if errors.Is(err, fs.ErrNotExist) && errors.Is(berr, ErrNoScript) {
			return nil, ErrNoScript
		}
		return nil, fmt.Errorf("load script: %w; backup attempt: %v", err, berr)
	}
	l.Warn("script.json unusable, loaded from backup", slog.Any("err", err))
	return s, nil
}

// LoadManifest reads the audio manifest at audio/manifest.json.
func (ws *Workspace) LoadManifest() (*timeline.Manifest, error) {
	return timeline.LoadManifest(ws.ManifestPath())
}

// Backups lists script backups, oldest first.
func (ws *Workspace) Backups() ([]string, error) {
	ents, err := os.ReadDir(ws.BackupsDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ScriptFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(ws.BackupsDir(), name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

func (ws *Workspace) loadLatestBackup() (*script.Script, error) {
	candidates, err := ws.Backups()
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoScript
	}
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	s, err := script.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("decode backup %s: %w", filepath.Base(latest), err)
	}
	return s, nil
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// AutosaveScript writes s to backups/ under an autosave name that LoadScript
// never picks up. It is used after a crash, when s may be incomplete.
func (ws *Workspace) AutosaveScript(s *script.Script) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal autosave: %w", err)
	}
	if err := os.MkdirAll(ws.BackupsDir(), 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	path := filepath.Join(ws.BackupsDir(), fmt.Sprintf("autosave-%s.json", time.Now().Format("20060102-150405")))
	if err := writeFileSync(path, append(data, '\n')); err != nil {
		return "", fmt.Errorf("write autosave: %w", err)
	}
	return path, nil
}
