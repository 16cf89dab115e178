/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package bundle packs a workspace's script and audio into a single zip for
// hand-off to the renderer, and unpacks such a zip into another workspace.
package bundle

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	applog "slidecast/internal/log"
	"slidecast/internal/script"
	"slidecast/internal/storage"
	"slidecast/internal/version"
)

// ManifestName is the bundle's self-description at the zip root.
const ManifestName = "bundle.json"

// Manifest describes a bundle.
type Manifest struct {
	Title   string    `json:"title"`
	Scenes  int       `json:"scenes"`
	Lines   int       `json:"lines"`
	Files   []string  `json:"files"`
	Created time.Time `json:"created"`
	Version string    `json:"version"`
}

// Pack writes script.json and everything under audio/ into destZip. The
// workspace script must load and validate.
func Pack(ws *storage.Workspace, destZip string) (Manifest, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "pack").With(slog.String("root", ws.Root))
	if strings.TrimSpace(destZip) == "" {
		return Manifest{}, errors.New("destination zip is required")
	}
	s, err := ws.LoadScript()
	if err != nil {
		return Manifest{}, fmt.Errorf("load script: %w", err)
	}
	m := Manifest{Title: s.Title, Scenes: len(s.Scenes), Created: time.Now().UTC(), Version: version.String()}
	for _, n := range s.LinesPerScene() {
		m.Lines += n
	}

	if err := os.MkdirAll(filepath.Dir(destZip), 0o755); err != nil {
		return Manifest{}, fmt.Errorf("ensure zip dir: %w", err)
	}
	// Windows cannot truncate-open a file another handle holds.
	_ = os.Remove(destZip)
	zf, err := os.Create(destZip)
	if err != nil {
		return Manifest{}, fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	scriptData, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return Manifest{}, err
	}
	if err := addBytes(zw, storage.ScriptFileName, scriptData); err != nil {
		return Manifest{}, err
	}
	m.Files = append(m.Files, storage.ScriptFileName)

	audioDir := filepath.Join(ws.Root, storage.AudioDirName)
	err = filepath.WalkDir(audioDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(ws.Root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if err := addFile(zw, name, p); err != nil {
			return err
		}
		m.Files = append(m.Files, name)
		return nil
	})
	if err != nil {
		l.Error("zip build failed", slog.Any("err", err))
		return Manifest{}, fmt.Errorf("build zip: %w", err)
	}

	mdata, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Manifest{}, err
	}
	if err := addBytes(zw, ManifestName, mdata); err != nil {
		return Manifest{}, err
	}
	if err := zw.Close(); err != nil {
		return Manifest{}, fmt.Errorf("finish zip: %w", err)
	}
	l.Info("bundle packed", slog.Int("files", len(m.Files)), slog.String("zip", destZip))
	return m, nil
}

func addBytes(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func addFile(zw *zip.Writer, name, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	_, err = io.Copy(w, f)
	return err
}

// Unpack extracts a bundle into ws. The script goes through SaveScript, so
// an existing script.json is backed up first. Audio files that already exist
// are kept unless overwrite is set. It returns the bundle's manifest and the
// number of audio files written.
func Unpack(ws *storage.Workspace, srcZip string, overwrite bool) (Manifest, int, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "unpack").With(slog.String("root", ws.Root))
	r, err := zip.OpenReader(srcZip)
	if err != nil {
		return Manifest{}, 0, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = r.Close() }()

	// First pass: read the manifest and validate the script before anything
	// touches the workspace.
	var (
		m     Manifest
		s     *script.Script
		audio []*zip.File
	)
	for _, f := range r.File {
		name := path.Clean(f.Name)
		switch {
		case name == ManifestName:
			if err := readJSON(f, &m); err != nil {
				return m, 0, fmt.Errorf("read manifest: %w", err)
			}
		case name == storage.ScriptFileName:
			data, err := readAll(f)
			if err != nil {
				return m, 0, err
			}
			if s, err = script.Decode(data); err != nil {
				return m, 0, fmt.Errorf("bundle script: %w", err)
			}
		case strings.HasPrefix(name, storage.AudioDirName+"/") && !f.FileInfo().IsDir():
			if !fs.ValidPath(name) {
				l.Warn("skip unsafe path", slog.String("name", f.Name))
				continue
			}
			audio = append(audio, f)
		default:
			l.Debug("ignore bundle entry", slog.String("name", f.Name))
		}
	}
	if s == nil {
		return m, 0, fmt.Errorf("bundle has no %s", storage.ScriptFileName)
	}

	written := 0
	for _, f := range audio {
		name := path.Clean(f.Name)
		ok, err := extract(f, filepath.Join(ws.Root, filepath.FromSlash(name)), overwrite)
		if err != nil {
			return m, written, err
		}
		if ok {
			written++
		} else {
			l.Warn("skip existing file", slog.String("name", name))
		}
	}
	if err := ws.SaveScript(s); err != nil {
		return m, written, err
	}
	l.Info("bundle unpacked", slog.String("title", s.Title), slog.Int("audio", written))
	return m, written, nil
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

func readJSON(f *zip.File, v any) error {
	data, err := readAll(f)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func extract(f *zip.File, target string, overwrite bool) (bool, error) {
	if _, err := os.Stat(target); err == nil && !overwrite {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return false, err
	}
	rc, err := f.Open()
	if err != nil {
		return false, err
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return false, err
	}
	return true, out.Close()
}
