/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInitJSONFileSinkCarriesStaticAndComponentAttrs(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "slidecast.log")
	var console bytes.Buffer
	Init(Options{Level: "debug", Format: "json", File: fpath, Writer: &console})
	t.Cleanup(func() { _ = Close() })

	l := WithOperation(WithComponent("scene"), "convert")
	l.Info("converted", slog.Int("scene", 2))
	if err := Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var last string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines in %s", fpath)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	if m["app"] != "slidecast" {
		t.Fatalf("app attr = %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr: %v", m)
	}
	if m["component"] != "scene" || m["op"] != "convert" {
		t.Fatalf("component/op mismatch: %v", m)
	}
	if m["scene"] != float64(2) {
		t.Fatalf("scene attr = %v", m["scene"])
	}
	if !strings.Contains(console.String(), `"msg":"converted"`) {
		t.Fatalf("console json output missing record: %q", console.String())
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "warn")
	t.Setenv(EnvFormat, "json")
	t.Setenv(EnvSource, "yes")
	t.Setenv(EnvFile, "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	if v := getenv("SLC_SURELY_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback = %q", v)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestPrettyTextHandler(t *testing.T) {
	var buf bytes.Buffer
	var h slog.Handler = &prettyTextHandler{level: slog.LevelWarn, w: &buf}
	ctx := context.Background()

	if h.Enabled(ctx, slog.LevelInfo) {
		t.Fatalf("info should be filtered at warn level")
	}
	if !h.Enabled(ctx, slog.LevelError) {
		t.Fatalf("error should pass at warn level")
	}

	h = h.WithAttrs([]slog.Attr{slog.String("component", "script")})
	h = h.WithGroup("slide")

	r := slog.NewRecord(time.Now(), slog.LevelWarn, "coerced slide type", 0)
	r.AddAttrs(slog.String("from", "carousel"), slog.Int("scene", 3), slog.Float64("ratio", 0.5), slog.Bool("ok", true))
	if err := h.Handle(ctx, r); err != nil {
		t.Fatalf("handle: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"WRN", "coerced slide type", " component=script", "slide.from=carousel", "slide.scene=3", "slide.ratio=0.5", "slide.ok=true"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "slide.component") {
		t.Fatalf("attrs added before the group must not be prefixed: %q", out)
	}
}

func TestAttrValueStringQuotesSpaces(t *testing.T) {
	if got := attrValueString(slog.StringValue("two words")); got != `"two words"` {
		t.Fatalf("got %s", got)
	}
	if got := attrValueString(slog.StringValue("plain")); got != "plain" {
		t.Fatalf("got %s", got)
	}
}

func TestLLazyInitFromEnv(t *testing.T) {
	defaultLoggerMu.Lock()
	defaultLogger = nil
	defaultLoggerMu.Unlock()
	t.Setenv(EnvLevel, "error")
	if L() == nil {
		t.Fatalf("L() returned nil")
	}
	if L().Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should be disabled when %s=error", EnvLevel)
	}
}
