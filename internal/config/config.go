/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the user configuration from a YAML file, applies
// SLC_* environment overrides and keeps the Gemini API key in the OS keyring.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// config_version is bumped when the structure changes incompatibly.

type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "gemini" | "ollama"
	Model       string  `yaml:"model"`    // empty selects the provider default
	GeminiURL   string  `yaml:"gemini_url"`
	OllamaURL   string  `yaml:"ollama_url"`
	Temperature float64 `yaml:"temperature"`
	TimeoutMs   int     `yaml:"timeout_ms"`
	MaxRetries  int     `yaml:"max_retries"`
	RateLimitMs int     `yaml:"rate_limit_ms"`
	// The API key is not stored on disk; it lives in the OS keychain.
}

type TimelineConfig struct {
	FPS               int `yaml:"fps"`
	DefaultLineFrames int `yaml:"default_line_frames"`
	LineGapFrames     int `yaml:"line_gap_frames"`
	SceneBufferFrames int `yaml:"scene_buffer_frames"`
}

type StorageConfig struct {
	Workspace   string `yaml:"workspace"`
	Cache       bool   `yaml:"cache"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	LLM           LLMConfig      `yaml:"llm"`
	Timeline      TimelineConfig `yaml:"timeline"`
	Storage       StorageConfig  `yaml:"storage"`
	Logging       LoggingConfig  `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		LLM: LLMConfig{
			Provider:    "gemini",
			GeminiURL:   "https://generativelanguage.googleapis.com",
			OllamaURL:   "http://localhost:11434",
			Temperature: 0.3,
			TimeoutMs:   120000,
			MaxRetries:  3,
			RateLimitMs: 1000,
		},
		Timeline: TimelineConfig{FPS: 30, DefaultLineFrames: 90, LineGapFrames: 0, SceneBufferFrames: 15},
		Storage:  StorageConfig{Workspace: ".", Cache: true},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath   = "SLC_CONFIG"
	EnvLLMProvider  = "SLC_LLM_PROVIDER"
	EnvLLMModel     = "SLC_LLM_MODEL"
	EnvOllamaURL    = "SLC_OLLAMA_URL"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvFPS          = "SLC_FPS"
	EnvWorkspace    = "SLC_WORKSPACE"
	EnvPostgresDSN  = "SLC_PG_DSN"
	EnvLogLevel     = "SLC_LOG_LEVEL"
	EnvLogFormat    = "SLC_LOG_FORMAT"
	EnvLogSource    = "SLC_LOG_SOURCE"
	EnvLogFile      = "SLC_LOG_FILE"
)

// ConfigPath returns the per-user config file path. SLC_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Slidecast")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Slidecast")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "slidecast")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "slidecast")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present) over the defaults and applies
// environment overrides. The Gemini API key is returned separately: the
// GEMINI_API_KEY variable wins over the keyring.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)

	if key := strings.TrimSpace(os.Getenv(EnvGeminiAPIKey)); key != "" {
		return cfg, key, nil
	}
	key, _ := tokenStore.Get(keyringService, keyringAPIKey)
	return cfg, key, nil
}

// Save writes the user config YAML and stores the API key in the keyring when non-empty.
func Save(cfg AppConfig, apiKey string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if apiKey != "" {
		return SetAPIKey(apiKey)
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// llm
	if v := strings.ToLower(strings.TrimSpace(src.LLM.Provider)); v != "" {
		dst.LLM.Provider = v
	}
	dst.LLM.Model = strings.TrimSpace(src.LLM.Model)
	if v := strings.TrimSpace(src.LLM.GeminiURL); v != "" {
		dst.LLM.GeminiURL = v
	}
	if v := strings.TrimSpace(src.LLM.OllamaURL); v != "" {
		dst.LLM.OllamaURL = v
	}
	if src.LLM.Temperature > 0 {
		dst.LLM.Temperature = src.LLM.Temperature
	}
	if src.LLM.TimeoutMs > 0 {
		dst.LLM.TimeoutMs = src.LLM.TimeoutMs
	}
	if src.LLM.MaxRetries > 0 {
		dst.LLM.MaxRetries = src.LLM.MaxRetries
	}
	if src.LLM.RateLimitMs > 0 {
		dst.LLM.RateLimitMs = src.LLM.RateLimitMs
	}
	// timeline: zero is meaningful for gap and buffer
	if src.Timeline.FPS > 0 {
		dst.Timeline.FPS = src.Timeline.FPS
	}
	if src.Timeline.DefaultLineFrames > 0 {
		dst.Timeline.DefaultLineFrames = src.Timeline.DefaultLineFrames
	}
	if src.Timeline.LineGapFrames >= 0 {
		dst.Timeline.LineGapFrames = src.Timeline.LineGapFrames
	}
	if src.Timeline.SceneBufferFrames >= 0 {
		dst.Timeline.SceneBufferFrames = src.Timeline.SceneBufferFrames
	}
	// storage
	if v := strings.TrimSpace(src.Storage.Workspace); v != "" {
		dst.Storage.Workspace = v
	}
	dst.Storage.Cache = src.Storage.Cache
	dst.Storage.PostgresDSN = strings.TrimSpace(src.Storage.PostgresDSN)
	// logging
	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvLLMProvider)); v != "" {
		cfg.LLM.Provider = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLLMModel)); v != "" {
		cfg.LLM.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOllamaURL)); v != "" {
		cfg.LLM.OllamaURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFPS)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Timeline.FPS = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvWorkspace)); v != "" {
		cfg.Storage.Workspace = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"llm.provider":      EnvLLMProvider,
	"llm.model":         EnvLLMModel,
	"llm.ollama_url":    EnvOllamaURL,
	"llm.api_key":       EnvGeminiAPIKey,
	"timeline.fps":      EnvFPS,
	"storage.workspace": EnvWorkspace,
	"storage.postgres":  EnvPostgresDSN,
	"logging.level":     EnvLogLevel,
	"logging.format":    EnvLogFormat,
	"logging.source":    EnvLogSource,
	"logging.file":      EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is currently
// overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Timeout returns the per-request timeout.
func (c LLMConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return time.Duration(Defaults().LLM.TimeoutMs) * time.Millisecond
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// MinInterval returns the minimum spacing between generator requests.
func (c LLMConfig) MinInterval() time.Duration {
	if c.RateLimitMs <= 0 {
		return time.Duration(Defaults().LLM.RateLimitMs) * time.Millisecond
	}
	return time.Duration(c.RateLimitMs) * time.Millisecond
}

// BaseURL returns the endpoint root for the configured provider.
func (c LLMConfig) BaseURL() string {
	if c.Provider == "ollama" {
		return c.OllamaURL
	}
	return c.GeminiURL
}
