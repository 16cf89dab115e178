/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package llm implements the text generation collaborator on top of Gemini
// or a local Ollama server. Retries, backoff and request pacing live here so
// callers see a single success or a single *GenerationError.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	applog "slidecast/internal/log"
)

// ErrEmptyResponse is returned when the provider answers without content.
var ErrEmptyResponse = errors.New("empty response")

// GenerationError means every attempt failed. Err is the last failure.
type GenerationError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: generation failed after %d attempt(s): %v", e.Provider, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// StatusError is a non-2xx answer from a provider.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// retryable reports whether another attempt can help. Client errors other
// than rate limiting and timeouts will fail the same way again.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code == http.StatusRequestTimeout || se.Code >= 500
	}
	return true
}

// Provider names accepted by New.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Options configures a Client. Zero values take the defaults noted per field.
type Options struct {
	Provider    string  // gemini (default) or ollama
	Model       string  // gemini-2.5-flash / qwen2.5
	BaseURL     string  // provider endpoint root
	APIKey      string  // required for gemini
	Temperature float64 // 0.3

	Timeout     time.Duration // per request, 120s
	MaxRetries  int           // attempts per call, 3
	Backoff     time.Duration // wait before attempt n+1 is n*Backoff, 2s
	MinInterval time.Duration // minimum spacing between requests, 1s

	HTTPClient *http.Client
}

// backend performs one request and returns the model's raw text.
type backend interface {
	name() string
	complete(ctx context.Context, prompt, systemInstruction string) (string, error)
}

// Client is safe for concurrent use; the limiter serializes request starts.
type Client struct {
	be         backend
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	log        *slog.Logger
}

// New builds a client for opts.Provider.
func New(opts Options) (*Client, error) {
	if opts.Temperature == 0 {
		opts.Temperature = 0.3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	var be backend
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", ProviderGemini:
		if opts.APIKey == "" {
			return nil, errors.New("gemini: API key required (set GEMINI_API_KEY or run `slidecast config set-key`)")
		}
		be = newGemini(hc, opts)
	case ProviderOllama:
		be = newOllama(hc, opts)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}

	return &Client{
		be:         be,
		limiter:    rate.NewLimiter(rate.Every(opts.MinInterval), 1),
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		log:        applog.WithComponent("llm").With(slog.String("provider", be.name())),
	}, nil
}

// GenerateStructured sends prompt and returns the JSON document the model
// produced, with any markdown fences removed.
func (c *Client) GenerateStructured(ctx context.Context, prompt, systemInstruction string) (json.RawMessage, error) {
	var lastErr error
	attempt := 0
	for attempt < c.maxRetries {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		start := time.Now()
		text, err := c.be.complete(ctx, prompt, systemInstruction)
		if err == nil {
			var raw json.RawMessage
			if raw, err = cleanJSON(text); err == nil {
				c.log.Debug("generation ok", slog.Int("attempt", attempt), slog.Duration("took", time.Since(start)), slog.Int("bytes", len(raw)))
				return raw, nil
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		if !retryable(err) || attempt == c.maxRetries {
			break
		}

		wait := time.Duration(attempt) * c.backoff
		c.log.Warn("generation failed, retrying", slog.Int("attempt", attempt), slog.Duration("backoff", wait), slog.Any("err", err))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, &GenerationError{Provider: c.be.name(), Attempts: attempt, Err: lastErr}
}

// cleanJSON strips ```json fences and checks that what is left is JSON.
func cleanJSON(text string) (json.RawMessage, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return nil, ErrEmptyResponse
	}
	if !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("response is not valid JSON: %.120s", s)
	}
	return json.RawMessage(s), nil
}
