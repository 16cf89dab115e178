/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "qwen2.5"
)

type ollama struct {
	hc          *http.Client
	baseURL     string
	model       string
	temperature float64
}

func newOllama(hc *http.Client, o Options) *ollama {
	c := &ollama{hc: hc, baseURL: o.BaseURL, model: o.Model, temperature: o.Temperature}
	if c.baseURL == "" {
		c.baseURL = DefaultOllamaBaseURL
	}
	if c.model == "" {
		c.model = DefaultOllamaModel
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	return c
}

func (o *ollama) name() string { return ProviderOllama }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Format   string          `json:"format"`
	Stream   bool            `json:"stream"`
	Options  struct {
		Temperature float64 `json:"temperature"`
	} `json:"options"`
}

type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error"`
}

func (o *ollama) complete(ctx context.Context, prompt, systemInstruction string) (string, error) {
	req := ollamaRequest{Model: o.model, Format: "json"}
	if systemInstruction != "" {
		req.Messages = append(req.Messages, ollamaMessage{Role: "system", Content: systemInstruction})
	}
	req.Messages = append(req.Messages, ollamaMessage{Role: "user", Content: prompt})
	req.Options.Temperature = o.temperature

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	data, err := doJSON(o.hc, httpReq)
	if err != nil {
		return "", err
	}
	var resp ollamaResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("parse ollama response: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama: %s", resp.Error)
	}
	return resp.Message.Content, nil
}
