/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pipeline runs a markdown document through parsing, scene planning,
// per-scene conversion and script assembly.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"slidecast/internal/document"
	applog "slidecast/internal/log"
	"slidecast/internal/scene"
	"slidecast/internal/script"
)

// RunRecorder persists run bookkeeping. storage.Index implements it.
type RunRecorder interface {
	BeginRun(ctx context.Context) (string, error)
	FinishRun(ctx context.Context, id, title string, scenes, fallbacks int) error
}

// Pipeline wires the stages together. Generator is required; Cache and Runs
// are optional.
type Pipeline struct {
	Generator scene.TextGenerator
	Cache     scene.Cache
	Runs      RunRecorder
}

// Result holds every intermediate product. After a failed Run the fields
// filled so far are still set.
type Result struct {
	RunID       string
	Document    *document.Document
	Plans       []scene.Plan
	Conversions []scene.Conversion
	Fallbacks   []int
	Script      *script.Script
	Elapsed     time.Duration
}

// Plan parses text and asks the generator for a scene plan, without converting.
func (p *Pipeline) Plan(ctx context.Context, text string) (*Result, error) {
	res := &Result{Document: document.Parse(text)}
	plans, err := scene.NewPlanner(p.Generator).Plan(ctx, res.Document)
	if err != nil {
		return res, err
	}
	res.Plans = plans
	return res, nil
}

// Run executes every stage. Cancellation between scenes stops further
// generator calls and returns ctx.Err() with the conversions done so far.
func (p *Pipeline) Run(ctx context.Context, text string) (*Result, error) {
	if p.Generator == nil {
		return nil, fmt.Errorf("pipeline: no text generator configured")
	}
	start := time.Now()
	l := applog.WithOperation(applog.WithComponent("pipeline"), "run")

	runID := p.beginRun(ctx, l)
	if runID != "" {
		l = l.With(slog.String("run", runID))
	}

	res, err := p.Plan(ctx, text)
	res.RunID = runID
	if err != nil {
		return res, err
	}
	l.Info("document planned", slog.String("title", res.Document.Title), slog.Int("scenes", len(res.Plans)))

	conv := scene.NewConverter(p.Generator)
	conv.Cache = p.Cache
	conv.Check = script.Check
	batch, err := conv.ConvertAll(ctx, res.Document, res.Plans)
	res.Conversions = batch.Conversions
	res.Fallbacks = batch.Fallbacks
	if err != nil {
		l.Warn("run cancelled", slog.Int("converted", len(batch.Conversions)), slog.Int("planned", len(res.Plans)))
		return res, err
	}

	s, err := script.Assemble(res.Document, res.Conversions)
	if err != nil {
		return res, err
	}
	res.Script = s
	res.Elapsed = time.Since(start)

	if runID != "" {
		if ferr := p.Runs.FinishRun(ctx, runID, s.Title, len(s.Scenes), len(res.Fallbacks)); ferr != nil {
			l.Warn("record run finish failed", slog.Any("err", ferr))
		}
	}
	l.Info("run complete",
		slog.Int("scenes", len(s.Scenes)),
		slog.Int("fallbacks", len(res.Fallbacks)),
		slog.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

func (p *Pipeline) beginRun(ctx context.Context, l *slog.Logger) string {
	if p.Runs == nil {
		return ""
	}
	id, err := p.Runs.BeginRun(ctx)
	if err != nil {
		l.Warn("record run start failed", slog.Any("err", err))
		return ""
	}
	return id
}

// Partial assembles whatever conversions a Result holds, for autosaves after
// a cancelled or crashed run. It returns nil when nothing was converted.
func (r *Result) Partial() *script.Script {
	if r == nil || r.Document == nil || len(r.Conversions) == 0 {
		return nil
	}
	s, err := script.Assemble(r.Document, r.Conversions)
	if err != nil {
		return nil
	}
	return s
}
