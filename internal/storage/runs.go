/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one recorded pipeline invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is open
	Title      string
	Scenes     int
	Fallbacks  int
}

// language=SQL
// dialect=SQLite
const insertRunSQL = `INSERT INTO runs(id, started_at) VALUES (?, ?)`

// language=SQL
// dialect=SQLite
const finishRunSQL = `UPDATE runs SET finished_at = ?, title = ?, scenes = ?, fallbacks = ? WHERE id = ?`

// language=SQL
// dialect=SQLite
const listRunsSQL = `SELECT id, started_at, finished_at, title, scenes, fallbacks FROM runs ORDER BY started_at DESC LIMIT ?`

// BeginRun records the start of a run and returns its id.
func (ix *Index) BeginRun(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if _, err := ix.db.ExecContext(ctx, insertRunSQL, id, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// FinishRun closes the run with its outcome.
func (ix *Index) FinishRun(ctx context.Context, id, title string, scenes, fallbacks int) error {
	res, err := ix.db.ExecContext(ctx, finishRunSQL, time.Now().UTC().Format(time.RFC3339Nano), title, scenes, fallbacks, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: not found", id)
	}
	return nil
}

// Runs returns up to limit runs, newest first.
func (ix *Index) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := ix.db.QueryContext(ctx, listRunsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Run
	for rows.Next() {
		var (
			r        Run
			started  string
			finished sql.NullString
			title    sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &finished, &title, &r.Scenes, &r.Fallbacks); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if finished.Valid {
			r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished.String)
		}
		r.Title = title.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// language=SQL
// dialect=SQLite
const insertScriptSnapshotSQL = `INSERT INTO script_snapshots(ts, payload) VALUES (?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestScriptSnapshotSQL = `SELECT ts, payload FROM script_snapshots ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const pruneOldScriptSnapshotsSQL = `DELETE FROM script_snapshots WHERE id NOT IN (
	SELECT id FROM script_snapshots ORDER BY ts DESC, id DESC LIMIT ?
)`

// SnapshotScript stores the serialized script with a timestamp.
func (ix *Index) SnapshotScript(ctx context.Context, payload []byte, ts time.Time) error {
	_, err := ix.db.ExecContext(ctx, insertScriptSnapshotSQL, ts.UTC().Format(time.RFC3339Nano), string(payload))
	return err
}

// LatestSnapshot returns the newest snapshot, or nil payload if there is none.
func (ix *Index) LatestSnapshot(ctx context.Context) ([]byte, time.Time, error) {
	var tsStr, payload string
	err := ix.db.QueryRowContext(ctx, selectLatestScriptSnapshotSQL).Scan(&tsStr, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	ts, _ := time.Parse(time.RFC3339Nano, tsStr)
	return []byte(payload), ts, nil
}

// PruneSnapshots keeps the newest keepLast snapshots.
func (ix *Index) PruneSnapshots(ctx context.Context, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := ix.db.ExecContext(ctx, pruneOldScriptSnapshotsSQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
