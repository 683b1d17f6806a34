package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

func appendScoreEvent(ctx context.Context, tx *sql.Tx, itemID string, score float64, breakdownJSON []byte, at time.Time) error {
	if breakdownJSON == nil {
		breakdownJSON = []byte("{}")
	}
	_, err := tx.ExecContext(ctx, `
	INSERT INTO score_events (id, item_id, score, breakdown_json, scored_at)
	VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), itemID, score, string(breakdownJSON), formatTime(at),
	)
	return err
}

// ScoreHistory returns the recorded scores of an item, oldest first.
func (s *Store) ScoreHistory(ctx context.Context, itemID string) ([]ScoreEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, item_id, score, breakdown_json, scored_at
	FROM score_events
	WHERE item_id = ?
	ORDER BY scored_at ASC, rowid ASC`, itemID)
	if err != nil {
		return nil, &StoreError{Op: "score history", ItemID: itemID, Err: err}
	}
	defer rows.Close()

	var events []ScoreEvent
	for rows.Next() {
		var (
			ev            ScoreEvent
			breakdownJSON string
			scoredAt      string
		)
		if err := rows.Scan(&ev.ID, &ev.ItemID, &ev.Score, &breakdownJSON, &scoredAt); err != nil {
			return nil, &StoreError{Op: "score history", ItemID: itemID, Err: err}
		}
		if err := json.Unmarshal([]byte(breakdownJSON), &ev.Breakdown); err != nil {
			return nil, &StoreError{Op: "score history", ItemID: itemID, Err: err}
		}
		if ev.ScoredAt, err = parseTime(scoredAt); err != nil {
			return nil, &StoreError{Op: "score history", ItemID: itemID, Err: err}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// RecordRun stores a batch summary. A missing ID is generated.
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO ingest_runs (id, keyword, started_at, finished_at, stored, skipped, errored)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Keyword, formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Stored, run.Skipped, run.Errored,
	)
	if err != nil {
		return &StoreError{Op: "record run", Err: err}
	}
	return nil
}

// Runs returns the most recent batch summaries, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, keyword, started_at, finished_at, stored, skipped, errored
	FROM ingest_runs
	ORDER BY started_at DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, &StoreError{Op: "runs", Err: err}
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                   Run
			started, finished string
		)
		if err := rows.Scan(&r.ID, &r.Keyword, &started, &finished, &r.Stored, &r.Skipped, &r.Errored); err != nil {
			return nil, &StoreError{Op: "runs", Err: err}
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, &StoreError{Op: "runs", Err: err}
		}
		if r.FinishedAt, err = parseTime(finished); err != nil {
			return nil, &StoreError{Op: "runs", Err: err}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
