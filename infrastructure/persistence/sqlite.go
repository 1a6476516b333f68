// Package persistence stores round records and score history in SQLite,
// optionally behind an asynchronous bounded-queue writer.
package persistence

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/zhmzlzn/modelarena/internal/domain"
	"github.com/zhmzlzn/modelarena/internal/ports"
)

var _ ports.RecordSink = (*SQLiteSink)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS rounds (
	id             TEXT PRIMARY KEY,
	round_index    INTEGER NOT NULL,
	question       TEXT NOT NULL,
	topic          TEXT,
	difficulty     TEXT,
	judge          TEXT,
	status         TEXT NOT NULL,
	failure_reason TEXT,
	reasoning      TEXT,
	degraded_parse INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS answers (
	round_id      TEXT NOT NULL REFERENCES rounds(id),
	model         TEXT NOT NULL,
	content       TEXT NOT NULL,
	failed        INTEGER NOT NULL DEFAULT 0,
	failure_cause TEXT,
	rank_position INTEGER,
	PRIMARY KEY (round_id, model)
);

CREATE TABLE IF NOT EXISTS scores (
	model      TEXT PRIMARY KEY,
	score      INTEGER NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_rounds_index ON rounds(round_index);
`

// SQLiteSink persists round records and the running score table to a
// SQLite database. Appends are transactional: a round and its answers
// land together or not at all.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral database.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent appends.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Append writes one round record and the post-round score snapshot.
func (s *SQLiteSink) Append(ctx context.Context, record domain.RoundRecord, scores domain.ScoreTable) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rounds (id, round_index, question, topic, difficulty, judge, status, failure_reason, reasoning, degraded_parse, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.RoundIndex,
		record.Question.Content, record.Question.Topic, record.Question.Difficulty,
		record.Judge, string(record.Status), record.FailureReason, record.Reasoning,
		record.DegradedParse, record.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert round: %w", err)
	}

	ranks := make(map[string]int, len(record.Ranking))
	for i, model := range record.Ranking {
		ranks[model] = i + 1
	}
	for _, a := range record.Answers {
		var rank any
		if r, ok := ranks[a.Model]; ok {
			rank = r
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO answers (round_id, model, content, failed, failure_cause, rank_position)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			record.ID, a.Model, a.Content, a.Failed, a.FailureCause, rank)
		if err != nil {
			return fmt.Errorf("failed to insert answer for %s: %w", a.Model, err)
		}
	}

	for model, score := range scores {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO scores (model, score, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			 ON CONFLICT(model) DO UPDATE SET score = excluded.score, updated_at = CURRENT_TIMESTAMP`,
			model, score)
		if err != nil {
			return fmt.Errorf("failed to upsert score for %s: %w", model, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit round: %w", err)
	}
	return nil
}

// Scores reads back the latest persisted score table.
func (s *SQLiteSink) Scores(ctx context.Context) (domain.ScoreTable, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT model, score FROM scores`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	out := make(domain.ScoreTable)
	for rows.Next() {
		var model string
		var score int
		if err := rows.Scan(&model, &score); err != nil {
			return nil, fmt.Errorf("failed to scan score row: %w", err)
		}
		out[model] = score
	}
	return out, rows.Err()
}

// RoundCount reports how many rounds have been persisted.
func (s *SQLiteSink) RoundCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rounds`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count rounds: %w", err)
	}
	return n, nil
}

// Close releases the database handle.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
