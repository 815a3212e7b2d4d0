// Package history persists conversation turns per actor-subject pair so
// follow-up questions can see prior exchanges. Backed by an embedded
// SQLite database; only completed turns are replayed into prompts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aegisgraph/aegisgraph/internal/model"
)

// DefaultMaxTurns caps how many prior turns a prompt replays.
const DefaultMaxTurns = 10

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	doc_id     TEXT NOT NULL,
	patient_id TEXT NOT NULL,
	message    TEXT NOT NULL,
	response   TEXT NOT NULL,
	status     TEXT NOT NULL,
	mode       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_pair ON turns (doc_id, patient_id, created_at);`

// Store is a SQLite-backed turn store. Safe for concurrent use through
// database/sql's pooling.
type Store struct {
	db       *sql.DB
	maxTurns int
}

// Open opens (or creates) the store at path and applies the schema.
// maxTurns <= 0 falls back to DefaultMaxTurns.
func Open(path string, maxTurns int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("history: create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Store{db: db, maxTurns: maxTurns}, nil
}

// Save records one terminal exchange, refusals included.
func (s *Store) Save(ctx context.Context, req model.Request, responseText string, status model.Status, mode model.Mode) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO turns (request_id, doc_id, patient_id, message, response, status, mode, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.RequestID, req.DoctorID, req.PatientID, req.Message, responseText, string(status), string(mode), time.Now().UTC())
	if err != nil {
		return &model.StoreError{Op: "save history turn", Err: err}
	}
	return nil
}

// Recent returns up to maxTurns completed turns for the actor-subject
// pair, oldest first, ready to replay into a prompt.
func (s *Store) Recent(ctx context.Context, docID, patientID string) ([]model.HistoryTurn, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT message, response, created_at FROM (
	SELECT id, message, response, created_at FROM turns
	WHERE doc_id = ? AND patient_id = ? AND status = ?
	ORDER BY id DESC
	LIMIT ?
) ORDER BY id ASC`,
		docID, patientID, string(model.StatusCompleted), s.maxTurns)
	if err != nil {
		return nil, &model.StoreError{Op: "load history", Err: err}
	}
	defer rows.Close()

	var turns []model.HistoryTurn
	for rows.Next() {
		var t model.HistoryTurn
		if err := rows.Scan(&t.Message, &t.Response, &t.At); err != nil {
			return nil, &model.StoreError{Op: "scan history row", Err: err}
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StoreError{Op: "iterate history", Err: err}
	}
	return turns, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
