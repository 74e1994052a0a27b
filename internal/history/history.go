// Package history persists a summary of every pipeline run in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded run.
type Entry struct {
	ID         int64
	RunID      string
	Start      time.Time
	End        time.Time
	Outcome    string
	Revision   string
	ConfigHash string
	Records    int
	Pages      int
	Assets     int
	Error      string
	// Report is the full run report as JSON.
	Report []byte
}

// Duration returns the wall time of the run.
func (e Entry) Duration() time.Duration { return e.End.Sub(e.Start) }

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the store at path. Use ":memory:" for an in-memory store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		started_at INTEGER NOT NULL,
		ended_at INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		revision TEXT,
		config_hash TEXT,
		records INTEGER NOT NULL,
		pages INTEGER NOT NULL,
		assets INTEGER NOT NULL,
		error TEXT,
		report BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs(outcome);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records a run and returns its row ID.
func (s *Store) Append(ctx context.Context, e Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, ended_at, outcome, revision, config_hash, records, pages, assets, error, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Start.UnixMilli(), e.End.UnixMilli(), e.Outcome, e.Revision, e.ConfigHash,
		e.Records, e.Pages, e.Assets, e.Error, e.Report,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// Latest returns up to limit runs, newest first.
func (s *Store) Latest(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, started_at, ended_at, outcome, revision, config_hash, records, pages, assets, error, report
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Get returns the run with the given run ID.
func (s *Store) Get(ctx context.Context, runID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, started_at, ended_at, outcome, revision, config_hash, records, pages, assets, error, report
		 FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return Entry{}, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, fmt.Errorf("run %s: %w", runID, sql.ErrNoRows)
	}
	return entries[0], nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var started, ended int64
		var revision, configHash, errText sql.NullString
		if err := rows.Scan(&e.ID, &e.RunID, &started, &ended, &e.Outcome, &revision, &configHash,
			&e.Records, &e.Pages, &e.Assets, &errText, &e.Report); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.Start = time.UnixMilli(started)
		e.End = time.UnixMilli(ended)
		e.Revision = revision.String
		e.ConfigHash = configHash.String
		e.Error = errText.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
