// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package journal keeps an opt-in local record of training submissions in
// SQLite so "ragchat jobs" can list what was sent and how it went.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/jeranaias/ragchat/internal/logging"
	"github.com/jeranaias/ragchat/internal/training"
)

// Outcome is the result class of a submission.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeFailed   Outcome = "failed"
)

// ErrNotFound is returned by Get for an unknown ID.
var ErrNotFound = errors.New("journal entry not found")

// Entry is one recorded submission.
type Entry struct {
	ID           string        `json:"id"`
	SubmittedAt  time.Time     `json:"submitted_at"`
	ExampleCount int           `json:"example_count"`
	Outcome      Outcome       `json:"outcome"`
	Status       string        `json:"status"`
	OutputDir    string        `json:"output_dir,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// EntryFromResult converts a finished submission into an Entry stamped now.
func EntryFromResult(r training.Result) Entry {
	e := Entry{
		ID:           uuid.NewString(),
		SubmittedAt:  time.Now(),
		ExampleCount: r.ExampleCount,
		Outcome:      OutcomeFailed,
		Status:       r.Status,
		Duration:     r.Duration,
	}
	if r.OK() {
		e.Outcome = OutcomeAccepted
		e.OutputDir = r.Response.OutputDir
	}
	return e
}

// Store is a SQLite-backed journal. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	log  *logrus.Entry
}

// Open opens or creates the journal at path.
func Open(path string, logger *logrus.Entry) (*Store, error) {
	if path == "" {
		return nil, errors.New("journal path cannot be empty")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// One writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db, path: path, log: logger.WithField("component", "journal")}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return err
	}
	_, err := s.db.Exec(InitMetadata)
	return err
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Record inserts e. An empty ID is filled with a new UUID and a zero
// SubmittedAt with the current time.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.SubmittedAt.IsZero() {
		e.SubmittedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, submitted_at, example_count, outcome, status, output_dir, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SubmittedAt.UnixMilli(), e.ExampleCount, string(e.Outcome), e.Status, e.OutputDir, e.Duration.Milliseconds(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("record submission: %w", err)
	}

	s.log.WithFields(logrus.Fields{"id": e.ID, "outcome": e.Outcome, "examples": e.ExampleCount}).Debug("journalled submission")
	return e, nil
}

// List returns up to limit entries, newest first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, submitted_at, example_count, outcome, status, output_dir, duration_ms
		FROM submissions ORDER BY submitted_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with the given ID.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, submitted_at, example_count, outcome, status, output_dir, duration_ms
		FROM submissions WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// Count returns the number of recorded submissions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM submissions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		e          Entry
		outcome    string
		atMillis   int64
		durationMs int64
	)
	if err := sc.Scan(&e.ID, &atMillis, &e.ExampleCount, &outcome, &e.Status, &e.OutputDir, &durationMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan submission: %w", err)
	}
	e.SubmittedAt = time.UnixMilli(atMillis)
	e.Outcome = Outcome(outcome)
	e.Duration = time.Duration(durationMs) * time.Millisecond
	return e, nil
}
