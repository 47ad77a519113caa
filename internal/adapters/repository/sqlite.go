package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/okian/aptrank/internal/domain/model"
	"github.com/okian/aptrank/pkg/logger"
)

//go:embed schema.sql
var schema string

const (
	defaultBusyTimeout = 5 * time.Second
	defaultJournalMode = "WAL"
)

// SQLiteStore keeps ratings and outcomes in a SQLite database.
type SQLiteStore struct {
	mu          sync.Mutex
	db          *sql.DB
	path        string
	busyTimeout time.Duration
	journalMode string
	logger      logger.Logger
	// saved is the number of outcomes known to be on disk; Save skips them.
	saved  int
	closed bool
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		path:        path,
		busyTimeout: defaultBusyTimeout,
		journalMode: defaultJournalMode,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprint(s.busyTimeout.Milliseconds()))
	q.Set("_journal_mode", s.journalMode)
	db, err := sql.Open("sqlite3", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	// One writer; SQLite serializes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: init schema: %w", ErrOpen, err)
	}
	s.db = db
	return s, nil
}

// Load reads every rating and the full ledger in insertion order. Outcome
// rows whose timestamp cannot be parsed are logged and left out; they stay
// on disk untouched.
func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrClosed
	}

	snap := Snapshot{Ratings: make(map[string]float64)}

	rows, err := s.db.QueryContext(ctx, "SELECT item_key, rating FROM ratings")
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: query ratings: %w", ErrLoad, err)
	}
	for rows.Next() {
		var (
			key string
			r   float64
		)
		if err := rows.Scan(&key, &r); err != nil {
			_ = rows.Close()
			return Snapshot{}, fmt.Errorf("%w: scan rating: %w", ErrLoad, err)
		}
		snap.Ratings[key] = r
	}
	if err := rows.Close(); err != nil {
		return Snapshot{}, fmt.Errorf("%w: ratings: %w", ErrLoad, err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT id, winner_key, loser_key, winner_before, loser_before,
		winner_after, loser_after, at FROM outcomes ORDER BY seq`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: query outcomes: %w", ErrLoad, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			o  model.Outcome
			at string
		)
		if err := rows.Scan(&o.ID, &o.WinnerKey, &o.LoserKey, &o.WinnerBefore, &o.LoserBefore,
			&o.WinnerAfter, &o.LoserAfter, &at); err != nil {
			return Snapshot{}, fmt.Errorf("%w: scan outcome: %w", ErrLoad, err)
		}
		if o.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			s.logger.Warn(ctx, "skipping stored outcome with unreadable timestamp",
				logger.String("id", o.ID),
				logger.String("at", at),
				logger.Error(err),
			)
			continue
		}
		snap.Outcomes = append(snap.Outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("%w: outcomes: %w", ErrLoad, err)
	}
	s.saved = len(snap.Outcomes)
	return snap, nil
}

// Save upserts every rating and appends outcomes not yet on disk, in one
// transaction. Outcomes already stored (same ID) are left untouched.
func (s *SQLiteStore) Save(ctx context.Context, ratings map[string]float64, outcomes []model.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrSave, err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	upsert, err := tx.PrepareContext(ctx, `INSERT INTO ratings (item_key, rating, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(item_key) DO UPDATE SET rating = excluded.rating, updated_at = excluded.updated_at
		WHERE ratings.rating != excluded.rating`)
	if err != nil {
		return fmt.Errorf("%w: prepare ratings: %w", ErrSave, err)
	}
	defer upsert.Close()
	for key, r := range ratings {
		if _, err := upsert.ExecContext(ctx, key, r, now); err != nil {
			return fmt.Errorf("%w: rating %s: %w", ErrSave, key, err)
		}
	}

	// A shorter ledger than what was saved means the caller started from a
	// different history; fall back to checking every outcome.
	start := s.saved
	if start > len(outcomes) {
		start = 0
	}
	insert, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO outcomes (id, winner_key, loser_key,
		winner_before, loser_before, winner_after, loser_after, at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare outcomes: %w", ErrSave, err)
	}
	defer insert.Close()
	for _, o := range outcomes[start:] {
		if _, err := insert.ExecContext(ctx, o.ID, o.WinnerKey, o.LoserKey, o.WinnerBefore, o.LoserBefore,
			o.WinnerAfter, o.LoserAfter, o.At.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("%w: outcome %s: %w", ErrSave, o.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrSave, err)
	}
	s.saved = len(outcomes)
	return nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }
