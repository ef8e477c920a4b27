// Package sqlite provides the SQLite-backed persistence for process-wide
// client state: the anonymous usage counter, cumulative stats, and the
// unlocked achievement set. It satisfies the quota.Store and stats.Store
// contracts.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stegoctl/internal/stats"

	// database/sql SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// Store persists client state in a single SQLite database. Safe for
// concurrent use; database/sql manages connection pooling and
// serialization.
type Store struct{ db *sql.DB }

// Open opens (or creates) the database at path and initializes the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle, initializing the schema if absent.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS usage_counter (
id INTEGER PRIMARY KEY CHECK (id = 1),
anonymous_ops INTEGER NOT NULL DEFAULT 0,
logged_in INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS usage_stats (
id INTEGER PRIMARY KEY CHECK (id = 1),
files_processed INTEGER NOT NULL DEFAULT 0,
data_hidden INTEGER NOT NULL DEFAULT 0,
successful_operations INTEGER NOT NULL DEFAULT 0,
updated_at INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS achievements (
id TEXT PRIMARY KEY,
unlocked_at INTEGER NOT NULL
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: failed to initialize schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// LoadCounter returns the persisted anonymous operation counter, zero when
// none has been stored yet.
func (s *Store) LoadCounter(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT anonymous_ops FROM usage_counter WHERE id = 1`).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to load counter: %w", err)
	}
	return count, nil
}

// SaveCounter persists the anonymous operation counter.
func (s *Store) SaveCounter(ctx context.Context, count int) error {
	const q = `INSERT INTO usage_counter (id, anonymous_ops) VALUES (1, ?)
ON CONFLICT(id) DO UPDATE SET anonymous_ops = excluded.anonymous_ops`
	if _, err := s.db.ExecContext(ctx, q, count); err != nil {
		return fmt.Errorf("sqlite: failed to save counter: %w", err)
	}
	return nil
}

// LoadSessionState returns the last persisted authentication state, false
// when none has been stored yet.
func (s *Store) LoadSessionState(ctx context.Context) (bool, error) {
	var loggedIn bool
	err := s.db.QueryRowContext(ctx,
		`SELECT logged_in FROM usage_counter WHERE id = 1`).Scan(&loggedIn)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to load session state: %w", err)
	}
	return loggedIn, nil
}

// SaveSessionState persists the observed authentication state.
func (s *Store) SaveSessionState(ctx context.Context, authenticated bool) error {
	const q = `INSERT INTO usage_counter (id, logged_in) VALUES (1, ?)
ON CONFLICT(id) DO UPDATE SET logged_in = excluded.logged_in`
	if _, err := s.db.ExecContext(ctx, q, authenticated); err != nil {
		return fmt.Errorf("sqlite: failed to save session state: %w", err)
	}
	return nil
}

// LoadStats returns the persisted stats and unlocked achievement ids in
// unlock order.
func (s *Store) LoadStats(ctx context.Context) (stats.Stats, []string, error) {
	var st stats.Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT files_processed, data_hidden, successful_operations FROM usage_stats WHERE id = 1`).
		Scan(&st.FilesProcessed, &st.DataHiddenBytes, &st.SuccessfulOperations)
	if err != nil && err != sql.ErrNoRows {
		return stats.Stats{}, nil, fmt.Errorf("sqlite: failed to load stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM achievements ORDER BY unlocked_at, id`)
	if err != nil {
		return stats.Stats{}, nil, fmt.Errorf("sqlite: failed to load achievements: %w", err)
	}
	defer rows.Close()

	var unlocked []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return stats.Stats{}, nil, fmt.Errorf("sqlite: failed to scan achievement: %w", err)
		}
		unlocked = append(unlocked, id)
	}
	if err := rows.Err(); err != nil {
		return stats.Stats{}, nil, fmt.Errorf("sqlite: failed to read achievements: %w", err)
	}
	return st, unlocked, nil
}

// SaveStats persists the stats snapshot and any newly unlocked achievement
// ids. Achievement rows are insert-only; an id is never removed.
func (s *Store) SaveStats(ctx context.Context, st stats.Stats, unlocked []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const upsert = `INSERT INTO usage_stats (id, files_processed, data_hidden, successful_operations, updated_at)
VALUES (1, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
files_processed = excluded.files_processed,
data_hidden = excluded.data_hidden,
successful_operations = excluded.successful_operations,
updated_at = excluded.updated_at`
	now := time.Now().Unix()
	if _, err = tx.ExecContext(ctx, upsert,
		st.FilesProcessed, st.DataHiddenBytes, st.SuccessfulOperations, now); err != nil {
		return fmt.Errorf("sqlite: failed to save stats: %w", err)
	}

	const insert = `INSERT INTO achievements (id, unlocked_at) VALUES (?, ?)
ON CONFLICT(id) DO NOTHING`
	for _, id := range unlocked {
		if _, err = tx.ExecContext(ctx, insert, id, now); err != nil {
			return fmt.Errorf("sqlite: failed to save achievement %s: %w", id, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: failed to commit: %w", err)
	}
	return nil
}
