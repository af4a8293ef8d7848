// Package store provides the local SQLite persistence gateway for card state.
//
// The database runs in embedded mode with WAL for concurrent access, so the
// CLI and a running serve daemon can share one file safely.
//
// Schema:
//   - cards: one row per card name holding assignment, notes, trimmed, id
//   - sync_state: a single row with the persisted sync session
//
// Card state is keyed by card name. Upserts are partial: a CardPatch only
// touches the fields it carries, so editing notes never clobbers an
// assignment written by another process in between.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/niko-chaffinchicas/fair-play/internal/deck"
)

// Store wraps the SQLite connection with card-state specific operations.
type Store struct {
	conn *sql.DB
	path string
}

// CardState is the persisted state of one card.
//
// A zero UpdatedAt means the state has never been stamped; merges treat it
// as older than any dated remote row.
type CardState struct {
	Name       string
	ID         string
	Assignment deck.Assignment
	Notes      string
	Trimmed    bool
	UpdatedAt  time.Time
}

// CardPatch is a partial update. Nil fields are left untouched on an
// existing row and take zero defaults on a new one.
//
// UpdatedAt is special: when nil the store stamps the current time, when
// set the given timestamp is kept. Sync persistence passes merged
// timestamps through; user edits pass nil.
type CardPatch struct {
	ID         *string
	Assignment *deck.Assignment
	Notes      *string
	Trimmed    *bool
	UpdatedAt  *time.Time
}

// Open creates a database connection at the specified path.
//
// The database is created on first open along with its parent directory.
// The caller MUST call Close() when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s", path)
	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	// WAL mode lets the serve daemon read while the CLI writes.
	if _, err := s.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := s.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := s.conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return s, nil
}

// Path returns the database file path. The serve daemon watches this file
// set for writes from other processes.
func (s *Store) Path() string {
	return s.path
}

// RawDB returns the underlying sql.DB connection.
func (s *Store) RawDB() *sql.DB {
	return s.conn
}

// Close closes the database connection after checkpointing the WAL.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}

// InitSchema creates the database schema if it doesn't exist.
// Idempotent - safe to call multiple times.
func (s *Store) InitSchema() error {
	return s.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the database schema with context support.
func (s *Store) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cards (
		name TEXT PRIMARY KEY,
		card_id TEXT NOT NULL DEFAULT '',
		assignment INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		trimmed INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sync_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		endpoint_url TEXT NOT NULL DEFAULT '',
		has_synced_before INTEGER NOT NULL DEFAULT 0,
		last_sync_time TEXT,
		last_error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_cards_assignment ON cards(assignment);
	CREATE INDEX IF NOT EXISTS idx_cards_trimmed ON cards(trimmed);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// Get retrieves the state for a single card by name.
// Returns sql.ErrNoRows if the card has no stored state.
func (s *Store) Get(name string) (*CardState, error) {
	return s.GetContext(context.Background(), name)
}

// GetContext retrieves a single card state with context support.
func (s *Store) GetContext(ctx context.Context, name string) (*CardState, error) {
	query := `
	SELECT name, card_id, assignment, notes, trimmed, updated_at
	FROM cards
	WHERE name = ?
	`

	return scanState(s.conn.QueryRowContext(ctx, query, name))
}

// GetAll returns every stored card state in insertion order.
//
// Insertion order is what the merge engine treats as "local order" when it
// appends local-only entities after the remote-derived ones.
func (s *Store) GetAll() ([]CardState, error) {
	return s.GetAllContext(context.Background())
}

// GetAllContext returns all card states with context support.
func (s *Store) GetAllContext(ctx context.Context) ([]CardState, error) {
	query := `
	SELECT name, card_id, assignment, notes, trimmed, updated_at
	FROM cards
	ORDER BY rowid ASC
	`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query card states: %w", err)
	}
	defer rows.Close()

	return scanStates(rows)
}

// Upsert merges a partial update into a card's state, creating the row with
// defaults if it doesn't exist.
func (s *Store) Upsert(name string, patch CardPatch) error {
	return s.UpsertContext(context.Background(), name, patch)
}

// UpsertContext merges a partial update with context support.
//
// Read-merge-write runs inside a transaction so concurrent upserts against
// the same card cannot interleave their field updates.
func (s *Store) UpsertContext(ctx context.Context, name string, patch CardPatch) error {
	if name == "" {
		return fmt.Errorf("card name is required")
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	state := CardState{Name: name, Assignment: deck.Unassigned}
	existing, err := scanState(tx.QueryRowContext(ctx,
		`SELECT name, card_id, assignment, notes, trimmed, updated_at FROM cards WHERE name = ?`, name))
	switch {
	case err == nil:
		state = *existing
	case err == sql.ErrNoRows:
		// New card, keep defaults.
	default:
		return fmt.Errorf("failed to read card %s: %w", name, err)
	}

	if patch.ID != nil {
		state.ID = *patch.ID
	}
	if patch.Assignment != nil {
		state.Assignment = *patch.Assignment
	}
	if patch.Notes != nil {
		state.Notes = *patch.Notes
	}
	if patch.Trimmed != nil {
		state.Trimmed = *patch.Trimmed
	}
	if patch.UpdatedAt != nil {
		state.UpdatedAt = *patch.UpdatedAt
	} else {
		state.UpdatedAt = time.Now()
	}

	query := `
	INSERT INTO cards (name, card_id, assignment, notes, trimmed, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		card_id = excluded.card_id,
		assignment = excluded.assignment,
		notes = excluded.notes,
		trimmed = excluded.trimmed,
		updated_at = excluded.updated_at
	`

	_, err = tx.ExecContext(ctx, query,
		state.Name,
		state.ID,
		state.Assignment.Code(),
		state.Notes,
		boolToInt(state.Trimmed),
		state.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert card %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}

	return nil
}

// Clear removes all card state. The sync session row is untouched.
func (s *Store) Clear() error {
	return s.ClearContext(context.Background())
}

// ClearContext removes all card state with context support.
func (s *Store) ClearContext(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM cards"); err != nil {
		return fmt.Errorf("failed to clear card states: %w", err)
	}
	return nil
}

// CountStates returns the number of stored card states.
func (s *Store) CountStates() (int, error) {
	return s.CountStatesContext(context.Background())
}

// CountStatesContext returns the stored state count with context support.
func (s *Store) CountStatesContext(ctx context.Context) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM cards").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count card states: %w", err)
	}
	return count, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanState scans one card state row.
func scanState(row rowScanner) (*CardState, error) {
	var state CardState
	var assignmentCode, trimmed int
	var updatedAt string

	err := row.Scan(
		&state.Name,
		&state.ID,
		&assignmentCode,
		&state.Notes,
		&trimmed,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	state.Assignment = deck.AssignmentFromCode(assignmentCode)
	state.Trimmed = trimmed != 0
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		state.UpdatedAt = t
	}

	return &state, nil
}

// scanStates scans multiple card states from query results.
func scanStates(rows *sql.Rows) ([]CardState, error) {
	var states []CardState

	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card state: %w", err)
		}
		states = append(states, *state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating card states: %w", err)
	}

	return states, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
