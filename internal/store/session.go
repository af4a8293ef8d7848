package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SyncState is the persisted part of the sync session.
//
// The in-flight "syncing" flag is deliberately absent: it is process-local
// state owned by the orchestrator and always starts false after a load, so
// a crash mid-sync can never wedge the next run.
type SyncState struct {
	// EndpointURL is the configured remote endpoint, empty when
	// disconnected.
	EndpointURL string

	// HasSyncedBefore is true once a full sync against EndpointURL has
	// completed. It resets when the endpoint changes, which re-arms the
	// first-connection handshake.
	HasSyncedBefore bool

	// LastSyncTime is when the last successful full sync finished.
	LastSyncTime *time.Time

	// LastError holds the last sync failure, empty after a success.
	LastError string
}

// Configured reports whether an endpoint is set.
func (st SyncState) Configured() bool {
	return st.EndpointURL != ""
}

// LoadSession reads the persisted sync session.
// A missing row yields the zero state (disconnected, never synced).
func (s *Store) LoadSession() (SyncState, error) {
	return s.LoadSessionContext(context.Background())
}

// LoadSessionContext reads the sync session with context support.
func (s *Store) LoadSessionContext(ctx context.Context) (SyncState, error) {
	query := `
	SELECT endpoint_url, has_synced_before, last_sync_time, last_error
	FROM sync_state
	WHERE id = 1
	`

	var state SyncState
	var hasSynced int
	var lastSync sql.NullString

	err := s.conn.QueryRowContext(ctx, query).Scan(
		&state.EndpointURL,
		&hasSynced,
		&lastSync,
		&state.LastError,
	)
	if err == sql.ErrNoRows {
		return SyncState{}, nil
	}
	if err != nil {
		return SyncState{}, fmt.Errorf("failed to load sync session: %w", err)
	}

	state.HasSyncedBefore = hasSynced != 0
	state.LastSyncTime = nullStringToTime(lastSync)

	return state, nil
}

// SaveSession persists the sync session, replacing any previous row.
func (s *Store) SaveSession(state SyncState) error {
	return s.SaveSessionContext(context.Background(), state)
}

// SaveSessionContext persists the sync session with context support.
func (s *Store) SaveSessionContext(ctx context.Context, state SyncState) error {
	query := `
	INSERT INTO sync_state (id, endpoint_url, has_synced_before, last_sync_time, last_error)
	VALUES (1, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		endpoint_url = excluded.endpoint_url,
		has_synced_before = excluded.has_synced_before,
		last_sync_time = excluded.last_sync_time,
		last_error = excluded.last_error
	`

	_, err := s.conn.ExecContext(ctx, query,
		state.EndpointURL,
		boolToInt(state.HasSyncedBefore),
		timeToNullString(state.LastSyncTime),
		state.LastError,
	)
	if err != nil {
		return fmt.Errorf("failed to save sync session: %w", err)
	}

	return nil
}

// timeToNullString converts a time pointer to a nullable string for SQL.
func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: t.Format(time.RFC3339Nano), Valid: true}
}

// nullStringToTime converts a nullable SQL string to a time pointer.
func nullStringToTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil
	}
	return &t
}
