package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/niko-chaffinchicas/fair-play/internal/deck"
	"github.com/niko-chaffinchicas/fair-play/internal/merge"
	"github.com/niko-chaffinchicas/fair-play/internal/remote"
	"github.com/niko-chaffinchicas/fair-play/internal/store"
)

// Common errors returned by sync operations.
//
// These can be checked with errors.Is():
//
//	if errors.Is(err, sync.ErrSyncInProgress) {
//	    // another sync holds the gate
//	}
var (
	// ErrNotConfigured is returned when a sync is requested with no
	// endpoint configured.
	ErrNotConfigured = errors.New("no sync endpoint configured")

	// ErrSyncInProgress is returned when a full sync is requested while
	// another sync holds the gate.
	ErrSyncInProgress = errors.New("a sync is already in flight")

	// ErrInvalidEndpoint is returned when the endpoint URL is not an
	// absolute http(s) URL.
	ErrInvalidEndpoint = errors.New("endpoint must be an absolute http(s) URL")
)

// Config holds configuration for the syncer.
type Config struct {
	// DebounceInterval is how long auto-pushes wait after the most
	// recent trigger before firing.
	DebounceInterval time.Duration

	// Transport builds the transport for an endpoint URL. Defaults to
	// the HTTP sheet client.
	Transport func(endpoint string) Transport

	// Notifier receives lifecycle events. May be nil.
	Notifier Notifier

	// Logger for sync activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 2 * time.Second,
		Transport:        func(endpoint string) Transport { return remote.New(endpoint) },
		Logger:           log.New(os.Stderr, "[sync] ", log.LstdFlags),
	}
}

// Session is a point-in-time view of the sync session, the persisted
// state plus the process-local in-flight flag.
type Session struct {
	store.SyncState
	IsSyncing bool
}

// Result summarizes a completed full sync.
type Result struct {
	Strategy merge.Strategy
	Pulled   int // rows fetched from the remote
	Merged   int // entities in the merged set
	Pushed   int // eligible rows pushed back
	Duration time.Duration
}

// Preview reports what a first sync would reconcile.
type Preview struct {
	RemoteRows int
	LocalCards int
}

// Syncer orchestrates sync operations against one store.
type Syncer struct {
	store        *store.Store
	newTransport func(endpoint string) Transport
	notifier     Notifier
	logger       *log.Logger

	mu      sync.Mutex
	session store.SyncState
	syncing bool

	debounceMu       sync.Mutex
	debounceInterval time.Duration
	debounceTimer    *time.Timer
	waiters          []chan error
}

// New creates a Syncer with default configuration.
//
// The store must be open with its schema initialized. The persisted
// session is loaded here; the in-flight flag always starts false, so a
// crash mid-sync can never wedge the next run.
func New(st *store.Store) (*Syncer, error) {
	return NewWithConfig(st, DefaultConfig())
}

// NewWithConfig creates a Syncer with custom configuration.
func NewWithConfig(st *store.Store, config *Config) (*Syncer, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	newTransport := config.Transport
	if newTransport == nil {
		newTransport = func(endpoint string) Transport { return remote.New(endpoint) }
	}
	interval := config.DebounceInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	session, err := st.LoadSession()
	if err != nil {
		return nil, fmt.Errorf("failed to load sync session: %w", err)
	}

	return &Syncer{
		store:            st,
		newTransport:     newTransport,
		notifier:         config.Notifier,
		logger:           logger,
		session:          session,
		debounceInterval: interval,
	}, nil
}

// ConfigureEndpoint validates and persists the remote endpoint URL.
//
// Pointing at a different endpoint than the current one resets
// HasSyncedBefore, which re-arms the first-connection handshake; setting
// the same URL again leaves the flag alone.
func (s *Syncer) ConfigureEndpoint(rawURL string) error {
	trimmed := strings.TrimSpace(rawURL)
	u, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: got %q", ErrInvalidEndpoint, rawURL)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.session
	if session.EndpointURL != trimmed {
		session.HasSyncedBefore = false
		session.LastError = ""
	}
	session.EndpointURL = trimmed

	if err := s.store.SaveSession(session); err != nil {
		return err
	}
	s.session = session
	s.logger.Printf("Endpoint configured: %s", trimmed)
	return nil
}

// DisconnectEndpoint clears the endpoint and every per-endpoint session
// field in a single write. Card state is untouched.
func (s *Syncer) DisconnectEndpoint() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := store.SyncState{}
	if err := s.store.SaveSession(cleared); err != nil {
		return err
	}
	s.session = cleared
	s.logger.Printf("Endpoint disconnected")
	return nil
}

// IsFirstSync reports whether the configured endpoint has never
// completed a full sync, which is what arms the first-connection
// handshake.
func (s *Syncer) IsFirstSync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Configured() && !s.session.HasSyncedBefore
}

// Status returns a snapshot of the sync session.
func (s *Syncer) Status() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Session{SyncState: s.session, IsSyncing: s.syncing}
}

// FullSync runs the pull → merge → persist → push sequence.
//
// The first failing step aborts, is recorded in the session's LastError,
// and is returned. A push failure does not roll back the already
// persisted merge: local state stays merged and the next successful push
// reconciles the remote.
func (s *Syncer) FullSync(ctx context.Context, strategy merge.Strategy) (*Result, error) {
	if !strategy.IsValid() {
		return nil, fmt.Errorf("invalid merge strategy %q", strategy)
	}

	endpoint, err := s.beginSync()
	if err != nil {
		return nil, err
	}
	defer s.endSync()

	start := time.Now()
	s.logger.Printf("Starting full sync against %s (strategy=%s)", endpoint, strategy)
	if s.notifier != nil {
		s.notifier.SyncStarted(endpoint)
	}

	transport := s.newTransport(endpoint)

	rows, err := transport.Pull(ctx)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}
	s.logger.Printf("Pulled %d rows", len(rows))

	local, err := s.store.GetAllContext(ctx)
	if err != nil {
		err = fmt.Errorf("failed to load card states: %w", err)
		s.recordFailure(err)
		return nil, err
	}

	mergedSet := merge.Merge(rows, local, strategy)

	// Per-entity persistence, no surrounding transaction: a failure
	// partway leaves earlier entities written, and the next sync
	// reconverges the rest.
	for _, entity := range mergedSet {
		if err := s.persistMerged(ctx, entity); err != nil {
			s.recordFailure(err)
			return nil, err
		}
	}
	s.logger.Printf("Merged %d entities", len(mergedSet))

	reloaded, err := s.store.GetAllContext(ctx)
	if err != nil {
		err = fmt.Errorf("failed to reload card states: %w", err)
		s.recordFailure(err)
		return nil, err
	}
	reloaded, err = s.backfillIDs(ctx, reloaded)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	pushRows := eligibleRows(reloaded)
	if err := transport.Push(ctx, pushRows); err != nil {
		s.recordFailure(err)
		return nil, err
	}

	now := time.Now()
	s.mu.Lock()
	s.session.HasSyncedBefore = true
	s.session.LastSyncTime = &now
	s.session.LastError = ""
	saveErr := s.store.SaveSession(s.session)
	s.mu.Unlock()
	if saveErr != nil {
		saveErr = fmt.Errorf("failed to persist sync session: %w", saveErr)
		s.recordFailure(saveErr)
		return nil, saveErr
	}

	result := &Result{
		Strategy: strategy,
		Pulled:   len(rows),
		Merged:   len(mergedSet),
		Pushed:   len(pushRows),
		Duration: time.Since(start),
	}

	s.logger.Printf("Full sync complete in %v: pulled=%d merged=%d pushed=%d",
		result.Duration.Round(time.Millisecond), result.Pulled, result.Merged, result.Pushed)
	if s.notifier != nil {
		s.notifier.SyncCompleted(*result)
	}

	return result, nil
}

// AutoPush sends every eligible card state to the remote without
// pulling or merging.
//
// It is a silent no-op when no endpoint is configured, another sync is
// in flight, or the first-connection handshake has not completed:
// auto-pushes ride behind routine edits, where noise would be worse
// than a missed push (the next edit pushes again). A transport failure
// is a real error and is both recorded and returned.
func (s *Syncer) AutoPush(ctx context.Context) error {
	// A push rewrites the whole sheet. Until the user confirms joining
	// this endpoint, nothing may flow to it.
	if s.IsFirstSync() {
		return nil
	}

	endpoint, err := s.beginSync()
	if err != nil {
		return nil
	}
	defer s.endSync()

	pushed, err := s.pushAll(ctx, s.newTransport(endpoint))
	if err != nil {
		s.recordFailure(err)
		return err
	}

	s.clearLastError()
	s.logger.Printf("Auto-push complete: %d rows", pushed)
	if s.notifier != nil {
		s.notifier.PushCompleted(pushed)
	}
	return nil
}

// PreviewFirstSync pulls the remote row set and reports what a first
// sync would reconcile, without merging anything. The caller shows the
// counts, collects a strategy choice, and then either runs FullSync
// (which pulls afresh) or disconnects.
func (s *Syncer) PreviewFirstSync(ctx context.Context) (*Preview, error) {
	endpoint, err := s.beginSync()
	if err != nil {
		return nil, err
	}
	defer s.endSync()

	rows, err := s.newTransport(endpoint).Pull(ctx)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	localCount, err := s.store.CountStatesContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count card states: %w", err)
	}

	return &Preview{RemoteRows: len(rows), LocalCards: localCount}, nil
}

// beginSync acquires the single-flight gate. Acquiring it clears the
// session's last error: a sync is underway, so the old failure no
// longer describes the current state (a fresh failure rewrites it, a
// success persists the cleared value).
func (s *Syncer) beginSync() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.Configured() {
		return "", ErrNotConfigured
	}
	if s.syncing {
		return "", ErrSyncInProgress
	}
	s.syncing = true
	s.session.LastError = ""
	return s.session.EndpointURL, nil
}

func (s *Syncer) endSync() {
	s.mu.Lock()
	s.syncing = false
	s.mu.Unlock()
}

// pushAll projects eligible states onto the wire and pushes them,
// backfilling missing ids first so every pushed row has a stable key.
func (s *Syncer) pushAll(ctx context.Context, transport Transport) (int, error) {
	states, err := s.store.GetAllContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load card states: %w", err)
	}

	states, err = s.backfillIDs(ctx, states)
	if err != nil {
		return 0, err
	}

	rows := eligibleRows(states)
	if err := transport.Push(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// persistMerged writes one merged entity through the store's partial
// upsert, carrying the merged timestamp so a sync never re-stamps rows
// to the current time.
func (s *Syncer) persistMerged(ctx context.Context, entity store.CardState) error {
	patch := store.CardPatch{
		Assignment: &entity.Assignment,
		Notes:      &entity.Notes,
		Trimmed:    &entity.Trimmed,
		UpdatedAt:  &entity.UpdatedAt,
	}
	// An absent id must not clobber one written by another device.
	if entity.ID != "" {
		patch.ID = &entity.ID
	}

	if err := s.store.UpsertContext(ctx, entity.Name, patch); err != nil {
		return fmt.Errorf("failed to persist merged card %s: %w", entity.Name, err)
	}
	return nil
}

// backfillIDs assigns ids to eligible states that lack one. Idempotent:
// existing ids are never touched, and timestamps are carried through so
// the backfill is invisible to merge comparisons.
func (s *Syncer) backfillIDs(ctx context.Context, states []store.CardState) ([]store.CardState, error) {
	for i := range states {
		if states[i].ID != "" || !deck.IsSyncEligible(states[i].Name) {
			continue
		}
		id := deck.NewCardID()
		patch := store.CardPatch{ID: &id, UpdatedAt: &states[i].UpdatedAt}
		if err := s.store.UpsertContext(ctx, states[i].Name, patch); err != nil {
			return nil, fmt.Errorf("failed to backfill id for %s: %w", states[i].Name, err)
		}
		states[i].ID = id
	}
	return states, nil
}

// eligibleRows projects sync-eligible states onto the wire format.
func eligibleRows(states []store.CardState) []remote.Row {
	rows := make([]remote.Row, 0, len(states))
	for _, st := range states {
		if !deck.IsSyncEligible(st.Name) {
			continue
		}
		rows = append(rows, remote.RowFromState(st))
	}
	return rows
}

// recordFailure persists the failure into the session and notifies.
func (s *Syncer) recordFailure(err error) {
	s.logger.Printf("Sync failed: %v", err)

	s.mu.Lock()
	s.session.LastError = err.Error()
	if saveErr := s.store.SaveSession(s.session); saveErr != nil {
		s.logger.Printf("Warning: failed to persist sync error: %v", saveErr)
	}
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.SyncFailed(err)
	}
}

// clearLastError persists the session after a successful push, dropping
// any stale failure. The in-memory copy was already cleared when the
// gate was acquired, so the write is what matters: without it a
// persisted failure would resurface on the next load.
func (s *Syncer) clearLastError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.LastError = ""
	if err := s.store.SaveSession(s.session); err != nil {
		s.logger.Printf("Warning: failed to persist session: %v", err)
	}
}
