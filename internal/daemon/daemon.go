// Package daemon provides the serve-mode daemon that keeps the shared
// sheet and the events feed current.
//
// The daemon:
// 1. Watches the card database for changes from other processes
// 2. Queues a debounced auto-push behind every foreign edit
// 3. Optionally runs unattended periodic full syncs
// 4. Handles graceful shutdown
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/niko-chaffinchicas/fair-play/internal/events"
	"github.com/niko-chaffinchicas/fair-play/internal/merge"
	"github.com/niko-chaffinchicas/fair-play/internal/store"
	fpsync "github.com/niko-chaffinchicas/fair-play/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// SyncInterval is how often to run an unattended full sync.
	// Zero disables periodic syncing; pushes still follow edits.
	SyncInterval time.Duration

	// Strategy used for unattended full syncs.
	Strategy merge.Strategy

	// DebounceInterval is how long to wait before processing database
	// changes. This batches rapid updates together.
	DebounceInterval time.Duration

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval:     0,
		Strategy:         merge.DefaultStrategy,
		DebounceInterval: 100 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon watches the card database and drives pushes and stats updates.
type Daemon struct {
	store   *store.Store
	syncer  *fpsync.Syncer
	handler *events.Handler
	config  *Config

	watcher *DBWatcher

	// Pending change batching. A change is "foreign" when it arrived
	// while no sync was in flight, meaning another process edited the
	// deck and the sheet needs a push.
	changeMu       sync.Mutex
	changeDirty    bool
	changeForeign  bool
	changeQueuedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Daemon instance.
//
// The daemon requires:
//   - st: open card store with its schema initialized
//   - syncer: the sync orchestrator to push and sync through
//   - handler: events handler for the feed; may be nil
//
// Use Start() to begin watching.
func New(st *store.Store, syncer *fpsync.Syncer, handler *events.Handler) (*Daemon, error) {
	return NewWithConfig(st, syncer, handler, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(st *store.Store, syncer *fpsync.Syncer, handler *events.Handler, config *Config) (*Daemon, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if syncer == nil {
		return nil, fmt.Errorf("syncer cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 100 * time.Millisecond
	}
	if !config.Strategy.IsValid() {
		config.Strategy = merge.DefaultStrategy
	}

	watcher, err := NewDBWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		store:   st,
		syncer:  syncer,
		handler: handler,
		config:  config,
		watcher: watcher,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon will:
// 1. Broadcast initial deck statistics
// 2. Start watching the database file set
// 3. Run an initial full sync when periodic syncing is enabled
// 4. Process database changes with debouncing
//
// This blocks until ctx is cancelled or an error occurs.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	d.refreshStats()

	if err := d.watcher.Start(d.store.Path()); err != nil {
		return fmt.Errorf("failed to watch database: %w", err)
	}
	d.config.Logger.Printf("Watching: %s", d.store.Path())

	if d.config.SyncInterval > 0 {
		if err := d.PerformFullSync(); err != nil {
			d.config.Logger.Printf("Warning: initial sync failed: %v", err)
		}
	}

	// Start background goroutines
	d.wg.Add(2)
	go d.watchDBEvents()
	go d.processChangeQueue()

	if d.config.SyncInterval > 0 {
		d.wg.Add(1)
		go d.periodicSync()
	}

	// Wait for shutdown
	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	// Signal shutdown
	d.cancel()

	// Close watcher
	if err := d.watcher.Stop(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}

	// Wait for goroutines to finish
	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// PerformFullSync runs one unattended full sync with the configured
// strategy.
//
// Conditions that make an unattended sync inappropriate (no endpoint,
// pending first-connection handshake, another sync in flight) are
// logged and skipped rather than returned: the daemon has to keep
// running through all of them.
func (d *Daemon) PerformFullSync() error {
	if d.syncer.IsFirstSync() {
		d.config.Logger.Println("First sync requires an interactive strategy choice, skipping")
		return nil
	}

	result, err := d.syncer.FullSync(d.ctx, d.config.Strategy)
	if errors.Is(err, fpsync.ErrNotConfigured) {
		d.config.Logger.Println("No sync endpoint configured, skipping")
		return nil
	}
	if errors.Is(err, fpsync.ErrSyncInProgress) {
		d.config.Logger.Println("Sync already in flight, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	d.config.Logger.Printf("Full sync complete: pulled=%d merged=%d pushed=%d",
		result.Pulled, result.Merged, result.Pushed)
	d.refreshStats()
	return nil
}

// watchDBEvents monitors database file events and queues changes.
func (d *Daemon) watchDBEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events():
			if !ok {
				return
			}
			d.config.Logger.Printf("Database event: %s %s", event.Op, event.Path)
			d.queueChange()

		case err, ok := <-d.watcher.Errors():
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange marks the database dirty with debouncing.
func (d *Daemon) queueChange() {
	d.changeMu.Lock()
	defer d.changeMu.Unlock()

	d.changeDirty = true
	d.changeQueuedAt = time.Now()
	if !d.syncer.Status().IsSyncing {
		d.changeForeign = true
	}
}

// processChangeQueue processes queued database changes with debouncing.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges handles changes that have settled for long enough.
func (d *Daemon) processPendingChanges() {
	d.changeMu.Lock()
	if !d.changeDirty || time.Since(d.changeQueuedAt) < d.config.DebounceInterval {
		d.changeMu.Unlock()
		return
	}
	foreign := d.changeForeign
	d.changeDirty = false
	d.changeForeign = false
	d.changeMu.Unlock()

	d.config.Logger.Println("Processing database change")
	d.refreshStats()

	// Changes written by our own sync are already on the sheet.
	if foreign {
		if d.handler != nil {
			d.handler.OnCardsChanged("local_edit")
		}
		d.syncer.DebouncedAutoPush()
	}
}

// periodicSync runs full syncs at the configured interval.
func (d *Daemon) periodicSync() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			if err := d.PerformFullSync(); err != nil {
				d.config.Logger.Printf("Warning: periodic sync failed: %v", err)
			}
		}
	}
}

// refreshStats recomputes deck statistics for the events feed.
func (d *Daemon) refreshStats() {
	if d.handler == nil {
		return
	}

	states, err := d.store.GetAll()
	if err != nil {
		d.config.Logger.Printf("Error loading card states: %v", err)
		return
	}
	d.handler.UpdateStats(states)
}
