package daemon

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	// OpCreate indicates a new file was created.
	OpCreate EventOp = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file was deleted.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// DBEvent represents a file system event on the card database.
type DBEvent struct {
	// Path is the path to the file that changed.
	Path string
	// Op is the operation that occurred (create, modify, delete).
	Op EventOp
}

// DBWatcher watches the SQLite database file set for changes. SQLite in
// WAL mode spreads writes across the main file and its -wal sibling, so
// the watcher monitors the parent directory and filters to both names.
// That also survives checkpoints replacing the -wal file, which a watch
// on the file itself would not.
type DBWatcher struct {
	watcher *fsnotify.Watcher
	events  chan DBEvent
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	dbPath  string
}

// NewDBWatcher creates a new DBWatcher instance.
// The watcher must be started with Start() before it will emit events.
func NewDBWatcher() (*DBWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &DBWatcher{
		watcher: watcher,
		events:  make(chan DBEvent, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching the database file set for changes.
// Returns an error if the database directory cannot be watched.
func (dw *DBWatcher) Start(dbPath string) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.running {
		return fmt.Errorf("watcher already running")
	}
	if dbPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	dw.dbPath = dbPath

	if err := dw.watcher.Add(filepath.Dir(dbPath)); err != nil {
		return fmt.Errorf("failed to watch database directory %s: %w", filepath.Dir(dbPath), err)
	}

	dw.running = true
	dw.wg.Add(1)
	go dw.processEvents()

	return nil
}

// Stop stops watching for file system events and cleans up resources.
// It blocks until the event processing goroutine has exited.
func (dw *DBWatcher) Stop() error {
	dw.mu.Lock()
	if !dw.running {
		dw.mu.Unlock()
		return nil
	}
	dw.running = false
	dw.mu.Unlock()

	// Signal shutdown
	close(dw.done)

	// Close the underlying watcher (this will unblock the event loop)
	if err := dw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	// Wait for event processing to finish
	dw.wg.Wait()

	// Close channels
	close(dw.events)
	close(dw.errors)

	return nil
}

// Events returns the channel that emits DBEvent notifications.
// This channel is closed when the watcher is stopped.
func (dw *DBWatcher) Events() <-chan DBEvent {
	return dw.events
}

// Errors returns the channel that emits error notifications.
// This channel is closed when the watcher is stopped.
func (dw *DBWatcher) Errors() <-chan error {
	return dw.errors
}

// processEvents is the main event loop that processes fsnotify events
// and converts them to DBEvent notifications.
func (dw *DBWatcher) processEvents() {
	defer dw.wg.Done()

	for {
		select {
		case <-dw.done:
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}

			if dbEvent, ok := dw.convertEvent(event); ok {
				select {
				case dw.events <- dbEvent:
				case <-dw.done:
					return
				}
			}

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}

			select {
			case dw.errors <- err:
			case <-dw.done:
				return
			}
		}
	}
}

// convertEvent converts an fsnotify event to a DBEvent.
// Returns (DBEvent, true) if the event should be processed,
// or (DBEvent{}, false) if the event should be ignored.
func (dw *DBWatcher) convertEvent(event fsnotify.Event) (DBEvent, bool) {
	if !dw.isDatabaseFile(event.Name) {
		return DBEvent{}, false
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove):
		op = OpDelete
	case event.Has(fsnotify.Rename):
		// Treat rename as delete (the new name will trigger a create)
		op = OpDelete
	default:
		// Ignore chmod and other events
		return DBEvent{}, false
	}

	return DBEvent{
		Path: event.Name,
		Op:   op,
	}, true
}

// isDatabaseFile reports whether the path is the database file or its
// write-ahead log. The -shm memory map changes without useful fsnotify
// signal and is ignored.
func (dw *DBWatcher) isDatabaseFile(path string) bool {
	base := filepath.Base(path)
	dbBase := filepath.Base(dw.dbPath)
	return base == dbBase || base == dbBase+"-wal"
}

// IsRunning returns true if the watcher is currently running.
func (dw *DBWatcher) IsRunning() bool {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return dw.running
}
