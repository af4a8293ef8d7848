// Package daemon provides database watching and background synchronization
// for the fairplay serve daemon.
//
// The daemon monitors the SQLite card database for writes from other
// processes (CLI edits, imports) and keeps the shared sheet and the
// events feed current without any process-to-process plumbing: the
// database file itself is the coordination point.
//
// # Architecture
//
// The daemon consists of two components:
//
//   - DBWatcher: Cross-platform file system event monitoring using fsnotify
//   - Daemon: Orchestrates change debouncing, auto-pushes, stats refreshes,
//     and optional periodic full syncs
//
// # Database Watching
//
// The DBWatcher component provides a high-level abstraction over fsnotify:
//
//	dw, err := daemon.NewDBWatcher()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dw.Stop()
//
//	if err := dw.Start("/home/pat/.fairplay/cards.db"); err != nil {
//	    log.Fatal(err)
//	}
//
//	for event := range dw.Events() {
//	    switch event.Op {
//	    case daemon.OpCreate:
//	        fmt.Printf("Created: %s\n", event.Path)
//	    case daemon.OpModify:
//	        fmt.Printf("Modified: %s\n", event.Path)
//	    case daemon.OpDelete:
//	        fmt.Printf("Deleted: %s\n", event.Path)
//	    }
//	}
//
// SQLite in WAL mode spreads writes across the main database file and
// its -wal sibling, so the watcher monitors the parent directory and
// filters events to both names. The watcher maps fsnotify operations as
// follows:
//   - fsnotify.Create → OpCreate
//   - fsnotify.Write → OpModify
//   - fsnotify.Remove → OpDelete
//   - fsnotify.Rename → OpDelete (the new name triggers a separate Create)
//
// # Change Processing
//
// Database events are batched: a change marks the queue dirty, and a
// ticker processes the batch once events have settled for the debounce
// interval. Each processed batch refreshes the deck statistics on the
// events feed; batches containing changes that arrived while no sync
// was in flight additionally queue a debounced auto-push, since those
// changes came from another process and the sheet does not have them
// yet.
//
// # Periodic Syncing
//
// With a sync interval configured, the daemon runs unattended full
// syncs with the configured merge strategy. Unattended syncs never run
// while the first-connection handshake is pending: choosing a merge
// strategy for a never-synced endpoint is the user's call.
//
// # Thread Safety
//
// DBWatcher is thread-safe. Multiple goroutines can safely call:
//   - Events() and Errors() (read-only channel access)
//   - IsRunning() (protected by mutex)
//
// Start() and Stop() should only be called from a single controlling goroutine.
//
// # Error Handling
//
// File system errors are delivered on the Errors() channel and logged;
// the daemon keeps operating through them. Sync failures during
// unattended syncs are logged as warnings and land in the session's
// LastError, where the status command surfaces them.
//
// # Graceful Shutdown
//
// Start() blocks until its context is cancelled, then runs Stop():
//  1. Signal the background goroutines to exit
//  2. Close the underlying fsnotify watcher
//  3. Wait for the event and ticker loops to finish
//
// After Stop() returns, the Events() and Errors() channels are closed.
package daemon
