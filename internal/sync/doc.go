// Package sync orchestrates bidirectional synchronization between the
// local card store and the shared sheet endpoint.
//
// Overview
//
// The syncer owns the sync session state machine (endpoint, first-sync
// flag, last sync time, last error) and sequences the moving parts: the
// transport pulls and pushes wire rows, the merge engine reconciles them
// with local state, and the store persists the outcome.
//
// Architecture
//
//	Remote sheet endpoint
//	     ↑ push (form POST)        ↓ pull (GET, JSON array)
//	                Transport
//	                     ↓
//	                  Syncer ── merge.Merge(remote, local, strategy)
//	                     ↓
//	                  Store (SQLite)
//	                     ↑
//	          CLI edits / serve daemon
//
// Usage
//
// Basic usage:
//
//	st, err := store.Open(dbPath)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//	if err := st.InitSchema(); err != nil {
//	    return err
//	}
//
//	syncer, err := sync.New(st)
//	if err != nil {
//	    return err
//	}
//
//	if err := syncer.ConfigureEndpoint("https://script.example.com/exec"); err != nil {
//	    return err
//	}
//	result, err := syncer.FullSync(ctx, merge.DefaultStrategy)
//
// Write-only pushes, usually debounced behind local edits:
//
//	if err := <-syncer.DebouncedAutoPush(); err != nil {
//	    log.Printf("auto-push failed: %v", err)
//	}
//
// Concurrency
//
// One sync runs at a time. FullSync fails fast with ErrSyncInProgress
// when another sync holds the gate; AutoPush skips silently instead,
// because it runs behind routine edits where noise would be worse than a
// missed push (the next edit pushes again). AutoPush also stays silent
// while the first-connection handshake is pending, since a push rewrites
// the entire sheet. The in-flight flag is process state and is never
// persisted, so it always starts false.
//
// Failure Handling
//
// The first failing step aborts the sequence, lands in the persisted
// session's LastError, and is returned to the caller. Merge results
// already persisted stay persisted: local state is the user's data and is
// never rolled back because the network went away mid-sync.
package sync
