package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewDBWatcher verifies that creating a new DBWatcher succeeds.
func TestNewDBWatcher(t *testing.T) {
	dw, err := NewDBWatcher()
	if err != nil {
		t.Fatalf("NewDBWatcher() failed: %v", err)
	}
	defer dw.Stop()

	if dw.IsRunning() {
		t.Error("Newly created watcher should not be running")
	}
}

// TestDBWatcher_StartStop verifies that the watcher can start and stop cleanly.
func TestDBWatcher_StartStop(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cards.db")
	if err := os.WriteFile(dbPath, []byte("stub"), 0644); err != nil {
		t.Fatalf("Failed to create database file: %v", err)
	}

	dw, err := NewDBWatcher()
	if err != nil {
		t.Fatalf("NewDBWatcher() failed: %v", err)
	}

	if err := dw.Start(dbPath); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	if !dw.IsRunning() {
		t.Error("Watcher should be running after Start()")
	}

	if err := dw.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	if dw.IsRunning() {
		t.Error("Watcher should not be running after Stop()")
	}
}

// TestDBWatcher_StartAlreadyRunning verifies that starting an already running watcher fails.
func TestDBWatcher_StartAlreadyRunning(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cards.db")
	if err := os.WriteFile(dbPath, []byte("stub"), 0644); err != nil {
		t.Fatalf("Failed to create database file: %v", err)
	}

	dw, err := NewDBWatcher()
	if err != nil {
		t.Fatalf("NewDBWatcher() failed: %v", err)
	}
	defer dw.Stop()

	if err := dw.Start(dbPath); err != nil {
		t.Fatalf("First Start() failed: %v", err)
	}

	if err := dw.Start(dbPath); err == nil {
		t.Error("Second Start() should fail when watcher is already running")
	}
}

// TestDBWatcher_DatabaseModified verifies that writing the database triggers an event.
func TestDBWatcher_DatabaseModified(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cards.db")
	if err := os.WriteFile(dbPath, []byte("before"), 0644); err != nil {
		t.Fatalf("Failed to create database file: %v", err)
	}

	dw, err := NewDBWatcher()
	if err != nil {
		t.Fatalf("NewDBWatcher() failed: %v", err)
	}
	defer dw.Stop()

	if err := dw.Start(dbPath); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	// Give watcher time to stabilize
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(dbPath, []byte("after"), 0644); err != nil {
		t.Fatalf("Failed to update database file: %v", err)
	}

	select {
	case event := <-dw.Events():
		if event.Op != OpModify {
			t.Errorf("Expected OpModify, got %v", event.Op)
		}
		if filepath.Base(event.Path) != "cards.db" {
			t.Errorf("Expected cards.db, got %s", filepath.Base(event.Path))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for database modify event")
	}
}

// TestDBWatcher_WalFileCreated verifies that the write-ahead log is covered.
func TestDBWatcher_WalFileCreated(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "cards.db")
	if err := os.WriteFile(dbPath, []byte("stub"), 0644); err != nil {
		t.Fatalf("Failed to create database file: %v", err)
	}

	dw, err := NewDBWatcher()
	if err != nil {
		t.Fatalf("NewDBWatcher() failed: %v", err)
	}
	defer dw.Stop()

	if err := dw.Start(dbPath); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	walPath := filepath.Join(tmpDir, "cards.db-wal")
	if err := os.WriteFile(walPath, []byte("frames"), 0644); err != nil {
		t.Fatalf("Failed to write wal file: %v", err)
	}

	select {
	case event := <-dw.Events():
		if event.Op != OpCreate {
			t.Errorf("Expected OpCreate, got %v", event.Op)
		}
		if filepath.Base(event.Path) != "cards.db-wal" {
			t.Errorf("Expected cards.db-wal, got %s", filepath.Base(event.Path))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for wal create event")
	}
}

// TestDBWatcher_IgnoresUnrelatedFiles verifies the name filter.
func TestDBWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "cards.db")
	if err := os.WriteFile(dbPath, []byte("stub"), 0644); err != nil {
		t.Fatalf("Failed to create database file: %v", err)
	}

	dw, err := NewDBWatcher()
	if err != nil {
		t.Fatalf("NewDBWatcher() failed: %v", err)
	}
	defer dw.Stop()

	if err := dw.Start(dbPath); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	// Neither a sibling file nor the shared-memory map should surface.
	if err := os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write unrelated file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "cards.db-shm"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write shm file: %v", err)
	}

	// The database write afterwards must be the first event we see,
	// proving the earlier ones were filtered rather than queued.
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(dbPath, []byte("real change"), 0644); err != nil {
		t.Fatalf("Failed to update database file: %v", err)
	}

	select {
	case event := <-dw.Events():
		if filepath.Base(event.Path) != "cards.db" {
			t.Errorf("Expected only database events, got %s", event.Path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for database event")
	}
}

// TestEventOpString verifies the operation labels.
func TestEventOpString(t *testing.T) {
	tests := []struct {
		op   EventOp
		want string
	}{
		{OpCreate, "create"},
		{OpModify, "modify"},
		{OpDelete, "delete"},
		{EventOp(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("EventOp(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}
