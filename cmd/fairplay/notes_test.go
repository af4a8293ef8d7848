package main

import (
	"path/filepath"
	"testing"

	"github.com/niko-chaffinchicas/fair-play/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return st
}

func TestCurrentNotesNeverEditedCard(t *testing.T) {
	st := setupTestStore(t)

	// A card with no stored row at all reads as having no notes, not
	// as an error.
	notes, err := currentNotes(st, "Dishes")
	if err != nil {
		t.Fatalf("currentNotes on a never-edited card failed: %v", err)
	}
	if notes != "" {
		t.Errorf("expected empty notes, got %q", notes)
	}
}

func TestCurrentNotesStoredCard(t *testing.T) {
	st := setupTestStore(t)

	text := "after dinner, not before"
	if err := st.Upsert("Dishes", store.CardPatch{Notes: &text}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	notes, err := currentNotes(st, "Dishes")
	if err != nil {
		t.Fatalf("currentNotes failed: %v", err)
	}
	if notes != text {
		t.Errorf("expected %q, got %q", text, notes)
	}
}

func TestCurrentNotesRowWithoutNotes(t *testing.T) {
	st := setupTestStore(t)

	trimmed := true
	if err := st.Upsert("Dishes", store.CardPatch{Trimmed: &trimmed}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	notes, err := currentNotes(st, "Dishes")
	if err != nil {
		t.Fatalf("currentNotes failed: %v", err)
	}
	if notes != "" {
		t.Errorf("expected empty notes for a note-less row, got %q", notes)
	}
}
