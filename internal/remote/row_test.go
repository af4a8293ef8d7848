package remote

import (
	"testing"
	"time"

	"github.com/niko-chaffinchicas/fair-play/internal/deck"
	"github.com/niko-chaffinchicas/fair-play/internal/store"
)

func TestRowFromState(t *testing.T) {
	updated := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	st := store.CardState{
		Name:       "Garbage",
		ID:         "a1b2",
		Assignment: deck.PlayerTwo,
		Notes:      "curb night is Tuesday",
		Trimmed:    true,
		UpdatedAt:  updated,
	}

	row := RowFromState(st)

	if row.Name != "Garbage" || row.ID != "a1b2" {
		t.Errorf("unexpected identity fields: %+v", row)
	}
	if row.Assignment != 2 {
		t.Errorf("assignment code = %d, want 2", row.Assignment)
	}
	if row.Trimmed != 1 {
		t.Errorf("trimmed code = %d, want 1", row.Trimmed)
	}
	if row.LastUpdated != "2024-06-01T10:00:00Z" {
		t.Errorf("lastUpdated = %q", row.LastUpdated)
	}
}

func TestRowFromStateZeroTime(t *testing.T) {
	row := RowFromState(store.CardState{Name: "Dishes"})
	if row.LastUpdated != "" {
		t.Errorf("zero UpdatedAt should project to empty, got %q", row.LastUpdated)
	}
}

func TestStateFromRow(t *testing.T) {
	row := Row{
		ID:          "c3d4",
		Name:        "Laundry",
		Assignment:  3,
		Trimmed:     1,
		LastUpdated: "2024-06-02T08:30:00Z",
	}

	st := StateFromRow(row)

	if st.Name != "Laundry" || st.ID != "c3d4" {
		t.Errorf("unexpected identity fields: %+v", st)
	}
	if st.Assignment != deck.SharedAssignment {
		t.Errorf("assignment = %q, want shared", st.Assignment)
	}
	if !st.Trimmed {
		t.Error("trimmed should decode true")
	}
	if st.Notes != "" {
		t.Errorf("notes should start empty, got %q", st.Notes)
	}
	want := time.Date(2024, 6, 2, 8, 30, 0, 0, time.UTC)
	if !st.UpdatedAt.Equal(want) {
		t.Errorf("UpdatedAt = %v, want %v", st.UpdatedAt, want)
	}
}

func TestStateFromRowLenient(t *testing.T) {
	// Out-of-range assignment codes decode to unassigned.
	st := StateFromRow(Row{Name: "Dishes", Assignment: 42})
	if st.Assignment != deck.Unassigned {
		t.Errorf("assignment = %q, want unassigned", st.Assignment)
	}
}

func TestLastUpdatedTimeMalformed(t *testing.T) {
	row := Row{Name: "Dishes", LastUpdated: "yesterday-ish"}
	if got := row.LastUpdatedTime(); !got.IsZero() {
		t.Errorf("malformed timestamp should parse to zero time, got %v", got)
	}
}

func TestLastUpdatedTimeFractionalSeconds(t *testing.T) {
	// Sheets written by other clients carry millisecond ISO-8601 stamps.
	row := Row{Name: "Dishes", LastUpdated: "2024-06-01T10:00:00.000Z"}
	want := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	if got := row.LastUpdatedTime(); !got.Equal(want) {
		t.Errorf("LastUpdatedTime = %v, want %v", got, want)
	}
}
