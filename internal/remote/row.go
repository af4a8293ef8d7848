package remote

import (
	"time"

	"github.com/niko-chaffinchicas/fair-play/internal/deck"
	"github.com/niko-chaffinchicas/fair-play/internal/store"
)

// Row is the wire projection of one card's state.
//
// Assignment and trimmed travel as small integer codes and decode
// leniently (unknown codes read as their zero value). Notes never appear
// on the wire: they are device-local and the sheet has no column for them.
type Row struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Assignment  int    `json:"assignment"`
	Trimmed     int    `json:"trimmed"`
	LastUpdated string `json:"lastUpdated"`
}

// LastUpdatedTime parses the row's timestamp. A malformed value parses to
// the zero time, which merge comparisons treat as older than everything,
// so a garbage stamp can never beat a dated local edit.
func (r Row) LastUpdatedTime() time.Time {
	if t, err := time.Parse(time.RFC3339, r.LastUpdated); err == nil {
		return t
	}
	return time.Time{}
}

// RowFromState projects a card state onto the wire format.
func RowFromState(st store.CardState) Row {
	var lastUpdated string
	if !st.UpdatedAt.IsZero() {
		lastUpdated = st.UpdatedAt.Format(time.RFC3339)
	}
	return Row{
		ID:          st.ID,
		Name:        st.Name,
		Assignment:  st.Assignment.Code(),
		Trimmed:     trimmedCode(st.Trimmed),
		LastUpdated: lastUpdated,
	}
}

// StateFromRow materializes a card state from a remote row, used when the
// remote knows a card the local store has never seen. Notes start empty:
// the wire carries none.
func StateFromRow(r Row) store.CardState {
	return store.CardState{
		Name:       r.Name,
		ID:         r.ID,
		Assignment: deck.AssignmentFromCode(r.Assignment),
		Trimmed:    r.Trimmed != 0,
		UpdatedAt:  r.LastUpdatedTime(),
	}
}

func trimmedCode(trimmed bool) int {
	if trimmed {
		return 1
	}
	return 0
}
