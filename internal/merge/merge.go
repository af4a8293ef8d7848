// Package merge reconciles a pulled remote row set with local card state.
//
// Merge is a pure function: no storage, no transport, no clock reads. The
// orchestrator supplies both sides and persists the result, which keeps
// every conflict rule testable with plain values.
//
// Three rules hold regardless of strategy:
//
//   - Notes never come from the remote. The wire format has no notes
//     column, so the local value is always carried into the result.
//   - A remote id wins whenever present. Ids exist to give rows a stable
//     key in the sheet; once the sheet has one, every device adopts it.
//     When the remote row has no id, a local id fills the gap rather than
//     being dropped, so identity is never regenerated.
//   - Output order is deterministic: remote-derived entities first in
//     remote order, then local-only entities in local order.
package merge

import (
	"github.com/niko-chaffinchicas/fair-play/internal/remote"
	"github.com/niko-chaffinchicas/fair-play/internal/store"
)

// Merge reconciles remote rows against local card states.
//
// Entries match by exact name. Matched pairs are resolved per the
// strategy; remote rows without a local counterpart materialize as new
// states with empty notes; local states the remote does not know pass
// through unchanged under both strategies.
//
// Under newer-wins the remote row's fields are taken only when its
// timestamp is strictly newer than the local one. Ties keep local, so two
// devices stamping the same instant cannot flap, and a remote row with a
// missing or malformed timestamp (which parses as the zero time) can
// never beat a dated local edit.
func Merge(remoteRows []remote.Row, local []store.CardState, strategy Strategy) []store.CardState {
	localByName := make(map[string]store.CardState, len(local))
	for _, l := range local {
		localByName[l.Name] = l
	}

	merged := make([]store.CardState, 0, len(remoteRows)+len(local))
	fromRemote := make(map[string]bool, len(remoteRows))

	for _, row := range remoteRows {
		fromRemote[row.Name] = true
		l, ok := localByName[row.Name]
		if !ok {
			merged = append(merged, remote.StateFromRow(row))
			continue
		}
		merged = append(merged, mergePair(row, l, strategy))
	}

	for _, l := range local {
		if !fromRemote[l.Name] {
			merged = append(merged, l)
		}
	}

	return merged
}

// mergePair resolves one matched remote row / local state pair.
func mergePair(row remote.Row, l store.CardState, strategy Strategy) store.CardState {
	if strategy == StrategyUseRemote {
		st := remote.StateFromRow(row)
		st.Notes = l.Notes
		if st.ID == "" {
			st.ID = l.ID
		}
		return st
	}

	// newer-wins: remote fields only on a strictly newer stamp.
	if row.LastUpdatedTime().After(l.UpdatedAt) {
		st := remote.StateFromRow(row)
		st.Notes = l.Notes
		if st.ID == "" {
			st.ID = l.ID
		}
		return st
	}

	st := l
	if row.ID != "" {
		st.ID = row.ID
	}
	return st
}
