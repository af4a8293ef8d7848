package deck

import (
	"strings"

	"github.com/google/uuid"
)

// NewCardID returns a fresh random card id.
//
// Ids are UUID v4 strings. They exist so the remote sheet can upsert rows
// by a stable key even when two households spell a card differently; the
// local store keys on card name and treats the id as payload. Ids are
// assigned lazily (first edit, or the backfill pass before a push) and are
// never regenerated once set.
func NewCardID() string {
	return uuid.NewString()
}

// IsSyncEligible reports whether a card's state may travel to the remote.
//
// Informational reference cards describe concepts rather than recurring
// work, so their rows would be noise in the shared sheet. Everything else
// syncs, including names that are not in the catalog at all: eligibility is
// a denylist, not an allowlist, so user data is never silently dropped.
func IsSyncEligible(name string) bool {
	catalogOnce.Do(loadCatalog)
	c, ok := catalogIdx[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return true
	}
	return !c.Informational
}
