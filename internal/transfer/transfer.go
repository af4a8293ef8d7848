// Package transfer implements the JSON snapshot format behind the
// export and import commands.
//
// A snapshot is one document holding the configured player names,
// every stored card state, and metadata about the file itself:
//
//	{
//	  "playerNames": {"one": "Sam", "two": "Riley"},
//	  "cards": [{"name": "Dishes", "assignment": "player_one", ...}],
//	  "metadata": {"exportedAt": "...", "version": "1.0.0"}
//	}
//
// Import validates the whole document before anything is written, so a
// malformed file can never leave the store half-replaced. Applying a
// snapshot is destructive (clear, then insert every card); the
// confirmation prompt belongs to the caller.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/niko-chaffinchicas/fair-play/internal/deck"
	"github.com/niko-chaffinchicas/fair-play/internal/store"
)

// FormatVersion is stamped into every exported document.
const FormatVersion = "1.0.0"

// supportedMajor is the newest document major this build can read.
// Minor bumps may add fields, which the decoder ignores; a major bump
// means the shape changed and the file must be rejected.
const supportedMajor = "v1"

// ValidationError reports a malformed import document. Field is a path
// into the document ("cards[3].assignment"), Reason says what is wrong
// there. Once one is returned, no state has been mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid import file: %s: %s", e.Field, e.Reason)
}

// PlayerNames carries the two configured player names.
type PlayerNames struct {
	One string `json:"one"`
	Two string `json:"two"`
}

// CardData is one card state as it appears in a snapshot. Timestamps
// are RFC 3339 strings so the file stays readable and diffable.
type CardData struct {
	Name        string `json:"name"`
	ID          string `json:"id,omitempty"`
	Assignment  string `json:"assignment"`
	Notes       string `json:"notes"`
	Trimmed     bool   `json:"trimmed"`
	LastUpdated string `json:"lastUpdated"`
}

// Metadata describes the snapshot file itself.
type Metadata struct {
	ExportedAt string `json:"exportedAt"`
	Version    string `json:"version"`
}

// Document is a full snapshot.
type Document struct {
	PlayerNames PlayerNames `json:"playerNames"`
	Cards       []CardData  `json:"cards"`
	Metadata    Metadata    `json:"metadata"`
}

// Export writes a snapshot of the given card states to w.
func Export(w io.Writer, players PlayerNames, states []store.CardState) error {
	doc := Document{
		PlayerNames: players,
		Cards:       make([]CardData, 0, len(states)),
		Metadata: Metadata{
			ExportedAt: time.Now().UTC().Format(time.RFC3339),
			Version:    FormatVersion,
		},
	}
	for _, state := range states {
		doc.Cards = append(doc.Cards, cardFromState(state))
	}

	// Marshal with indentation for readability
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	data = append(data, '\n')

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	return nil
}

// ExportToFile writes a snapshot to path, creating parent directories
// as needed. The write goes through a temp file and a rename so an
// interrupted export never leaves a truncated snapshot behind.
func ExportToFile(path string, players PlayerNames, states []store.CardState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	var buf bytes.Buffer
	if err := Export(&buf, players, states); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Raw decode targets use pointers so a missing key can be told apart
// from a zero value.
type rawDocument struct {
	PlayerNames *rawPlayerNames `json:"playerNames"`
	Cards       []rawCard       `json:"cards"`
	Metadata    *rawMetadata    `json:"metadata"`
}

type rawPlayerNames struct {
	One *string `json:"one"`
	Two *string `json:"two"`
}

type rawCard struct {
	Name        *string `json:"name"`
	ID          *string `json:"id"`
	Assignment  *string `json:"assignment"`
	Notes       *string `json:"notes"`
	Trimmed     *bool   `json:"trimmed"`
	LastUpdated *string `json:"lastUpdated"`
}

type rawMetadata struct {
	ExportedAt *string `json:"exportedAt"`
	Version    *string `json:"version"`
}

// Import reads and validates a snapshot. Every field is checked for
// presence and shape before the document is returned; any violation
// comes back as a *ValidationError naming the offending field. Nothing
// is written here.
func Import(r io.Reader) (*Document, error) {
	var raw rawDocument
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, decodeError(err)
	}

	if raw.PlayerNames == nil {
		return nil, &ValidationError{Field: "playerNames", Reason: "missing"}
	}
	if raw.PlayerNames.One == nil {
		return nil, &ValidationError{Field: "playerNames.one", Reason: "missing"}
	}
	if raw.PlayerNames.Two == nil {
		return nil, &ValidationError{Field: "playerNames.two", Reason: "missing"}
	}

	if raw.Metadata == nil {
		return nil, &ValidationError{Field: "metadata", Reason: "missing"}
	}
	if raw.Metadata.Version == nil {
		return nil, &ValidationError{Field: "metadata.version", Reason: "missing"}
	}
	if err := checkVersion(*raw.Metadata.Version); err != nil {
		return nil, err
	}
	if raw.Metadata.ExportedAt == nil {
		return nil, &ValidationError{Field: "metadata.exportedAt", Reason: "missing"}
	}
	if _, err := time.Parse(time.RFC3339Nano, *raw.Metadata.ExportedAt); err != nil {
		return nil, &ValidationError{Field: "metadata.exportedAt", Reason: "not an RFC 3339 timestamp"}
	}

	if raw.Cards == nil {
		return nil, &ValidationError{Field: "cards", Reason: "missing"}
	}

	doc := &Document{
		PlayerNames: PlayerNames{One: *raw.PlayerNames.One, Two: *raw.PlayerNames.Two},
		Cards:       make([]CardData, 0, len(raw.Cards)),
		Metadata:    Metadata{ExportedAt: *raw.Metadata.ExportedAt, Version: *raw.Metadata.Version},
	}

	// Card names are the store's primary key, so a duplicate would make
	// the apply order decide which state survives. Reject instead.
	seen := make(map[string]bool, len(raw.Cards))
	for i, c := range raw.Cards {
		card, err := validateCard(i, c)
		if err != nil {
			return nil, err
		}
		key := strings.ToLower(card.Name)
		if seen[key] {
			return nil, &ValidationError{
				Field:  fmt.Sprintf("cards[%d].name", i),
				Reason: fmt.Sprintf("duplicate card name %q", card.Name),
			}
		}
		seen[key] = true
		doc.Cards = append(doc.Cards, card)
	}

	return doc, nil
}

// ImportFile reads and validates a snapshot from path.
func ImportFile(path string) (*Document, error) {
	// #nosec G304 - controlled path from CLI
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer file.Close()

	return Import(file)
}

// Apply replaces all stored card state with the document's cards.
//
// The document is converted into patches in full before the first
// write, so a bad document aborts with nothing changed. The clear and
// the upserts that follow are individual writes, not one transaction;
// by the time this runs the caller has already confirmed the replace.
func Apply(ctx context.Context, st *store.Store, doc *Document) error {
	type pending struct {
		name  string
		patch store.CardPatch
	}

	patches := make([]pending, 0, len(doc.Cards))
	for i, c := range doc.Cards {
		when, err := time.Parse(time.RFC3339Nano, c.LastUpdated)
		if err != nil {
			return &ValidationError{
				Field:  fmt.Sprintf("cards[%d].lastUpdated", i),
				Reason: "not an RFC 3339 timestamp",
			}
		}
		assignment := deck.Assignment(c.Assignment)
		if !assignment.IsValid() {
			return &ValidationError{
				Field:  fmt.Sprintf("cards[%d].assignment", i),
				Reason: fmt.Sprintf("unknown assignment %q", c.Assignment),
			}
		}

		card := c
		patches = append(patches, pending{
			name: card.Name,
			patch: store.CardPatch{
				ID:         &card.ID,
				Assignment: &assignment,
				Notes:      &card.Notes,
				Trimmed:    &card.Trimmed,
				UpdatedAt:  &when,
			},
		})
	}

	if err := st.ClearContext(ctx); err != nil {
		return err
	}

	for _, p := range patches {
		if err := st.UpsertContext(ctx, p.name, p.patch); err != nil {
			return fmt.Errorf("failed to apply card %s: %w", p.name, err)
		}
	}

	return nil
}

// cardFromState converts a stored state to its snapshot form. Unknown
// assignments export as unassigned, matching the wire codec.
func cardFromState(s store.CardState) CardData {
	assignment := s.Assignment
	if !assignment.IsValid() {
		assignment = deck.Unassigned
	}

	return CardData{
		Name:        s.Name,
		ID:          s.ID,
		Assignment:  string(assignment),
		Notes:       s.Notes,
		Trimmed:     s.Trimmed,
		LastUpdated: s.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// validateCard checks one card entry for presence and shape.
func validateCard(i int, c rawCard) (CardData, error) {
	field := func(name string) string { return fmt.Sprintf("cards[%d].%s", i, name) }

	if c.Name == nil || strings.TrimSpace(*c.Name) == "" {
		return CardData{}, &ValidationError{Field: field("name"), Reason: "missing"}
	}
	if c.Assignment == nil {
		return CardData{}, &ValidationError{Field: field("assignment"), Reason: "missing"}
	}
	if !deck.Assignment(*c.Assignment).IsValid() {
		return CardData{}, &ValidationError{Field: field("assignment"), Reason: fmt.Sprintf("unknown assignment %q", *c.Assignment)}
	}
	if c.Notes == nil {
		return CardData{}, &ValidationError{Field: field("notes"), Reason: "missing"}
	}
	if c.Trimmed == nil {
		return CardData{}, &ValidationError{Field: field("trimmed"), Reason: "missing"}
	}
	if c.LastUpdated == nil {
		return CardData{}, &ValidationError{Field: field("lastUpdated"), Reason: "missing"}
	}
	if _, err := time.Parse(time.RFC3339Nano, *c.LastUpdated); err != nil {
		return CardData{}, &ValidationError{Field: field("lastUpdated"), Reason: "not an RFC 3339 timestamp"}
	}

	card := CardData{
		Name:        strings.TrimSpace(*c.Name),
		Assignment:  *c.Assignment,
		Notes:       *c.Notes,
		Trimmed:     *c.Trimmed,
		LastUpdated: *c.LastUpdated,
	}
	if c.ID != nil {
		card.ID = *c.ID
	}

	return card, nil
}

// decodeError maps JSON decoding failures onto the validation
// taxonomy. Type mismatches name the field they hit; syntax errors
// blame the document as a whole.
func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &ValidationError{
			Field:  typeErr.Field,
			Reason: fmt.Sprintf("want %s, got %s", typeErr.Type, typeErr.Value),
		}
	}
	return &ValidationError{Field: "document", Reason: fmt.Sprintf("not a valid snapshot: %v", err)}
}

// checkVersion gates on the document's format major.
func checkVersion(version string) error {
	v := "v" + strings.TrimPrefix(strings.TrimSpace(version), "v")
	if !semver.IsValid(v) {
		return &ValidationError{Field: "metadata.version", Reason: fmt.Sprintf("%q is not a semantic version", version)}
	}
	if semver.Major(v) != supportedMajor {
		return &ValidationError{
			Field:  "metadata.version",
			Reason: fmt.Sprintf("format %s is not supported (this build reads %s)", version, supportedMajor),
		}
	}
	return nil
}
