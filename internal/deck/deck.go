// Package deck defines the fixed fair-play card catalog and the identity
// rules for card state: stable card ids, assignment wire codes, and which
// cards participate in remote sync.
package deck

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

//go:embed catalog.toml
var rawCatalog []byte

// Card is a single catalog entry. The catalog is fixed at build time;
// per-household state (assignment, notes, trimmed) lives in the store.
type Card struct {
	Name        string `toml:"name"`
	Suit        string `toml:"suit"`
	Description string `toml:"description"`

	// Informational marks reference cards (concepts, not recurring tasks).
	// Informational cards are never pushed to or pulled from the remote.
	Informational bool `toml:"informational"`
}

type catalogFile struct {
	Cards []Card `toml:"card"`
}

var (
	catalogOnce sync.Once
	catalog     []Card
	catalogIdx  map[string]*Card // lowercased name -> entry
)

func loadCatalog() {
	var file catalogFile
	if err := toml.Unmarshal(rawCatalog, &file); err != nil {
		panic(fmt.Sprintf("deck: embedded catalog is invalid: %v", err))
	}
	if len(file.Cards) == 0 {
		panic("deck: embedded catalog is empty")
	}

	catalog = file.Cards
	catalogIdx = make(map[string]*Card, len(catalog))
	for i := range catalog {
		catalogIdx[strings.ToLower(catalog[i].Name)] = &catalog[i]
	}
}

// Catalog returns every card in the deck, in catalog order.
// The returned slice is shared; callers must not modify it.
func Catalog() []Card {
	catalogOnce.Do(loadCatalog)
	return catalog
}

// Lookup finds a catalog card by name. Matching is case-insensitive on the
// exact name. Returns false if no such card exists.
func Lookup(name string) (Card, bool) {
	catalogOnce.Do(loadCatalog)
	c, ok := catalogIdx[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Card{}, false
	}
	return *c, true
}

// Suits returns the distinct suits in catalog order.
func Suits() []string {
	catalogOnce.Do(loadCatalog)
	seen := make(map[string]bool)
	var suits []string
	for _, c := range catalog {
		if !seen[c.Suit] {
			seen[c.Suit] = true
			suits = append(suits, c.Suit)
		}
	}
	return suits
}
