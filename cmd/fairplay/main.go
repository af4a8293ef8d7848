package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/niko-chaffinchicas/fair-play/internal/config"
	"github.com/niko-chaffinchicas/fair-play/internal/deck"
	"github.com/niko-chaffinchicas/fair-play/internal/logging"
	"github.com/niko-chaffinchicas/fair-play/internal/store"
	fpsync "github.com/niko-chaffinchicas/fair-play/internal/sync"
)

var version = "0.3.0"

var dataDirFlag string

var rootCmd = &cobra.Command{
	Use:     "fairplay",
	Version: version,
	Short:   "Household chore tracker with shared-sheet sync",
	Long: `fairplay tracks a fixed deck of household task cards split between
two players. Card state lives in a local SQLite database and can sync
with a shared spreadsheet endpoint so both players see the same deck.

Start by listing the deck and dealing a few cards:

  fairplay cards
  fairplay assign "Dishes" one
  fairplay trim "Lawn & Plants, Outdoor"

Then connect the household's shared sheet:

  fairplay connect https://script.google.com/macros/s/DEPLOYMENT_ID/exec
  fairplay sync`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory (default ~/.fairplay)")
	rootCmd.AddGroup(
		&cobra.Group{ID: "cards", Title: "Card Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "data", Title: "Data Commands:"},
	)
}

// loadConfig resolves the data directory and reads its config file.
func loadConfig() *config.Config {
	dir := dataDirFlag
	if dir == "" {
		dir = config.DefaultDataDir()
	}
	cfg, err := config.Load(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// openStore opens the card database and ensures its schema exists.
func openStore(cfg *config.Config) *store.Store {
	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	if err := st.InitSchema(); err != nil {
		st.Close()
		fmt.Fprintf(os.Stderr, "Error initializing schema: %v\n", err)
		os.Exit(1)
	}
	return st
}

// newSyncer builds the sync orchestrator for one-shot CLI commands.
// Sync progress logging is suppressed; commands print their own output.
func newSyncer(st *store.Store, cfg *config.Config) *fpsync.Syncer {
	sc := fpsync.DefaultConfig()
	if d := cfg.DebounceInterval(); d > 0 {
		sc.DebounceInterval = d
	}
	sc.Logger = logging.New(io.Discard, "")

	syncer, err := fpsync.NewWithConfig(st, sc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing sync: %v\n", err)
		os.Exit(1)
	}
	return syncer
}

// lookupCard resolves a deck card by name or exits with a hint.
func lookupCard(name string) deck.Card {
	card, ok := deck.Lookup(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: no card named %q in the deck\n", name)
		fmt.Fprintf(os.Stderr, "Run 'fairplay cards' to see the full deck\n")
		os.Exit(1)
	}
	return card
}
