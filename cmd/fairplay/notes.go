package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/niko-chaffinchicas/fair-play/internal/store"
	"github.com/niko-chaffinchicas/fair-play/internal/ui"
)

var (
	notesClear  bool
	notesNoPush bool
)

var notesCmd = &cobra.Command{
	Use:     "notes <card> [text...]",
	GroupID: "cards",
	Short:   "Read or write a card's notes",
	Long: `With text, replaces the card's notes. With --clear, erases them.
With neither, prints the current notes.

Notes stay on this device: they are never written to the shared sheet
and a sync never overwrites them.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		card := lookupCard(args[0])

		st := openStore(cfg)
		defer st.Close()

		if len(args) == 1 && !notesClear {
			notes, err := currentNotes(st, card.Name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading card: %v\n", err)
				os.Exit(1)
			}
			if notes == "" {
				fmt.Printf("%s has no notes\n", card.Name)
				return
			}
			fmt.Println(notes)
			return
		}

		if notesClear && len(args) > 1 {
			fmt.Fprintf(os.Stderr, "Error: --clear takes no note text\n")
			os.Exit(1)
		}

		notes := ""
		if !notesClear {
			notes = strings.Join(args[1:], " ")
		}

		if err := st.Upsert(card.Name, store.CardPatch{Notes: &notes}); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving notes: %v\n", err)
			os.Exit(1)
		}

		if notesClear {
			fmt.Printf("%s Cleared notes on %s\n", ui.RenderPass("✓"), card.Name)
		} else {
			fmt.Printf("%s Noted on %s\n", ui.RenderPass("✓"), card.Name)
		}

		// Notes never ride the wire, but the edit still stamps the
		// card, so push to keep timestamps aligned across devices.
		if !notesNoPush {
			pushAfterEdit(st, cfg)
		}
	},
}

// currentNotes reads a card's stored notes. A card the user has never
// touched has no row at all, which reads the same as empty notes.
func currentNotes(st *store.Store, name string) (string, error) {
	state, err := st.Get(name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return state.Notes, nil
}

func init() {
	notesCmd.Flags().BoolVar(&notesClear, "clear", false, "erase the card's notes")
	notesCmd.Flags().BoolVar(&notesNoPush, "no-push", false, "skip the background push to the sheet")
	rootCmd.AddCommand(notesCmd)
}
