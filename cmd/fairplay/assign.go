package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/niko-chaffinchicas/fair-play/internal/config"
	"github.com/niko-chaffinchicas/fair-play/internal/deck"
	"github.com/niko-chaffinchicas/fair-play/internal/store"
	"github.com/niko-chaffinchicas/fair-play/internal/ui"
)

var assignNoPush bool

var assignCmd = &cobra.Command{
	Use:     "assign <card> <one|two|shared|none>",
	GroupID: "cards",
	Short:   "Deal a card to a player",
	Long: `Assign a card to player one, player two, or both ("shared"), or
return it to the deck ("none").

The change is saved locally and, when a sheet is connected, pushed in
the background. Use --no-push to keep the change local until the next
sync.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		card := lookupCard(args[0])
		if card.Informational {
			fmt.Fprintf(os.Stderr, "Error: %q is a reference card and cannot be assigned\n", card.Name)
			os.Exit(1)
		}

		assignment, err := deck.ParseAssignment(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		st := openStore(cfg)
		defer st.Close()

		if err := st.Upsert(card.Name, store.CardPatch{Assignment: &assignment}); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving assignment: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s %s → %s\n", ui.RenderPass("✓"), card.Name,
			assignment.Label(cfg.Players.One, cfg.Players.Two))

		if !assignNoPush {
			pushAfterEdit(st, cfg)
		}
	},
}

// pushAfterEdit pushes the deck to the sheet after a local edit. A push
// failure is a warning, never an error: the edit is already saved and
// the next sync or push will carry it.
func pushAfterEdit(st *store.Store, cfg *config.Config) {
	syncer := newSyncer(st, cfg)
	status := syncer.Status()
	if !status.Configured() || syncer.IsFirstSync() {
		return
	}

	if err := syncer.AutoPush(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s push failed: %v\n", ui.RenderWarn("⚠"), err)
		fmt.Fprintf(os.Stderr, "   The change is saved locally; run 'fairplay sync' to retry\n")
	}
}

func init() {
	assignCmd.Flags().BoolVar(&assignNoPush, "no-push", false, "skip the background push to the sheet")
	rootCmd.AddCommand(assignCmd)
}
