package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/niko-chaffinchicas/fair-play/internal/store"
	"github.com/niko-chaffinchicas/fair-play/internal/ui"
)

var (
	trimRestore bool
	trimNoPush  bool
)

var trimCmd = &cobra.Command{
	Use:     "trim <card>",
	GroupID: "cards",
	Short:   "Trim a card out of the active deck",
	Long: `Mark a card as trimmed so it drops out of the active deck view.
Trimming is independent of assignment and fully reversible with
--restore. Trimmed state syncs to the sheet like an assignment does.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		card := lookupCard(args[0])
		if card.Informational {
			fmt.Fprintf(os.Stderr, "Error: %q is a reference card and cannot be trimmed\n", card.Name)
			os.Exit(1)
		}

		st := openStore(cfg)
		defer st.Close()

		trimmed := !trimRestore
		if err := st.Upsert(card.Name, store.CardPatch{Trimmed: &trimmed}); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving card: %v\n", err)
			os.Exit(1)
		}

		if trimRestore {
			fmt.Printf("%s Restored %s to the deck\n", ui.RenderPass("✓"), card.Name)
		} else {
			fmt.Printf("%s Trimmed %s\n", ui.RenderPass("✓"), card.Name)
		}

		if !trimNoPush {
			pushAfterEdit(st, cfg)
		}
	},
}

func init() {
	trimCmd.Flags().BoolVar(&trimRestore, "restore", false, "untrim the card")
	trimCmd.Flags().BoolVar(&trimNoPush, "no-push", false, "skip the background push to the sheet")
	rootCmd.AddCommand(trimCmd)
}
