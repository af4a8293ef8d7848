package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/niko-chaffinchicas/fair-play/internal/transfer"
	"github.com/niko-chaffinchicas/fair-play/internal/ui"
)

var importYes bool

var exportCmd = &cobra.Command{
	Use:     "export [file]",
	GroupID: "data",
	Short:   "Export card state to a JSON snapshot",
	Long: `Write every card's state (assignments, notes, trimmed flags) to a
JSON snapshot file, or to stdout when no file is given. Snapshots are
for backups and for moving between devices without a shared sheet.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st := openStore(cfg)
		defer st.Close()

		states, err := st.GetAll()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading card states: %v\n", err)
			os.Exit(1)
		}

		players := transfer.PlayerNames{One: cfg.Players.One, Two: cfg.Players.Two}

		if len(args) == 0 {
			if err := transfer.Export(os.Stdout, players, states); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing snapshot: %v\n", err)
				os.Exit(1)
			}
			return
		}

		if err := transfer.ExportToFile(args[0], players, states); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Exported %d cards to %s\n", ui.RenderPass("✓"), len(states), args[0])
	},
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "data",
	Short:   "Replace card state from a JSON snapshot",
	Long: `Validate a snapshot file and replace ALL local card state with its
contents. Nothing is touched until the whole file validates, and the
replace needs confirmation (or --yes).

After an import the local deck is authoritative; run 'fairplay sync'
to push it to the sheet.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		doc, err := transfer.ImportFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Snapshot: %d cards, exported %s (format %s)\n",
			len(doc.Cards), doc.Metadata.ExportedAt, doc.Metadata.Version)

		if !importYes {
			if !ui.IsInteractive() {
				fmt.Fprintf(os.Stderr, "Error: import replaces all local card state; re-run with --yes to confirm\n")
				os.Exit(1)
			}
			confirmed := false
			prompt := huh.NewConfirm().
				Title("Replace all local card state with this snapshot?").
				Affirmative("Replace").
				Negative("Cancel").
				Value(&confirmed)
			if err := prompt.Run(); err != nil && !errors.Is(err, huh.ErrUserAborted) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if !confirmed {
				fmt.Println("Import cancelled; nothing changed")
				return
			}
		}

		st := openStore(cfg)
		defer st.Close()

		if err := transfer.Apply(context.Background(), st, doc); err != nil {
			fmt.Fprintf(os.Stderr, "Error applying snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Imported %d cards\n", ui.RenderPass("✓"), len(doc.Cards))
	},
}

func init() {
	importCmd.Flags().BoolVar(&importYes, "yes", false, "skip the confirmation prompt")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
