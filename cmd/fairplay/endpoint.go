package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/niko-chaffinchicas/fair-play/internal/deck"
	"github.com/niko-chaffinchicas/fair-play/internal/ui"
)

var connectCmd = &cobra.Command{
	Use:     "connect <url>",
	GroupID: "sync",
	Short:   "Connect a shared sheet endpoint",
	Long: `Store the shared sheet's web-app URL. The URL must be absolute
(http or https), typically an Apps Script deployment ending in /exec.

Connecting does not sync anything yet: the first 'fairplay sync'
against a new sheet asks how to reconcile before touching any data.
Pointing at a different URL than before re-arms that first-sync
question.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st := openStore(cfg)
		defer st.Close()

		syncer := newSyncer(st, cfg)
		if err := syncer.ConfigureEndpoint(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Sheet connected\n", ui.RenderPass("✓"))
		if syncer.IsFirstSync() {
			fmt.Printf("Run 'fairplay sync' to do the first sync\n")
		}
	},
}

var disconnectCmd = &cobra.Command{
	Use:     "disconnect",
	GroupID: "sync",
	Short:   "Disconnect the shared sheet",
	Long: `Forget the sheet URL and its sync history. Card state stays on
this device; reconnecting later goes through the first-sync question
again.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st := openStore(cfg)
		defer st.Close()

		syncer := newSyncer(st, cfg)
		if !syncer.Status().Configured() {
			fmt.Println("No sheet connected")
			return
		}

		if err := syncer.DisconnectEndpoint(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Sheet disconnected\n", ui.RenderPass("✓"))
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show deck and sync status",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st := openStore(cfg)
		defer st.Close()

		states, err := st.GetAll()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading card states: %v\n", err)
			os.Exit(1)
		}

		var one, two, shared, trimmed, noted int
		for _, s := range states {
			if s.Trimmed {
				trimmed++
			}
			if s.Notes != "" {
				noted++
			}
			switch s.Assignment {
			case deck.PlayerOne:
				one++
			case deck.PlayerTwo:
				two++
			case deck.SharedAssignment:
				shared++
			}
		}

		fmt.Printf("\n%s Deck\n", ui.RenderAccent("🃏"))
		fmt.Printf("Cards in deck: %d\n", len(deck.Catalog()))
		fmt.Printf("%s: %d   %s: %d   shared: %d\n", cfg.Players.One, one, cfg.Players.Two, two, shared)
		fmt.Printf("Trimmed: %d   With notes: %d\n", trimmed, noted)

		session := newSyncer(st, cfg).Status()
		fmt.Printf("\n%s Sync\n", ui.RenderAccent("🔄"))
		if !session.Configured() {
			fmt.Printf("No sheet connected\n\n")
			return
		}

		fmt.Printf("Sheet: %s\n", session.EndpointURL)
		switch {
		case !session.HasSyncedBefore:
			fmt.Printf("Never synced; run 'fairplay sync'\n")
		case session.LastSyncTime != nil:
			fmt.Printf("Last synced: %s\n", humanize.Time(*session.LastSyncTime))
		}
		if session.LastError != "" {
			fmt.Printf("%s Last sync error: %s\n", ui.RenderErr("✗"), session.LastError)
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(statusCmd)
}
