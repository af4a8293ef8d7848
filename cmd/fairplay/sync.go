package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/niko-chaffinchicas/fair-play/internal/merge"
	fpsync "github.com/niko-chaffinchicas/fair-play/internal/sync"
	"github.com/niko-chaffinchicas/fair-play/internal/ui"
)

var syncStrategyFlag string

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Two-way sync with the shared sheet",
	Long: `Pull the sheet, merge it with local card state, and push the result
back.

The usual merge keeps whichever side changed a card most recently;
notes always stay local. The first sync against a new sheet instead
asks how to reconcile, because the sheet may already be the household's
source of truth:

  newer-wins   keep whichever side changed most recently
  use-remote   take everything from the sheet (keeps local notes)

Pass --strategy to answer without the prompt. Cancelling the prompt
disconnects the sheet.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st := openStore(cfg)
		defer st.Close()

		syncer := newSyncer(st, cfg)
		ctx := context.Background()

		status := syncer.Status()
		if !status.Configured() {
			fmt.Fprintf(os.Stderr, "Error: no sheet connected\n")
			fmt.Fprintf(os.Stderr, "Run 'fairplay connect <url>' first\n")
			os.Exit(1)
		}

		strategy := merge.DefaultStrategy
		if syncStrategyFlag != "" {
			parsed, err := merge.ParseStrategy(syncStrategyFlag)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			strategy = parsed
		}

		if syncer.IsFirstSync() && syncStrategyFlag == "" {
			chosen, ok := firstSyncHandshake(ctx, syncer)
			if !ok {
				return
			}
			strategy = chosen
		}

		fmt.Printf("%s Syncing with %s...\n", ui.RenderAccent("🔄"), status.EndpointURL)
		start := time.Now()

		result, err := syncer.FullSync(ctx, strategy)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: sync failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"), time.Since(start).Round(time.Millisecond))
		fmt.Printf("   Pulled: %d rows\n", result.Pulled)
		fmt.Printf("   Merged: %d cards\n", result.Merged)
		fmt.Printf("   Pushed: %d rows\n", result.Pushed)
	},
}

// firstSyncHandshake runs the one-time strategy confirmation for a
// freshly connected sheet. Returns the chosen strategy, or ok=false
// when the user backed out (which disconnects the sheet).
func firstSyncHandshake(ctx context.Context, syncer *fpsync.Syncer) (merge.Strategy, bool) {
	fmt.Printf("%s First sync with this sheet\n", ui.RenderAccent("🤝"))

	preview, err := syncer.PreviewFirstSync(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not read the sheet: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("   Sheet: %d rows   This device: %d cards\n", preview.RemoteRows, preview.LocalCards)

	if !ui.IsInteractive() {
		fmt.Fprintf(os.Stderr, "Error: the first sync needs a merge strategy\n")
		fmt.Fprintf(os.Stderr, "Re-run with --strategy %s or --strategy %s\n",
			merge.StrategyNewerWins, merge.StrategyUseRemote)
		os.Exit(1)
	}

	const cancel = "cancel"
	choice := string(merge.StrategyNewerWins)
	prompt := huh.NewSelect[string]().
		Title("How should the first sync reconcile?").
		Options(
			huh.NewOption(fmt.Sprintf("%s: %s", merge.StrategyNewerWins, merge.StrategyNewerWins.Description()), string(merge.StrategyNewerWins)),
			huh.NewOption(fmt.Sprintf("%s: %s", merge.StrategyUseRemote, merge.StrategyUseRemote.Description()), string(merge.StrategyUseRemote)),
			huh.NewOption("cancel: disconnect and keep everything local", cancel),
		).
		Value(&choice)

	if err := prompt.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			choice = cancel
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if choice == cancel {
		if err := syncer.DisconnectEndpoint(); err != nil {
			fmt.Fprintf(os.Stderr, "Error disconnecting: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Sheet disconnected; nothing was synced\n", ui.RenderWarn("⚠"))
		return "", false
	}

	return merge.Strategy(choice), true
}

var pushCmd = &cobra.Command{
	Use:     "push",
	GroupID: "sync",
	Short:   "Push local card state to the sheet",
	Long: `Write every syncable card to the sheet without pulling first.
Use after local edits when you know this device is current; a full
'fairplay sync' is the safe default.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st := openStore(cfg)
		defer st.Close()

		syncer := newSyncer(st, cfg)

		if !syncer.Status().Configured() {
			fmt.Fprintf(os.Stderr, "Error: no sheet connected\n")
			fmt.Fprintf(os.Stderr, "Run 'fairplay connect <url>' first\n")
			os.Exit(1)
		}
		if syncer.IsFirstSync() {
			fmt.Fprintf(os.Stderr, "Error: this sheet has never been synced\n")
			fmt.Fprintf(os.Stderr, "Run 'fairplay sync' once to complete the first-sync handshake\n")
			os.Exit(1)
		}

		if err := syncer.AutoPush(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: push failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Pushed local cards to the sheet\n", ui.RenderPass("✓"))
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncStrategyFlag, "strategy", "", "merge strategy: newer-wins or use-remote")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(pushCmd)
}
