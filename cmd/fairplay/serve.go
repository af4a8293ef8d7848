package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/niko-chaffinchicas/fair-play/internal/daemon"
	"github.com/niko-chaffinchicas/fair-play/internal/events"
	"github.com/niko-chaffinchicas/fair-play/internal/logging"
	fpsync "github.com/niko-chaffinchicas/fair-play/internal/sync"
	"github.com/niko-chaffinchicas/fair-play/internal/ui"
)

var (
	serveListen    string
	serveLogFile   string
	serveSyncEvery string
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "sync",
	Short:   "Run the background sync daemon (foreground)",
	Long: `Watch the card database and keep the sheet current.

The daemon pushes to the sheet shortly after any edit from another
fairplay process, and broadcasts sync and deck events over WebSocket
for dashboards:

  ws://<listen>/ws        event feed
  http://<listen>/health  liveness
  http://<listen>/status  session and deck stats

With --sync-every (or serve.sync_every in the config file), it also
runs unattended two-way syncs on that interval, so edits made by the
other player on their device flow back to this one.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		if serveListen == "" {
			serveListen = cfg.Serve.Listen
		}
		if serveLogFile == "" {
			serveLogFile = cfg.Serve.LogFile
		}
		if serveSyncEvery != "" {
			cfg.Serve.SyncEvery = serveSyncEvery
		}
		syncEvery, err := cfg.SyncEveryInterval()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		var logger *log.Logger
		if serveLogFile != "" {
			fileLogger, closer, err := logging.NewRolling(logging.FileConfig{Path: serveLogFile}, "[serve] ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
				os.Exit(1)
			}
			defer closer.Close()
			logger = fileLogger
		} else {
			logger = logging.NewStderr("[serve] ")
		}

		st := openStore(cfg)
		defer st.Close()

		// The /status closure captures these before they exist; the
		// server only calls it once Start has returned.
		var syncer *fpsync.Syncer
		var handler *events.Handler

		server := events.NewServer(&events.Config{
			Addr:   serveListen,
			Logger: logger,
			Status: func() (any, error) {
				if syncer == nil || handler == nil {
					return nil, fmt.Errorf("daemon still starting")
				}
				return struct {
					Session fpsync.Session   `json:"session"`
					Stats   events.StatsData `json:"stats"`
				}{syncer.Status(), handler.Stats()}, nil
			},
		})
		handler = events.NewHandler(server, logger)

		sc := fpsync.DefaultConfig()
		if d := cfg.DebounceInterval(); d > 0 {
			sc.DebounceInterval = d
		}
		sc.Logger = logger
		sc.Notifier = handler
		syncer, err = fpsync.NewWithConfig(st, sc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing sync: %v\n", err)
			os.Exit(1)
		}

		dc := daemon.DefaultConfig()
		dc.Logger = logger
		dc.SyncInterval = syncEvery
		d, err := daemon.NewWithConfig(st, syncer, handler, dc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating daemon: %v\n", err)
			os.Exit(1)
		}

		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting events server: %v\n", err)
			os.Exit(1)
		}
		defer server.Stop()

		fmt.Printf("%s fairplay daemon running\n", ui.RenderAccent("🚀"))
		fmt.Printf("   Database: %s\n", st.Path())
		fmt.Printf("   Events:   ws://%s/ws\n", server.GetAddr())
		if syncEvery > 0 {
			fmt.Printf("   Full sync every %v\n", syncEvery)
		}
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Daemon stopped with error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "events server address (default 127.0.0.1:8377)")
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "write daemon logs to a rotated file")
	serveCmd.Flags().StringVar(&serveSyncEvery, "sync-every", "", "run a full sync on this interval, e.g. 30m")
	rootCmd.AddCommand(serveCmd)
}
