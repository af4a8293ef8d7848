package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/niko-chaffinchicas/fair-play/internal/config"
	"github.com/niko-chaffinchicas/fair-play/internal/deck"
	"github.com/niko-chaffinchicas/fair-play/internal/store"
	"github.com/niko-chaffinchicas/fair-play/internal/ui"
)

var (
	cardsSuit    string
	cardsTrimmed bool
	cardsFormat  string
)

// cardView is one deck card joined with its stored state, shaped for
// structured output.
type cardView struct {
	Name          string `json:"name" yaml:"name"`
	Suit          string `json:"suit" yaml:"suit"`
	Assignment    string `json:"assignment" yaml:"assignment"`
	Notes         string `json:"notes,omitempty" yaml:"notes,omitempty"`
	Trimmed       bool   `json:"trimmed" yaml:"trimmed"`
	Informational bool   `json:"informational,omitempty" yaml:"informational,omitempty"`
}

var cardsCmd = &cobra.Command{
	Use:     "cards [name]",
	GroupID: "cards",
	Short:   "List the deck, or show one card in detail",
	Long: `List every card in the deck with its current assignment.

Trimmed cards are hidden unless --trimmed is given. With a card name,
shows that card's full detail including notes.`,
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
		byName := make(map[string]store.CardState, len(states))
		for _, s := range states {
			byName[strings.ToLower(s.Name)] = s
		}

		if len(args) == 1 {
			showCard(cfg, lookupCard(args[0]), byName)
			return
		}

		views := buildViews(cfg, byName)
		switch cardsFormat {
		case "table":
			printCardTable(views)
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(views); err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
				os.Exit(1)
			}
		case "yaml":
			if err := yaml.NewEncoder(os.Stdout).Encode(views); err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
				os.Exit(1)
			}
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown format %q (want table, json, or yaml)\n", cardsFormat)
			os.Exit(1)
		}
	},
}

func buildViews(cfg *config.Config, byName map[string]store.CardState) []cardView {
	var views []cardView
	for _, card := range deck.Catalog() {
		if cardsSuit != "" && !strings.EqualFold(card.Suit, cardsSuit) {
			continue
		}

		state := byName[strings.ToLower(card.Name)]
		if state.Trimmed && !cardsTrimmed {
			continue
		}

		views = append(views, cardView{
			Name:          card.Name,
			Suit:          card.Suit,
			Assignment:    state.Assignment.Label(cfg.Players.One, cfg.Players.Two),
			Notes:         state.Notes,
			Trimmed:       state.Trimmed,
			Informational: card.Informational,
		})
	}
	return views
}

func printCardTable(views []cardView) {
	if len(views) == 0 {
		fmt.Println("No cards match")
		return
	}

	suit := ""
	for _, v := range views {
		if v.Suit != suit {
			suit = v.Suit
			fmt.Printf("\n%s\n", ui.RenderAccent(suit))
		}

		name := v.Name
		if v.Trimmed {
			name = ui.RenderMuted(name + " (trimmed)")
		}
		holder := v.Assignment
		if v.Informational {
			holder = ui.RenderMuted("reference")
		}
		fmt.Printf("  %-45s %s", name, holder)
		if v.Notes != "" {
			fmt.Printf("  %s", ui.RenderMuted("✎"))
		}
		fmt.Println()
	}
	fmt.Println()
}

func showCard(cfg *config.Config, card deck.Card, byName map[string]store.CardState) {
	state := byName[strings.ToLower(card.Name)]

	fmt.Printf("\n%s\n", ui.RenderAccent(card.Name))
	fmt.Printf("Suit: %s\n", card.Suit)
	if card.Description != "" {
		fmt.Printf("%s\n", card.Description)
	}
	if card.Informational {
		fmt.Printf("%s Reference card: never assigned or synced\n", ui.RenderMuted("ℹ"))
		fmt.Println()
		return
	}

	fmt.Printf("Assigned to: %s\n", state.Assignment.Label(cfg.Players.One, cfg.Players.Two))
	fmt.Printf("Trimmed: %v\n", state.Trimmed)
	if state.Notes != "" {
		fmt.Printf("Notes: %s\n", state.Notes)
	}
	if !state.UpdatedAt.IsZero() {
		fmt.Printf("Updated: %s\n", state.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Println()
}

func init() {
	cardsCmd.Flags().StringVar(&cardsSuit, "suit", "", "only cards in this suit")
	cardsCmd.Flags().BoolVar(&cardsTrimmed, "trimmed", false, "include trimmed cards")
	cardsCmd.Flags().StringVar(&cardsFormat, "format", "table", "output format: table, json, or yaml")
	rootCmd.AddCommand(cardsCmd)
}
