package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conorfennell/srsdb/internal/deck"
)

var (
	deckStrict bool
	deckCounts bool
	deckJSON   bool
)

var deckCmd = &cobra.Command{
	Use:   "deck",
	Short: "File cards into decks and report on them",
}

var deckAddCmd = &cobra.Command{
	Use:   "add <deck> <card-id>...",
	Short: "Add cards to a deck, creating it when needed",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args[1:])
		if err != nil {
			return err
		}
		if err := app.db.AddDeck(cmd.Context(), ids, args[0], deckStrict); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d card(s) to %q.\n", len(ids), args[0])
		return nil
	},
}

var deckRemoveCmd = &cobra.Command{
	Use:   "remove <deck> <card-id>...",
	Short: "Take cards out of a deck",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args[1:])
		if err != nil {
			return err
		}
		return app.db.RemoveDeck(cmd.Context(), ids, args[0])
	},
}

var deckTreeCmd = &cobra.Command{
	Use:   "tree [query]",
	Short: "Show the decks holding cards that match the query",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := app.engine.DeckTree(cmd.Context(), strings.Join(args, " "), deckCounts)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if deckJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(tree)
		}
		printTree(out, tree, 0)
		return nil
	},
}

func printTree(w io.Writer, nodes []*deck.Node, depth int) {
	for _, n := range nodes {
		line := strings.Repeat("  ", depth) + n.Segment
		if n.Counts != nil {
			line += fmt.Sprintf("  due %d, new %d, total %d", n.Counts.Due, n.Counts.Remaining, n.Counts.Total)
		}
		fmt.Fprintln(w, line)
		printTree(w, n.Children, depth+1)
	}
}

var deckHasSubCmd = &cobra.Command{
	Use:   "has-sub <deck>",
	Short: "Report whether a deck has sub-decks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		has, err := app.engine.HasSubDeck(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), has)
		return nil
	},
}

var deckCountsCmd = &cobra.Command{
	Use:   "counts <deck> [query]",
	Short: "Count due, new and total cards in a deck and its sub-decks",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := app.engine.DeckCounts(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "due %d, new %d, total %d\n", c.Due, c.Remaining, c.Total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deckCmd)
	deckCmd.AddCommand(deckAddCmd, deckRemoveCmd, deckTreeCmd, deckHasSubCmd, deckCountsCmd)
	deckAddCmd.Flags().BoolVar(&deckStrict, "strict", false, "fail when a card is already in the deck")
	deckTreeCmd.Flags().BoolVar(&deckCounts, "counts", false, "include due, new and total counts")
	deckTreeCmd.Flags().BoolVar(&deckJSON, "json", false, "output JSON")
}
