package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conorfennell/srsdb/internal/search"
)

var (
	searchDeck   string
	searchTags   []string
	searchDue    string
	searchOffset int
	searchLimit  int
	searchCount  bool
)

func searchOptions() (search.Options, error) {
	opts := search.Options{
		Deck:   searchDeck,
		Tags:   searchTags,
		Offset: searchOffset,
		Limit:  searchLimit,
	}
	switch searchDue {
	case "":
	case "any", "all":
		opts.Due = search.AnyDue()
	default:
		d, err := search.ParseDue(searchDue)
		if err != nil {
			return opts, err
		}
		opts.Due = d
	}
	return opts, nil
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search cards",
	Long: `Search cards with the query language. Bare terms match any note field;
field:value tests containment, field=value equality and field>value or
field<value ordering. The fields due, deck and tag are special:

  due:true  due:false  due:3d  due:2024-06-01
  deck:lang            deck="lang::jp"
  tag:anim             tag=animal

Without a due clause or --due only overdue and unscheduled cards match.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		q := strings.Join(args, " ")
		opts, err := searchOptions()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if searchCount {
			n, err := app.engine.Count(ctx, q, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, n)
			return nil
		}

		ids, err := app.engine.Search(ctx, q, opts)
		if err != nil {
			return err
		}
		for _, id := range ids {
			c, err := app.db.Card(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%6d  %-10s  %-28s  %s\n", c.ID, c.Status(), humanTime(c.NextReview), firstLine(c.Front))
		}
		return nil
	},
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func addSearchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&searchDeck, "deck", "", "limit to a deck and its sub-decks")
	f.StringSliceVar(&searchTags, "tag", nil, "require a tag containing this text (repeatable)")
	f.StringVar(&searchDue, "due", "", "true, false, any, a duration such as 3d, or a date")
	f.IntVar(&searchOffset, "offset", 0, "skip this many results")
	f.IntVar(&searchLimit, "limit", 0, "return at most this many results")
}

func init() {
	rootCmd.AddCommand(searchCmd)
	addSearchFlags(searchCmd)
	searchCmd.Flags().BoolVar(&searchCount, "count", false, "print only the number of matches")
}
