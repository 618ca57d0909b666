package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conorfennell/srsdb/internal/domain"
)

var (
	rightStep int
	whenIn    string
	whenAt    string
)

func printCard(w io.Writer, c *domain.Card) {
	fmt.Fprintf(w, "card %d (note %d, template %q)\n", c.ID, c.NoteID, c.Template.Name)
	fmt.Fprintf(w, "  status:      %s, level %s\n", c.Status(), levelText(c))
	fmt.Fprintf(w, "  next review: %s\n", humanTime(c.NextReview))
	fmt.Fprintf(w, "  last review: %s\n", humanTime(c.LastReview))
	fmt.Fprintf(w, "  streak %d, lapses %d, right %d, wrong %d\n",
		c.Info.Streak, c.Info.Lapse, c.Info.TotalRight, c.Info.TotalWrong)
	if len(c.Decks) > 0 {
		fmt.Fprintf(w, "  decks:       %s\n", strings.Join(c.Decks, ", "))
	}
	if c.Backup != nil {
		fmt.Fprintln(w, "  undo:        available")
	}
}

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Inspect and grade cards",
}

var cardShowCmd = &cobra.Command{
	Use:   "show <card-id>",
	Short: "Show a card with its front, back and schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		c, err := app.db.Card(cmd.Context(), ids[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printCard(out, c)
		fmt.Fprintf(out, "\n%s\n\n%s\n", c.Front, c.Back())
		return nil
	},
}

// transition builds a grading command that applies fn to one card and
// prints the result.
func transition(use, short string, fn func(ctx context.Context, id int64) (*domain.Card, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <card-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			c, err := fn(cmd.Context(), ids[0])
			if err != nil {
				return err
			}
			printCard(cmd.OutOrStdout(), c)
			return nil
		},
	}
}

var (
	cardRightCmd = transition("right", "Grade a card as remembered", func(ctx context.Context, id int64) (*domain.Card, error) {
		return app.sched.RightBy(ctx, id, rightStep)
	})
	cardEasyCmd = transition("easy", "Grade a card as trivially remembered", func(ctx context.Context, id int64) (*domain.Card, error) {
		return app.sched.Easy(ctx, id)
	})
	cardWrongCmd = transition("wrong", "Grade a card as forgotten", func(ctx context.Context, id int64) (*domain.Card, error) {
		when, err := parseWhen(whenIn, whenAt)
		if err != nil {
			return nil, err
		}
		return app.sched.Wrong(ctx, id, when)
	})
	cardBuryCmd = transition("bury", "Postpone a card without grading it", func(ctx context.Context, id int64) (*domain.Card, error) {
		when, err := parseWhen(whenIn, whenAt)
		if err != nil {
			return nil, err
		}
		return app.sched.Bury(ctx, id, when)
	})
	cardResetCmd = transition("reset", "Return a card to the new state", func(ctx context.Context, id int64) (*domain.Card, error) {
		return app.sched.Reset(ctx, id)
	})
	cardUndoCmd = transition("undo", "Revert the pending grading of a card", func(ctx context.Context, id int64) (*domain.Card, error) {
		return app.sched.Undo(ctx, id)
	})
)

func init() {
	rootCmd.AddCommand(cardCmd)
	cardCmd.AddCommand(cardShowCmd, cardRightCmd, cardEasyCmd, cardWrongCmd, cardBuryCmd, cardResetCmd, cardUndoCmd)
	cardRightCmd.Flags().IntVar(&rightStep, "step", 1, "levels to promote by")
	for _, c := range []*cobra.Command{cardWrongCmd, cardBuryCmd} {
		c.Flags().StringVar(&whenIn, "in", "", "review again after this long, e.g. 30m or 2d")
		c.Flags().StringVar(&whenAt, "at", "", "review again at this date")
	}
}
