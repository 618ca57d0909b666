package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conorfennell/srsdb/internal/domain"
	"github.com/conorfennell/srsdb/internal/srs"
)

var reviewCmd = &cobra.Command{
	Use:   "review [query]",
	Short: "Review due cards interactively",
	Long: `Review the due cards matching the query in random order. After each
answer is shown, grade it:

  r  right    e  easy    w  wrong    b  bury
  u  undo the pending grading and show the card again
  s  skip     q  quit`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		opts, err := searchOptions()
		if err != nil {
			return err
		}
		quiz, err := app.engine.DueQuiz(ctx, strings.Join(args, " "), opts)
		if err != nil {
			return err
		}

		s := &session{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout()}
		fmt.Fprintf(s.out, "%d card(s) due.\n", quiz.Len())
		for id, ok := quiz.Next(); ok; id, ok = quiz.Next() {
			err := s.review(ctx, id, quiz.Len())
			if errors.Is(err, io.EOF) {
				fmt.Fprintf(s.out, "\nStopped, %d card(s) reviewed.\n", s.reviewed)
				return nil
			}
			if err != nil {
				return err
			}
		}
		fmt.Fprintf(s.out, "\nDone, %d card(s) reviewed.\n", s.reviewed)
		return nil
	},
}

type session struct {
	in       *bufio.Reader
	out      io.Writer
	reviewed int
}

func (s *session) prompt(msg string) (string, error) {
	fmt.Fprintf(s.out, "%s > ", msg)
	line, err := s.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}

// review shows one card until it is graded, skipped or the session ends.
// Quitting is reported as io.EOF.
func (s *session) review(ctx context.Context, id int64, left int) error {
	c, err := app.db.Card(ctx, id)
	if err != nil {
		return err
	}

show:
	for {
		fmt.Fprintf(s.out, "\n[%d left] %s\n", left, c.Front)
		if _, err := s.prompt("press enter to show the answer"); err != nil {
			return err
		}
		fmt.Fprintln(s.out, c.Back())

		for {
			answer, err := s.prompt("[r]ight [e]asy [w]rong [b]ury [u]ndo [s]kip [q]uit")
			if err != nil {
				return err
			}
			var graded *domain.Card
			switch answer {
			case "r":
				graded, err = app.sched.Right(ctx, id)
			case "e":
				graded, err = app.sched.Easy(ctx, id)
			case "w":
				graded, err = app.sched.Wrong(ctx, id, srs.When{})
			case "b":
				graded, err = app.sched.Bury(ctx, id, srs.When{})
			case "u":
				if c, err = app.sched.Undo(ctx, id); err != nil {
					return err
				}
				continue show
			case "s":
				return nil
			case "q":
				return io.EOF
			default:
				continue
			}

			if errors.Is(err, domain.ErrInvalidOperation) {
				fmt.Fprintln(s.out, err)
				continue
			}
			if err != nil {
				return err
			}
			s.reviewed++
			fmt.Fprintf(s.out, "level %s, next review %s\n", levelText(graded), humanTime(graded.NextReview))
			return nil
		}
	}
}

func levelText(c *domain.Card) string {
	if c.SRSLevel == nil {
		return "-"
	}
	return fmt.Sprint(*c.SRSLevel)
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	addSearchFlags(reviewCmd)
}
