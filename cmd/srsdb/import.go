package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conorfennell/srsdb/internal/importer"
)

var (
	importDeck    string
	importPattern string
	importTags    []string
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import Q:/A:/C: markdown card files",
	Long: `Import every markdown file below dir. Each "Q:" block becomes a note of
the Basic model, and its card is filed into a deck named after the file's
path, under --deck when given. Questions already stored are left as they
are, so imports can be repeated.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		im := importer.New(app.db,
			importer.WithLogger(app.log.With().Str("component", "importer").Logger()),
			importer.WithPattern(importPattern),
			importer.WithTags(importTags...))

		report, err := im.Import(cmd.Context(), os.DirFS(dir), importDeck)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Read %d file(s): %d new, %d existing, %d error(s).\n",
			report.Files, report.Created, report.Existing, len(report.Errors))
		for _, e := range report.Errors {
			fmt.Fprintf(out, "- %s\n", e)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importDeck, "deck", "", "root deck for imported cards")
	importCmd.Flags().StringVar(&importPattern, "pattern", importer.DefaultPattern, "glob selecting card files")
	importCmd.Flags().StringSliceVar(&importTags, "tag", nil, "tag every imported note (repeatable)")
}
