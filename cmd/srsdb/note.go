package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/srsdb/internal/domain"
)

var (
	noteFields []string
	noteData   string
	noteTags   []string
)

// readFields merges --data JSON with --field name=value pairs, pairs last.
func readFields() (domain.Fields, error) {
	var f domain.Fields
	if noteData != "" {
		if err := f.UnmarshalJSON([]byte(noteData)); err != nil {
			return nil, fmt.Errorf("invalid --data: %w", err)
		}
	}
	for _, kv := range noteFields {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --field %q, want name=value", kv)
		}
		f.Set(name, domain.String(value))
	}
	return f, nil
}

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Add, update and inspect notes",
}

var noteAddCmd = &cobra.Command{
	Use:   "add <model>",
	Short: "Add a note; its cards are generated from the model's templates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		modelID, err := app.db.FindModel(ctx, args[0])
		if err != nil {
			return err
		}
		data, err := readFields()
		if err != nil {
			return err
		}
		noteID, err := app.db.CreateNote(ctx, modelID, data, noteTags)
		if err != nil {
			return err
		}
		cards, err := app.db.CardsForNote(ctx, noteID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created note %d with %d card(s) %v.\n", noteID, len(cards), cards)
		return nil
	},
}

var noteUpdateCmd = &cobra.Command{
	Use:   "update <note-id>",
	Short: "Merge fields into a note and refresh its cards",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		data, err := readFields()
		if err != nil {
			return err
		}
		if err := app.db.UpdateNote(cmd.Context(), ids[0], data); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated note %d.\n", ids[0])
		return nil
	},
}

var noteFindCmd = &cobra.Command{
	Use:   "find",
	Short: "List notes whose fields equal the given values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		match, err := readFields()
		if err != nil {
			return err
		}
		ids, err := app.db.FindNotes(cmd.Context(), match)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var noteShowCmd = &cobra.Command{
	Use:   "show <note-id>",
	Short: "Show a note with its data, tags and cards",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		n, err := app.db.Note(ctx, ids[0])
		if err != nil {
			return err
		}
		cards, err := app.db.CardsForNote(ctx, n.ID)
		if err != nil {
			return err
		}
		raw, err := n.Data.MarshalJSON()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "note %d (model %d, guid %s)\n", n.ID, n.ModelID, n.GUID)
		fmt.Fprintf(out, "  data:     %s\n", raw)
		fmt.Fprintf(out, "  tags:     %s\n", strings.Join(n.Tags, ", "))
		fmt.Fprintf(out, "  cards:    %v\n", cards)
		fmt.Fprintf(out, "  modified: %s\n", n.Modified.Local().Format(time.DateTime))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(noteCmd)
	noteCmd.AddCommand(noteAddCmd, noteUpdateCmd, noteFindCmd, noteShowCmd)
	for _, c := range []*cobra.Command{noteAddCmd, noteUpdateCmd, noteFindCmd} {
		c.Flags().StringArrayVar(&noteFields, "field", nil, "field as name=value (repeatable)")
		c.Flags().StringVar(&noteData, "data", "", "fields as a JSON object, keeping number and boolean types")
	}
	noteAddCmd.Flags().StringSliceVar(&noteTags, "tag", nil, "tag the new note (repeatable)")
}
