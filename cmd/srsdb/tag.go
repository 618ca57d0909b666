package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tagStrict bool

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Tag and untag notes",
}

var tagAddCmd = &cobra.Command{
	Use:   "add <tag> <note-id>...",
	Short: "Tag notes",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args[1:])
		if err != nil {
			return err
		}
		if err := app.db.AddTag(cmd.Context(), ids, args[0], tagStrict); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tagged %d note(s) with %q.\n", len(ids), args[0])
		return nil
	},
}

var tagRemoveCmd = &cobra.Command{
	Use:   "remove <tag> <note-id>...",
	Short: "Remove a tag from notes",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args[1:])
		if err != nil {
			return err
		}
		return app.db.RemoveTag(cmd.Context(), ids, args[0])
	},
}

func init() {
	rootCmd.AddCommand(tagCmd)
	tagCmd.AddCommand(tagAddCmd, tagRemoveCmd)
	tagAddCmd.Flags().BoolVar(&tagStrict, "strict", false, "fail when a note already has the tag")
}
