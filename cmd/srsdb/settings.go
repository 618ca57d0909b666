package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var setIntervals string

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the SRS interval table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if setIntervals != "" {
			intervals, err := parseIntervals(setIntervals)
			if err != nil {
				return err
			}
			if err := app.db.SetIntervals(ctx, intervals); err != nil {
				return err
			}
		}

		s, err := app.db.Settings(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "version: %s\n", s.Version)
		for level, iv := range s.Intervals {
			fmt.Fprintf(out, "level %d: %s\n", level, iv)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.Flags().StringVar(&setIntervals, "intervals", "", "comma separated interval table, e.g. 10m,4h,1d,3d")
}
