package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conorfennell/srsdb/internal/storage"
)

var modelFile string

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Manage note models and their templates",
}

var modelCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a model from a YAML definition",
	Example: `  # basic.yaml
  name: vocab
  key_fields: [word]
  templates:
    - name: forward
      front: "{{word}}"
      back: "{{meaning}}"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(modelFile)
		if err != nil {
			return err
		}
		var spec storage.ModelSpec
		if err := yaml.Unmarshal(raw, &spec); err != nil {
			return fmt.Errorf("failed to decode %s: %w", modelFile, err)
		}
		id, err := app.db.CreateModel(cmd.Context(), spec)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created model %q with id %d.\n", spec.Name, id)
		return nil
	},
}

var modelShowCmd = &cobra.Command{
	Use:   "show <name|id>",
	Short: "Show a model and its templates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := app.db.FindModel(ctx, args[0])
		if err != nil {
			return err
		}
		m, err := app.db.Model(ctx, id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d  %s  key: %s\n", m.ID, m.Name, strings.Join(m.KeyFields, ", "))
		for _, t := range m.Templates {
			fmt.Fprintf(out, "  template %d %q\n    front: %s\n    back:  %s\n", t.ID, t.Name, t.Front, t.Back)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelCmd)
	modelCmd.AddCommand(modelCreateCmd, modelShowCmd)
	modelCreateCmd.Flags().StringVarP(&modelFile, "file", "f", "", "YAML model definition")
	modelCreateCmd.MarkFlagRequired("file")
}
