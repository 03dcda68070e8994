package skls

import (
	"fmt"

	"github.com/spf13/cobra"
)

var embedCmd = &cobra.Command{
	Use:   "embed TEXT...",
	Short: "Print the embeddings of one or more texts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		batch, _ := cmd.Flags().GetInt("batch-size")

		vectors, err := newEmbedder().EmbedTexts(cmd.Context(), args, batch)
		if err != nil && len(vectors) == 0 {
			return fmt.Errorf("failed to embed texts: %w", err)
		}
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
		}
		return writeOutput(cmd.OutOrStdout(), format, vectors)
	},
}

func init() {
	rootCmd.AddCommand(embedCmd)
	embedCmd.Flags().String("format", "json", "output format (json, yaml)")
	embedCmd.Flags().Int("batch-size", 0, "texts per request (default from config)")
}
