package skls

import (
	"fmt"
	"strings"

	"github.com/soundprediction/skls/pkg/vectorstore"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Find the stored chunks most similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topK, _ := cmd.Flags().GetInt("top-k")
		format, _ := cmd.Flags().GetString("format")

		store, err := newStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		results, err := store.SearchChunks(cmd.Context(), strings.Join(args, " "), topK)
		if err != nil {
			return err
		}

		if format == "text" {
			out := cmd.OutOrStdout()
			for i, r := range results {
				fmt.Fprintf(out, "%d. [%.3f] %s\n", i+1, r.Similarity(), r.Text)
			}
			return nil
		}
		return writeOutput(cmd.OutOrStdout(), format, results)
	},
}

var existsCmd = &cobra.Command{
	Use:   "exists TEXT",
	Short: "Report whether a near-duplicate of TEXT is already stored",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold, _ := cmd.Flags().GetFloat64("threshold")

		store, err := newStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		ok, err := store.ChunkExists(cmd.Context(), args[0], threshold)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().Int("top-k", vectorstore.DefaultTopK, "number of results")
	searchCmd.Flags().String("format", "text", "output format (text, json, yaml)")

	rootCmd.AddCommand(existsCmd)
	existsCmd.Flags().Float64("threshold", vectorstore.DefaultSimilarityThreshold, "minimum similarity (1 - distance)")
}
