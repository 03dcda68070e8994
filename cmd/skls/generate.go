package skls

import (
	"github.com/soundprediction/skls"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate FILE",
	Short: "Extract a knowledge graph from an article without storing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		date, _ := cmd.Flags().GetString("date")
		format, _ := cmd.Flags().GetString("format")

		article, err := articleFromFile(args[0], title, date)
		if err != nil {
			return err
		}

		gen, closeLLM, err := newGenerator(cmd.Context())
		if err != nil {
			return err
		}
		defer closeLLM()

		client := skls.NewClient(nil,
			skls.WithGenerator(gen),
			skls.WithLanguage(cfg.Generator.Language),
			skls.WithRetries(cfg.Generator.Retries))

		kg, err := client.ExtractGraph(cmd.Context(), article)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), format, kg)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().String("title", "", "article title (default: file name)")
	generateCmd.Flags().String("date", "", "article date (YYYY-MM-DD)")
	generateCmd.Flags().String("format", "json", "output format (json, yaml)")
}
