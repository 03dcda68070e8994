package skls

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store [TEXT]",
	Short: "Embed and store a single chunk",
	Long: `Embed and store a single chunk in the configured collection.
The text is taken from the argument or, with --file, from a file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		id, _ := cmd.Flags().GetString("id")
		pairs, _ := cmd.Flags().GetStringSlice("metadata")

		var text string
		switch {
		case file != "":
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			text = string(raw)
		case len(args) == 1:
			text = args[0]
		default:
			return fmt.Errorf("provide TEXT or --file")
		}

		md, err := parseMetadata(pairs)
		if err != nil {
			return err
		}

		store, err := newStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		id, err = store.StoreChunk(cmd.Context(), text, md, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.Flags().String("file", "", "read the chunk text from a file")
	storeCmd.Flags().String("id", "", "chunk id (random when empty)")
	storeCmd.Flags().StringSlice("metadata", nil, "metadata as key=value, repeatable")
}
