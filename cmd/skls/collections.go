package skls

import (
	"fmt"

	"github.com/spf13/cobra"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List collections, or delete a document and its chunks",
	RunE: func(cmd *cobra.Command, args []string) error {
		deleteDoc, _ := cmd.Flags().GetString("delete-document")
		dropChunks, _ := cmd.Flags().GetBool("drop")

		store, err := newStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		switch {
		case deleteDoc != "":
			n, err := store.DeleteDocument(cmd.Context(), deleteDoc)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "deleted %s and %d chunks\n", deleteDoc, n)
			return nil
		case dropChunks:
			if err := store.DeleteCollection(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(out, "dropped %s\n", cfg.Chroma.Collection)
			return nil
		}

		names, err := store.ListCollections(cmd.Context())
		if err != nil {
			return err
		}
		count, err := store.Count(cmd.Context())
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(out, n)
		}
		fmt.Fprintf(out, "%d chunks in %s\n", count, cfg.Chroma.Collection)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
	collectionsCmd.Flags().String("delete-document", "", "delete this document id and its chunks")
	collectionsCmd.Flags().Bool("drop", false, "drop the chunk collection")
}
