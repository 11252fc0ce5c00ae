package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	var docID string
	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Chunk, embed and store documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if docID != "" && len(args) > 1 {
				return fmt.Errorf("--doc-id can only be used with a single file")
			}
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				id := docID
				if id == "" {
					id = filepath.Base(path)
				}
				n, err := a.container.Ingest.IngestFile(ctx, id, data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s uploaded and processed (%d chunks).\n", id, n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&docID, "doc-id", "", "document id to store the file under (defaults to the file name)")
	return cmd
}
