package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crewvault/crewvault/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export all entities to a JSON file",
	Long: `Export every entity, regardless of type, to a single JSON array of
{id, entity_type, data} records. The same format is consumed by import
and by the migration backup/restore path.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e, err := setup()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer e.close()

		s, err := store.New(cmd.Context(), e.database)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := s.Export(cmd.Context(), args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting entities: %v\n", err)
			os.Exit(1)
		}

		count, err := s.Count(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Exported %d entities to %s\n", count, args[0])
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
