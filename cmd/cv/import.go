package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crewvault/crewvault/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import entities from a JSON export file",
	Long: `Import every record from an export-format JSON file, upserting into
the entities table. The import is transactional: one malformed record
aborts the whole import and leaves the table untouched.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e, err := setup()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer e.close()

		if err := e.database.InitSchema(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing schema: %v\n", err)
			os.Exit(1)
		}

		s, err := store.New(cmd.Context(), e.database)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := s.Import(cmd.Context(), args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error importing entities: %v\n", err)
			os.Exit(1)
		}

		count, err := s.Count(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Imported %s (%d entities in table)\n", args[0], count)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
