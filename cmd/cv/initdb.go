package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the entities table",
	Long: `Create the entities table if it does not exist.

The data column uses the engine's default representation: JSONB on
PostgreSQL, text on SQLite. Safe to run repeatedly.`,
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

		rep, err := e.database.DataRepresentation(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Initialized entities table (%s, data column: %s)\n",
			e.database.Dialect(), rep)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
