package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crewvault/crewvault/internal/migrate"
)

var (
	flagBackupFile string
	flagStrict     bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Convert the data column from text to structured JSON",
	Long: `Convert the entities table's data column from JSON-encoded text to
the engine's structured JSON type, without data loss.

The run always writes a backup snapshot first. The swap itself is a
single transaction over a shadow table; if it fails, the dataset is
automatically restored from the snapshot. The terminal outcome is
printed so you always know whether the dataset is original, migrated,
or needs manual attention.

Run this out-of-band: never concurrently with live traffic.`,
	Run: func(cmd *cobra.Command, args []string) {
		e, err := setup()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer e.close()

		m := migrate.New(e.database, e.logger)
		result, err := m.Run(cmd.Context(), migrate.RunOptions{
			BackupPath: flagBackupFile,
			Strict:     flagStrict,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: migration not attempted: %v\n", err)
			os.Exit(1)
		}

		switch result.Outcome {
		case migrate.OutcomeMigrated:
			fmt.Printf("Migration complete: %d entities (backup at %s", result.Backup.Saved, result.Backup.Path)
			if result.Backup.Skipped > 0 {
				fmt.Printf(", %d rows skipped", result.Backup.Skipped)
			}
			fmt.Println(")")
		case migrate.OutcomeAlreadyMigrated:
			fmt.Println("Data column already structured, nothing to do")
		case migrate.OutcomeRestored:
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", result.MigrateErr)
			fmt.Fprintf(os.Stderr, "Restored %d entities from %s; dataset is in its original state\n",
				result.Restored, result.Backup.Path)
			os.Exit(1)
		case migrate.OutcomeRestoreFailed:
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", result.MigrateErr)
			fmt.Fprintf(os.Stderr, "RESTORE ALSO FAILED: %v\n", result.RestoreErr)
			fmt.Fprintf(os.Stderr, "Dataset may be inconsistent; backup is at %s\n", result.Backup.Path)
			os.Exit(2)
		}
	},
}

func init() {
	migrateCmd.Flags().StringVar(&flagBackupFile, "backup-file", "entities_backup.json", "snapshot file written before the swap")
	migrateCmd.Flags().BoolVar(&flagStrict, "strict", false, "abort if any row fails to back up")
	rootCmd.AddCommand(migrateCmd)
}
