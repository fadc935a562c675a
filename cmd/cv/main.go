// Command cv manages crewvault's entity storage: schema initialization,
// bulk export/import, and the one-shot text-to-JSON column migration.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/crewvault/crewvault/internal/config"
	"github.com/crewvault/crewvault/internal/db"
	"github.com/crewvault/crewvault/internal/log"
)

var (
	flagConfig  string
	flagDB      string
	flagLogFile string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "cv",
	Short: "crewvault entity storage management",
	Long: `cv manages the crewvault entity store: a single relational table
holding heterogeneous workbench objects (agents, tasks, crews, tools,
run results) as generic (id, entity_type, data) rows.

The backing engine is SQLite (a file path) or PostgreSQL (a postgres://
URL), configured via --db, CREWVAULT_DB_URL, or crewvault.yaml.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ./crewvault.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "connection string (postgres:// URL or SQLite file path)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "write JSON logs to this file instead of stderr")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}

// env bundles the resources every command needs: resolved config, the
// process logger, and an open connection provider.
type env struct {
	cfg      config.Config
	logger   *slog.Logger
	database *db.DB
	logFile  io.Closer
}

// setup resolves configuration (flags over env over file over defaults),
// builds the logger, and opens the database.
func setup() (*env, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.DB.URL = flagDB
	}
	if flagLogFile != "" {
		cfg.Logging.File = flagLogFile
	}
	if flagVerbose {
		cfg.Logging.Level = "debug"
	}

	logger, logFile, err := log.Setup(
		cfg.Logging.Level, cfg.Logging.File,
		cfg.Logging.MaxSizeMB, cfg.Logging.MaxFiles)
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DB.URL)
	if err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, err
	}

	return &env{cfg: cfg, logger: logger, database: database, logFile: logFile}, nil
}

func (e *env) close() {
	if err := e.database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if e.logFile != nil {
		_ = e.logFile.Close()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
