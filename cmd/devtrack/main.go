package main

import (
	"fmt"
	"os"

	"github.com/actionsum/devtrack/internal/config"
	"github.com/actionsum/devtrack/internal/database"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

const appName = "devtrack"

func main() {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "devtrack - developer activity tracker",
		Long: `devtrack samples the focused window, classifies what you are doing,
attributes it to the project on disk and records closed activity intervals.

Environment Variables:
  DEVTRACK_CONFIG            Config file (default ~/.config/devtrack/config.yaml)
  DEVTRACK_DB_PATH           Database file path
  DEVTRACK_POLL_INTERVAL     Poll interval in seconds (1-60)
  DEVTRACK_IDLE_THRESHOLD    Idle threshold in seconds
  DEVTRACK_MIN_SESSION       Shortest recorded session in seconds (>= 5)
  DEVTRACK_SCAN_ROOTS        Directories scanned for projects at startup
  DEVTRACK_RECORD_IDLE       Record idle gaps as idle intervals (true/false)
  DEVTRACK_PID_FILE          PID file path
  DEVTRACK_LOG_FILE          Daemon log file path
  DEVTRACK_EXCLUDE_IDLE      Exclude idle time from reports (true/false)
  DEVTRACK_TIMEZONE          Report time zone`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(stopCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(projectsCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(clearCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}

// loadConfig layers defaults, the config file and the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore connects to the database and brings the schema up to date.
func openStore(cfg *config.Config) (*database.DB, *database.Repository, error) {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetRetryPolicy(database.RetryPolicy{
		Attempts: cfg.Database.BusyRetries,
		Backoff:  cfg.Database.BusyBackoff,
	})

	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, nil, err
	}

	return db, database.NewRepository(db), nil
}
