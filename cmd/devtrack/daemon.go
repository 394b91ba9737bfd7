package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/actionsum/devtrack/internal/config"
	"github.com/actionsum/devtrack/internal/daemon"
	"github.com/actionsum/devtrack/internal/tracker"
	"github.com/actionsum/devtrack/pkg/detector"
	"github.com/actionsum/devtrack/pkg/utils"

	"github.com/spf13/cobra"
)

const stopTimeout = 10 * time.Second

// loadDaemon loads the layered configuration and the PID file it names.
func loadDaemon() (*config.Config, *daemon.Daemon, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, daemon.New(cfg.Daemon.PIDFile), nil
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the tracking daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dm, err := loadDaemon()
			if err != nil {
				return err
			}
			running, pid, err := dm.IsRunning()
			if err != nil {
				return fmt.Errorf("failed to check daemon status: %w", err)
			}
			if running {
				return fmt.Errorf("daemon is already running (PID: %d)", pid)
			}

			pid, err = daemon.Spawn([]string{"run"})
			if err != nil {
				return err
			}

			fmt.Printf("Daemon started successfully (PID: %d)\n", pid)
			fmt.Printf("Logs: %s\n", cfg.Daemon.LogFile)
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the tracker in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dm, err := loadDaemon()
			if err != nil {
				return err
			}
			running, pid, err := dm.IsRunning()
			if err != nil {
				return fmt.Errorf("failed to check daemon status: %w", err)
			}
			if running {
				return fmt.Errorf("daemon is already running (PID: %d)", pid)
			}

			if daemon.IsChild() && cfg.Daemon.LogFile != "" {
				logFile, err := os.OpenFile(cfg.Daemon.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
				if err == nil {
					log.SetOutput(logFile)
					defer logFile.Close()
				}
			}

			return runTracker(cmd.Context(), cfg, dm)
		},
	}
}

func runTracker(ctx context.Context, cfg *config.Config, dm *daemon.Daemon) error {
	db, repo, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	det, err := detector.New()
	if err != nil {
		return fmt.Errorf("failed to initialize window detector: %w", err)
	}
	defer det.Close()

	log.Printf("Window detector initialized: %s", det.GetDisplayServer())

	if err := dm.WritePID(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer dm.RemovePID()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := tracker.NewService(cfg, repo, det)

	if len(cfg.Projects.ScanRoots) > 0 {
		found, err := svc.Resolver().Scan(ctx, cfg.Projects.ScanRoots)
		if err != nil {
			log.Printf("Project scan failed: %v", err)
		} else {
			log.Printf("Project scan registered %d projects", len(found))
		}
	}

	log.Printf("Starting %s daemon...", appName)
	log.Printf("Configuration:\n%s", cfg.String())

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Start(ctx) }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("tracker error: %w", err)
		}
	case err := <-svc.Errors():
		log.Printf("Stopping on store failure: %v", err)
		svc.Stop()
		<-errCh
		return fmt.Errorf("store failure: %w", err)
	}

	log.Println("Daemon stopped successfully")
	return nil
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the tracking daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, dm, err := loadDaemon()
			if err != nil {
				return err
			}

			running, pid, err := dm.IsRunning()
			if err != nil {
				return fmt.Errorf("failed to check daemon status: %w", err)
			}
			if !running {
				fmt.Println("Daemon is not running")
				return nil
			}

			fmt.Printf("Stopping daemon (PID: %d)...\n", pid)
			if err := dm.Stop(stopTimeout); err != nil {
				return fmt.Errorf("failed to stop daemon: %w", err)
			}

			fmt.Println("Daemon stopped successfully")
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status, last activity and the current window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dm, err := loadDaemon()
			if err != nil {
				return err
			}

			running, pid, err := dm.IsRunning()
			if err != nil {
				return fmt.Errorf("failed to check daemon status: %w", err)
			}

			if !running {
				fmt.Println("Status: Not running")
			} else {
				fmt.Printf("Status: Running (PID: %d)\n", pid)
				fmt.Printf("Poll Interval: %v\n", cfg.Tracker.PollInterval)
			}

			ctx := cmd.Context()
			if db, repo, err := openStore(cfg); err == nil {
				fmt.Printf("Database: %s\n", db.Path())
				if last, err := repo.LatestActivity(ctx); err == nil && last != nil {
					ago := int64(time.Since(last.EndedAt).Seconds())
					fmt.Printf("\nLast Recorded Activity (%s ago):\n", utils.FormatRoundedUnit(ago))
					fmt.Printf("  App: %s\n", last.AppName)
					fmt.Printf("  Type: %s\n", last.ActivityType)
					fmt.Printf("  Duration: %s\n", utils.FormatDuration(last.DurationSeconds))
				}
				db.Close()
			} else {
				fmt.Printf("Database: unavailable (%v)\n", err)
			}

			// Still show current window detection even when not running
			det, err := detector.New()
			if err != nil {
				fmt.Printf("\nCould not detect current window: %v\n", err)
				return nil
			}
			defer det.Close()

			if chain, ok := det.(interface{ GetStatus() string }); ok {
				fmt.Printf("\n%s", chain.GetStatus())
			}

			probeCtx, cancel := context.WithTimeout(ctx, cfg.GetProbeTimeout())
			defer cancel()

			windowInfo, err := det.GetFocusedWindow(probeCtx)
			if err == nil && windowInfo != nil {
				fmt.Printf("\nCurrent Window:\n")
				fmt.Printf("  App: %s\n", windowInfo.AppName)
				fmt.Printf("  Title: %s\n", utils.Truncate(windowInfo.WindowTitle, 80))
				fmt.Printf("  Display: %s\n", windowInfo.DisplayServer)
			}

			idleInfo, err := det.GetIdleInfo(probeCtx)
			if err == nil && idleInfo != nil {
				fmt.Printf("\nSystem State:\n")
				fmt.Printf("  Idle: %v\n", idleInfo.IsIdle(cfg.Tracker.IdleThreshold))
				fmt.Printf("  Locked: %v\n", idleInfo.IsLocked)
				if idleInfo.Supported {
					fmt.Printf("  Idle Time: %s\n", utils.FormatDuration(int64(idleInfo.IdleTime.Seconds())))
				} else {
					fmt.Printf("  Idle Time: unsupported\n")
				}
			}
			return nil
		},
	}
}
