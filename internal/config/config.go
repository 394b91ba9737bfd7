package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Tracker configuration
	Tracker TrackerConfig `yaml:"tracker"`

	// Project detection configuration
	Projects ProjectsConfig `yaml:"projects"`

	// Daemon configuration
	Daemon DaemonConfig `yaml:"daemon"`

	// Report configuration
	Report ReportConfig `yaml:"report"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path        string        `yaml:"path"`         // Path to SQLite database file
	BusyRetries int           `yaml:"busy_retries"` // Write attempts while the database is locked
	BusyBackoff time.Duration `yaml:"busy_backoff"` // First retry delay, doubled per attempt
}

// TrackerConfig holds tracking behavior configuration
type TrackerConfig struct {
	PollInterval       time.Duration `yaml:"poll_interval"`  // How often to probe the focused window
	MinPollInterval    time.Duration `yaml:"-"`              // Minimum allowed poll interval
	MaxPollInterval    time.Duration `yaml:"-"`              // Maximum allowed poll interval
	ProbeTimeout       time.Duration `yaml:"probe_timeout"`  // Zero means half the poll interval
	IdleThreshold      time.Duration `yaml:"idle_threshold"` // Time before considering user idle
	MinSessionDuration time.Duration `yaml:"min_session"`    // Shorter sessions are discarded
	SuspendGap         time.Duration `yaml:"suspend_gap"`    // Zero means three poll intervals
	RecordIdle         bool          `yaml:"record_idle"`    // Persist idle gaps as idle intervals
}

// ProjectsConfig holds project resolution configuration
type ProjectsConfig struct {
	ScanRoots        []string `yaml:"scan_roots"`
	ScanDepth        int      `yaml:"scan_depth"`
	MaxAscent        int      `yaml:"max_ascent"`
	ResolveThreshold float64  `yaml:"resolve_threshold"`
	ScanThreshold    float64  `yaml:"scan_threshold"`
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `yaml:"pid_file"` // Path to PID file for daemon management
	LogFile string `yaml:"log_file"` // Log destination when running in the background
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	ExcludeIdle bool   `yaml:"exclude_idle"` // Whether to exclude idle/locked time from reports
	TimeZone    string `yaml:"timezone"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "", // Empty means use default ~/.config/devtrack/devtrack.db
			BusyRetries: 3,
			BusyBackoff: 50 * time.Millisecond,
		},
		Tracker: TrackerConfig{
			PollInterval:       2 * time.Second,
			MinPollInterval:    1 * time.Second,
			MaxPollInterval:    60 * time.Second,
			IdleThreshold:      5 * time.Minute,
			MinSessionDuration: 5 * time.Second,
			RecordIdle:         false,
		},
		Projects: ProjectsConfig{
			ScanDepth:        3,
			MaxAscent:        10,
			ResolveThreshold: 0.5,
			ScanThreshold:    0.7,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/devtrack-%d.pid", os.Getuid()),
			LogFile: fmt.Sprintf("/tmp/devtrack-%d.log", os.Getuid()),
		},
		Report: ReportConfig{
			ExcludeIdle: true, // Exclude idle time by default
			TimeZone:    "Local",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate tracker intervals
	if c.Tracker.PollInterval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Tracker.PollInterval, c.Tracker.MinPollInterval)
	}

	if c.Tracker.PollInterval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			c.Tracker.PollInterval, c.Tracker.MaxPollInterval)
	}

	if c.Tracker.ProbeTimeout < 0 || c.Tracker.ProbeTimeout >= c.Tracker.PollInterval {
		return fmt.Errorf("probe timeout (%v) must be shorter than the poll interval (%v)",
			c.Tracker.ProbeTimeout, c.Tracker.PollInterval)
	}

	if c.Tracker.IdleThreshold <= 0 {
		return fmt.Errorf("idle threshold must be positive")
	}

	if c.Tracker.MinSessionDuration < 5*time.Second {
		return fmt.Errorf("minimum session duration cannot be less than 5s, got %v", c.Tracker.MinSessionDuration)
	}

	if c.Tracker.SuspendGap != 0 && c.Tracker.SuspendGap <= c.Tracker.PollInterval {
		return fmt.Errorf("suspend gap (%v) must exceed the poll interval", c.Tracker.SuspendGap)
	}

	// Validate project detection
	if c.Projects.MaxAscent < 1 {
		return fmt.Errorf("max ascent must be at least 1, got %d", c.Projects.MaxAscent)
	}

	if c.Projects.ScanDepth < 1 {
		return fmt.Errorf("scan depth must be at least 1, got %d", c.Projects.ScanDepth)
	}

	if !inUnitRange(c.Projects.ResolveThreshold) || !inUnitRange(c.Projects.ScanThreshold) {
		return fmt.Errorf("confidence thresholds must be within [0, 1)")
	}

	// Validate database config
	if c.Database.BusyRetries < 0 {
		return fmt.Errorf("busy retries cannot be negative")
	}

	// Validate daemon config
	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

func inUnitRange(v float64) bool {
	return v >= 0 && v < 1
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval cannot be less than %v", c.Tracker.MinPollInterval)
	}
	if interval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval cannot be greater than %v", c.Tracker.MaxPollInterval)
	}
	c.Tracker.PollInterval = interval
	return nil
}

// GetProbeTimeout returns the effective probe timeout.
func (c *Config) GetProbeTimeout() time.Duration {
	if c.Tracker.ProbeTimeout > 0 {
		return c.Tracker.ProbeTimeout
	}
	return c.Tracker.PollInterval / 2
}

// GetSuspendGap returns the tick gap treated as a resume from suspend.
func (c *Config) GetSuspendGap() time.Duration {
	if c.Tracker.SuspendGap > 0 {
		return c.Tracker.SuspendGap
	}
	return 3 * c.Tracker.PollInterval
}

// Location resolves the report time zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Report.TimeZone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Report.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.Report.TimeZone, err)
	}
	return loc, nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
    Busy Retries: %d (backoff %v)
  Tracker:
    Poll Interval: %v
    Probe Timeout: %v
    Idle Threshold: %v
    Min Session: %v
    Suspend Gap: %v
    Record Idle: %v
  Projects:
    Scan Roots: %s
    Scan Depth: %d
    Max Ascent: %d
  Daemon:
    PID File: %s
    Log File: %s
  Report:
    Exclude Idle: %v
    Time Zone: %s`,
		c.Database.Path,
		c.Database.BusyRetries,
		c.Database.BusyBackoff,
		c.Tracker.PollInterval,
		c.GetProbeTimeout(),
		c.Tracker.IdleThreshold,
		c.Tracker.MinSessionDuration,
		c.GetSuspendGap(),
		c.Tracker.RecordIdle,
		strings.Join(c.Projects.ScanRoots, ", "),
		c.Projects.ScanDepth,
		c.Projects.MaxAscent,
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
		c.Report.ExcludeIdle,
		c.Report.TimeZone,
	)
}
