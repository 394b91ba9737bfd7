package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override default values
func LoadFromEnv(cfg *Config) {
	// Database configuration
	if dbPath := os.Getenv("DEVTRACK_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	// Tracker configuration
	if pollInterval := os.Getenv("DEVTRACK_POLL_INTERVAL"); pollInterval != "" {
		if interval, ok := parseSeconds(pollInterval); ok {
			if interval >= cfg.Tracker.MinPollInterval && interval <= cfg.Tracker.MaxPollInterval {
				cfg.Tracker.PollInterval = interval
			}
		}
	}

	if idleThreshold := os.Getenv("DEVTRACK_IDLE_THRESHOLD"); idleThreshold != "" {
		if d, ok := parseSeconds(idleThreshold); ok {
			cfg.Tracker.IdleThreshold = d
		}
	}

	if minSession := os.Getenv("DEVTRACK_MIN_SESSION"); minSession != "" {
		if d, ok := parseSeconds(minSession); ok {
			cfg.Tracker.MinSessionDuration = d
		}
	}

	if recordIdle := os.Getenv("DEVTRACK_RECORD_IDLE"); recordIdle != "" {
		if val, err := strconv.ParseBool(recordIdle); err == nil {
			cfg.Tracker.RecordIdle = val
		}
	}

	// Project configuration
	if roots := os.Getenv("DEVTRACK_SCAN_ROOTS"); roots != "" {
		cfg.Projects.ScanRoots = splitList(roots)
	}

	// Daemon configuration
	if pidFile := os.Getenv("DEVTRACK_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if logFile := os.Getenv("DEVTRACK_LOG_FILE"); logFile != "" {
		cfg.Daemon.LogFile = logFile
	}

	// Report configuration
	if excludeIdle := os.Getenv("DEVTRACK_EXCLUDE_IDLE"); excludeIdle != "" {
		if val, err := strconv.ParseBool(excludeIdle); err == nil {
			cfg.Report.ExcludeIdle = val
		}
	}

	if timeZone := os.Getenv("DEVTRACK_TIMEZONE"); timeZone != "" {
		cfg.Report.TimeZone = timeZone
	}
}

// parseSeconds accepts either a whole number of seconds or a Go duration.
func parseSeconds(s string) (time.Duration, bool) {
	if seconds, err := strconv.Atoi(s); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// splitList splits a path list on the OS list separator or commas.
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == filepath.ListSeparator || r == ','
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// New creates a new Config with default values and loads from environment
func New() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}

// Load layers defaults, the config file and the environment, then validates.
func Load() (*Config, error) {
	cfg := Default()
	if err := LoadFile(cfg, FilePath()); err != nil {
		return nil, err
	}
	LoadFromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
