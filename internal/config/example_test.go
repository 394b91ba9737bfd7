package config_test

import (
	"fmt"
	"time"

	"github.com/actionsum/devtrack/internal/config"
)

// Example of creating a default configuration
func ExampleDefault() {
	cfg := config.Default()
	fmt.Println("Poll Interval:", cfg.Tracker.PollInterval)
	fmt.Println("Probe Timeout:", cfg.GetProbeTimeout())
	fmt.Println("Suspend Gap:", cfg.GetSuspendGap())
	fmt.Println("Idle Threshold:", cfg.Tracker.IdleThreshold)
	// Output:
	// Poll Interval: 2s
	// Probe Timeout: 1s
	// Suspend Gap: 6s
	// Idle Threshold: 5m0s
}

// Example of overlaying a YAML config file
func ExampleDecode() {
	cfg := config.Default()
	err := config.Decode(cfg, []byte(`
tracker:
  poll_interval: 5s
  record_idle: true
projects:
  scan_roots: [~/src, ~/work]
`))
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Poll Interval:", cfg.Tracker.PollInterval)
	fmt.Println("Record Idle:", cfg.Tracker.RecordIdle)
	fmt.Println("Scan Roots:", cfg.Projects.ScanRoots)
	fmt.Println("Scan Depth:", cfg.Projects.ScanDepth)
	// Output:
	// Poll Interval: 5s
	// Record Idle: true
	// Scan Roots: [~/src ~/work]
	// Scan Depth: 3
}

// Example of setting poll interval with validation
func ExampleConfig_SetPollInterval() {
	cfg := config.Default()

	// Valid interval
	if err := cfg.SetPollInterval(30 * time.Second); err != nil {
		fmt.Println("Error:", err)
	} else {
		fmt.Println("Poll interval set to:", cfg.Tracker.PollInterval)
	}

	// Invalid interval (too low)
	if err := cfg.SetPollInterval(500 * time.Millisecond); err != nil {
		fmt.Println("Error:", err)
	}

	// Output:
	// Poll interval set to: 30s
	// Error: poll interval cannot be less than 1s
}

// Example of validating configuration
func ExampleConfig_Validate() {
	cfg := config.Default()

	if err := cfg.Validate(); err != nil {
		fmt.Println("Invalid config:", err)
	} else {
		fmt.Println("Configuration is valid")
	}

	// Output:
	// Configuration is valid
}
