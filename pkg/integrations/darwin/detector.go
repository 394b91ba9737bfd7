package darwin

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/actionsum/devtrack/pkg/integrations/process"
	"github.com/actionsum/devtrack/pkg/window"
)

const frontmostScript = `
tell application "System Events"
	set frontApp to first application process whose frontmost is true
	set appName to name of frontApp
	set appPID to unix id of frontApp
	set winTitle to ""
	try
		set winTitle to name of front window of frontApp
	end try
end tell
return appName & "|||" & appPID & "|||" & winTitle
`

// Detector implements window.Detector for macOS using AppleScript for the
// frontmost window and IOKit's HIDIdleTime for idle.
type Detector struct {
	hasOsascript bool
	hasIoreg     bool
}

// NewDetector creates a new macOS detector
func NewDetector() *Detector {
	return &Detector{
		hasOsascript: process.CommandExists("osascript"),
		hasIoreg:     process.CommandExists("ioreg"),
	}
}

// IsAvailable checks if osascript can be used
func (d *Detector) IsAvailable() bool {
	return d.hasOsascript
}

// GetDisplayServer returns "darwin"
func (d *Detector) GetDisplayServer() string {
	return "darwin"
}

// GetFocusedWindow returns the frontmost application and its front window.
func (d *Detector) GetFocusedWindow(ctx context.Context) (*window.WindowInfo, error) {
	if !d.hasOsascript {
		return nil, fmt.Errorf("osascript not available")
	}
	out, err := process.Output(ctx, "osascript", "-e", frontmostScript)
	if err != nil {
		return nil, fmt.Errorf("failed to query frontmost application: %w", err)
	}
	return parseFrontmost(string(out))
}

// parseFrontmost parses "App|||pid|||Title".
func parseFrontmost(output string) (*window.WindowInfo, error) {
	parts := strings.SplitN(strings.TrimRight(output, "\r\n"), "|||", 3)
	if len(parts) != 3 || strings.TrimSpace(parts[0]) == "" {
		return nil, fmt.Errorf("unexpected osascript output %q", strings.TrimSpace(output))
	}

	pid, _ := strconv.Atoi(strings.TrimSpace(parts[1]))
	appName := strings.TrimSpace(parts[0])
	return &window.WindowInfo{
		AppName:       appName,
		WindowTitle:   parts[2],
		ProcessName:   appName,
		PID:           pid,
		DisplayServer: "darwin",
	}, nil
}

// GetIdleInfo reads the HID idle counter. Lock state is not observable
// without private frameworks and is reported as unlocked.
func (d *Detector) GetIdleInfo(ctx context.Context) (*window.IdleInfo, error) {
	if !d.hasIoreg {
		return window.Unsupported(), nil
	}
	out, err := process.Output(ctx, "ioreg", "-c", "IOHIDSystem", "-d", "4")
	if err != nil {
		return nil, fmt.Errorf("failed to query HID idle time: %w", err)
	}
	idle, err := parseHIDIdleTime(string(out))
	if err != nil {
		return nil, err
	}
	return &window.IdleInfo{IdleTime: idle, Supported: true}, nil
}

var hidIdle = regexp.MustCompile(`"HIDIdleTime"\s*=\s*(\d+)`)

// parseHIDIdleTime extracts HIDIdleTime, reported in nanoseconds.
func parseHIDIdleTime(output string) (time.Duration, error) {
	m := hidIdle.FindStringSubmatch(output)
	if m == nil {
		return 0, fmt.Errorf("HIDIdleTime not found in ioreg output")
	}
	ns, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid HIDIdleTime %q: %w", m[1], err)
	}
	return time.Duration(ns), nil
}

// Close cleans up resources
func (d *Detector) Close() error {
	return nil
}
