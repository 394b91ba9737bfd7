package x11

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/actionsum/devtrack/pkg/integrations/process"
	"github.com/actionsum/devtrack/pkg/window"
)

// lockers are screen locker processes that only run while the session is
// locked. Lockers with a resident daemon, such as xscreensaver, are asked
// for their state instead.
var lockers = []string{
	"gnome-screensaver-dialog",
	"kscreenlocker_greet",
	"i3lock",
	"slock",
	"xsecurelock",
}

// Detector implements window.Detector for X11. It uses a native connection
// when the server accepts one and the xdotool family of commands otherwise.
type Detector struct {
	native        *nativeClient
	hasXdotool    bool
	hasXprop      bool
	hasXprintidle bool
	hasXSSCommand bool
}

// NewDetector creates a new X11 detector
func NewDetector() *Detector {
	d := &Detector{
		hasXdotool:    process.CommandExists("xdotool"),
		hasXprop:      process.CommandExists("xprop"),
		hasXprintidle: process.CommandExists("xprintidle"),
		hasXSSCommand: process.CommandExists("xscreensaver-command"),
	}

	if os.Getenv("DISPLAY") != "" {
		c, err := newNativeClient()
		if err != nil {
			log.Printf("X11 native connection unavailable, using command fallback: %v", err)
		} else {
			d.native = c
		}
	}
	return d
}

// IsAvailable checks if X11 detection is available
func (d *Detector) IsAvailable() bool {
	return d.native != nil || d.hasXdotool
}

// GetDisplayServer returns "x11"
func (d *Detector) GetDisplayServer() string {
	return "x11"
}

// GetFocusedWindow returns information about the currently focused window
func (d *Detector) GetFocusedWindow(ctx context.Context) (*window.WindowInfo, error) {
	if d.native != nil {
		w, err := d.native.focusedWindow()
		if err == nil {
			return d.fromNative(ctx, w), nil
		}
		if !d.hasXdotool {
			return nil, fmt.Errorf("failed to get active x11 window: %w", err)
		}
	}
	if d.hasXdotool {
		return d.getFocusedWindowXdotool(ctx)
	}
	return nil, fmt.Errorf("no X11 detection method available (X connection or xdotool required)")
}

func (d *Detector) fromNative(ctx context.Context, w *nativeWindow) *window.WindowInfo {
	appName := w.class
	if appName == "" {
		appName = w.instance
	}
	processName := process.NameForPID(ctx, w.pid)
	if appName == "" {
		appName = processName
	}
	if appName == "" {
		appName = "Unknown"
	}
	return &window.WindowInfo{
		AppName:       appName,
		WindowTitle:   w.title,
		ProcessName:   processName,
		PID:           w.pid,
		DisplayServer: "x11",
	}
}

// getFocusedWindowXdotool uses xdotool to get focused window info
func (d *Detector) getFocusedWindowXdotool(ctx context.Context) (*window.WindowInfo, error) {
	out, err := process.Output(ctx, "xdotool", "getactivewindow")
	if err != nil {
		return nil, fmt.Errorf("failed to get active x11 window ID: %w", err)
	}
	windowID := strings.TrimSpace(string(out))

	out, err = process.Output(ctx, "xdotool", "getwindowname", windowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get window name: %w", err)
	}
	windowTitle := strings.TrimSpace(string(out))

	// WM_CLASS works for Flatpak apps whose PID is namespaced.
	appName := ""
	if d.hasXprop {
		if out, err := process.Output(ctx, "xprop", "-id", windowID, "WM_CLASS"); err == nil {
			appName = parseWMClass(string(out))
		}
	}

	pid := 0
	processName := ""
	if out, err := process.Output(ctx, "xdotool", "getwindowpid", windowID); err == nil {
		pid, _ = strconv.Atoi(strings.TrimSpace(string(out)))
		processName = process.NameForPID(ctx, pid)
	}
	if appName == "" {
		appName = processName
	}
	if appName == "" {
		appName = "Unknown"
	}

	return &window.WindowInfo{
		AppName:       appName,
		WindowTitle:   windowTitle,
		ProcessName:   processName,
		PID:           pid,
		DisplayServer: "x11",
	}, nil
}

// parseWMClass extracts the class name from xprop WM_CLASS output
func parseWMClass(output string) string {
	_, value, ok := strings.Cut(output, "=")
	if !ok {
		return ""
	}

	classes := strings.Split(strings.TrimSpace(value), ",")
	return strings.Trim(strings.TrimSpace(classes[len(classes)-1]), "\" ")
}

// GetIdleInfo returns system idle/lock information
func (d *Detector) GetIdleInfo(ctx context.Context) (*window.IdleInfo, error) {
	info := &window.IdleInfo{IsLocked: d.isScreenLocked(ctx)}

	switch {
	case d.native != nil && d.native.hasScreensaver:
		idle, err := d.native.idleTime()
		if err != nil {
			return nil, fmt.Errorf("failed to query screensaver idle time: %w", err)
		}
		info.IdleTime = idle
		info.Supported = true
	case d.hasXprintidle:
		out, err := process.Output(ctx, "xprintidle")
		if err != nil {
			return nil, fmt.Errorf("failed to get idle time: %w", err)
		}
		idle, err := parseXprintidle(string(out))
		if err != nil {
			return nil, err
		}
		info.IdleTime = idle
		info.Supported = true
	}
	return info, nil
}

// parseXprintidle converts xprintidle's millisecond output.
func parseXprintidle(output string) (time.Duration, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(output), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid xprintidle output %q: %w", strings.TrimSpace(output), err)
	}
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// isScreenLocked checks if the screen is locked
func (d *Detector) isScreenLocked(ctx context.Context) bool {
	for _, locker := range lockers {
		if process.Running(ctx, locker) {
			return true
		}
	}
	if d.hasXSSCommand && process.Running(ctx, "xscreensaver") {
		out, err := process.Output(ctx, "xscreensaver-command", "-time")
		if err == nil && parseXScreenSaverTime(string(out)) {
			return true
		}
	}
	return false
}

// parseXScreenSaverTime reports whether xscreensaver-command -time says the
// screen is locked. A blanked but unlocked screen is not locked.
func parseXScreenSaverTime(output string) bool {
	return strings.Contains(output, ": screen locked since")
}

// Close cleans up resources
func (d *Detector) Close() error {
	if d.native != nil {
		d.native.close()
		d.native = nil
	}
	return nil
}
