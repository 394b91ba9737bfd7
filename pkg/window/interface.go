package window

import (
	"context"
	"time"
)

// WindowInfo represents information about the currently focused window
type WindowInfo struct {
	AppName       string
	WindowTitle   string
	ProcessName   string
	PID           int
	DisplayServer string // "x11", "wayland", "darwin" or "windows"
}

// IdleInfo represents system idle/lock state
type IdleInfo struct {
	// IdleTime is the time since the last user input.
	IdleTime time.Duration
	IsLocked bool
	// Supported is false when the platform has no idle signal; IdleTime is
	// then always zero.
	Supported bool
}

// Unsupported is the idle report of a platform without an idle signal.
func Unsupported() *IdleInfo {
	return &IdleInfo{}
}

// IsIdle reports whether the idle time exceeds threshold or the screen is
// locked.
func (i *IdleInfo) IsIdle(threshold time.Duration) bool {
	if i == nil {
		return false
	}
	return i.IsLocked || (i.Supported && i.IdleTime > threshold)
}

// Sample is one timestamped probe of the focused window.
type Sample struct {
	AppName     string
	WindowTitle string
	PID         int
	Timestamp   time.Time
}

// Sample converts the window info into a sample taken at t.
func (w *WindowInfo) Sample(t time.Time) Sample {
	return Sample{
		AppName:     w.AppName,
		WindowTitle: w.WindowTitle,
		PID:         w.PID,
		Timestamp:   t,
	}
}

// Detector is the interface that all window detection implementations must satisfy
type Detector interface {
	// GetFocusedWindow returns information about the currently focused window
	GetFocusedWindow(ctx context.Context) (*WindowInfo, error)

	// GetIdleInfo returns information about system idle/lock state
	GetIdleInfo(ctx context.Context) (*IdleInfo, error)

	// IsAvailable checks if this detector can run on the current system
	IsAvailable() bool

	// GetDisplayServer returns the display server type
	GetDisplayServer() string

	// Close cleans up any resources used by the detector
	Close() error
}
