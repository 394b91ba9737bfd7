package hybrid

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/actionsum/devtrack/pkg/integrations/process"
	"github.com/actionsum/devtrack/pkg/window"
)

// Detector tries an ordered list of window detectors, returning the first
// usable answer. It also folds a session-wide lock check into idle reports.
type Detector struct {
	detectors []window.Detector
	lockCheck func(ctx context.Context) bool

	mu                   sync.Mutex
	lastSuccessfulMethod string
}

// NewDetector builds a detector over the available members of detectors, in
// order. lockCheck may be nil.
func NewDetector(lockCheck func(ctx context.Context) bool, detectors ...window.Detector) (*Detector, error) {
	d := &Detector{lockCheck: lockCheck}
	for _, det := range detectors {
		if det == nil {
			continue
		}
		if !det.IsAvailable() {
			det.Close()
			continue
		}
		log.Printf("Window detector initialized: %s", det.GetDisplayServer())
		d.detectors = append(d.detectors, det)
	}
	if len(d.detectors) == 0 {
		return nil, fmt.Errorf("no window detector available on this system")
	}
	return d, nil
}

// GetFocusedWindow asks each detector in turn.
func (d *Detector) GetFocusedWindow(ctx context.Context) (*window.WindowInfo, error) {
	var errs []error
	for _, det := range d.detectors {
		info, err := det.GetFocusedWindow(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", det.GetDisplayServer(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if info == nil || info.AppName == "" || info.AppName == "Unknown" {
			errs = append(errs, fmt.Errorf("%s: no valid window information", det.GetDisplayServer()))
			continue
		}

		d.mu.Lock()
		d.lastSuccessfulMethod = det.GetDisplayServer()
		d.mu.Unlock()
		return info, nil
	}
	return nil, fmt.Errorf("all detection methods failed: %w", errors.Join(errs...))
}

// GetIdleInfo returns the first supported idle signal. The screen counts as
// locked if any detector or the session lock check says so.
func (d *Detector) GetIdleInfo(ctx context.Context) (*window.IdleInfo, error) {
	result := window.Unsupported()
	var firstErr error

	for _, det := range d.detectors {
		info, err := det.GetIdleInfo(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if info.IsLocked {
			result.IsLocked = true
		}
		if info.Supported && !result.Supported {
			result.IdleTime = info.IdleTime
			result.Supported = true
		}
	}

	if !result.IsLocked && d.lockCheck != nil {
		result.IsLocked = d.lockCheck(ctx)
	}

	if !result.Supported && !result.IsLocked && firstErr != nil {
		return nil, firstErr
	}
	return result, nil
}

// SessionLocked asks the desktop session whether the screen is locked.
func SessionLocked(ctx context.Context) bool {
	out, err := process.Output(ctx, "gdbus", "call", "--session",
		"--dest", "org.gnome.ScreenSaver",
		"--object-path", "/org/gnome/ScreenSaver",
		"--method", "org.gnome.ScreenSaver.GetActive")
	if err == nil && strings.Contains(string(out), "true") {
		return true
	}

	out, err = process.Output(ctx, "loginctl", "show-session", "-p", "LockedHint")
	if err == nil && strings.Contains(string(out), "LockedHint=yes") {
		return true
	}
	return false
}

// IsAvailable reports whether any detector survived construction.
func (d *Detector) IsAvailable() bool {
	return len(d.detectors) > 0
}

// GetDisplayServer returns the display server of the primary detector.
func (d *Detector) GetDisplayServer() string {
	if len(d.detectors) == 0 {
		return "unknown"
	}
	return d.detectors[0].GetDisplayServer()
}

// DetectorInfo describes one member of the chain.
type DetectorInfo struct {
	Method    string
	Available bool
	Primary   bool
}

// GetAllDetectors lists the chain in order.
func (d *Detector) GetAllDetectors() []DetectorInfo {
	out := make([]DetectorInfo, 0, len(d.detectors))
	for i, det := range d.detectors {
		out = append(out, DetectorInfo{
			Method:    det.GetDisplayServer(),
			Available: det.IsAvailable(),
			Primary:   i == 0,
		})
	}
	return out
}

// GetStatus renders the chain for the status command.
func (d *Detector) GetStatus() string {
	var b strings.Builder
	b.WriteString("Detector chain:\n")
	for _, info := range d.GetAllDetectors() {
		marker := " "
		if info.Primary {
			marker = "*"
		}
		fmt.Fprintf(&b, "  %s %s (available: %v)\n", marker, info.Method, info.Available)
	}

	d.mu.Lock()
	last := d.lastSuccessfulMethod
	d.mu.Unlock()
	if last == "" {
		last = "none yet"
	}
	fmt.Fprintf(&b, "  Last successful method: %s\n", last)
	return b.String()
}

// Close closes every detector in the chain.
func (d *Detector) Close() error {
	var errs []error
	for _, det := range d.detectors {
		if err := det.Close(); err != nil {
			log.Printf("Error closing %s detector: %v", det.GetDisplayServer(), err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
