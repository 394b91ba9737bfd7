package detector

import (
	"context"
	"os"
	"runtime"

	"github.com/actionsum/devtrack/pkg/integrations/darwin"
	"github.com/actionsum/devtrack/pkg/integrations/hybrid"
	"github.com/actionsum/devtrack/pkg/integrations/wayland"
	"github.com/actionsum/devtrack/pkg/integrations/windows"
	"github.com/actionsum/devtrack/pkg/integrations/x11"
	"github.com/actionsum/devtrack/pkg/window"
)

// Backend names a platform detector in a chain.
type Backend string

const (
	BackendX11     Backend = "x11"
	BackendWayland Backend = "wayland"
	BackendDarwin  Backend = "darwin"
	BackendWindows Backend = "windows"
)

// Plan is the detector chain chosen for a platform, in fallback order.
type Plan struct {
	Backends []Backend
	// SessionLock asks logind for the lock state on top of the backends.
	SessionLock bool
}

// PlanFor picks the chain for an OS and display server. hasXDisplay reports
// whether an X display is reachable, which under Wayland means XWayland.
func PlanFor(goos, displayServer string, hasXDisplay bool) Plan {
	switch goos {
	case "darwin":
		return Plan{Backends: []Backend{BackendDarwin}}
	case "windows":
		return Plan{Backends: []Backend{BackendWindows}}
	}

	// Linux and the BSDs. Wayland sessions usually run XWayland as well, so
	// X11 stays in the chain as the fallback.
	p := Plan{SessionLock: true}
	switch displayServer {
	case "wayland":
		p.Backends = append(p.Backends, BackendWayland)
		if hasXDisplay {
			p.Backends = append(p.Backends, BackendX11)
		}
	case "x11":
		p.Backends = append(p.Backends, BackendX11)
	}
	return p
}

// New returns the window detector chain for the current platform.
func New() (window.Detector, error) {
	plan := PlanFor(runtime.GOOS, DetectDisplayServer(), os.Getenv("DISPLAY") != "")

	chain := make([]window.Detector, 0, len(plan.Backends))
	for _, b := range plan.Backends {
		chain = append(chain, newBackend(b))
	}

	var lockCheck func(ctx context.Context) bool
	if plan.SessionLock {
		lockCheck = hybrid.SessionLocked
	}

	det, err := hybrid.NewDetector(lockCheck, chain...)
	if err != nil {
		return nil, err
	}
	return det, nil
}

func newBackend(b Backend) window.Detector {
	switch b {
	case BackendWayland:
		return wayland.NewDetector()
	case BackendDarwin:
		return darwin.NewDetector()
	case BackendWindows:
		return windows.NewDetector()
	default:
		return x11.NewDetector()
	}
}

// DetectDisplayServer reports the session's display server from the
// environment.
func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
