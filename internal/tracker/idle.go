package tracker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/actionsum/devtrack/pkg/window"
)

// IdleTracker reports time since the last user input and the lock state.
type IdleTracker interface {
	Idle(ctx context.Context) (*window.IdleInfo, error)
}

type detectorIdle struct {
	detector window.Detector
	call     deadlineCall
	once     sync.Once
}

// NewIdleTracker reads idle state from the window detector. A platform
// without an idle signal is reported as never idle, and so is a query that
// does not answer within timeout.
func NewIdleTracker(detector window.Detector, timeout time.Duration) IdleTracker {
	return &detectorIdle{
		detector: detector,
		call:     deadlineCall{name: "idle query", timeout: timeout},
	}
}

// Idle never returns a nil info and never blocks past the timeout. On
// failure the unsupported report is returned together with the error.
func (d *detectorIdle) Idle(ctx context.Context) (*window.IdleInfo, error) {
	info, err := callWithin(ctx, &d.call, d.detector.GetIdleInfo)
	if err != nil {
		return window.Unsupported(), err
	}
	if info == nil {
		info = window.Unsupported()
	}
	if !info.Supported {
		d.once.Do(func() {
			log.Printf("No idle signal on %s, idle detection disabled", d.detector.GetDisplayServer())
		})
	}
	return info, nil
}
