package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/actionsum/devtrack/pkg/window"
)

// ErrNoWindow is returned when the probe sees no usable focused window.
var ErrNoWindow = errors.New("no focused window")

// Probe samples the focused window within a deadline.
type Probe struct {
	detector window.Detector
	call     deadlineCall
}

func NewProbe(detector window.Detector, timeout time.Duration) *Probe {
	return &Probe{detector: detector, call: deadlineCall{name: "window probe", timeout: timeout}}
}

// Sample returns the focused window as seen at now. Detectors that ignore
// ctx are abandoned once the timeout passes, and the probe is skipped until
// the abandoned call returns.
func (p *Probe) Sample(ctx context.Context, now time.Time) (*window.Sample, error) {
	info, err := callWithin(ctx, &p.call, p.detector.GetFocusedWindow)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrInFlight) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get focused window: %w", err)
	}
	if info == nil || strings.TrimSpace(info.AppName) == "" {
		return nil, ErrNoWindow
	}

	s := info.Sample(now)
	return &s, nil
}
