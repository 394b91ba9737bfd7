package hybrid

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/actionsum/devtrack/pkg/window"
)

type stubDetector struct {
	name      string
	available bool
	info      *window.WindowInfo
	err       error
	idle      *window.IdleInfo
	idleErr   error
	closed    bool
}

func (s *stubDetector) GetFocusedWindow(ctx context.Context) (*window.WindowInfo, error) {
	return s.info, s.err
}

func (s *stubDetector) GetIdleInfo(ctx context.Context) (*window.IdleInfo, error) {
	if s.idle == nil && s.idleErr == nil {
		return window.Unsupported(), nil
	}
	return s.idle, s.idleErr
}

func (s *stubDetector) IsAvailable() bool        { return s.available }
func (s *stubDetector) GetDisplayServer() string { return s.name }
func (s *stubDetector) Close() error             { s.closed = true; return nil }

func TestNewDetector_SkipsUnavailable(t *testing.T) {
	off := &stubDetector{name: "wayland"}
	on := &stubDetector{name: "x11", available: true}

	d, err := NewDetector(nil, off, on)
	if err != nil {
		t.Fatalf("NewDetector() error: %v", err)
	}
	if got := d.GetDisplayServer(); got != "x11" {
		t.Errorf("GetDisplayServer() = %s, want x11", got)
	}
	if !off.closed {
		t.Error("unavailable detector was not closed")
	}
}

func TestNewDetector_NoneAvailable(t *testing.T) {
	if _, err := NewDetector(nil, &stubDetector{name: "x11"}); err == nil {
		t.Error("expected error when no detector is available")
	}
}

func TestGetFocusedWindow_FallsBack(t *testing.T) {
	primary := &stubDetector{name: "wayland", available: true, err: errors.New("Shell.Eval blocked")}
	secondary := &stubDetector{name: "x11", available: true, info: &window.WindowInfo{AppName: "Code", WindowTitle: "main.go"}}

	d, err := NewDetector(nil, primary, secondary)
	if err != nil {
		t.Fatal(err)
	}

	info, err := d.GetFocusedWindow(context.Background())
	if err != nil {
		t.Fatalf("GetFocusedWindow() error: %v", err)
	}
	if info.AppName != "Code" {
		t.Errorf("AppName = %s, want Code", info.AppName)
	}
	if !strings.Contains(d.GetStatus(), "Last successful method: x11") {
		t.Errorf("status does not record fallback:\n%s", d.GetStatus())
	}
}

func TestGetFocusedWindow_RejectsUnknown(t *testing.T) {
	only := &stubDetector{name: "x11", available: true, info: &window.WindowInfo{AppName: "Unknown"}}
	d, _ := NewDetector(nil, only)

	if _, err := d.GetFocusedWindow(context.Background()); err == nil {
		t.Error("expected error for Unknown app")
	}
}

func TestGetIdleInfo(t *testing.T) {
	tests := []struct {
		name       string
		detectors  []*stubDetector
		lock       bool
		wantIdle   time.Duration
		wantLocked bool
		wantSup    bool
		wantErr    bool
	}{
		{
			name: "first supported wins",
			detectors: []*stubDetector{
				{name: "wayland", available: true},
				{name: "x11", available: true, idle: &window.IdleInfo{IdleTime: 42 * time.Second, Supported: true}},
			},
			wantIdle: 42 * time.Second,
			wantSup:  true,
		},
		{
			name:       "session lock folded in",
			detectors:  []*stubDetector{{name: "wayland", available: true}},
			lock:       true,
			wantLocked: true,
		},
		{
			name:      "unsupported everywhere",
			detectors: []*stubDetector{{name: "windows", available: true}},
		},
		{
			name:      "error without any signal",
			detectors: []*stubDetector{{name: "x11", available: true, idleErr: errors.New("no display")}},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dets []window.Detector
			for _, s := range tt.detectors {
				dets = append(dets, s)
			}
			lock := tt.lock
			d, err := NewDetector(func(context.Context) bool { return lock }, dets...)
			if err != nil {
				t.Fatal(err)
			}

			info, err := d.GetIdleInfo(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetIdleInfo() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if info.IdleTime != tt.wantIdle || info.IsLocked != tt.wantLocked || info.Supported != tt.wantSup {
				t.Errorf("GetIdleInfo() = %+v", info)
			}
		})
	}
}

func TestSessionLocked(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	t.Logf("Session locked: %v", SessionLocked(ctx))
}
