package detector

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestPlanFor(t *testing.T) {
	tests := []struct {
		name        string
		goos        string
		server      string
		hasXDisplay bool
		want        Plan
	}{
		{
			name: "macOS ignores display env",
			goos: "darwin", server: "x11", hasXDisplay: true,
			want: Plan{Backends: []Backend{BackendDarwin}},
		},
		{
			name: "windows",
			goos: "windows", server: "unknown",
			want: Plan{Backends: []Backend{BackendWindows}},
		},
		{
			name: "wayland with xwayland falls back to x11",
			goos: "linux", server: "wayland", hasXDisplay: true,
			want: Plan{Backends: []Backend{BackendWayland, BackendX11}, SessionLock: true},
		},
		{
			name: "pure wayland",
			goos: "linux", server: "wayland",
			want: Plan{Backends: []Backend{BackendWayland}, SessionLock: true},
		},
		{
			name: "x11",
			goos: "linux", server: "x11", hasXDisplay: true,
			want: Plan{Backends: []Backend{BackendX11}, SessionLock: true},
		},
		{
			name: "bsd x11",
			goos: "freebsd", server: "x11", hasXDisplay: true,
			want: Plan{Backends: []Backend{BackendX11}, SessionLock: true},
		},
		{
			name: "headless linux",
			goos: "linux", server: "unknown",
			want: Plan{SessionLock: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanFor(tt.goos, tt.server, tt.hasXDisplay)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("PlanFor(%q, %q, %v) = %+v, want %+v", tt.goos, tt.server, tt.hasXDisplay, got, tt.want)
			}
		})
	}
}

func TestDetectDisplayServer(t *testing.T) {
	tests := []struct {
		name           string
		sessionType    string
		waylandDisplay string
		x11Display     string
		want           string
	}{
		{"wayland session", "wayland", "wayland-0", "", "wayland"},
		{"wayland session with xwayland", "wayland", "wayland-0", ":0", "wayland"},
		{"x11 session", "x11", "", ":0", "x11"},
		{"wayland display only", "", "wayland-1", "", "wayland"},
		{"x11 display only", "", "", ":1", "x11"},
		{"tty", "tty", "", "", "unknown"},
		{"nothing set", "", "", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_SESSION_TYPE", tt.sessionType)
			t.Setenv("WAYLAND_DISPLAY", tt.waylandDisplay)
			t.Setenv("DISPLAY", tt.x11Display)

			if got := DetectDisplayServer(); got != tt.want {
				t.Errorf("DetectDisplayServer() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewWithoutDisplay(t *testing.T) {
	t.Setenv("XDG_SESSION_TYPE", "")
	t.Setenv("WAYLAND_DISPLAY", "")
	t.Setenv("DISPLAY", "")

	det, err := New()
	if err != nil {
		// The chain is empty on a headless Linux host.
		if det != nil {
			t.Errorf("New() returned a detector alongside error %v", err)
		}
		return
	}
	t.Logf("New() found a backend without display env: %s", det.GetDisplayServer())
	det.Close()
}

func TestNew(t *testing.T) {
	det, err := New()
	if err != nil {
		t.Skipf("No window detector on this host: %v", err)
	}
	defer det.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if info, err := det.GetFocusedWindow(ctx); err != nil {
		t.Logf("GetFocusedWindow() error: %v", err)
	} else {
		t.Logf("Current window: %s - %s (%s)", info.AppName, info.WindowTitle, info.DisplayServer)
	}

	if idle, err := det.GetIdleInfo(ctx); err != nil {
		t.Logf("GetIdleInfo() error: %v", err)
	} else if idle == nil {
		t.Error("GetIdleInfo() returned nil info without error")
	} else {
		t.Logf("Idle state: idle=%v, supported=%v, locked=%v", idle.IdleTime, idle.Supported, idle.IsLocked)
	}
}
