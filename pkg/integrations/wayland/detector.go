package wayland

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/actionsum/devtrack/pkg/integrations/process"
	"github.com/actionsum/devtrack/pkg/window"
)

// Detector implements window.Detector for Wayland
type Detector struct {
	compositor string
	hasSwaymsg bool
	hasHyprctl bool
	hasGdbus   bool
	hasQdbus   bool
	hasXprop   bool
}

// NewDetector creates a new Wayland detector
func NewDetector() *Detector {
	d := &Detector{
		hasSwaymsg: process.CommandExists("swaymsg"),
		hasHyprctl: process.CommandExists("hyprctl"),
		hasGdbus:   process.CommandExists("gdbus"),
		hasQdbus:   process.CommandExists("qdbus"),
		hasXprop:   process.CommandExists("xprop"),
	}
	d.compositor = detectCompositor(os.Getenv)
	return d
}

// compositorProcesses is checked in order when the environment is silent.
var compositorProcesses = []struct {
	process string
	name    string
}{
	{"sway", "sway"},
	{"Hyprland", "hyprland"},
	{"gnome-shell", "gnome"},
	{"kwin_wayland", "kde"},
	{"wayfire", "wayfire"},
	{"river", "river"},
}

// detectCompositor identifies the running compositor, from the session
// environment first and from the process table second.
func detectCompositor(getenv func(string) string) string {
	if name := compositorFromEnv(getenv); name != "" {
		return name
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, c := range compositorProcesses {
		if process.Running(ctx, c.process) {
			return c.name
		}
	}
	return "unknown"
}

func compositorFromEnv(getenv func(string) string) string {
	switch {
	case getenv("SWAYSOCK") != "":
		return "sway"
	case getenv("HYPRLAND_INSTANCE_SIGNATURE") != "":
		return "hyprland"
	}

	desktop := strings.ToLower(getenv("XDG_CURRENT_DESKTOP"))
	switch {
	case strings.Contains(desktop, "gnome"):
		return "gnome"
	case strings.Contains(desktop, "kde"):
		return "kde"
	case strings.Contains(desktop, "sway"):
		return "sway"
	case strings.Contains(desktop, "hyprland"):
		return "hyprland"
	}
	return ""
}

// IsAvailable checks if Wayland detection is available
func (d *Detector) IsAvailable() bool {
	switch d.compositor {
	case "sway":
		return d.hasSwaymsg
	case "hyprland":
		return d.hasHyprctl
	case "gnome":
		return d.hasGdbus
	case "kde":
		return d.hasQdbus
	default:
		return false
	}
}

// GetDisplayServer returns "wayland"
func (d *Detector) GetDisplayServer() string {
	return "wayland"
}

// GetFocusedWindow returns information about the currently focused window
func (d *Detector) GetFocusedWindow(ctx context.Context) (*window.WindowInfo, error) {
	var (
		info *window.WindowInfo
		err  error
	)

	switch d.compositor {
	case "sway":
		info, err = d.getFocusedWindowSway(ctx)
	case "hyprland":
		info, err = d.getFocusedWindowHyprland(ctx)
	case "gnome":
		info, err = d.getFocusedWindowGnome(ctx)
	case "kde":
		info, err = d.getFocusedWindowKDE(ctx)
	default:
		return nil, fmt.Errorf("unsupported wayland compositor: %s", d.compositor)
	}
	if err != nil {
		return nil, err
	}

	if info.PID > 0 {
		info.ProcessName = process.NameForPID(ctx, info.PID)
	}
	if info.ProcessName == "" {
		info.ProcessName = info.AppName
	}
	info.DisplayServer = "wayland"
	return info, nil
}

type swayNode struct {
	Focused          bool       `json:"focused"`
	Name             *string    `json:"name"`
	AppID            *string    `json:"app_id"`
	PID              int        `json:"pid"`
	WindowProperties *struct {
		Class string `json:"class"`
	} `json:"window_properties"`
	Nodes         []swayNode `json:"nodes"`
	FloatingNodes []swayNode `json:"floating_nodes"`
}

// getFocusedWindowSway gets focused window info from Sway
func (d *Detector) getFocusedWindowSway(ctx context.Context) (*window.WindowInfo, error) {
	out, err := process.Output(ctx, "swaymsg", "-t", "get_tree", "--raw")
	if err != nil {
		return nil, fmt.Errorf("failed to execute swaymsg: %w", err)
	}
	return parseSwayTree(out)
}

// parseSwayTree finds the focused leaf in a sway layout tree.
func parseSwayTree(data []byte) (*window.WindowInfo, error) {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse sway tree: %w", err)
	}

	node := findFocused(&root)
	if node == nil {
		return nil, fmt.Errorf("no focused window in sway tree")
	}

	appName := ""
	if node.AppID != nil {
		appName = *node.AppID
	}
	if appName == "" && node.WindowProperties != nil {
		appName = node.WindowProperties.Class
	}
	if appName == "" {
		appName = "Unknown"
	}
	title := ""
	if node.Name != nil {
		title = *node.Name
	}

	return &window.WindowInfo{
		AppName:     appName,
		WindowTitle: title,
		PID:         node.PID,
	}, nil
}

func findFocused(n *swayNode) *swayNode {
	if n.Focused {
		return n
	}
	for i := range n.Nodes {
		if f := findFocused(&n.Nodes[i]); f != nil {
			return f
		}
	}
	for i := range n.FloatingNodes {
		if f := findFocused(&n.FloatingNodes[i]); f != nil {
			return f
		}
	}
	return nil
}

// getFocusedWindowHyprland gets focused window info from Hyprland
func (d *Detector) getFocusedWindowHyprland(ctx context.Context) (*window.WindowInfo, error) {
	out, err := process.Output(ctx, "hyprctl", "activewindow", "-j")
	if err != nil {
		return nil, fmt.Errorf("failed to execute hyprctl: %w", err)
	}
	return parseHyprlandWindow(out)
}

// parseHyprlandWindow parses `hyprctl activewindow -j`.
func parseHyprlandWindow(data []byte) (*window.WindowInfo, error) {
	var w struct {
		Class        string `json:"class"`
		InitialClass string `json:"initialClass"`
		Title        string `json:"title"`
		PID          int    `json:"pid"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse hyprctl output: %w", err)
	}

	appName := w.Class
	if appName == "" {
		appName = w.InitialClass
	}
	if appName == "" {
		return nil, fmt.Errorf("no active hyprland window")
	}

	return &window.WindowInfo{
		AppName:     appName,
		WindowTitle: w.Title,
		PID:         w.PID,
	}, nil
}

const gnomeEvalScript = `
try {
	let win = global.get_window_actors().find(w => w.meta_window && w.meta_window.has_focus());
	if (win && win.meta_window) {
		(win.meta_window.get_wm_class() || 'Unknown') + '|||' + (win.meta_window.get_pid() || 0) + '|||' + (win.meta_window.get_title() || '');
	} else {
		'Unknown|||0|||';
	}
} catch(e) {
	'Unknown|||0|||';
}
`

// getFocusedWindowGnome gets focused window info from GNOME Shell via D-Bus
func (d *Detector) getFocusedWindowGnome(ctx context.Context) (*window.WindowInfo, error) {
	out, err := process.Output(ctx, "gdbus", "call", "--session",
		"--dest", "org.gnome.Shell",
		"--object-path", "/org/gnome/Shell",
		"--method", "org.gnome.Shell.Eval",
		gnomeEvalScript)
	if err == nil {
		if info, ok := parseGnomeEval(string(out)); ok {
			return info, nil
		}
	}

	// Shell.Eval is disabled on recent GNOME; XWayland windows are still
	// visible to xprop.
	if d.hasXprop {
		info, xErr := getFocusedWindowXWayland(ctx)
		if xErr == nil {
			return info, nil
		}
		return nil, fmt.Errorf("GNOME window detection failed: gdbus Shell.Eval blocked, xprop failed: %v", xErr)
	}
	return nil, fmt.Errorf("GNOME window detection failed: gdbus Shell.Eval blocked and xprop unavailable")
}

// parseGnomeEval parses "(true, 'Class|||pid|||Title')".
func parseGnomeEval(output string) (*window.WindowInfo, bool) {
	result := strings.TrimSpace(output)
	if !strings.HasPrefix(result, "(true,") {
		return nil, false
	}
	result = strings.TrimPrefix(result, "(true,")
	result = strings.TrimSuffix(strings.TrimSpace(result), ")")
	result = strings.Trim(strings.TrimSpace(result), `'"`)

	parts := strings.SplitN(result, "|||", 3)
	if len(parts) != 3 || parts[0] == "" || parts[0] == "Unknown" {
		return nil, false
	}

	pid, _ := strconv.Atoi(parts[1])
	return &window.WindowInfo{
		AppName:     parts[0],
		WindowTitle: parts[2],
		PID:         pid,
	}, true
}

var xpropWindowID = regexp.MustCompile(`#\s*(0x[0-9a-fA-F]+)`)

// getFocusedWindowXWayland uses the XWayland bridge
func getFocusedWindowXWayland(ctx context.Context) (*window.WindowInfo, error) {
	if os.Getenv("DISPLAY") == "" {
		return nil, fmt.Errorf("DISPLAY environment variable not set (XWayland not available)")
	}

	out, err := process.Output(ctx, "xprop", "-root", "_NET_ACTIVE_WINDOW")
	if err != nil {
		return nil, fmt.Errorf("failed to get active window from root: %w", err)
	}

	m := xpropWindowID.FindStringSubmatch(string(out))
	if m == nil || m[1] == "0x0" {
		return nil, fmt.Errorf("no active window found (focused window may be native Wayland)")
	}
	windowID := m[1]

	nameOut, _ := process.Output(ctx, "xprop", "-id", windowID, "_NET_WM_NAME")
	title := parseXPropString(string(nameOut))
	if title == "" {
		nameOut, _ = process.Output(ctx, "xprop", "-id", windowID, "WM_NAME")
		title = parseXPropString(string(nameOut))
	}

	classOut, _ := process.Output(ctx, "xprop", "-id", windowID, "WM_CLASS")
	appName := parseWMClass(string(classOut))
	if appName == "" {
		appName = "Unknown"
	}

	pid := 0
	if pidOut, err := process.Output(ctx, "xprop", "-id", windowID, "_NET_WM_PID"); err == nil {
		_, v, _ := strings.Cut(string(pidOut), "=")
		pid, _ = strconv.Atoi(strings.TrimSpace(v))
	}

	return &window.WindowInfo{
		AppName:     appName,
		WindowTitle: title,
		PID:         pid,
	}, nil
}

// parseXPropString parses xprop string output like: WM_NAME(STRING) = "title"
func parseXPropString(output string) string {
	_, value, ok := strings.Cut(output, "=")
	if !ok {
		return ""
	}
	return strings.Trim(strings.TrimSpace(value), "\"")
}

// parseWMClass extracts class from WM_CLASS output
func parseWMClass(output string) string {
	_, value, ok := strings.Cut(output, "=")
	if !ok {
		return ""
	}
	classes := strings.Split(strings.TrimSpace(value), ",")
	return strings.Trim(strings.TrimSpace(classes[len(classes)-1]), "\" ")
}

const kdeScript = `
var clients = workspace.clientList();
for (var i = 0; i < clients.length; i++) {
	if (clients[i].active) {
		print(clients[i].resourceClass + "|" + clients[i].pid + "|" + clients[i].caption);
	}
}
`

// getFocusedWindowKDE gets focused window info from KDE Plasma
func (d *Detector) getFocusedWindowKDE(ctx context.Context) (*window.WindowInfo, error) {
	out, err := process.Output(ctx, "qdbus", "org.kde.KWin", "/Scripting", "org.kde.kwin.Scripting.loadScript", kdeScript)
	if err != nil {
		return nil, fmt.Errorf("failed to query KDE window: %w", err)
	}

	parts := strings.SplitN(strings.TrimSpace(string(out)), "|", 3)
	info := &window.WindowInfo{AppName: "Unknown"}
	if len(parts) >= 1 && parts[0] != "" {
		info.AppName = parts[0]
	}
	if len(parts) >= 2 {
		info.PID, _ = strconv.Atoi(parts[1])
	}
	if len(parts) == 3 {
		info.WindowTitle = parts[2]
	}
	return info, nil
}

// GetIdleInfo returns system idle/lock information for Wayland. Only GNOME
// exposes an idle counter (Mutter IdleMonitor); elsewhere idle is reported
// as unsupported.
func (d *Detector) GetIdleInfo(ctx context.Context) (*window.IdleInfo, error) {
	info := &window.IdleInfo{IsLocked: isScreenLocked(ctx)}

	if d.compositor == "gnome" && d.hasGdbus {
		out, err := process.Output(ctx, "gdbus", "call", "--session",
			"--dest", "org.gnome.Mutter.IdleMonitor",
			"--object-path", "/org/gnome/Mutter/IdleMonitor/Core",
			"--method", "org.gnome.Mutter.IdleMonitor.GetIdletime")
		if err == nil {
			if idle, err := parseMutterIdle(string(out)); err == nil {
				info.IdleTime = idle
				info.Supported = true
			}
		}
	}
	return info, nil
}

var mutterIdle = regexp.MustCompile(`\(uint64\s+(\d+),?\)`)

// parseMutterIdle parses "(uint64 12345,)" in milliseconds.
func parseMutterIdle(output string) (time.Duration, error) {
	m := mutterIdle.FindStringSubmatch(strings.TrimSpace(output))
	if m == nil {
		return 0, fmt.Errorf("unexpected IdleMonitor output %q", strings.TrimSpace(output))
	}
	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

var lockers = []string{
	"swaylock",
	"waylock",
	"gtklock",
	"hyprlock",
	"gnome-screensaver-dialog",
}

// isScreenLocked checks if screen is locked
func isScreenLocked(ctx context.Context) bool {
	for _, locker := range lockers {
		if process.Running(ctx, locker) {
			return true
		}
	}

	if out, err := process.Output(ctx, "loginctl", "show-session", "-p", "LockedHint"); err == nil {
		if strings.Contains(string(out), "LockedHint=yes") {
			return true
		}
	}
	return false
}

// Close cleans up resources
func (d *Detector) Close() error {
	return nil
}
