package windows

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/actionsum/devtrack/pkg/integrations/process"
	"github.com/actionsum/devtrack/pkg/window"
)

const foregroundScript = `
Add-Type @"
using System;
using System.Text;
using System.Runtime.InteropServices;
public class Fg {
	[DllImport("user32.dll")] public static extern IntPtr GetForegroundWindow();
	[DllImport("user32.dll")] public static extern int GetWindowText(IntPtr h, StringBuilder s, int n);
	[DllImport("user32.dll")] public static extern uint GetWindowThreadProcessId(IntPtr h, out uint pid);
}
"@
$h = [Fg]::GetForegroundWindow()
$sb = New-Object System.Text.StringBuilder 1024
[void][Fg]::GetWindowText($h, $sb, $sb.Capacity)
$procId = 0
[void][Fg]::GetWindowThreadProcessId($h, [ref]$procId)
$name = (Get-Process -Id $procId -ErrorAction SilentlyContinue).ProcessName
Write-Output ("{0}|||{1}|||{2}" -f $name, $procId, $sb.ToString())
`

// Detector implements window.Detector for Windows through PowerShell.
type Detector struct {
	shell string
}

// NewDetector creates a new Windows detector
func NewDetector() *Detector {
	d := &Detector{}
	for _, shell := range []string{"powershell.exe", "pwsh.exe", "pwsh"} {
		if process.CommandExists(shell) {
			d.shell = shell
			break
		}
	}
	return d
}

// IsAvailable checks if PowerShell is present
func (d *Detector) IsAvailable() bool {
	return d.shell != ""
}

// GetDisplayServer returns "windows"
func (d *Detector) GetDisplayServer() string {
	return "windows"
}

// GetFocusedWindow returns the foreground window and its owning process.
func (d *Detector) GetFocusedWindow(ctx context.Context) (*window.WindowInfo, error) {
	if d.shell == "" {
		return nil, fmt.Errorf("powershell not available")
	}
	out, err := process.Output(ctx, d.shell, "-NoProfile", "-NonInteractive", "-Command", foregroundScript)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreground window: %w", err)
	}
	return parseForeground(string(out))
}

// parseForeground parses "process|||pid|||title".
func parseForeground(output string) (*window.WindowInfo, error) {
	parts := strings.SplitN(strings.TrimRight(output, "\r\n"), "|||", 3)
	if len(parts) != 3 || strings.TrimSpace(parts[0]) == "" {
		return nil, fmt.Errorf("unexpected powershell output %q", strings.TrimSpace(output))
	}

	pid, _ := strconv.Atoi(strings.TrimSpace(parts[1]))
	name := strings.TrimSpace(parts[0])
	return &window.WindowInfo{
		AppName:       name,
		WindowTitle:   parts[2],
		ProcessName:   name,
		PID:           pid,
		DisplayServer: "windows",
	}, nil
}

// GetIdleInfo reports the idle signal as unsupported.
func (d *Detector) GetIdleInfo(ctx context.Context) (*window.IdleInfo, error) {
	return window.Unsupported(), nil
}

// Close cleans up resources
func (d *Detector) Close() error {
	return nil
}
