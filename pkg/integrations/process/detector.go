package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// procRoot is the procfs mount point.
var procRoot = "/proc"

// CommandExists checks if a command is available in PATH
func CommandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// Output runs a short-lived query command bound to ctx and returns its
// standard output.
func Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", name, ctx.Err())
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Running reports whether a process with exactly this name exists.
func Running(ctx context.Context, name string) bool {
	return exec.CommandContext(ctx, "pgrep", "-x", name).Run() == nil
}

// NameForPID returns the executable name of pid, or "" when it cannot be
// determined. procfs is preferred; ps is the fallback on systems without it.
func NameForPID(ctx context.Context, pid int) string {
	if pid <= 0 {
		return ""
	}

	if data, err := os.ReadFile(filepath.Join(procRoot, strconv.Itoa(pid), "comm")); err == nil {
		if name := strings.TrimSpace(string(data)); name != "" {
			return name
		}
	}
	if data, err := os.ReadFile(filepath.Join(procRoot, strconv.Itoa(pid), "stat")); err == nil {
		if name := parseStatName(string(data)); name != "" {
			return name
		}
	}

	out, err := Output(ctx, "ps", "-p", strconv.Itoa(pid), "-o", "comm=")
	if err != nil {
		return ""
	}
	return filepath.Base(strings.TrimSpace(string(out)))
}

// parseStatName extracts the command name from /proc/<pid>/stat. The name is
// parenthesised and may itself contain spaces or parentheses.
func parseStatName(stat string) string {
	start := strings.Index(stat, "(")
	end := strings.LastIndex(stat, ")")
	if start == -1 || end <= start {
		return ""
	}
	return stat[start+1 : end]
}
