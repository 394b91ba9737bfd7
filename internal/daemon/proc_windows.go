//go:build windows

package daemon

import (
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

func alive(pid int) bool {
	out, err := exec.Command("tasklist", "/FI", "PID eq "+strconv.Itoa(pid), "/NH").Output()
	if err != nil {
		return false
	}
	return strings.Contains(string(out), strconv.Itoa(pid))
}

func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{HideWindow: true}
}
