package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withConfigFile points the CLI at a config file naming a private PID file.
func withConfigFile(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	pidFile := filepath.Join(dir, "custom.pid")
	cfgFile := filepath.Join(dir, "config.yaml")
	content := "database:\n  path: " + filepath.Join(dir, "test.db") + "\n" +
		"daemon:\n  pid_file: " + pidFile + "\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0o644))

	t.Setenv("DEVTRACK_CONFIG", cfgFile)
	t.Setenv("DEVTRACK_PID_FILE", "")
	return pidFile
}

func TestLoadDaemonUsesConfigFile(t *testing.T) {
	pidFile := withConfigFile(t)

	cfg, dm, err := loadDaemon()
	require.NoError(t, err)
	assert.Equal(t, pidFile, cfg.Daemon.PIDFile)
	assert.Equal(t, pidFile, dm.PIDFile())
}

func TestStopReadsConfiguredPIDFile(t *testing.T) {
	pidFile := withConfigFile(t)

	// Only the configured file is unreadable as a PID, so an error shows
	// stop looked there rather than at the default path.
	require.NoError(t, os.WriteFile(pidFile, []byte("not-a-pid"), 0o644))

	cmd := stopCmd()
	err := cmd.RunE(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PID")
}
