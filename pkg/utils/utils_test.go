package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFormatRoundedUnit(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{59, "59s"},
		{60, "1m"},
		{3599, "59m"},
		{3600, "1h"},
		{7300, "2h"},
		{-30, "30s"},
	}

	for _, tt := range tests {
		if got := FormatRoundedUnit(tt.seconds); got != tt.want {
			t.Errorf("FormatRoundedUnit(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{45, "45s"},
		{750, "12m 30s"},
		{3900, "1h 05m"},
		{-1, "0s"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := ExpandHome("~/src"); got != filepath.Join(home, "src") {
		t.Errorf("ExpandHome(~/src) = %q", got)
	}
	if got := ExpandHome("/etc/hosts"); got != "/etc/hosts" {
		t.Errorf("absolute path changed: %q", got)
	}
	if got := ExpandHome("~user/src"); got != "~user/src" {
		t.Errorf("~user form should be left alone: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("a long window title", 10); got != "a long ..." {
		t.Errorf("got %q", got)
	}
}
