package classifier

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractFilePath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"vscode", "main.ts - proj - Visual Studio Code", "main.ts"},
		{"vscode dirty", "● handler.go - api - Visual Studio Code", "handler.go"},
		{"vscode em dash", "index.tsx — web — Visual Studio Code", "index.tsx"},
		{"cursor", "app.py - ml - Cursor", "app.py"},
		{"jetbrains", "devtrack – resolver.go", "resolver.go"},
		{"jetbrains nested", "devtrack – internal/project/resolver.go [devtrack]", "internal/project/resolver.go"},
		{"sublime", "/srv/app/server.rb (app) - Sublime Text", "/srv/app/server.rb"},
		{"vim", "main.go + (/home/dev/src) - NVIM", "/home/dev/src/main.go"},
		{"emacs", "init.el - GNU Emacs at laptop", "init.el"},
		{"absolute path", "/home/dev/proj/README.md - Kate", "/home/dev/proj/README.md"},
		{"home path", "~/notes/todo.md", filepath.Join(home, "notes/todo.md")},
		{"bare file", "main.ts", "main.ts"},
		{"no file", "localhost:3000", ""},
		{"plain title", "Inbox - Mail", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractFilePath(tt.title); got != tt.want {
				t.Errorf("ExtractFilePath(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestExtractFilePathIdempotent(t *testing.T) {
	for _, name := range []string{"main.ts", "Cargo.toml", "index.d.ts", "Makefile.am"} {
		first := ExtractFilePath(name)
		if first != name {
			t.Errorf("ExtractFilePath(%q) = %q, want %q", name, first, name)
			continue
		}
		if second := ExtractFilePath(first); second != first {
			t.Errorf("ExtractFilePath(%q) = %q, want %q", first, second, first)
		}
	}
}

// Any title ending in "word.ext" yields a file, even when no file is open.
func TestExtractFilePathTrailingMisfire(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Welcome to example.com", "example.com"},
		{"Release notes for v1.2", "v1.2"},
	}

	for _, tt := range tests {
		if got := ExtractFilePath(tt.title); got != tt.want {
			t.Errorf("ExtractFilePath(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestExtractWorkspace(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"main.ts - proj - Visual Studio Code", "proj"},
		{"devtrack – resolver.go", "devtrack"},
		{"main.ts", ""},
		{"Inbox - Mail", ""},
	}

	for _, tt := range tests {
		if got := ExtractWorkspace(tt.title); got != tt.want {
			t.Errorf("ExtractWorkspace(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
