package classifier

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/actionsum/devtrack/pkg/utils"
)

// titlePattern extracts a file hint from one family of window titles.
// file is the capture group holding the file; dir, when non-zero, holds a
// directory the file should be joined onto; workspace holds a project name.
type titlePattern struct {
	name      string
	re        *regexp.Regexp
	file      int
	dir       int
	workspace int
}

const sep = `\s[-–—]\s`

// titlePatterns is tried in order; editor conventions first, the generic
// trailing "name.ext" fallback last.
var titlePatterns = []titlePattern{
	{
		name:      "vscode",
		re:        regexp.MustCompile(`^[●•*]?\s*([^\s/\\]+\.\w+)` + sep + `(.+?)` + sep + `(?:Visual Studio Code|Code - OSS|VSCodium|Cursor|Code)(?:\s.*)?$`),
		file:      1,
		workspace: 2,
	},
	{
		name:      "jetbrains",
		re:        regexp.MustCompile(`^(\S+)\s[–—]\s(\S+\.\w+)(?:\s\[.*\])?$`),
		file:      2,
		workspace: 1,
	},
	{
		name: "sublime",
		re:   regexp.MustCompile(`^(.+?\.\w+)(?:\s\(.+\))?(?:\s•)?` + sep + `Sublime Text`),
		file: 1,
	},
	{
		name: "vim",
		re:   regexp.MustCompile(`^(\S+\.\w+)(?:\s[+=-]+)?\s\((.+)\)` + sep + `N?VIM\d*$`),
		file: 1,
		dir:  2,
	},
	{
		name: "emacs",
		re:   regexp.MustCompile(`^(\S+\.\w+)` + sep + `(?:GNU\s)?Emacs`),
		file: 1,
	},
	{
		name: "absolute",
		re:   regexp.MustCompile(`((?:~/|/|[A-Za-z]:\\)[^\s:*?"<>|]*\.[A-Za-z0-9]{1,10})\b`),
		file: 1,
	},
	{
		name: "trailing",
		re:   regexp.MustCompile(`([^\s/\\]+\.[A-Za-z0-9]{1,10})$`),
		file: 1,
	},
}

// ExtractFilePath returns the file hinted at by a window title, or "" when no
// pattern matches. The trailing-name fallback also fires on titles that merely
// end in "word.ext" without any open file.
func ExtractFilePath(windowTitle string) string {
	title := strings.TrimSpace(windowTitle)
	if title == "" {
		return ""
	}

	for _, p := range titlePatterns {
		m := p.re.FindStringSubmatch(title)
		if m == nil {
			continue
		}
		file := m[p.file]
		if p.dir > 0 && m[p.dir] != "" {
			return filepath.Join(utils.ExpandHome(m[p.dir]), file)
		}
		return utils.ExpandHome(file)
	}
	return ""
}

// ExtractWorkspace returns the workspace or project name that editor titles
// carry next to the file name, or "".
func ExtractWorkspace(windowTitle string) string {
	title := strings.TrimSpace(windowTitle)
	for _, p := range titlePatterns {
		if p.workspace == 0 {
			continue
		}
		if m := p.re.FindStringSubmatch(title); m != nil {
			return strings.TrimSpace(m[p.workspace])
		}
	}
	return ""
}
