package classifier

import (
	"strings"

	"github.com/actionsum/devtrack/internal/models"
)

// Rule is one entry of the ordered classification table. Match is evaluated
// against the lower-cased app name; Type decides the category from the
// lower-cased window title once the rule has matched.
type Rule struct {
	Group string
	Match func(app string) bool
	Type  func(title string) models.ActivityType
}

// keywords is a substring list; names holds entries that must equal the whole
// app name because they are too short to match safely as substrings.
type keywords struct {
	contains []string
	names    []string
}

func (k keywords) matches(s string) bool {
	for _, name := range k.names {
		if s == name {
			return true
		}
	}
	return containsAny(s, k.contains)
}

func containsAny(s string, list []string) bool {
	for _, kw := range list {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func always(t models.ActivityType) func(string) models.ActivityType {
	return func(string) models.ActivityType { return t }
}

var (
	editorApps = keywords{
		contains: []string{
			"visual studio", "vscode", "vscodium", "code", "cursor", "sublime", "atom",
			"intellij", "idea", "pycharm", "webstorm", "goland", "phpstorm", "rubymine",
			"clion", "rider", "datagrip", "android studio", "xcode", "neovim", "nvim",
			"vim", "emacs", "fleet", "textmate", "gedit", "kate", "notepad++", "eclipse",
			"netbeans",
		},
		names: []string{"zed", "nova", "helix", "hx"},
	}

	terminalApps = keywords{
		contains: []string{
			"terminal", "iterm", "alacritty", "kitty", "wezterm", "konsole", "tilix",
			"terminator", "xterm", "urxvt", "rxvt", "ghostty", "tmux", "powershell",
			"cmd.exe", "warp", "hyper",
		},
		names: []string{"st", "foot", "cmd"},
	}

	buildApps = keywords{
		contains: []string{
			"gradle", "maven", "jenkins", "bazel", "cmake", "msbuild", "xcodebuild",
			"buildkite", "circleci", "docker",
		},
	}

	debuggerApps = keywords{
		contains: []string{
			"debugger", "gdb", "lldb", "windbg", "x64dbg", "ollydbg", "wireshark",
			"charles", "proxyman", "postman", "insomnia",
		},
		names: []string{"ddd"},
	}

	browserApps = keywords{
		contains: []string{
			"chrome", "chromium", "firefox", "safari", "microsoft edge", "msedge",
			"brave", "opera", "vivaldi", "librewolf", "browser",
		},
		names: []string{"arc", "edge", "navigator"},
	}

	communicationApps = keywords{
		contains: []string{
			"slack", "discord", "teams", "zoom", "skype", "telegram", "signal",
			"whatsapp", "messages", "mail", "outlook", "thunderbird", "mattermost",
			"webex", "element",
		},
	}

	designApps = keywords{
		contains: []string{
			"figma", "sketch", "photoshop", "illustrator", "affinity", "gimp", "inkscape",
			"blender", "canva", "krita", "pixelmator", "framer", "zeplin", "adobe xd",
		},
	}

	documentApps = keywords{
		contains: []string{
			"word", "excel", "powerpoint", "pages", "numbers", "keynote", "libreoffice",
			"soffice", "notion", "obsidian", "evernote", "onenote", "acrobat", "typora",
			"logseq", "confluence", "preview",
		},
		names: []string{"bear"},
	}

	mediaApps = keywords{
		contains: []string{
			"spotify", "music", "vlc", "mpv", "itunes", "podcasts", "rhythmbox",
			"totem", "quicktime", "netflix",
		},
		names: []string{"tv"},
	}
)

// Title keyword lists consulted by the terminal and browser groups.
var (
	terminalBuildKeywords = []string{"build", "compile", "make", "webpack", "gradle", "mvn", "tsc", "bundle"}
	terminalTestKeywords  = []string{"test", "jest", "pytest", "mocha", "vitest", "rspec"}
	terminalDebugKeywords = []string{"debug", "gdb", "lldb", "dlv", "pdb"}

	devtoolsKeywords = []string{"devtools", "developer tools", "web inspector", "inspect element"}

	researchKeywords = []string{
		"stack overflow", "stackoverflow", "github", "gitlab", "bitbucket", "documentation",
		"docs", "mdn", "api reference", "reference", "tutorial", "guide", "how to",
		"wikipedia", "arxiv", "pkg.go.dev", "npmjs", "pypi", "crates.io", "readthedocs",
		"dev.to", "medium",
	}

	casualKeywords = []string{
		"youtube", "netflix", "twitch", "reddit", "twitter", "facebook", "instagram",
		"tiktok", "hulu", "prime video", "amazon", "ebay", "news",
	}
)

func terminalType(title string) models.ActivityType {
	switch {
	case containsAny(title, terminalBuildKeywords):
		return models.ActivityBuild
	case containsAny(title, terminalTestKeywords):
		return models.ActivityTest
	case containsAny(title, terminalDebugKeywords):
		return models.ActivityDebug
	}
	return models.ActivityCode
}

func browserType(title string) models.ActivityType {
	switch {
	case containsAny(title, devtoolsKeywords):
		return models.ActivityCode
	case containsAny(title, researchKeywords):
		return models.ActivityResearch
	case containsAny(title, casualKeywords):
		return models.ActivityBrowsing
	}
	return models.ActivityBrowsing
}

// rules is evaluated top to bottom and the first matching group wins.
// Reordering entries changes classification results.
var rules = []Rule{
	{Group: "editor", Match: editorApps.matches, Type: always(models.ActivityCode)},
	{Group: "terminal", Match: terminalApps.matches, Type: terminalType},
	{Group: "build", Match: buildApps.matches, Type: always(models.ActivityBuild)},
	{Group: "debugger", Match: debuggerApps.matches, Type: always(models.ActivityDebug)},
	{Group: "browser", Match: browserApps.matches, Type: browserType},
	{Group: "communication", Match: communicationApps.matches, Type: always(models.ActivityCommunication)},
	{Group: "design", Match: designApps.matches, Type: always(models.ActivityDesign)},
	{Group: "document", Match: documentApps.matches, Type: always(models.ActivityDocument)},
	{Group: "media", Match: mediaApps.matches, Type: always(models.ActivityBrowsing)},
}
