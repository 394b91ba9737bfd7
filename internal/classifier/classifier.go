// Package classifier maps a foreground window onto an activity category and
// pulls file and workspace hints out of its title.
package classifier

import (
	"strings"

	"github.com/actionsum/devtrack/internal/models"
)

// Classify returns the activity type for a window. It never fails: unknown
// or empty input yields models.ActivityOther.
func Classify(appName, windowTitle string) models.ActivityType {
	t, _ := ClassifyWithGroup(appName, windowTitle)
	return t
}

// ClassifyWithGroup is Classify that also reports which rule group matched,
// or "" when the fallback applied.
func ClassifyWithGroup(appName, windowTitle string) (models.ActivityType, string) {
	app := normalize(appName)
	title := normalize(windowTitle)
	if app == "" {
		return models.ActivityOther, ""
	}

	for _, r := range rules {
		if r.Match(app) {
			return r.Type(title), r.Group
		}
	}
	return models.ActivityOther, ""
}

// Groups returns the rule group names in evaluation order.
func Groups() []string {
	groups := make([]string, len(rules))
	for i, r := range rules {
		groups[i] = r.Group
	}
	return groups
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
