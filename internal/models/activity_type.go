package models

import "fmt"

// ActivityType is the closed set of categories an activity interval can carry.
type ActivityType string

const (
	ActivityCode          ActivityType = "code"
	ActivityBuild         ActivityType = "build"
	ActivityTest          ActivityType = "test"
	ActivityDebug         ActivityType = "debug"
	ActivityBrowsing      ActivityType = "browsing"
	ActivityResearch      ActivityType = "research"
	ActivityCommunication ActivityType = "communication"
	ActivityDesign        ActivityType = "design"
	ActivityDocument      ActivityType = "document"
	ActivityOther         ActivityType = "other"
)

// ActivityTypes lists every valid activity type in schema order.
var ActivityTypes = []ActivityType{
	ActivityCode,
	ActivityBuild,
	ActivityTest,
	ActivityDebug,
	ActivityBrowsing,
	ActivityResearch,
	ActivityCommunication,
	ActivityDesign,
	ActivityDocument,
	ActivityOther,
}

// Valid reports whether t is one of the ten known activity types.
func (t ActivityType) Valid() bool {
	for _, known := range ActivityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseActivityType converts s to an ActivityType, rejecting unknown values.
func ParseActivityType(s string) (ActivityType, error) {
	t := ActivityType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown activity type %q", s)
	}
	return t, nil
}

func (t ActivityType) String() string {
	return string(t)
}
