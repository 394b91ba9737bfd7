package session

import (
	"time"

	"github.com/actionsum/devtrack/internal/models"
)

// Activity is one classified and resolved window sample.
type Activity struct {
	AppName     string              `json:"app_name"`
	WindowTitle string              `json:"window_title"`
	PID         int                 `json:"pid,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
	Type        models.ActivityType `json:"activity_type"`
	FilePath    string              `json:"file_path,omitempty"`
	ProjectPath string              `json:"project_path,omitempty"`
	ProjectID   string              `json:"project_id,omitempty"`
}

// Key is the identity of an activity. Two samples with equal keys belong to
// the same session; comparison is exact.
type Key struct {
	AppName     string
	WindowTitle string
	Type        models.ActivityType
	ProjectPath string
}

// Key returns the session identity of a.
func (a Activity) Key() Key {
	return Key{
		AppName:     a.AppName,
		WindowTitle: a.WindowTitle,
		Type:        a.Type,
		ProjectPath: a.ProjectPath,
	}
}

// Session is the interval currently accumulating.
type Session struct {
	ID        string    `json:"id"`
	Activity  Activity  `json:"activity"`
	StartedAt time.Time `json:"started_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// Elapsed is the session length as of t.
func (s *Session) Elapsed(t time.Time) time.Duration {
	if t.Before(s.StartedAt) {
		return 0
	}
	return t.Sub(s.StartedAt)
}

// State of the assembler.
type State int

const (
	StateIdle State = iota
	StateTracking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTracking:
		return "tracking"
	default:
		return "unknown"
	}
}

// Reason records why a session was closed.
type Reason string

const (
	ReasonSwitch  Reason = "switch"
	ReasonIdle    Reason = "idle"
	ReasonLock    Reason = "lock"
	ReasonSuspend Reason = "suspend"
	ReasonStop    Reason = "stop"
)
