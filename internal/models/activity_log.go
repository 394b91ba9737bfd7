package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// MinDurationSeconds is the shortest interval that is ever persisted.
const MinDurationSeconds = 5

// ActivityLog is one closed activity interval. Rows are append-only.
type ActivityLog struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	ProjectID       *string        `gorm:"index" json:"project_id,omitempty"`
	AppName         string         `gorm:"not null;index" json:"app_name"`
	WindowTitle     string         `gorm:"not null" json:"window_title"`
	FilePath        string         `json:"file_path,omitempty"`
	ActivityType    ActivityType   `gorm:"not null;index" json:"activity_type"`
	DurationSeconds int64          `gorm:"not null" json:"duration_seconds"`
	StartedAt       time.Time      `gorm:"not null;index" json:"started_at"`
	EndedAt         time.Time      `gorm:"not null" json:"ended_at"`
	IsIdle          bool           `gorm:"not null;default:false" json:"is_idle"`
	Metadata        map[string]any `gorm:"serializer:json" json:"metadata,omitempty"`
}

// DurationBetween returns the whole seconds elapsed between start and end,
// truncated toward zero at millisecond resolution.
func DurationBetween(start, end time.Time) int64 {
	ms := end.Sub(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms / 1000
}

// BeforeCreate rejects rows that would violate the activity_logs constraints
// before they reach the database.
func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if !a.ActivityType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownActivityType, a.ActivityType)
	}
	if a.EndedAt.Before(a.StartedAt) {
		return fmt.Errorf("%w: ended before it started (%s < %s)", ErrBadInterval, a.EndedAt, a.StartedAt)
	}
	if want := DurationBetween(a.StartedAt, a.EndedAt); a.DurationSeconds != want {
		return fmt.Errorf("%w: duration_seconds %d does not match interval (%d)", ErrBadInterval, a.DurationSeconds, want)
	}
	if a.DurationSeconds < MinDurationSeconds {
		return fmt.Errorf("%w: %ds", ErrTooShort, a.DurationSeconds)
	}
	a.StartedAt = a.StartedAt.UTC()
	a.EndedAt = a.EndedAt.UTC()
	return nil
}

// Duration returns the interval length as a time.Duration.
func (a *ActivityLog) Duration() time.Duration {
	return time.Duration(a.DurationSeconds) * time.Second
}
