package models

import "time"

// Summary is one aggregated bucket of tracked time.
type Summary struct {
	Key          string  `json:"key"`
	Label        string  `json:"label"`
	TotalSeconds int64   `json:"total_seconds"`
	TotalMinutes float64 `json:"total_minutes"`
	TotalHours   float64 `json:"total_hours"`
	SessionCount int     `json:"session_count"`
	Percentage   float64 `json:"percentage,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period       ReportPeriod `json:"period"`
	ByType       []Summary    `json:"by_type"`
	ByProject    []Summary    `json:"by_project"`
	ByApp        []Summary    `json:"by_app"`
	TotalSeconds int64        `json:"total_seconds"`
	TotalMinutes float64      `json:"total_minutes"`
	TotalHours   float64      `json:"total_hours"`
	GeneratedAt  time.Time    `json:"generated_at"`
}
