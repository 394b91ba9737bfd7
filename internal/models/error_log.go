package models

import (
	"time"
)

// ErrorLog records a sensing or storage failure observed by the monitor.
type ErrorLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	Source    string    `gorm:"not null" json:"source"` // "probe", "idle", "store"
	ErrorMsg  string    `gorm:"not null" json:"error_msg"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
