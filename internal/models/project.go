package models

import (
	"hash/fnv"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project is a detected software project rooted at a unique directory.
type Project struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Path         string    `gorm:"not null;uniqueIndex" json:"path"`
	GitRemoteURL string    `json:"git_remote_url,omitempty"`
	Tags         []string  `gorm:"serializer:json" json:"tags"`
	Color        string    `json:"color"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

var projectPalette = []string{
	"#3b82f6", "#10b981", "#f59e0b", "#ef4444", "#8b5cf6",
	"#ec4899", "#14b8a6", "#f97316", "#6366f1", "#84cc16",
}

// ColorFor picks a stable display color for a project path.
func ColorFor(path string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(filepath.Clean(path)))
	return projectPalette[h.Sum32()%uint32(len(projectPalette))]
}

// BeforeCreate assigns an ID and display color when missing.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Color == "" {
		p.Color = ColorFor(p.Path)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return nil
}
