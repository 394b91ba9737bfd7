package database

import (
	"context"
	"time"

	"github.com/actionsum/devtrack/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles all database operations for activity logs and projects.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// InsertActivity appends a closed activity interval.
func (r *Repository) InsertActivity(ctx context.Context, activity *models.ActivityLog) error {
	err := r.db.withRetry(ctx, func(tx *gorm.DB) error {
		return tx.Create(activity).Error
	})
	if err != nil {
		return errors.Wrap(err, "failed to insert activity log")
	}
	return nil
}

// InsertProject registers a new project. A path that is already registered
// yields ErrDuplicate.
func (r *Repository) InsertProject(ctx context.Context, project *models.Project) error {
	err := r.db.withRetry(ctx, func(tx *gorm.DB) error {
		return tx.Create(project).Error
	})
	if err != nil {
		return errors.Wrap(err, "failed to insert project")
	}
	return nil
}

// InsertProjects registers a batch of projects atomically. Projects whose path
// is already registered are kept as stored; the returned slice holds the stored
// row for every input, in input order.
func (r *Repository) InsertProjects(ctx context.Context, projects []*models.Project) ([]*models.Project, error) {
	var stored []*models.Project
	err := r.db.withRetry(ctx, func(db *gorm.DB) error {
		stored = stored[:0]
		return db.Transaction(func(tx *gorm.DB) error {
			for _, p := range projects {
				var existing models.Project
				err := tx.Where("path = ?", p.Path).Take(&existing).Error
				if err == nil {
					stored = append(stored, &existing)
					continue
				}
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				row := *p
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
				stored = append(stored, &row)
			}
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to register projects")
	}
	return stored, nil
}

// GetProjectByPath looks up a project by its canonical directory.
func (r *Repository) GetProjectByPath(ctx context.Context, path string) (*models.Project, error) {
	var project models.Project
	err := r.db.withRetry(ctx, func(tx *gorm.DB) error {
		return tx.Where("path = ?", path).Take(&project).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get project by path")
	}
	return &project, nil
}

// GetProjectByID looks up a project by identifier.
func (r *Repository) GetProjectByID(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	err := r.db.withRetry(ctx, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).Take(&project).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get project")
	}
	return &project, nil
}

// ListProjects returns every registered project ordered by path.
func (r *Repository) ListProjects(ctx context.Context) ([]*models.Project, error) {
	var projects []*models.Project
	err := r.db.withRetry(ctx, func(tx *gorm.DB) error {
		return tx.Order("path ASC").Find(&projects).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list projects")
	}
	return projects, nil
}

// TouchProject moves a project's last-activity marker forward.
func (r *Repository) TouchProject(ctx context.Context, id string, at time.Time) error {
	err := r.db.withRetry(ctx, func(tx *gorm.DB) error {
		return tx.Model(&models.Project{}).
			Where("id = ? AND updated_at < ?", id, at.UTC()).
			UpdateColumn("updated_at", at.UTC()).Error
	})
	if err != nil {
		return errors.Wrap(err, "failed to touch project")
	}
	return nil
}

// ActivitiesBetween returns the intervals overlapping [start, end), oldest first.
func (r *Repository) ActivitiesBetween(ctx context.Context, start, end time.Time) ([]*models.ActivityLog, error) {
	var logs []*models.ActivityLog
	err := r.db.withRetry(ctx, func(tx *gorm.DB) error {
		return tx.Where("started_at < ? AND ended_at > ?", end.UTC(), start.UTC()).
			Order("started_at ASC").
			Find(&logs).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to query activity logs")
	}
	return logs, nil
}

// LatestActivity returns the most recently started interval, or nil if none exist.
func (r *Repository) LatestActivity(ctx context.Context) (*models.ActivityLog, error) {
	var logs []*models.ActivityLog
	err := r.db.withRetry(ctx, func(tx *gorm.DB) error {
		return tx.Order("started_at DESC").Limit(1).Find(&logs).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get latest activity")
	}
	if len(logs) == 0 {
		return nil, nil
	}
	return logs[0], nil
}

// CountActivities returns the number of stored intervals.
func (r *Repository) CountActivities(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.withRetry(ctx, func(tx *gorm.DB) error {
		return tx.Model(&models.ActivityLog{}).Count(&count).Error
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to count activity logs")
	}
	return count, nil
}

// SummaryByType aggregates tracked seconds per activity type.
func (r *Repository) SummaryByType(ctx context.Context, start, end time.Time, excludeIdle bool) ([]models.Summary, error) {
	return r.summary(ctx, start, end, excludeIdle,
		"activity_logs.activity_type AS key, activity_logs.activity_type AS label",
		"activity_logs.activity_type", false)
}

// SummaryByApp aggregates tracked seconds per application.
func (r *Repository) SummaryByApp(ctx context.Context, start, end time.Time, excludeIdle bool) ([]models.Summary, error) {
	return r.summary(ctx, start, end, excludeIdle,
		"LOWER(activity_logs.app_name) AS key, LOWER(activity_logs.app_name) AS label",
		"LOWER(activity_logs.app_name)", false)
}

// SummaryByProject aggregates tracked seconds per project. Intervals without a
// project, or whose project no longer exists, share the empty key.
func (r *Repository) SummaryByProject(ctx context.Context, start, end time.Time, excludeIdle bool) ([]models.Summary, error) {
	return r.summary(ctx, start, end, excludeIdle,
		"COALESCE(projects.id, '') AS key, COALESCE(projects.name, '') AS label",
		"COALESCE(projects.id, ''), COALESCE(projects.name, '')", true)
}

func (r *Repository) summary(ctx context.Context, start, end time.Time, excludeIdle bool, selectCols, group string, joinProjects bool) ([]models.Summary, error) {
	var summaries []models.Summary
	err := r.db.withRetry(ctx, func(tx *gorm.DB) error {
		q := tx.Model(&models.ActivityLog{}).
			Select(selectCols+", SUM(activity_logs.duration_seconds) AS total_seconds, COUNT(*) AS session_count").
			Where("activity_logs.started_at < ? AND activity_logs.ended_at > ?", end.UTC(), start.UTC())
		if joinProjects {
			q = q.Joins("LEFT JOIN projects ON projects.id = activity_logs.project_id")
		}
		if excludeIdle {
			q = q.Where("activity_logs.is_idle = ?", false)
		}
		return q.Group(group).Order("total_seconds DESC").Scan(&summaries).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to query activity summary")
	}
	return summaries, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(ctx context.Context, errorLog *models.ErrorLog) error {
	err := r.db.withRetry(ctx, func(tx *gorm.DB) error {
		return tx.Create(errorLog).Error
	})
	if err != nil {
		return errors.Wrap(err, "failed to insert error log")
	}
	return nil
}

// Clear removes all activity and error logs. Projects are kept.
func (r *Repository) Clear(ctx context.Context) error {
	err := r.db.withRetry(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec("DELETE FROM activity_logs").Error; err != nil {
				return err
			}
			return tx.Exec("DELETE FROM error_logs").Error
		})
	})
	if err != nil {
		return errors.Wrap(err, "failed to clear activity logs")
	}
	return nil
}
