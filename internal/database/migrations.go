package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/actionsum/devtrack/internal/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 2

type migration struct {
	version int
	name    string
	up      func(tx *gorm.DB) error
}

var migrations = []migration{
	{version: 1, name: "initial schema", up: migrateInitial},
	{version: 2, name: "widen activity types", up: migrateWidenActivityTypes},
}

// legacyActivityTypes is the enumeration shipped with schema version 1.
var legacyActivityTypes = []models.ActivityType{
	models.ActivityCode,
	models.ActivityBuild,
	models.ActivityTest,
	models.ActivityDebug,
	models.ActivityBrowsing,
	models.ActivityCommunication,
	models.ActivityDesign,
	models.ActivityOther,
}

const activityLogColumns = "id, project_id, app_name, window_title, file_path, activity_type, " +
	"duration_seconds, started_at, ended_at, is_idle, metadata"

func activityLogsDDL(table string, types []models.ActivityType) string {
	quoted := make([]string, len(types))
	for i, t := range types {
		quoted[i] = "'" + string(t) + "'"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	  id               INTEGER PRIMARY KEY AUTOINCREMENT,
	  project_id       TEXT,
	  app_name         TEXT NOT NULL,
	  window_title     TEXT NOT NULL,
	  file_path        TEXT,
	  activity_type    TEXT NOT NULL CHECK (activity_type IN (%s)),
	  duration_seconds INTEGER NOT NULL CHECK (duration_seconds >= %d),
	  started_at       DATETIME NOT NULL,
	  ended_at         DATETIME NOT NULL,
	  is_idle          BOOLEAN NOT NULL DEFAULT 0,
	  metadata         TEXT
	)`, table, strings.Join(quoted, ", "), models.MinDurationSeconds)
}

var activityLogIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_activity_logs_started_at ON activity_logs(started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_logs_project_id ON activity_logs(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_logs_activity_type ON activity_logs(activity_type)`,
}

func migrateInitial(tx *gorm.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS projects (
		  id             TEXT PRIMARY KEY,
		  name           TEXT NOT NULL,
		  path           TEXT NOT NULL UNIQUE,
		  git_remote_url TEXT,
		  tags           TEXT,
		  color          TEXT,
		  created_at     DATETIME NOT NULL,
		  updated_at     DATETIME NOT NULL
		)`,
		activityLogsDDL("activity_logs", legacyActivityTypes),
		`CREATE TABLE IF NOT EXISTS error_logs (
		  id         INTEGER PRIMARY KEY AUTOINCREMENT,
		  timestamp  DATETIME NOT NULL,
		  source     TEXT NOT NULL,
		  error_msg  TEXT NOT NULL,
		  created_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_error_logs_timestamp ON error_logs(timestamp)`,
	}
	statements = append(statements, activityLogIndexes...)

	for _, stmt := range statements {
		if err := tx.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// migrateWidenActivityTypes rebuilds activity_logs with the full enumeration.
// SQLite cannot alter a CHECK constraint in place, so rows are copied into a
// new table and the copy is verified before the swap.
func migrateWidenActivityTypes(tx *gorm.DB) error {
	ddl, err := tableDDL(tx, "activity_logs")
	if err != nil {
		return err
	}
	if checkCovers(ddl, models.ActivityTypes) {
		return nil
	}

	var before int64
	if err := tx.Raw("SELECT COUNT(*) FROM activity_logs").Scan(&before).Error; err != nil {
		return err
	}

	if err := tx.Exec("DROP TABLE IF EXISTS activity_logs_v2").Error; err != nil {
		return err
	}
	if err := tx.Exec(activityLogsDDL("activity_logs_v2", models.ActivityTypes)).Error; err != nil {
		return err
	}
	copyRows := fmt.Sprintf("INSERT INTO activity_logs_v2 (%s) SELECT %s FROM activity_logs",
		activityLogColumns, activityLogColumns)
	if err := tx.Exec(copyRows).Error; err != nil {
		return err
	}

	var after int64
	if err := tx.Raw("SELECT COUNT(*) FROM activity_logs_v2").Scan(&after).Error; err != nil {
		return err
	}
	if after != before {
		return errors.Wrapf(ErrUnsafeMigration, "copied %d of %d activity rows", after, before)
	}

	statements := []string{
		"DROP TABLE activity_logs",
		"ALTER TABLE activity_logs_v2 RENAME TO activity_logs",
	}
	statements = append(statements, activityLogIndexes...)
	for _, stmt := range statements {
		if err := tx.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func tableDDL(tx *gorm.DB, table string) (string, error) {
	var ddl string
	err := tx.Raw("SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&ddl).Error
	if err != nil {
		return "", err
	}
	if ddl == "" {
		return "", fmt.Errorf("table %s does not exist", table)
	}
	return ddl, nil
}

func checkCovers(ddl string, types []models.ActivityType) bool {
	for _, t := range types {
		if !strings.Contains(ddl, "'"+string(t)+"'") {
			return false
		}
	}
	return true
}

// Migrate applies pending migrations in order. Each migration runs in its own
// transaction together with its bookkeeping row, so a failed migration leaves
// the database exactly as it was.
func (db *DB) Migrate() error {
	err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
	  version    INTEGER PRIMARY KEY,
	  name       TEXT NOT NULL,
	  applied_at DATETIME NOT NULL
	)`).Error
	if err != nil {
		return classify(err)
	}

	current, err := db.SchemaVersion()
	if err != nil {
		return err
	}
	if current > CurrentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", current, CurrentSchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.up(tx); err != nil {
				return err
			}
			return tx.Exec("INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
				m.version, m.name, time.Now().UTC()).Error
		})
		if err != nil {
			return errors.Wrapf(classify(err), "migration %d (%s) failed", m.version, m.name)
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration, or 0 for a fresh database.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.Raw("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version).Error
	if err != nil {
		return 0, classify(err)
	}
	return version, nil
}
