package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultDBName = "devtrack.db"
	defaultDBDir  = ".config/devtrack"

	defaultBusyAttempts = 3
	defaultBusyBackoff  = 50 * time.Millisecond
)

type DB struct {
	*gorm.DB
	path  string
	retry RetryPolicy
}

// RetryPolicy bounds how often a write is retried while the database is busy.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

func GetDefaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, defaultDBDir, defaultDBName), nil
}

// Connect opens the SQLite database at dbPath, creating its directory.
// An unwritable directory or a corrupt file is a fatal error.
func Connect(dbPath string) (*DB, error) {
	if dbPath == "" {
		var err error
		dbPath, err = GetDefaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	if err := ensureWritableDir(filepath.Dir(dbPath)); err != nil {
		return nil, err
	}

	dsn := dbPath + "?_busy_timeout=1000&_journal_mode=WAL"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", classify(err))
	}

	// A single connection keeps writes from this process serialized.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	d := &DB{
		DB:    db,
		path:  dbPath,
		retry: RetryPolicy{Attempts: defaultBusyAttempts, Backoff: defaultBusyBackoff},
	}

	if err := d.checkIntegrity(); err != nil {
		d.Close()
		return nil, err
	}

	return d, nil
}

// Initialize brings the schema up to date.
func (db *DB) Initialize() error {
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return nil
}

// SetRetryPolicy overrides the busy retry policy.
func (db *DB) SetRetryPolicy(p RetryPolicy) {
	if p.Attempts < 0 {
		p.Attempts = 0
	}
	db.retry = p
}

func (db *DB) Path() string {
	return db.path
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func (db *DB) checkIntegrity() error {
	var result string
	if err := db.Raw("PRAGMA quick_check").Scan(&result).Error; err != nil {
		return fmt.Errorf("integrity check failed: %w", classify(err))
	}
	if result != "ok" {
		return fmt.Errorf("%w: quick_check reported %q", ErrCorrupt, result)
	}
	return nil
}

func ensureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	f, err := os.CreateTemp(dir, ".devtrack-write-*")
	if err != nil {
		return fmt.Errorf("database directory %s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
