package database

import (
	"context"
	"time"

	"github.com/actionsum/devtrack/internal/models"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrBusy      = errors.New("database busy")
	ErrDuplicate = errors.New("duplicate record")
	ErrInvalid   = errors.New("constraint violation")
	ErrCorrupt   = errors.New("database corrupt")

	// ErrUnsafeMigration aborts a migration whose result could not be verified.
	ErrUnsafeMigration = errors.New("migration could not be verified")
)

// storeError tags a driver error with one of the sentinel kinds above.
type storeError struct {
	kind error
	err  error
}

func (e *storeError) Error() string {
	return e.kind.Error() + ": " + e.err.Error()
}

func (e *storeError) Is(target error) bool {
	return target == e.kind
}

func (e *storeError) Unwrap() error {
	return e.err
}

// classify maps driver and ORM errors onto the store taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se *storeError
	if errors.As(err, &se) {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &storeError{kind: ErrNotFound, err: err}
	}
	if errors.Is(err, models.ErrUnknownActivityType) || errors.Is(err, models.ErrTooShort) ||
		errors.Is(err, models.ErrBadInterval) {
		return &storeError{kind: ErrInvalid, err: err}
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return &storeError{kind: ErrBusy, err: err}
		case sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
			return &storeError{kind: ErrCorrupt, err: err}
		case sqlite3.ErrConstraint:
			switch sqliteErr.ExtendedCode {
			case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
				return &storeError{kind: ErrDuplicate, err: err}
			}
			return &storeError{kind: ErrInvalid, err: err}
		}
	}
	return err
}

// IsTransient reports whether err may succeed if the operation is retried later.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrInvalid) || errors.Is(err, ErrCorrupt) {
		return false
	}
	return true
}

// withRetry runs fn, retrying with doubling backoff while the database is busy.
func (db *DB) withRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	backoff := db.retry.Backoff
	for attempt := 0; ; attempt++ {
		err := classify(fn(db.DB.WithContext(ctx)))
		if err == nil || !errors.Is(err, ErrBusy) || attempt >= db.retry.Attempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
