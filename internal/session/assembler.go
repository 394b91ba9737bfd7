// Package session turns a stream of resolved window samples into closed
// activity intervals.
package session

import (
	"context"
	"crypto/rand"
	"io"
	"log"
	"sync"
	"time"

	"github.com/actionsum/devtrack/internal/database"
	"github.com/actionsum/devtrack/internal/models"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
)

// IdleAppName is the app name recorded on idle intervals.
const IdleAppName = "idle"

// Store persists closed intervals.
type Store interface {
	InsertActivity(ctx context.Context, activity *models.ActivityLog) error
}

// Options tunes the assembler.
type Options struct {
	// MinDuration is the shortest session that is flushed. Values below
	// models.MinDurationSeconds are raised to it.
	MinDuration time.Duration

	// RecordIdle writes the gap between an idle close and the next activity
	// as an idle interval.
	RecordIdle bool

	// MaxPending bounds the queue of intervals waiting for a retry.
	MaxPending int
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		MinDuration: models.MinDurationSeconds * time.Second,
		MaxPending:  256,
	}
}

// Assembler is the session state machine. It is Idle with no open session or
// Tracking with exactly one.
type Assembler struct {
	store Store
	opts  Options

	mu        sync.RWMutex
	open      *Session
	idleSince time.Time
	idleCause Reason
	pending   []*models.ActivityLog
	flushed   int

	entropy io.Reader
}

// New creates an assembler in the Idle state.
func New(store Store, opts Options) *Assembler {
	floor := time.Duration(models.MinDurationSeconds) * time.Second
	if opts.MinDuration < floor {
		opts.MinDuration = floor
	}
	if opts.MaxPending <= 0 {
		opts.MaxPending = DefaultOptions().MaxPending
	}
	return &Assembler{
		store:   store,
		opts:    opts,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Observe feeds one sample taken at act.Timestamp. A sample with the open
// session's key extends it; any other sample closes the open session and
// starts a new one. The returned error concerns the flush only; the state
// transition always happens.
func (a *Assembler) Observe(ctx context.Context, act Activity) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.open != nil && a.open.Activity.Key() == act.Key() {
		if act.Timestamp.After(a.open.LastSeen) {
			a.open.LastSeen = act.Timestamp
		}
		return nil
	}

	var flushErr error
	if a.open != nil {
		flushErr = a.closeLocked(ctx, act.Timestamp, ReasonSwitch)
	} else if !a.idleSince.IsZero() {
		flushErr = a.recordIdleLocked(ctx, act.Timestamp)
	}

	a.open = &Session{
		ID:        a.newID(act.Timestamp),
		Activity:  act,
		StartedAt: act.Timestamp,
		LastSeen:  act.Timestamp,
	}
	return flushErr
}

// Close ends the open session at the given time and moves to Idle. Idle, lock
// and suspend closes also mark the start of an idle gap.
func (a *Assembler) Close(ctx context.Context, at time.Time, reason Reason) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.closeLocked(ctx, at, reason)

	switch reason {
	case ReasonIdle, ReasonLock, ReasonSuspend:
		if a.idleSince.IsZero() {
			a.idleSince = at
			a.idleCause = reason
		}
	case ReasonStop:
		a.idleSince = time.Time{}
		// Last chance for anything still queued.
		if len(a.pending) > 0 {
			if perr := a.flushLocked(ctx, nil); err == nil {
				err = perr
			}
		}
	}
	return err
}

// State reports whether a session is open.
func (a *Assembler) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.open != nil {
		return StateTracking
	}
	return StateIdle
}

// Current returns a copy of the open session, or nil.
func (a *Assembler) Current() *Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.open == nil {
		return nil
	}
	s := *a.open
	return &s
}

// Pending is the number of intervals waiting for a retry.
func (a *Assembler) Pending() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.pending)
}

// Flushed is the number of intervals persisted so far.
func (a *Assembler) Flushed() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.flushed
}

func (a *Assembler) closeLocked(ctx context.Context, end time.Time, reason Reason) error {
	s := a.open
	a.open = nil
	if s == nil {
		return nil
	}

	if s.Elapsed(end) < a.opts.MinDuration {
		return nil
	}

	act := s.Activity
	rec := &models.ActivityLog{
		AppName:         act.AppName,
		WindowTitle:     act.WindowTitle,
		FilePath:        act.FilePath,
		ActivityType:    act.Type,
		DurationSeconds: models.DurationBetween(s.StartedAt, end),
		StartedAt:       s.StartedAt,
		EndedAt:         end,
		Metadata: map[string]any{
			"session_id":   s.ID,
			"close_reason": string(reason),
			"last_seen":    s.LastSeen.UTC().Format(time.RFC3339Nano),
		},
	}
	if act.ProjectID != "" {
		id := act.ProjectID
		rec.ProjectID = &id
	}
	if act.ProjectPath != "" {
		rec.Metadata["project_path"] = act.ProjectPath
	}
	if act.PID > 0 {
		rec.Metadata["pid"] = act.PID
	}
	return a.flushLocked(ctx, rec)
}

func (a *Assembler) recordIdleLocked(ctx context.Context, end time.Time) error {
	start, cause := a.idleSince, a.idleCause
	a.idleSince = time.Time{}
	if !a.opts.RecordIdle || end.Sub(start) < a.opts.MinDuration {
		return nil
	}

	rec := &models.ActivityLog{
		AppName:         IdleAppName,
		ActivityType:    models.ActivityOther,
		DurationSeconds: models.DurationBetween(start, end),
		StartedAt:       start,
		EndedAt:         end,
		IsIdle:          true,
		Metadata: map[string]any{
			"session_id": a.newID(start),
			"cause":      string(cause),
		},
	}
	return a.flushLocked(ctx, rec)
}

// flushLocked writes queued intervals and then rec. Transient failures keep
// the interval queued for the next flush; duplicates and constraint
// violations are dropped; corruption stops the flush and is returned.
func (a *Assembler) flushLocked(ctx context.Context, rec *models.ActivityLog) error {
	queue := a.pending
	if rec != nil {
		queue = append(queue, rec)
	}
	a.pending = nil

	var firstErr error
	for i, r := range queue {
		err := a.store.InsertActivity(ctx, r)
		if err == nil {
			a.flushed++
			continue
		}

		switch {
		case errors.Is(err, database.ErrDuplicate), errors.Is(err, database.ErrInvalid):
			log.Printf("Dropping activity %s (%s, %ds): %v", r.AppName, r.ActivityType, r.DurationSeconds, err)
			if firstErr == nil {
				firstErr = err
			}
		default:
			a.requeueLocked(queue[i:])
			if firstErr == nil {
				firstErr = err
			}
			return firstErr
		}
	}
	return firstErr
}

func (a *Assembler) requeueLocked(recs []*models.ActivityLog) {
	a.pending = append(a.pending, recs...)
	if over := len(a.pending) - a.opts.MaxPending; over > 0 {
		log.Printf("Pending activity queue full, dropping %d oldest intervals", over)
		a.pending = append([]*models.ActivityLog(nil), a.pending[over:]...)
	}
}

func (a *Assembler) newID(t time.Time) string {
	id, err := ulid.New(ulid.Timestamp(t), a.entropy)
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}
