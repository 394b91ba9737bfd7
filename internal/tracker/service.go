package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/actionsum/devtrack/internal/classifier"
	"github.com/actionsum/devtrack/internal/config"
	"github.com/actionsum/devtrack/internal/database"
	"github.com/actionsum/devtrack/internal/models"
	"github.com/actionsum/devtrack/internal/project"
	"github.com/actionsum/devtrack/internal/session"
	"github.com/actionsum/devtrack/pkg/window"
)

const (
	flushTimeout     = 5 * time.Second
	errorLogInterval = time.Minute
)

// Repository is the store surface the monitor writes through.
type Repository interface {
	project.Store
	session.Store
	CreateErrorLog(ctx context.Context, errorLog *models.ErrorLog) error
}

type Service struct {
	config    *config.Config
	repo      Repository
	detector  window.Detector
	probe     *Probe
	idle      IdleTracker
	resolver  *project.Resolver
	assembler *session.Assembler
	now       func() time.Time

	mu           sync.RWMutex
	running      bool
	stopChan     chan struct{}
	done         chan struct{}
	lastTick     time.Time
	lastActivity time.Time
	lastErrors   map[string]loggedError

	errs chan error
}

type loggedError struct {
	msg string
	at  time.Time
}

func NewService(cfg *config.Config, repo Repository, detector window.Detector) *Service {
	resolver := project.NewResolver(repo, project.Options{
		MaxAscent:        cfg.Projects.MaxAscent,
		ResolveThreshold: cfg.Projects.ResolveThreshold,
		ScanThreshold:    cfg.Projects.ScanThreshold,
		ScanDepth:        cfg.Projects.ScanDepth,
	})
	assembler := session.New(repo, session.Options{
		MinDuration: cfg.Tracker.MinSessionDuration,
		RecordIdle:  cfg.Tracker.RecordIdle,
	})

	return &Service{
		config:     cfg,
		repo:       repo,
		detector:   detector,
		probe:      NewProbe(detector, cfg.GetProbeTimeout()),
		idle:       NewIdleTracker(detector, cfg.GetProbeTimeout()),
		resolver:   resolver,
		assembler:  assembler,
		now:        wallClock,
		lastErrors: make(map[string]loggedError),
		errs:       make(chan error, 1),
	}
}

// wallClock drops the monotonic reading so that time spent suspended shows
// up as a gap between ticks.
func wallClock() time.Time {
	return time.Now().Round(0)
}

// Resolver exposes the project cache shared with the monitor.
func (s *Service) Resolver() *project.Resolver {
	return s.resolver
}

// Start runs the monitor until ctx is cancelled or Stop is called. The open
// session is flushed before Start returns.
func (s *Service) Start(ctx context.Context) error {
	stop, done, err := s.begin()
	if err != nil {
		return err
	}
	return s.run(ctx, stop, done)
}

// StartMonitoring runs the monitor in the background.
func (s *Service) StartMonitoring(ctx context.Context) error {
	stop, done, err := s.begin()
	if err != nil {
		return err
	}
	go func() {
		if err := s.run(ctx, stop, done); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Tracker error: %v", err)
		}
	}()
	return nil
}

// Stop cancels the ticker, waits for the final flush and returns. It is a
// no-op when the monitor is not running.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running || s.stopChan == nil {
		done := s.done
		s.mu.Unlock()
		if done != nil {
			<-done
		}
		return
	}
	close(s.stopChan)
	s.stopChan = nil
	done := s.done
	s.mu.Unlock()

	<-done
}

func (s *Service) IsMonitoring() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// CurrentActivity returns a copy of the open session, or nil when idle.
func (s *Service) CurrentActivity() *session.Session {
	return s.assembler.Current()
}

// LastActivityTime is the time of the last sample fed to the assembler.
func (s *Service) LastActivityTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// Errors delivers fatal store failures, such as database corruption, that
// the host should act on.
func (s *Service) Errors() <-chan error {
	return s.errs
}

func (s *Service) begin() (chan struct{}, chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, nil, fmt.Errorf("tracker is already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	return s.stopChan, s.done, nil
}

func (s *Service) run(ctx context.Context, stop, done chan struct{}) error {
	defer func() {
		s.shutdown()
		s.mu.Lock()
		s.running = false
		s.stopChan = nil
		s.mu.Unlock()
		close(done)
	}()

	log.Printf("Starting tracker with %v poll interval", s.config.Tracker.PollInterval)

	if err := s.resolver.RefreshCache(ctx); err != nil {
		log.Printf("Failed to load project cache: %v", err)
	}

	ticker := time.NewTicker(s.config.Tracker.PollInterval)
	defer ticker.Stop()

	s.trackOnce(ctx, s.now())

	for {
		select {
		case <-ctx.Done():
			log.Println("Tracker stopped by context")
			return ctx.Err()

		case <-stop:
			log.Println("Tracker stopped")
			return nil

		case <-ticker.C:
			s.trackOnce(ctx, s.now())
		}
	}
}

// shutdown flushes the open session and waits for background store writes.
func (s *Service) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	s.mu.RLock()
	end := s.lastTick
	s.mu.RUnlock()
	if now := s.now(); end.IsZero() || now.Sub(end) <= s.config.GetSuspendGap() {
		end = now
	}

	s.handleFlush(ctx, s.assembler.Close(ctx, end, session.ReasonStop))
	s.resolver.Wait()
}

// trackOnce runs one tick: suspend check, idle check, probe, classify,
// resolve, assemble.
func (s *Service) trackOnce(ctx context.Context, now time.Time) {
	s.mu.Lock()
	prev := s.lastTick
	s.lastTick = now
	s.mu.Unlock()

	if !prev.IsZero() && now.Sub(prev) > s.config.GetSuspendGap() {
		log.Printf("Tick gap of %v, treating as resume from suspend", now.Sub(prev).Round(time.Second))
		s.handleFlush(ctx, s.assembler.Close(ctx, prev, session.ReasonSuspend))
	}

	idle, err := s.idle.Idle(ctx)
	if err != nil {
		s.storeError(ctx, "idle", err)
	}
	if idle.IsIdle(s.config.Tracker.IdleThreshold) {
		reason := session.ReasonIdle
		if idle.IsLocked {
			reason = session.ReasonLock
		}
		if s.assembler.State() == session.StateTracking {
			log.Printf("Pausing tracking: %s (idle %v)", reason, idle.IdleTime.Round(time.Second))
		}
		s.handleFlush(ctx, s.assembler.Close(ctx, now, reason))
		return
	}

	sample, err := s.probe.Sample(ctx, now)
	if err != nil {
		if ctx.Err() == nil {
			s.storeError(ctx, "probe", err)
		}
		return
	}

	act := s.activityFor(ctx, *sample)
	s.handleFlush(ctx, s.assembler.Observe(ctx, act))

	s.mu.Lock()
	s.lastActivity = now
	s.mu.Unlock()
}

// activityFor classifies a sample and attaches its project, if any.
func (s *Service) activityFor(ctx context.Context, sample window.Sample) session.Activity {
	act := session.Activity{
		AppName:     sample.AppName,
		WindowTitle: sample.WindowTitle,
		PID:         sample.PID,
		Timestamp:   sample.Timestamp,
		Type:        classifier.Classify(sample.AppName, sample.WindowTitle),
		FilePath:    classifier.ExtractFilePath(sample.WindowTitle),
	}

	var p *models.Project
	if filepath.IsAbs(act.FilePath) {
		p = s.resolver.Resolve(ctx, act.FilePath)
	}
	if p == nil {
		if ws := classifier.ExtractWorkspace(sample.WindowTitle); ws != "" {
			p = s.resolver.ResolveName(ws)
		}
	}
	if p != nil {
		act.ProjectPath = p.Path
		act.ProjectID = p.ID
	}
	return act
}

func (s *Service) handleFlush(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, database.ErrCorrupt) {
		log.Printf("Database corruption detected: %v", err)
		select {
		case s.errs <- err:
		default:
		}
		return
	}
	s.storeError(ctx, "store", err)
}

// storeError logs err and records it in error_logs. Repeats of the same
// message from a source are recorded at most once a minute.
func (s *Service) storeError(ctx context.Context, source string, err error) {
	now := s.now()
	msg := err.Error()

	s.mu.Lock()
	last, seen := s.lastErrors[source]
	if seen && last.msg == msg && now.Sub(last.at) < errorLogInterval {
		s.mu.Unlock()
		return
	}
	s.lastErrors[source] = loggedError{msg: msg, at: now}
	s.mu.Unlock()

	if ctx.Err() != nil {
		ctx = context.Background()
	}
	errorLog := &models.ErrorLog{
		Timestamp: now,
		Source:    source,
		ErrorMsg:  msg,
	}

	if dbErr := s.repo.CreateErrorLog(ctx, errorLog); dbErr != nil {
		log.Printf("Failed to store error in database: %v (original error: %v)", dbErr, err)
	} else {
		log.Printf("Error logged to database: %s: %v", source, err)
	}
}

// GetCurrentWindow probes the focused window and idle state once.
func (s *Service) GetCurrentWindow(ctx context.Context) (*window.WindowInfo, *window.IdleInfo, error) {
	windowInfo, err := s.detector.GetFocusedWindow(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get focused window: %w", err)
	}

	idleInfo, err := s.idle.Idle(ctx)
	if err != nil {
		return windowInfo, idleInfo, fmt.Errorf("failed to get idle info: %w", err)
	}

	return windowInfo, idleInfo, nil
}
