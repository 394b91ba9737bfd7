// Package project maps file paths to registered projects by walking up to the
// nearest directory that carries project markers.
package project

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/actionsum/devtrack/internal/database"
	"github.com/actionsum/devtrack/internal/models"

	"github.com/pkg/errors"
)

// Store is the subset of the repository the resolver needs.
type Store interface {
	GetProjectByPath(ctx context.Context, path string) (*models.Project, error)
	InsertProject(ctx context.Context, project *models.Project) error
	InsertProjects(ctx context.Context, projects []*models.Project) ([]*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
	TouchProject(ctx context.Context, id string, at time.Time) error
}

// Options tunes resolution and scanning.
type Options struct {
	MaxAscent        int
	ResolveThreshold float64
	ScanThreshold    float64
	ScanDepth        int
	TouchInterval    time.Duration
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		MaxAscent:        10,
		ResolveThreshold: 0.5,
		ScanThreshold:    0.7,
		ScanDepth:        3,
		TouchInterval:    time.Minute,
	}
}

// Resolver owns the in-memory path to project cache. The cache always mirrors
// rows that exist in the store.
type Resolver struct {
	store Store
	opts  Options

	mu      sync.RWMutex
	cache   map[string]*models.Project
	touched map[string]time.Time

	wg sync.WaitGroup

	readDir func(string) ([]os.DirEntry, error)
	now     func() time.Time
}

// NewResolver creates a resolver with an empty cache.
func NewResolver(store Store, opts Options) *Resolver {
	def := DefaultOptions()
	if opts.MaxAscent <= 0 {
		opts.MaxAscent = def.MaxAscent
	}
	if opts.ResolveThreshold <= 0 {
		opts.ResolveThreshold = def.ResolveThreshold
	}
	if opts.ScanThreshold <= 0 {
		opts.ScanThreshold = def.ScanThreshold
	}
	if opts.ScanDepth <= 0 {
		opts.ScanDepth = def.ScanDepth
	}
	if opts.TouchInterval <= 0 {
		opts.TouchInterval = def.TouchInterval
	}

	return &Resolver{
		store:   store,
		opts:    opts,
		cache:   make(map[string]*models.Project),
		touched: make(map[string]time.Time),
		readDir: os.ReadDir,
		now:     time.Now,
	}
}

// Resolve returns the project containing filePath, registering it on first
// sight. Ascent is bounded by MaxAscent directories and stops early at the
// filesystem root or on a symlink cycle. Any failure resolves to nil.
func (r *Resolver) Resolve(ctx context.Context, filePath string) *models.Project {
	if filePath == "" || !filepath.IsAbs(filePath) {
		return nil
	}

	dir := filepath.Dir(filepath.Clean(filePath))
	visited := make(map[string]bool)

	for level := 0; level < r.opts.MaxAscent; level++ {
		if ctx.Err() != nil {
			return nil
		}

		if p := r.cached(dir); p != nil {
			r.touch(p)
			return p
		}

		canonical := canonicalPath(dir)
		if visited[canonical] {
			break
		}
		visited[canonical] = true

		if canonical != dir {
			if p := r.cached(canonical); p != nil {
				r.touch(p)
				return p
			}
		}

		det := detect(r.readDir, canonical)
		if det.Confidence() > r.opts.ResolveThreshold {
			p, err := r.register(ctx, det)
			if err != nil {
				log.Printf("Failed to register project %s: %v", canonical, err)
				return nil
			}
			if canonical != dir {
				r.remember(dir, p)
			}
			return clone(p)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil
}

// ResolveName returns the cached project whose name matches, preferring the
// most recently active one. Used when a window title carries a workspace name
// but no path.
func (r *Resolver) ResolveName(name string) *models.Project {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *models.Project
	for _, p := range r.cache {
		if !strings.EqualFold(p.Name, name) {
			continue
		}
		if best == nil || p.UpdatedAt.After(best.UpdatedAt) ||
			(p.UpdatedAt.Equal(best.UpdatedAt) && p.Path < best.Path) {
			best = p
		}
	}
	if best == nil {
		return nil
	}
	return clone(best)
}

// RefreshCache replaces the cache with every project in the store.
func (r *Resolver) RefreshCache(ctx context.Context) error {
	projects, err := r.store.ListProjects(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load projects")
	}

	cache := make(map[string]*models.Project, len(projects))
	for _, p := range projects {
		cache[p.Path] = p
	}

	r.mu.Lock()
	r.cache = cache
	r.mu.Unlock()
	return nil
}

// Projects returns the cached projects ordered by path.
func (r *Resolver) Projects() []*models.Project {
	r.mu.RLock()
	seen := make(map[string]bool, len(r.cache))
	out := make([]*models.Project, 0, len(r.cache))
	for _, p := range r.cache {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, clone(p))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Wait blocks until pending activity bumps have finished.
func (r *Resolver) Wait() {
	r.wg.Wait()
}

func (r *Resolver) register(ctx context.Context, det Detection) (*models.Project, error) {
	stored, err := r.store.GetProjectByPath(ctx, det.Dir)
	if err == nil {
		r.remember(det.Dir, stored)
		return stored, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	p := newProject(det)
	if err := r.store.InsertProject(ctx, p); err != nil && !errors.Is(err, database.ErrDuplicate) {
		return nil, err
	}

	// Cache the stored form, not the draft.
	stored, err = r.store.GetProjectByPath(ctx, det.Dir)
	if err != nil {
		return nil, err
	}
	r.remember(det.Dir, stored)

	r.mu.Lock()
	r.touched[stored.ID] = r.now()
	r.mu.Unlock()

	return stored, nil
}

func (r *Resolver) cached(dir string) *models.Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.cache[dir]; ok {
		return clone(p)
	}
	return nil
}

func (r *Resolver) remember(dir string, p *models.Project) {
	r.mu.Lock()
	r.cache[dir] = p
	r.mu.Unlock()
}

// touch bumps the project's activity marker in the cache and, in the
// background, in the store, at most once per TouchInterval.
func (r *Resolver) touch(p *models.Project) {
	now := r.now()

	r.mu.Lock()
	last, ok := r.touched[p.ID]
	if ok && now.Sub(last) < r.opts.TouchInterval {
		r.mu.Unlock()
		return
	}
	r.touched[p.ID] = now
	if p.UpdatedAt.Before(now) {
		p.UpdatedAt = now
	}
	for dir, cached := range r.cache {
		if cached.ID == p.ID && cached.UpdatedAt.Before(now) {
			cp := clone(cached)
			cp.UpdatedAt = now
			r.cache[dir] = cp
		}
	}
	r.mu.Unlock()

	r.wg.Add(1)
	go func(id string) {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.store.TouchProject(ctx, id, now); err != nil {
			log.Printf("Failed to update project %s activity: %v", id, err)
		}
	}(p.ID)
}

func newProject(det Detection) *models.Project {
	meta := ExtractMetadata(det)
	name := meta.Name
	if name == "" {
		name = filepath.Base(det.Dir)
	}
	return &models.Project{
		Name:         name,
		Path:         det.Dir,
		GitRemoteURL: meta.GitRemoteURL,
		Tags:         det.Tags(),
	}
}

func canonicalPath(dir string) string {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return dir
	}
	return resolved
}

func clone(p *models.Project) *models.Project {
	cp := *p
	cp.Tags = append([]string(nil), p.Tags...)
	return &cp
}
