package project

import (
	"context"
	"log"
	"path/filepath"
	"strings"

	"github.com/actionsum/devtrack/internal/models"
	"github.com/actionsum/devtrack/pkg/utils"

	"github.com/pkg/errors"
)

var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"build":        true,
	"dist":         true,
	"__pycache__":  true,
	"venv":         true,
}

// Scan walks each root down to ScanDepth levels and registers every directory
// whose marker confidence reaches ScanThreshold. Matched directories are not
// descended into. All discovered projects are registered in one transaction
// and then cached.
func (r *Resolver) Scan(ctx context.Context, roots []string) ([]*models.Project, error) {
	var found []Detection
	seen := make(map[string]bool)

	for _, root := range roots {
		root = utils.ExpandHome(root)
		abs, err := filepath.Abs(root)
		if err != nil {
			log.Printf("Skipping scan root %s: %v", root, err)
			continue
		}
		if err := r.walk(ctx, canonicalPath(abs), 0, seen, &found); err != nil {
			return nil, err
		}
	}

	if len(found) == 0 {
		return nil, nil
	}

	drafts := make([]*models.Project, 0, len(found))
	for _, det := range found {
		drafts = append(drafts, newProject(det))
	}

	stored, err := r.store.InsertProjects(ctx, drafts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to register scanned projects")
	}

	r.mu.Lock()
	for _, p := range stored {
		r.cache[p.Path] = p
	}
	r.mu.Unlock()

	return stored, nil
}

func (r *Resolver) walk(ctx context.Context, dir string, depth int, seen map[string]bool, found *[]Detection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if seen[dir] {
		return nil
	}
	seen[dir] = true

	det := detect(r.readDir, dir)
	if det.Confidence() >= r.opts.ScanThreshold {
		*found = append(*found, det)
		return nil
	}
	if depth >= r.opts.ScanDepth {
		return nil
	}

	entries, err := r.readDir(dir)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		// Symlinked directories report !IsDir and are not followed.
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") || skipDirs[name] {
			continue
		}
		if err := r.walk(ctx, filepath.Join(dir, name), depth+1, seen, found); err != nil {
			return err
		}
	}
	return nil
}
