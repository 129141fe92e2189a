package fs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/sparti/pkg/core"
)

// watchBackoff bounds how often a failing watcher is restarted.
var watchBackoff = supervisor.Backoff{
	InitialInterval: 100 * time.Millisecond,
	MaxInterval:     5 * time.Second,
	Multiplier:      2,
	ResetDuration:   30 * time.Second,
	MaxRestarts:     5,
	MaxDuration:     time.Minute,
}

// Watch emits an event for every document of any tenant whose ID matches
// pattern (doublestar syntax, "" matches all). The watcher runs under a
// supervisor that restarts it on failure. The channel is closed once ctx is
// done and the watcher has stopped.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}

	// Baseline for reconciliation after git operations.
	if _, err := r.Reconcile(ctx); err != nil {
		return nil, fmt.Errorf("failed to index store: %w", err)
	}

	events := make(chan core.Event, r.config.EventBuffer)
	spec := supervisor.Spec{
		Name: "fs-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			return newWatchWorker(r, pattern, events), nil
		},
		Backoff:       watchBackoff,
		RestartPolicy: supervisor.RestartOnFailure,
	}

	sup := supervisor.New("fs-watch", supervisor.StrategyOneForOne, spec)
	if err := sup.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := sup.Stop(stopCtx)
		close(events)
		return err
	}, lifecycle.WithErrorHandler(func(err error) {
		if r.config.Logger != nil {
			r.config.Logger.Warn("watcher shutdown", "error", err)
		}
	}))

	return events, nil
}

// Reconcile compares the files on disk with the index cache and returns an
// event for every document created, modified or deleted since the cache was
// last updated. The cache is brought up to date.
func (r *Repository) Reconcile(ctx context.Context) ([]core.Event, error) {
	if err := r.cache.Load(); err != nil && r.config.Logger != nil {
		r.config.Logger.Warn("failed to load index cache", "error", err)
	}

	tenants, err := r.tenants()
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	seen := make(map[string]bool)
	var events []core.Event

	for _, tenant := range tenants {
		err := r.walk(filepath.Join(r.Path, tenant), func(f docFile) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			seen[f.rel] = true
			if _, hit := r.cache.Get(f.rel, f.mtime); hit {
				return nil
			}

			eType := core.EventModify
			if !r.cached(f.rel) {
				eType = core.EventCreate
			}
			if _, err := r.entryFor(tenant, f); err != nil {
				return nil
			}
			events = append(events, core.Event{Type: eType, Tenant: tenant, ID: f.id, Timestamp: now})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	r.cache.Range(func(rel string, entry *indexEntry) bool {
		if !seen[rel] {
			events = append(events, core.Event{Type: core.EventDelete, Tenant: entry.Tenant, ID: entry.ID, Timestamp: now})
		}
		return true
	})
	r.cache.Prune(seen)

	if !r.isReadOnly() {
		r.saveCache()
	}
	r.recordReconcile()
	return events, nil
}

func (r *Repository) cached(rel string) bool {
	found := false
	r.cache.Range(func(k string, _ *indexEntry) bool {
		if k == rel {
			found = true
			return false
		}
		return true
	})
	return found
}

// recursiveAdd registers every visible directory of the store.
func (r *Repository) recursiveAdd(watcher *fsnotify.Watcher) error {
	return r.addTree(watcher, r.Path)
}

func (r *Repository) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path != root && os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != r.Path && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// resolveID maps an absolute file path to its tenant and document ID.
func (r *Repository) resolveID(path string) (tenant, id string, err error) {
	rel, err := filepath.Rel(r.Path, path)
	if err != nil {
		return "", "", err
	}
	rel = filepath.ToSlash(rel)

	tenant, rest, ok := strings.Cut(rel, "/")
	if !ok || rest == "" {
		return "", "", fmt.Errorf("%s is outside a tenant directory", rel)
	}
	if err := r.validateTenant(tenant); err != nil {
		return "", "", err
	}

	ext := filepath.Ext(rest)
	if _, ok := r.serializers[ext]; !ok {
		return "", "", fmt.Errorf("unsupported extension %q", ext)
	}
	return tenant, strings.TrimSuffix(rest, ext), nil
}

// shouldIgnore filters events on hidden paths, temporary files, foreign
// extensions and IDs that do not match pattern.
func (r *Repository) shouldIgnore(event fsnotify.Event, pattern string) bool {
	rel, err := filepath.Rel(r.Path, event.Name)
	if err != nil {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") || strings.HasPrefix(part, TempFilePrefix) {
			return true
		}
	}
	if _, ok := r.serializers[filepath.Ext(event.Name)]; !ok {
		return true
	}

	_, id, err := r.resolveID(event.Name)
	if err != nil {
		return false // reported by the caller
	}
	match, err := doublestar.Match(pattern, id)
	return err != nil || !match
}

// mapEventType translates fsnotify operations. Atomic writes arrive as a
// rename onto the target, which fsnotify reports as Create.
func (r *Repository) mapEventType(event fsnotify.Event) core.EventType {
	switch {
	case event.Has(fsnotify.Create):
		return core.EventCreate
	case event.Has(fsnotify.Write):
		return core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return core.EventDelete
	}
	return ""
}
