package fs

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/sparti/pkg/core"
	"github.com/aretw0/sparti/pkg/git"
	"github.com/aretw0/sparti/pkg/schema"
)

// DefaultSystemDir holds the index cache and marks the root of a store.
const DefaultSystemDir = ".sparti"

// Repository implements core.Repository using the filesystem and, unless
// Gitless is set, git for versioning. Documents live at
// <root>/<tenant>/<id>.<ext>.
type Repository struct {
	Path        string
	git         *git.Client
	cache       *cache
	config      Config
	serializers map[string]Serializer
	ext         string

	mu            sync.RWMutex
	readOnly      bool
	watcherActive bool
	lastReconcile *time.Time
}

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path      string
	AutoInit  bool
	Gitless   bool
	MustExist bool
	ReadOnly  bool
	// Strict rejects files that are not a {flavor, fields} envelope.
	Strict    bool
	Logger    *slog.Logger
	SystemDir string // e.g. ".sparti"
	// Format selects the extension of new documents: "json" (default),
	// "yaml" or "yml". Existing files keep their format.
	Format string
	// ErrorHandler receives watcher errors. When nil they are logged.
	ErrorHandler func(error)
	// EventBuffer is the capacity of channels returned by Watch.
	EventBuffer int
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 100
	}

	serializers := DefaultSerializers(config.Strict)
	ext := "." + strings.TrimPrefix(strings.ToLower(config.Format), ".")
	if _, ok := serializers[ext]; !ok {
		if config.Format != "" && config.Logger != nil {
			config.Logger.Warn("unknown document format, using json", "format", config.Format)
		}
		ext = ".json"
	}

	return &Repository{
		Path:        config.Path,
		git:         git.NewClient(config.Path, config.SystemDir+".lock", config.Logger),
		config:      config,
		cache:       newCache(config.Path, config.SystemDir),
		serializers: serializers,
		ext:         ext,
		readOnly:    config.ReadOnly,
	}
}

// Begin starts a new transaction.
func (r *Repository) Begin(ctx context.Context) (core.Transaction, error) {
	if r.isReadOnly() {
		return nil, core.ErrReadOnly
	}
	return NewTransaction(r), nil
}

// Initialize prepares the store: creates the root directory and, unless
// Gitless, makes it a git repository that ignores the system directory.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.MustExist || r.isReadOnly() {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("store path does not exist: %s", r.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("store path is not a directory: %s", r.Path)
		}
	} else if err := os.MkdirAll(filepath.Join(r.Path, r.config.SystemDir), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	if r.config.Gitless || r.isReadOnly() {
		return nil
	}

	if !git.IsInstalled() {
		return fmt.Errorf("git is not installed")
	}

	wasNewRepo := false
	if !r.git.IsRepo() {
		if !r.config.AutoInit {
			return fmt.Errorf("path is not a git repository: %s", r.Path)
		}
		if err := r.git.Init(); err != nil {
			return fmt.Errorf("failed to git init: %w", err)
		}
		wasNewRepo = true
	}

	mod, err := r.ensureIgnore()
	if err != nil {
		return fmt.Errorf("failed to ensure .gitignore: %w", err)
	}

	if mod && wasNewRepo {
		if err := r.git.Add(".gitignore"); err != nil {
			return fmt.Errorf("failed to add .gitignore: %w", err)
		}
		msg := git.FormatChangeReason(git.ChangeChore, "", fmt.Sprintf("configure %s ignore", r.config.SystemDir), "")
		if err := r.git.Commit(msg); err != nil {
			return fmt.Errorf("failed to commit .gitignore: %w", err)
		}
	}

	if r.config.Logger != nil {
		r.config.Logger.Debug("store initialized", "path", r.Path, "new_repo", wasNewRepo)
	}
	return nil
}

// ensureIgnore adds the system directory and the lock file to .gitignore.
// It reports whether the file changed.
func (r *Repository) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(r.Path, ".gitignore")
	wanted := []string{r.config.SystemDir + "/", r.config.SystemDir + ".lock"}

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(string(content), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, entry := range wanted {
		if !present[entry] {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return false, err
		}
	}
	if _, err := f.WriteString(strings.Join(missing, "\n") + "\n"); err != nil {
		return false, err
	}
	return true, nil
}

// Sync synchronizes the repository with its remote.
func (r *Repository) Sync(ctx context.Context) error {
	if r.config.Gitless {
		return fmt.Errorf("sync in gitless mode: %w", core.ErrUnsupported)
	}
	if !r.git.IsRepo() {
		return fmt.Errorf("path is not a git repository: %s", r.Path)
	}

	unlock, err := r.git.Lock()
	if err != nil {
		return fmt.Errorf("failed to acquire git lock: %w", err)
	}
	defer unlock()

	return r.git.Sync()
}

// Save persists a document and commits it unless Gitless.
//
// Workflow:
//  1. Resolve tenant and ID to a file, keeping the format of an existing file.
//  2. Serialize the envelope and write it atomically.
//  3. Refresh the index cache entry.
//  4. (If git is enabled) 'git add' and 'git commit' with the change reason
//     carried by ctx.
func (r *Repository) Save(ctx context.Context, doc core.Document) error {
	if r.isReadOnly() {
		return core.ErrReadOnly
	}
	tenant := core.TenantFrom(ctx)
	if doc.Tenant != "" {
		tenant = doc.Tenant
	}
	if err := r.validate(tenant, doc.ID); err != nil {
		return err
	}

	rel, err := r.writeDocument(tenant, doc)
	if err != nil {
		return err
	}
	r.saveCache()

	if r.config.Gitless {
		return nil
	}

	unlock, err := r.git.Lock()
	if err != nil {
		return fmt.Errorf("failed to acquire git lock: %w", err)
	}
	defer unlock()

	if err := r.git.Add(rel); err != nil {
		return fmt.Errorf("failed to git add: %w", err)
	}

	msg := core.ChangeReason(ctx, git.FormatChangeReason(git.ChangeDocs, tenant, "update "+doc.ID, ""))
	if err := r.git.Commit(git.AppendFooter(msg)); err != nil {
		return fmt.Errorf("failed to git commit: %w", err)
	}
	return nil
}

func (r *Repository) saveCache() {
	if err := r.cache.Save(); err != nil && r.config.Logger != nil {
		r.config.Logger.Warn("failed to save index cache", "error", err)
	}
}

// writeDocument writes doc to disk and updates the cache. It returns the
// slash separated path relative to the root.
func (r *Repository) writeDocument(tenant string, doc core.Document) (string, error) {
	fullPath, ext, found := r.findFile(tenant, doc.ID)
	if !found {
		ext = r.ext
		fullPath = r.filePath(tenant, doc.ID, ext)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	data, err := r.serializers[ext].Serialize(record{Flavor: doc.Flavor, Fields: doc.Fields})
	if err != nil {
		return "", fmt.Errorf("failed to serialize document: %w", err)
	}

	if err := writeFileAtomic(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	rel := r.relPath(fullPath)
	if info, err := os.Stat(fullPath); err == nil {
		r.cache.Set(rel, newIndexEntry(tenant, doc.ID, &record{Flavor: doc.Flavor, Fields: doc.Fields}, info.ModTime()))
	}

	if r.config.Logger != nil {
		r.config.Logger.Debug("document written", "tenant", tenant, "id", doc.ID, "path", rel)
	}
	return rel, nil
}

// Get retrieves a document of the context tenant.
func (r *Repository) Get(ctx context.Context, id string) (core.Document, error) {
	tenant := core.TenantFrom(ctx)
	if err := r.validate(tenant, id); err != nil {
		return core.Document{}, err
	}

	fullPath, ext, found := r.findFile(tenant, id)
	if !found {
		return core.Document{}, fmt.Errorf("%s/%s: %w", tenant, id, core.ErrNotFound)
	}

	rec, err := r.readFile(fullPath, ext)
	if err != nil {
		return core.Document{}, fmt.Errorf("failed to parse document %s: %w", id, err)
	}

	return core.Document{Tenant: tenant, ID: id, Flavor: rec.Flavor, Fields: rec.Fields}, nil
}

// List returns every document of the context tenant, sorted by ID.
//
// Strategy:
//  1. Load the index cache from disk.
//  2. Walk the tenant directory.
//  3. For each document file, use the cached entry when its mtime matches,
//     otherwise parse the file and refresh the entry.
//  4. Save the cache back to disk.
func (r *Repository) List(ctx context.Context) ([]core.Document, error) {
	tenant := core.TenantFrom(ctx)
	if err := r.validateTenant(tenant); err != nil {
		return nil, err
	}

	if err := r.cache.Load(); err != nil && r.config.Logger != nil {
		r.config.Logger.Warn("failed to load index cache", "error", err)
	}

	var docs []core.Document
	err := r.walk(filepath.Join(r.Path, tenant), func(f docFile) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		entry, err := r.entryFor(tenant, f)
		if err != nil {
			if r.config.Logger != nil {
				r.config.Logger.Warn("skipping unreadable document", "path", f.rel, "error", err)
			}
			return nil
		}
		docs = append(docs, entry.document())
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	if !r.isReadOnly() {
		r.saveCache()
	}
	return docs, nil
}

// entryFor returns the cached entry of f, parsing the file on a miss.
func (r *Repository) entryFor(tenant string, f docFile) (*indexEntry, error) {
	if entry, hit := r.cache.Get(f.rel, f.mtime); hit {
		return entry, nil
	}
	rec, err := r.readFile(f.path, f.ext)
	if err != nil {
		return nil, err
	}
	entry := newIndexEntry(tenant, f.id, rec, f.mtime)
	r.cache.Set(f.rel, entry)
	return entry, nil
}

// Delete removes a document and commits the removal unless Gitless.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if r.isReadOnly() {
		return core.ErrReadOnly
	}
	tenant := core.TenantFrom(ctx)
	if err := r.validate(tenant, id); err != nil {
		return err
	}

	fullPath, _, found := r.findFile(tenant, id)
	if !found {
		return fmt.Errorf("%s/%s: %w", tenant, id, core.ErrNotFound)
	}
	rel := r.relPath(fullPath)
	r.cache.Delete(rel)
	r.saveCache()

	if r.config.Gitless {
		if err := os.Remove(fullPath); err != nil {
			return fmt.Errorf("failed to remove file: %w", err)
		}
		return nil
	}

	unlock, err := r.git.Lock()
	if err != nil {
		return fmt.Errorf("failed to acquire git lock: %w", err)
	}
	defer unlock()

	if err := r.git.Rm(rel); err != nil {
		return fmt.Errorf("failed to git rm: %w", err)
	}
	// git rm leaves untracked files in place.
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}

	msg := core.ChangeReason(ctx, git.FormatChangeReason(git.ChangeDocs, tenant, "delete "+id, ""))
	if err := r.git.Commit(git.AppendFooter(msg)); err != nil {
		return fmt.Errorf("failed to git commit: %w", err)
	}
	return nil
}

// SetReadOnly toggles write protection at runtime.
func (r *Repository) SetReadOnly(readOnly bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readOnly = readOnly
}

func (r *Repository) isReadOnly() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.readOnly
}

// IsGitInstalled checks if git is available in the system path.
func IsGitInstalled() bool {
	return git.IsInstalled()
}

// --- Path helpers ---

func (r *Repository) validate(tenant, id string) error {
	if err := r.validateTenant(tenant); err != nil {
		return err
	}
	return core.ValidateID(id)
}

func (r *Repository) validateTenant(tenant string) error {
	if tenant == "" || strings.ContainsAny(tenant, `/\`) || strings.HasPrefix(tenant, ".") {
		return fmt.Errorf("%w: tenant %q", core.ErrInvalidID, tenant)
	}
	return nil
}

func (r *Repository) filePath(tenant, id, ext string) string {
	return filepath.Join(r.Path, tenant, filepath.FromSlash(id)+ext)
}

func (r *Repository) relPath(fullPath string) string {
	rel, err := filepath.Rel(r.Path, fullPath)
	if err != nil {
		return filepath.ToSlash(fullPath)
	}
	return filepath.ToSlash(rel)
}

// findFile looks for the document file in every readable format.
func (r *Repository) findFile(tenant, id string) (path, ext string, found bool) {
	for _, ext := range extensions(r.serializers) {
		path := r.filePath(tenant, id, ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, ext, true
		}
	}
	return "", "", false
}

func (r *Repository) readFile(path, ext string) (*record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec, err := r.serializers[ext].Parse(f)
	if err != nil {
		return nil, err
	}
	if rec.Fields == nil {
		rec.Fields = schema.Document{}
	}
	return rec, nil
}

// docFile is a document file found by walk.
type docFile struct {
	path  string
	rel   string // relative to the store root, slash separated
	id    string // relative to the tenant directory, without extension
	ext   string
	mtime time.Time
}

// walk visits every document file under dir. A missing dir is empty.
// Hidden directories and temporary files are skipped.
func (r *Repository) walk(dir string, fn func(docFile) error) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != dir && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, TempFilePrefix) || strings.HasPrefix(name, ".") {
			return nil
		}
		ext := filepath.Ext(name)
		if _, ok := r.serializers[ext]; !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		return fn(docFile{
			path:  path,
			rel:   r.relPath(path),
			id:    strings.TrimSuffix(rel, ext),
			ext:   ext,
			mtime: info.ModTime(),
		})
	})
	if err == filepath.SkipDir {
		return nil
	}
	return err
}

// tenants lists the tenant directories of the store.
func (r *Repository) tenants() ([]string, error) {
	entries, err := os.ReadDir(r.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && r.validateTenant(e.Name()) == nil {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func newIndexEntry(tenant, id string, rec *record, mtime time.Time) *indexEntry {
	var fields map[string]any
	if rec.Fields != nil {
		fields = rec.Fields.ToMap()
	}
	return &indexEntry{
		Tenant:       tenant,
		ID:           id,
		Flavor:       rec.Flavor,
		Fields:       fields,
		LastModified: mtime,
	}
}

func (e *indexEntry) document() core.Document {
	return core.Document{
		Tenant: e.Tenant,
		ID:     e.ID,
		Flavor: e.Flavor,
		Fields: schema.FromMap(e.Fields),
	}
}
