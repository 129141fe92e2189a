package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/sparti/pkg/adapters/fs"
	"github.com/aretw0/sparti/pkg/adapters/remote"
	"github.com/aretw0/sparti/pkg/adapters/sqlite"
	"github.com/aretw0/sparti/pkg/core"
)

// Init opens and initializes the store named by uri. The uri is
// adapter-specific: a directory for "fs", a directory or .db file for
// "sqlite", a base URL for "http".
func Init(uri string, opts ...Option) (core.Repository, error) {
	repo, _, err := open(uri, parse(opts))
	return repo, err
}

// open builds the repository and the upload backend and initializes the
// repository.
func open(uri string, o *options) (core.Repository, core.Uploader, error) {
	repo := o.repository
	if repo == nil {
		var err error
		switch o.adapter {
		case AdapterFS, "":
			repo, err = initFS(uri, o)
		case AdapterSQLite:
			repo, err = initSQLite(uri, o)
		case AdapterHTTP:
			repo, err = initHTTP(uri, o)
		default:
			return nil, nil, fmt.Errorf("unknown adapter: %s", o.adapter)
		}
		if err != nil {
			return nil, nil, err
		}

		if err := repo.Initialize(context.Background()); err != nil {
			return nil, nil, err
		}
	}

	uploader, err := resolveUploader(repo, o)
	if err != nil {
		return nil, nil, err
	}

	if o.tenant != "" {
		scoped := Scope(repo, o.tenant)
		repo = scoped
		if uploader != nil {
			uploader = scopedUploader{up: uploader, scope: scoped.scope}
		}
	}
	return repo, uploader, nil
}

func resolveUploader(repo core.Repository, o *options) (core.Uploader, error) {
	if o.uploader != nil {
		return o.uploader, nil
	}
	if u, ok := repo.(core.Uploader); ok {
		return u, nil
	}
	base, _ := o.config["remote"].(string)
	if base == "" {
		return nil, nil
	}
	return newRemote(base, o)
}

func newRemote(base string, o *options) (*remote.Client, error) {
	readOnly, _ := o.config["read_only"].(bool)
	return remote.NewClient(remote.Config{
		BaseURL:    base,
		HTTPClient: o.httpClient,
		ReadOnly:   readOnly,
		Logger:     o.logger,
	})
}

// storePath applies the dev sandbox to a local path.
func storePath(path string, o *options) string {
	tempDir, _ := o.config["temp_dir"].(bool)
	readOnly, _ := o.config["read_only"].(bool)
	devSafety := true
	if val, ok := o.config["dev_safety"].(bool); ok {
		devSafety = val
	}

	bypass := readOnly || !devSafety
	useTemp := tempDir || (IsDevRun() && !bypass)
	resolved := ResolveStorePath(path, useTemp)

	if o.logger != nil {
		switch {
		case useTemp && resolved != filepath.Clean(path):
			o.logger.Warn("running in SAFE MODE (dev sandbox)", "original_path", path, "resolved_path", resolved)
		case IsDevRun() && bypass && !readOnly:
			o.logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", resolved)
		}
	}
	return resolved
}

func systemDir(o *options) string {
	if dir, _ := o.config["system_dir"].(string); dir != "" {
		return dir
	}
	return fs.DefaultSystemDir
}

// initFS handles the initialization logic for the filesystem adapter.
func initFS(path string, o *options) (core.Repository, error) {
	autoInit, _ := o.config["auto_init"].(bool)
	mustExist, _ := o.config["must_exist"].(bool)
	strict, _ := o.config["strict"].(bool)
	readOnly, _ := o.config["read_only"].(bool)
	format, _ := o.config["format"].(string)
	eventBuffer, _ := o.config["event_buffer"].(int)
	errorHandler, _ := o.config["watcher_error_handler"].(func(error))
	tempDir, _ := o.config["temp_dir"].(bool)

	resolved := storePath(path, o)
	sysDir := systemDir(o)

	gitless, explicit := o.config["gitless"].(bool)
	if !explicit {
		gitless = detectGitless(resolved, sysDir, autoInit)
		if gitless && o.logger != nil {
			o.logger.Debug("auto-detected gitless mode", "reason", ".git missing")
		}
	}

	return fs.NewRepository(fs.Config{
		Path:         resolved,
		AutoInit:     autoInit,
		Gitless:      gitless,
		MustExist:    mustExist || (!autoInit && !tempDir),
		ReadOnly:     readOnly,
		Strict:       strict,
		Logger:       o.logger,
		SystemDir:    sysDir,
		Format:       format,
		ErrorHandler: errorHandler,
		EventBuffer:  eventBuffer,
	}), nil
}

// detectGitless decides versioning when it is not configured. An existing
// .git means versioned. Without it, a fresh auto-initialized store is
// versioned and an existing one stays unversioned.
func detectGitless(root, sysDir string, autoInit bool) bool {
	if _, err := os.Stat(filepath.Join(root, ".git")); err == nil {
		return false
	}
	if !autoInit {
		return true
	}
	_, err := os.Stat(filepath.Join(root, sysDir))
	return err == nil
}

// initSQLite places the database at <root>/<systemDir>/documents.db unless
// uri already names a .db file.
func initSQLite(uri string, o *options) (core.Repository, error) {
	readOnly, _ := o.config["read_only"].(bool)

	path := storePath(uri, o)
	if filepath.Ext(path) != ".db" {
		path = filepath.Join(path, systemDir(o), sqlite.DefaultFile)
	}
	return sqlite.NewRepository(sqlite.Config{
		Path:     path,
		ReadOnly: readOnly,
		Logger:   o.logger,
	}), nil
}

// initHTTP uses uri as the API base URL, falling back to WithRemote.
func initHTTP(uri string, o *options) (core.Repository, error) {
	base := uri
	if base == "" || base == "." {
		base, _ = o.config["remote"].(string)
	}
	return newRemote(base, o)
}

// Sync synchronizes the store at uri with its remote.
func Sync(uri string, opts ...Option) error {
	o := parse(opts)

	repo := o.repository
	if repo == nil {
		var err error
		switch o.adapter {
		case AdapterFS, "":
			o.config["must_exist"] = true
			repo, err = initFS(uri, o)
		default:
			return fmt.Errorf("sync: adapter %s: %w", o.adapter, core.ErrUnsupported)
		}
		if err != nil {
			return err
		}
	}

	syncable, ok := repo.(core.Syncable)
	if !ok {
		return fmt.Errorf("sync: %w", core.ErrUnsupported)
	}
	return syncable.Sync(context.Background())
}
