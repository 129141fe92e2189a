// Package sqlite stores section documents in a SQLite database, one row per
// tenant and document ID with the fields kept as a JSON object.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/aretw0/sparti/pkg/core"
	"github.com/aretw0/sparti/pkg/schema"
)

// DefaultFile is the database file name inside the system directory.
const DefaultFile = "documents.db"

// ErrNotInitialized is returned by operations issued before Initialize.
var ErrNotInitialized = errors.New("sqlite repository not initialized")

const ddl = `
CREATE TABLE IF NOT EXISTS documents (
	tenant     TEXT NOT NULL,
	id         TEXT NOT NULL,
	flavor     TEXT NOT NULL DEFAULT '',
	fields     TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (tenant, id)
);
CREATE INDEX IF NOT EXISTS idx_documents_flavor ON documents(tenant, flavor);
`

// Config holds the configuration for the SQLite repository.
type Config struct {
	// Path is the database file. Its directory is created on Initialize.
	Path     string
	ReadOnly bool
	Logger   *slog.Logger
}

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// readPoolSize bounds the read connections. WAL lets them run next to the
// single writer, so reads never wait for an open transaction.
const readPoolSize = 4

// Repository implements core.Repository and core.Transactional on SQLite.
// Writes and transactions share one connection; Get and List use a separate
// read-only pool.
type Repository struct {
	config Config

	mu sync.RWMutex
	db *sql.DB // writer, nil when ReadOnly
	rd *sql.DB // readers
}

// NewRepository creates a repository. Call Initialize before use.
func NewRepository(config Config) *Repository {
	return &Repository{config: config}
}

// Initialize opens the database and applies the schema. A read-only
// repository opens the existing file with mode=ro and changes nothing.
func (r *Repository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rd != nil {
		return nil
	}
	if r.config.Path == "" {
		return fmt.Errorf("sqlite: database path is empty")
	}

	var db *sql.DB
	if !r.config.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(r.config.Path), 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		var err error
		if db, err = r.open("rwc"); err != nil {
			return err
		}
		// SQLite serializes writers; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)

		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return fmt.Errorf("failed to enable WAL: %w", err)
		}
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			db.Close()
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	rd, err := r.open("ro")
	if err == nil {
		rd.SetMaxOpenConns(readPoolSize)
		err = rd.PingContext(ctx)
		if err != nil {
			rd.Close()
		}
	}
	if err != nil {
		if db != nil {
			db.Close()
		}
		return fmt.Errorf("failed to open database for reading: %w", err)
	}

	r.db, r.rd = db, rd
	if r.config.Logger != nil {
		r.config.Logger.Debug("sqlite store opened", "path", r.config.Path, "read_only", r.config.ReadOnly)
	}
	return nil
}

// open builds a file: URI so every pooled connection gets the same mode and
// busy timeout.
func (r *Repository) open(mode string) (*sql.DB, error) {
	abs, err := filepath.Abs(r.config.Path)
	if err != nil {
		return nil, err
	}
	path := filepath.ToSlash(abs)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path // file:///C:/...
	}
	dsn := (&url.URL{
		Scheme:   "file",
		Path:     path,
		RawQuery: "mode=" + mode + "&_pragma=busy_timeout(5000)",
	}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Close closes the database connections.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	if r.db != nil {
		errs = append(errs, r.db.Close())
	}
	if r.rd != nil {
		errs = append(errs, r.rd.Close())
	}
	r.db, r.rd = nil, nil
	return errors.Join(errs...)
}

// conn returns the writer connection.
func (r *Repository) conn() (*sql.DB, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.rd == nil {
		return nil, ErrNotInitialized
	}
	if r.db == nil {
		return nil, core.ErrReadOnly
	}
	return r.db, nil
}

// reader returns the read pool.
func (r *Repository) reader() (*sql.DB, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.rd == nil {
		return nil, ErrNotInitialized
	}
	return r.rd, nil
}

// Save inserts or replaces a document.
func (r *Repository) Save(ctx context.Context, doc core.Document) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	db, err := r.conn()
	if err != nil {
		return err
	}
	return saveDocument(ctx, db, doc)
}

// Get retrieves a document of the context tenant.
func (r *Repository) Get(ctx context.Context, id string) (core.Document, error) {
	db, err := r.reader()
	if err != nil {
		return core.Document{}, err
	}
	return getDocument(ctx, db, id)
}

// List returns every document of the context tenant, sorted by ID.
func (r *Repository) List(ctx context.Context) ([]core.Document, error) {
	db, err := r.reader()
	if err != nil {
		return nil, err
	}
	tenant := core.TenantFrom(ctx)

	rows, err := db.QueryContext(ctx,
		`SELECT id, flavor, fields FROM documents WHERE tenant = ? ORDER BY id`, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []core.Document
	for rows.Next() {
		var id, flavor, raw string
		if err := rows.Scan(&id, &flavor, &raw); err != nil {
			return nil, err
		}
		fields, err := decodeFields(raw)
		if err != nil {
			if r.config.Logger != nil {
				r.config.Logger.Warn("skipping unreadable document", "tenant", tenant, "id", id, "error", err)
			}
			continue
		}
		docs = append(docs, core.Document{Tenant: tenant, ID: id, Flavor: flavor, Fields: fields})
	}
	return docs, rows.Err()
}

// Delete removes a document of the context tenant.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	db, err := r.conn()
	if err != nil {
		return err
	}
	deleted, err := deleteDocument(ctx, db, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%s/%s: %w", core.TenantFrom(ctx), id, core.ErrNotFound)
	}
	return nil
}

func saveDocument(ctx context.Context, q querier, doc core.Document) error {
	tenant := core.TenantFrom(ctx)
	if doc.Tenant != "" {
		tenant = doc.Tenant
	}
	if err := core.ValidateID(doc.ID); err != nil {
		return err
	}
	raw, err := encodeFields(doc.Fields)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO documents (tenant, id, flavor, fields, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (tenant, id) DO UPDATE SET
			flavor = excluded.flavor,
			fields = excluded.fields,
			updated_at = excluded.updated_at`,
		tenant, doc.ID, doc.Flavor, raw, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save %s/%s: %w", tenant, doc.ID, err)
	}
	return nil
}

func getDocument(ctx context.Context, q querier, id string) (core.Document, error) {
	tenant := core.TenantFrom(ctx)
	var flavor, raw string
	err := q.QueryRowContext(ctx,
		`SELECT flavor, fields FROM documents WHERE tenant = ? AND id = ?`, tenant, id).Scan(&flavor, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Document{}, fmt.Errorf("%s/%s: %w", tenant, id, core.ErrNotFound)
	}
	if err != nil {
		return core.Document{}, fmt.Errorf("failed to get %s/%s: %w", tenant, id, err)
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return core.Document{}, fmt.Errorf("failed to parse document %s: %w", id, err)
	}
	return core.Document{Tenant: tenant, ID: id, Flavor: flavor, Fields: fields}, nil
}

func deleteDocument(ctx context.Context, q querier, id string) (bool, error) {
	res, err := q.ExecContext(ctx,
		`DELETE FROM documents WHERE tenant = ? AND id = ?`, core.TenantFrom(ctx), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func encodeFields(fields schema.Document) (string, error) {
	if fields == nil {
		fields = schema.Document{}
	}
	data, err := gojson.Marshal(fields.ToMap())
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	return string(data), nil
}

func decodeFields(raw string) (schema.Document, error) {
	return schema.ParseJSON([]byte(raw))
}
