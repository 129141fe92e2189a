package sparti

import (
	"log/slog"
	"net/http"

	"github.com/aretw0/sparti/internal/platform"
	"github.com/aretw0/sparti/pkg/core"
	"github.com/aretw0/sparti/pkg/git"
	"github.com/aretw0/sparti/pkg/registry"
)

// --- Configuration ---

// Option defines a functional option for configuring Sparti.
type Option = platform.Option

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = platform.AdapterFS
	AdapterSQLite = platform.AdapterSQLite
	AdapterHTTP   = platform.AdapterHTTP
)

// WithAutoInit enables automatic initialization of the store.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithVersioning enables or disables git versioning.
func WithVersioning(enabled bool) Option {
	return platform.WithVersioning(enabled)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithMustExist ensures the store directory must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRepository injects a custom storage adapter.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithAdapter selects the storage adapter by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithSystemDir sets the hidden directory name (default ".sparti").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithEventBuffer sets the capacity of watch channels.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithStrict rejects files that are not a {flavor, fields} envelope.
func WithStrict(strict bool) Option {
	return platform.WithStrict(strict)
}

// WithFormat selects the on-disk format of new documents.
func WithFormat(format string) Option {
	return platform.WithFormat(format)
}

// WithReadOnly enables read-only mode.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithDevSafety controls the `go run` sandbox.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithWatcherErrorHandler receives errors raised inside the watch loop.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// WithTenant scopes operations whose context carries no tenant.
func WithTenant(tenant string) Option {
	return platform.WithTenant(tenant)
}

// WithRemote sets the base URL of the document API and upload service.
func WithRemote(baseURL string) Option {
	return platform.WithRemote(baseURL)
}

// WithHTTPClient sets the client used for the remote API.
func WithHTTPClient(c *http.Client) Option {
	return platform.WithHTTPClient(c)
}

// WithUploader injects the upload backend.
func WithUploader(u core.Uploader) Option {
	return platform.WithUploader(u)
}

// WithCatalog injects the component catalog.
func WithCatalog(c *registry.Catalog) Option {
	return platform.WithCatalog(c)
}

// WithCatalogFile extends the catalog from a YAML file.
func WithCatalogFile(path string) Option {
	return platform.WithCatalogFile(path)
}

// --- Factory ---

// New creates a Sparti service.
func New(uri string, opts ...Option) (*core.Service, error) {
	return platform.New(uri, opts...)
}

// Init initializes a repository explicitly.
func Init(uri string, opts ...Option) (core.Repository, error) {
	return platform.Init(uri, opts...)
}

// Sync pulls and pushes a versioned store.
func Sync(uri string, opts ...Option) error {
	return platform.Sync(uri, opts...)
}

// --- Safety & Utils ---

// ResolveStorePath applies the development sandbox to a store path.
func ResolveStorePath(userPath string, forceTemp bool) string {
	return platform.ResolveStorePath(userPath, forceTemp)
}

// IsDevRun reports whether the process runs under `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindStoreRoot walks up from startDir to the nearest store root.
func FindStoreRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// --- Change reasons ---

const (
	ChangeFeat  = git.ChangeFeat
	ChangeFix   = git.ChangeFix
	ChangeDocs  = git.ChangeDocs
	ChangeChore = git.ChangeChore
)

// FormatChangeReason builds a conventional commit message.
func FormatChangeReason(ctype, scope, subject, body string) string {
	return git.FormatChangeReason(ctype, scope, subject, body)
}
