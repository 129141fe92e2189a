package platform

import (
	"log/slog"
	"net/http"

	"github.com/aretw0/sparti/pkg/core"
	"github.com/aretw0/sparti/pkg/registry"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = "fs"
	AdapterSQLite = "sqlite"
	AdapterHTTP   = "http"
)

// options holds the internal configuration for the Sparti service.
type options struct {
	repository  core.Repository
	uploader    core.Uploader
	catalog     *registry.Catalog
	catalogFile string
	logger      *slog.Logger
	httpClient  *http.Client
	adapter     string
	tenant      string
	config      map[string]any
}

// Option defines a functional option for configuring Sparti.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter: AdapterFS,
		config:  make(map[string]any),
	}
}

func parse(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithAutoInit enables automatic initialization of the store (creates the
// directory and runs git init).
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.config["auto_init"] = auto
	}
}

// WithVersioning enables or disables git versioning of filesystem stores.
// By default it is detected from the presence of .git.
func WithVersioning(enabled bool) Option {
	return func(o *options) {
		o.config["gitless"] = !enabled
	}
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.config["temp_dir"] = force
	}
}

// WithMustExist ensures the store directory must already exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.config["must_exist"] = must
	}
}

// WithLogger sets the logger for the service and its adapters.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRepository injects a custom storage adapter. The named adapter is
// skipped.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithAdapter selects the storage adapter by name: "fs" (default),
// "sqlite" or "http".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithSystemDir sets the hidden directory name. Defaults to ".sparti".
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.config["system_dir"] = name
	}
}

// WithEventBuffer sets the capacity of watch channels. Zero means 100.
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.config["event_buffer"] = size
	}
}

// WithStrict makes filesystem stores reject files that are not a
// {flavor, fields} envelope.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.config["strict"] = strict
	}
}

// WithFormat selects the on-disk format of new documents: "json" or "yaml".
func WithFormat(format string) Option {
	return func(o *options) {
		o.config["format"] = format
	}
}

// WithWatcherErrorHandler registers a callback for errors raised inside the
// watch loop, which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config["watcher_error_handler"] = fn
	}
}

// WithReadOnly enables read-only mode. Writes return core.ErrReadOnly,
// initialization only checks that the store exists and the dev sandbox is
// bypassed.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.config["read_only"] = enabled
	}
}

// WithDevSafety controls the sandbox used under `go run`. By default (true)
// the store is redirected to a temporary directory.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.config["dev_safety"] = enabled
	}
}

// WithTenant scopes operations whose context carries no tenant.
func WithTenant(tenant string) Option {
	return func(o *options) {
		o.tenant = tenant
	}
}

// WithRemote sets the base URL of the document API. It is the store of the
// "http" adapter and the upload service of every adapter.
func WithRemote(baseURL string) Option {
	return func(o *options) {
		o.config["remote"] = baseURL
	}
}

// WithHTTPClient sets the client used to reach the remote API.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithUploader injects the upload backend, overriding WithRemote.
func WithUploader(u core.Uploader) Option {
	return func(o *options) {
		o.uploader = u
	}
}

// WithCatalog injects the component catalog. Defaults to the built-ins.
func WithCatalog(c *registry.Catalog) Option {
	return func(o *options) {
		o.catalog = c
	}
}

// WithCatalogFile extends the catalog with the components of a YAML file.
func WithCatalogFile(path string) Option {
	return func(o *options) {
		o.catalogFile = path
	}
}
