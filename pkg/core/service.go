package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/sparti/pkg/editor"
	"github.com/aretw0/sparti/pkg/registry"
	"github.com/aretw0/sparti/pkg/schema"
)

// Service handles the business logic for documents.
type Service struct {
	repo            Repository
	catalog         *registry.Catalog
	uploader        Uploader
	logger          *slog.Logger
	eventBufferSize int

	mu        sync.RWMutex
	followers int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCatalog sets the component catalog used to instantiate documents and
// to look up reserved fields.
func WithCatalog(c *registry.Catalog) ServiceOption {
	return func(s *Service) {
		s.catalog = c
	}
}

// WithUploader sets the upload backend for image fields.
func WithUploader(u Uploader) ServiceOption {
	return func(s *Service) {
		s.uploader = u
	}
}

// WithLogger sets the logger for the service and the sessions it opens.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithEventBuffer records the size of the event buffer used by watchers.
func WithEventBuffer(size int) ServiceOption {
	return func(s *Service) {
		s.eventBufferSize = size
	}
}

// NewService creates a new Service.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, eventBufferSize: 100}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repository returns the underlying repository.
func (s *Service) Repository() Repository { return s.repo }

// Catalog returns the component catalog, if any.
func (s *Service) Catalog() *registry.Catalog { return s.catalog }

// ValidateID checks that id is a relative, slash separated document ID.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if strings.HasPrefix(id, "/") || strings.Contains(id, "\\") {
		return fmt.Errorf("%w: %q must be relative", ErrInvalidID, id)
	}
	for _, part := range strings.Split(id, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
	}
	return nil
}

// SaveDocument saves a document. An empty tenant is resolved by the
// repository from the context.
func (s *Service) SaveDocument(ctx context.Context, doc Document) error {
	if err := ValidateID(doc.ID); err != nil {
		return err
	}
	if doc.Tenant != "" {
		ctx = WithTenant(ctx, doc.Tenant)
	}
	if doc.Fields == nil {
		doc.Fields = schema.Document{}
	}
	return s.repo.Save(ctx, doc)
}

// GetDocument retrieves a document.
func (s *Service) GetDocument(ctx context.Context, id string) (Document, error) {
	if err := ValidateID(id); err != nil {
		return Document{}, err
	}
	return s.repo.Get(ctx, id)
}

// ListDocuments retrieves all documents of the tenant.
func (s *Service) ListDocuments(ctx context.Context) ([]Document, error) {
	return s.repo.List(ctx)
}

// DeleteDocument removes a document.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// CreateDocument stores a new document of the given flavor filled with the
// component defaults.
func (s *Service) CreateDocument(ctx context.Context, id, flavor string) (Document, error) {
	if err := ValidateID(id); err != nil {
		return Document{}, err
	}
	fields := schema.Document{}
	if s.catalog != nil && flavor != "" {
		var err error
		fields, err = s.catalog.Instantiate(flavor)
		if err != nil {
			return Document{}, err
		}
	}
	if err := s.repo.Save(ctx, Document{ID: id, Flavor: flavor, Fields: fields}); err != nil {
		return Document{}, err
	}
	return s.repo.Get(ctx, id)
}

// KnownFields returns the reserved fields of a flavor.
func (s *Service) KnownFields(flavor string) []string {
	if s.catalog == nil {
		return nil
	}
	return s.catalog.KnownFields(flavor)
}

// Update fetches the stored document, applies patch through the merge
// pipeline and stores the result. Nothing is written when the patch changes
// nothing.
func (s *Service) Update(ctx context.Context, id string, patch schema.Patch) (Document, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return Document{}, err
	}
	next := schema.ApplyUpdate(doc.Fields, patch)
	if len(schema.Diff(doc.Fields, next)) == 0 {
		return doc, nil
	}
	doc.Fields = next
	if err := s.repo.Save(ctx, doc); err != nil {
		return Document{}, err
	}
	if s.logger != nil {
		s.logger.Debug("document updated", "tenant", doc.Tenant, "id", id, "fields", len(patch))
	}
	return doc, nil
}

// Edit opens an editing session on the stored document.
func (s *Service) Edit(ctx context.Context, id string, opts ...editor.Option) (*editor.Session, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	base := []editor.Option{
		editor.WithFlavor(doc.Flavor),
		editor.WithCatalog(s.catalog),
		editor.WithLogger(s.logger),
	}
	return editor.NewSession(doc.Fields, append(base, opts...)...), nil
}

// Commit saves the drafts of sess and writes the session's changes to the
// stored document. Only the fields changed in the session are written, so
// concurrent changes to other fields survive. The session then receives the
// stored result.
func (s *Service) Commit(ctx context.Context, id string, sess *editor.Session) (Document, error) {
	if _, err := sess.Save(); err != nil {
		return Document{}, err
	}
	patch := sess.Pending()
	if len(patch) == 0 {
		return s.GetDocument(ctx, id)
	}
	doc, err := s.Update(ctx, id, patch)
	if err != nil {
		return Document{}, err
	}
	if err := sess.Receive(doc.Fields); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Upload stores a file through the configured uploader.
func (s *Service) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	if s.uploader == nil {
		return "", fmt.Errorf("upload: %w", ErrUnsupported)
	}
	return s.uploader.Upload(ctx, name, r)
}

// WithTransaction executes a function within a transaction.
func (s *Service) WithTransaction(ctx context.Context, fn func(tx Transaction) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx, ChangeReason(ctx, "batch transaction"))
}

// Begin initiates a transaction manually.
// Exposed for power users or custom workflows.
func (s *Service) Begin(ctx context.Context) (Transaction, error) {
	tr, ok := s.repo.(Transactional)
	if !ok {
		return nil, fmt.Errorf("transactions: %w", ErrUnsupported)
	}
	return tr.Begin(ctx)
}

// Sync synchronizes the repository with its remote if supported.
func (s *Service) Sync(ctx context.Context) error {
	sy, ok := s.repo.(Syncable)
	if !ok {
		return fmt.Errorf("sync: %w", ErrUnsupported)
	}
	return sy.Sync(ctx)
}

// Watch observes changes in the repository if supported.
func (s *Service) Watch(ctx context.Context, pattern string) (<-chan Event, error) {
	w, ok := s.repo.(Watchable)
	if !ok {
		return nil, fmt.Errorf("watch: %w", ErrUnsupported)
	}
	return w.Watch(ctx, pattern)
}

// Follow feeds every stored change of document id into sess until ctx is
// done, the session is closed or the document is deleted. Focused fields of
// the session keep their drafts.
func (s *Service) Follow(ctx context.Context, sess *editor.Session, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	events, err := s.Watch(ctx, id)
	if err != nil {
		return err
	}
	tenant := TenantFrom(ctx)

	s.mu.Lock()
	s.followers++
	s.mu.Unlock()

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer func() {
			s.mu.Lock()
			s.followers--
			s.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				if e.ID != id || (e.Tenant != "" && e.Tenant != tenant) {
					continue
				}
				if e.Type == EventDelete {
					sess.Close()
					return nil
				}
				doc, err := s.repo.Get(ctx, id)
				if err != nil {
					if s.logger != nil {
						s.logger.Warn("follow: failed to reload document", "id", id, "error", err)
					}
					continue
				}
				if err := sess.Receive(doc.Fields); errors.Is(err, editor.ErrClosed) {
					return nil
				}
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		if s.logger != nil {
			s.logger.Error("follow panic", "id", id, "error", err)
		}
	}))
	return nil
}
