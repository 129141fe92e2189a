package platform

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/sparti/pkg/core"
)

// ScopedRepository fills in a default tenant for contexts that carry none.
// Optional capabilities of the wrapped repository are forwarded and report
// core.ErrUnsupported when absent.
type ScopedRepository struct {
	repo   core.Repository
	tenant string
}

// Scope wraps repo so operations default to tenant.
func Scope(repo core.Repository, tenant string) *ScopedRepository {
	return &ScopedRepository{repo: repo, tenant: tenant}
}

// Unwrap returns the wrapped repository.
func (s *ScopedRepository) Unwrap() core.Repository { return s.repo }

// Tenant returns the default tenant.
func (s *ScopedRepository) Tenant() string { return s.tenant }

func (s *ScopedRepository) scope(ctx context.Context) context.Context {
	if t, ok := ctx.Value(core.TenantKey).(string); ok && t != "" {
		return ctx
	}
	return core.WithTenant(ctx, s.tenant)
}

func (s *ScopedRepository) Save(ctx context.Context, doc core.Document) error {
	return s.repo.Save(s.scope(ctx), doc)
}

func (s *ScopedRepository) Get(ctx context.Context, id string) (core.Document, error) {
	return s.repo.Get(s.scope(ctx), id)
}

func (s *ScopedRepository) List(ctx context.Context) ([]core.Document, error) {
	return s.repo.List(s.scope(ctx))
}

func (s *ScopedRepository) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(s.scope(ctx), id)
}

func (s *ScopedRepository) Initialize(ctx context.Context) error {
	return s.repo.Initialize(s.scope(ctx))
}

func (s *ScopedRepository) Begin(ctx context.Context) (core.Transaction, error) {
	tr, ok := s.repo.(core.Transactional)
	if !ok {
		return nil, fmt.Errorf("transactions: %w", core.ErrUnsupported)
	}
	tx, err := tr.Begin(s.scope(ctx))
	if err != nil {
		return nil, err
	}
	return &scopedTx{tx: tx, scope: s.scope}, nil
}

func (s *ScopedRepository) Sync(ctx context.Context) error {
	sy, ok := s.repo.(core.Syncable)
	if !ok {
		return fmt.Errorf("sync: %w", core.ErrUnsupported)
	}
	return sy.Sync(s.scope(ctx))
}

// Watch is not tenant filtered: watchers report every tenant.
func (s *ScopedRepository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	w, ok := s.repo.(core.Watchable)
	if !ok {
		return nil, fmt.Errorf("watch: %w", core.ErrUnsupported)
	}
	return w.Watch(ctx, pattern)
}

// scopedUploader applies the default tenant to uploads.
type scopedUploader struct {
	up    core.Uploader
	scope func(context.Context) context.Context
}

func (u scopedUploader) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	return u.up.Upload(u.scope(ctx), name, r)
}

type scopedTx struct {
	tx    core.Transaction
	scope func(context.Context) context.Context
}

func (t *scopedTx) Save(ctx context.Context, doc core.Document) error {
	return t.tx.Save(t.scope(ctx), doc)
}

func (t *scopedTx) Get(ctx context.Context, id string) (core.Document, error) {
	return t.tx.Get(t.scope(ctx), id)
}

func (t *scopedTx) Delete(ctx context.Context, id string) error {
	return t.tx.Delete(t.scope(ctx), id)
}

func (t *scopedTx) Commit(ctx context.Context, changeReason string) error {
	return t.tx.Commit(t.scope(ctx), changeReason)
}

func (t *scopedTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

var (
	_ core.Transactional = (*ScopedRepository)(nil)
	_ core.Syncable      = (*ScopedRepository)(nil)
	_ core.Watchable     = (*ScopedRepository)(nil)
)
