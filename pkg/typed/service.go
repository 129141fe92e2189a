package typed

import (
	"context"

	"github.com/aretw0/sparti/pkg/core"
	"github.com/aretw0/sparti/pkg/schema"
)

// Service wraps a core.Service to provide type-safe access.
type Service[T any] struct {
	svc *core.Service
}

// NewService creates a new typed service wrapper.
func NewService[T any](svc *core.Service) *Service[T] {
	return &Service[T]{svc: svc}
}

// Save persists a typed document through the core Service, which validates
// its ID.
func (s *Service[T]) Save(ctx context.Context, doc *DocumentModel[T]) error {
	coreDoc, err := doc.toCore()
	if err != nil {
		return err
	}
	if doc.Saver == nil {
		doc.Saver = s
	}
	return s.svc.SaveDocument(ctx, coreDoc)
}

// Update writes only the fields of doc that differ from the stored
// document, so concurrent edits of other fields survive.
func (s *Service[T]) Update(ctx context.Context, doc *DocumentModel[T]) error {
	fields, err := Encode(doc.Data)
	if err != nil {
		return err
	}
	stored, err := s.svc.GetDocument(ctx, doc.ID)
	if err != nil {
		return err
	}
	patch := schema.Diff(stored.Fields, fields)
	for k := range patch {
		if schema.IsDelete(patch[k]) {
			// Fields unknown to T are kept.
			delete(patch, k)
		}
	}
	_, err = s.svc.Update(ctx, doc.ID, patch)
	return err
}

// Watch observes changes in the repository.
func (s *Service[T]) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	return s.svc.Watch(ctx, pattern)
}

// Get retrieves a document via Service.
func (s *Service[T]) Get(ctx context.Context, id string) (*DocumentModel[T], error) {
	coreDoc, err := s.svc.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromCore(coreDoc, s)
}

// List retrieves all documents via Service.
func (s *Service[T]) List(ctx context.Context) ([]*DocumentModel[T], error) {
	coreDocs, err := s.svc.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	return fromCoreAll(coreDocs, s)
}

// Delete removes a document via Service.
func (s *Service[T]) Delete(ctx context.Context, id string) error {
	return s.svc.DeleteDocument(ctx, id)
}

// WithTransaction executes a typed function within a transaction.
func (s *Service[T]) WithTransaction(ctx context.Context, fn func(tx *Transaction[T]) error) error {
	return s.svc.WithTransaction(ctx, func(coreTx core.Transaction) error {
		return fn(&Transaction[T]{tx: coreTx})
	})
}

// Transaction wraps a core.Transaction for typed operations.
type Transaction[T any] struct {
	tx core.Transaction
}

// Save stages a typed document within the transaction.
func (t *Transaction[T]) Save(ctx context.Context, doc *DocumentModel[T]) error {
	coreDoc, err := doc.toCore()
	if err != nil {
		return err
	}
	if doc.Saver == nil {
		doc.Saver = t
	}
	return t.tx.Save(ctx, coreDoc)
}

// Get retrieves a document within the transaction.
func (t *Transaction[T]) Get(ctx context.Context, id string) (*DocumentModel[T], error) {
	coreDoc, err := t.tx.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromCore(coreDoc, t)
}

// Delete stages a removal within the transaction.
func (t *Transaction[T]) Delete(ctx context.Context, id string) error {
	return t.tx.Delete(ctx, id)
}
