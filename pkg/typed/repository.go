// Package typed offers a type-safe view over section documents: the schema
// fields of a document are mapped onto a Go struct through its JSON tags.
package typed

import (
	"context"
	"fmt"

	"github.com/aretw0/sparti/pkg/core"
)

// DocumentModel is a typed view of a core.Document.
type DocumentModel[T any] struct {
	ID     string
	Flavor string
	Data   T        // The typed fields
	Saver  Saver[T] // Active Record reference interface
}

// Saver avoids tight coupling between models and the Repository or Service
// that produced them.
type Saver[T any] interface {
	Save(ctx context.Context, doc *DocumentModel[T]) error
}

// Save persists the document using the attached saver (Repository or Service).
func (d *DocumentModel[T]) Save(ctx context.Context) error {
	if d.Saver == nil {
		return fmt.Errorf("document is detached (missing Saver)")
	}
	return d.Saver.Save(ctx, d)
}

func (d *DocumentModel[T]) toCore() (core.Document, error) {
	fields, err := Encode(d.Data)
	if err != nil {
		return core.Document{}, err
	}
	return core.Document{ID: d.ID, Flavor: d.Flavor, Fields: fields}, nil
}

// Repository wraps a core.Repository to provide type-safe access.
type Repository[T any] struct {
	repo core.Repository
}

// NewRepository creates a new type-safe wrapper around an existing repository.
func NewRepository[T any](repo core.Repository) *Repository[T] {
	return &Repository[T]{repo: repo}
}

// Save persists a typed document.
func (r *Repository[T]) Save(ctx context.Context, doc *DocumentModel[T]) error {
	coreDoc, err := doc.toCore()
	if err != nil {
		return err
	}
	if doc.Saver == nil {
		doc.Saver = r
	}
	return r.repo.Save(ctx, coreDoc)
}

// Get retrieves a document and decodes it.
func (r *Repository[T]) Get(ctx context.Context, id string) (*DocumentModel[T], error) {
	coreDoc, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromCore(coreDoc, r)
}

// List returns all documents converted to the typed model.
func (r *Repository[T]) List(ctx context.Context) ([]*DocumentModel[T], error) {
	coreDocs, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return fromCoreAll(coreDocs, r)
}

// Delete removes a document by ID.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	return r.repo.Delete(ctx, id)
}

func fromCore[T any](coreDoc core.Document, saver Saver[T]) (*DocumentModel[T], error) {
	data, err := Decode[T](coreDoc.Fields)
	if err != nil {
		return nil, err
	}
	return &DocumentModel[T]{
		ID:     coreDoc.ID,
		Flavor: coreDoc.Flavor,
		Data:   data,
		Saver:  saver,
	}, nil
}

func fromCoreAll[T any](coreDocs []core.Document, saver Saver[T]) ([]*DocumentModel[T], error) {
	result := make([]*DocumentModel[T], 0, len(coreDocs))
	for _, d := range coreDocs {
		model, err := fromCore(d, saver)
		if err != nil {
			return nil, fmt.Errorf("failed to process document %s: %w", d.ID, err)
		}
		result = append(result, model)
	}
	return result, nil
}
