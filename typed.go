package sparti

import (
	"github.com/aretw0/sparti/pkg/core"
	"github.com/aretw0/sparti/pkg/typed"
)

// DocumentModel is a typed view of a section document.
type DocumentModel[T any] = typed.DocumentModel[T]

// TypedRepository is a type-safe wrapper around a repository.
type TypedRepository[T any] = typed.Repository[T]

// TypedService is a type-safe wrapper around a service.
type TypedService[T any] = typed.Service[T]

// NewTypedRepository creates a type-safe wrapper around an existing repository.
func NewTypedRepository[T any](repo core.Repository) *typed.Repository[T] {
	return typed.NewRepository[T](repo)
}

// NewTypedService creates a type-safe wrapper around an existing service.
func NewTypedService[T any](svc *core.Service) *typed.Service[T] {
	return typed.NewService[T](svc)
}

// OpenTypedRepository opens a store and wraps it.
func OpenTypedRepository[T any](uri string, opts ...Option) (*typed.Repository[T], error) {
	repo, err := Init(uri, opts...)
	if err != nil {
		return nil, err
	}
	return typed.NewRepository[T](repo), nil
}

// OpenTypedService opens a service and wraps it.
func OpenTypedService[T any](uri string, opts ...Option) (*typed.Service[T], error) {
	svc, err := New(uri, opts...)
	if err != nil {
		return nil, err
	}
	return typed.NewService[T](svc), nil
}
