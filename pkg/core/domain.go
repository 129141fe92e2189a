// Package core holds the domain of the CMS: section documents owned by a
// tenant, the repository contract that stores them and the service that
// edits them.
package core

import (
	"context"
	"fmt"

	"github.com/aretw0/sparti/pkg/schema"
)

// DefaultTenant is used when the context carries no tenant.
const DefaultTenant = "default"

// Document is the central entity of the domain: the schema document of one
// page section, owned by a tenant.
type Document struct {
	Tenant string
	ID     string
	Flavor string
	Fields schema.Document
}

// EventType represents the type of change in the store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change in the store.
type Event struct {
	Type      EventType
	Tenant    string
	ID        string
	Timestamp int64 // Unix timestamp
}

// String renders the event for logs and lifecycle sources.
func (e Event) String() string {
	return fmt.Sprintf("%s %s/%s", e.Type, e.Tenant, e.ID)
}

type contextKey string

const (
	// ChangeReasonKey is the context key for passing specific change reasons
	// (commit messages) during Save/Delete operations.
	ChangeReasonKey contextKey = "change_reason"
	// TenantKey is the context key for the tenant that owns the documents of
	// an operation.
	TenantKey contextKey = "tenant"
)

// WithTenant returns a context scoped to tenant.
func WithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, TenantKey, tenant)
}

// TenantFrom returns the tenant carried by ctx, or DefaultTenant.
func TenantFrom(ctx context.Context) string {
	if t, ok := ctx.Value(TenantKey).(string); ok && t != "" {
		return t
	}
	return DefaultTenant
}

// WithChangeReason attaches a change reason to ctx.
func WithChangeReason(ctx context.Context, reason string) context.Context {
	return context.WithValue(ctx, ChangeReasonKey, reason)
}

// ChangeReason returns the change reason carried by ctx, or fallback.
func ChangeReason(ctx context.Context, fallback string) string {
	if val, ok := ctx.Value(ChangeReasonKey).(string); ok && val != "" {
		return val
	}
	return fallback
}
