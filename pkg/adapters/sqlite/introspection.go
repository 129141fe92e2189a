package sqlite

import (
	"github.com/aretw0/introspection"

	"github.com/aretw0/sparti/pkg/core"
)

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Path     string `json:"path"`
	ReadOnly bool   `json:"read_only"`
	Open     bool   `json:"open"`
	Conns    int    `json:"open_connections"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := RepositoryState{Path: r.config.Path, ReadOnly: r.config.ReadOnly, Open: r.rd != nil}
	if r.db != nil {
		st.Conns += r.db.Stats().OpenConnections
	}
	if r.rd != nil {
		st.Conns += r.rd.Stats().OpenConnections
	}
	return st
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "sqlite-repository"
}

var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)
var _ core.Transactional = (*Repository)(nil)
