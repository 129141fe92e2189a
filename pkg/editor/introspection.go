package editor

import (
	"github.com/aretw0/introspection"

	"github.com/aretw0/sparti/pkg/schema"
)

// SessionState exposes internal state for observability.
type SessionState struct {
	ID      string `json:"id"`
	Flavor  string `json:"flavor"`
	Fields  int    `json:"fields"`
	Buffers int    `json:"buffers"`
	Editing int    `json:"editing"`
	Dirty   int    `json:"dirty"`
	Commits int    `json:"commits"`
	Pending int    `json:"pending"`
	Closed  bool   `json:"closed"`
}

// State implements introspection.Introspectable.
func (s *Session) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SessionState{
		ID:      s.id,
		Flavor:  s.flavor,
		Fields:  len(s.doc),
		Buffers: len(s.buffers),
		Commits: s.commits,
		Closed:  s.closed,
	}
	for _, b := range s.buffers {
		switch b.state {
		case Editing:
			st.Editing++
		case DirtyUnfocused:
			st.Dirty++
		}
	}
	st.Pending = len(schema.Diff(s.base, s.doc))
	return st
}

// ComponentType implements introspection.Component.
func (s *Session) ComponentType() string {
	return "editor"
}

var _ introspection.Introspectable = (*Session)(nil)
var _ introspection.Component = (*Session)(nil)
