package editor

import (
	"fmt"
	"strings"

	"github.com/aretw0/sparti/pkg/registry"
	"github.com/aretw0/sparti/pkg/schema"
)

// State is the lifecycle state of a Buffer.
type State int

const (
	// Idle buffers mirror the document value.
	Idle State = iota
	// Editing buffers own their draft; external updates do not touch it.
	Editing
	// DirtyUnfocused buffers lost focus with a draft that could not be
	// committed yet (for example, text that is not a number).
	DirtyUnfocused
	// Closed buffers are unmounted and never write again.
	Closed
)

func (st State) String() string {
	switch st {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case DirtyUnfocused:
		return "dirty"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(st))
}

// Buffer is the draft of a single field editor. It is bound to a field by
// address, so it keeps following the same logical item when siblings move.
//
// A Buffer is owned by its Session and shares its lock.
type Buffer struct {
	s     *Session
	id    string
	addr  []string
	kind  schema.Kind
	state State
	draft string
}

// ID returns the stable identity of the buffer.
func (b *Buffer) ID() string { return b.id }

// Focus starts editing. While focused, the draft is authoritative for the
// field and Session.Receive leaves it alone.
func (b *Buffer) Focus() error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.state == Closed {
		return ErrClosed
	}
	b.state = Editing
	return nil
}

// Input replaces the draft with the latest keystroke-level text. It never
// touches the document. Typing into an unfocused buffer focuses it.
func (b *Buffer) Input(text string) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.state == Closed {
		return ErrClosed
	}
	b.state = Editing
	b.draft = text
	return nil
}

// Blur ends editing and commits the draft into the document. When the draft
// cannot be converted to the field kind, the buffer stays DirtyUnfocused with
// its draft intact and the conversion error is returned.
func (b *Buffer) Blur() error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	switch b.state {
	case Closed:
		return ErrClosed
	case Idle:
		return nil
	}
	b.state = DirtyUnfocused
	if err := b.s.commit(b); err != nil {
		return err
	}
	b.s.sync()
	return nil
}

// Close unmounts the buffer. Any draft is discarded without committing.
func (b *Buffer) Close() {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	b.s.drop(b)
}

// Text returns the value the field editor should display.
func (b *Buffer) Text() string {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	return b.draft
}

// State returns the current state.
func (b *Buffer) State() State {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	return b.state
}

// Kind returns the kind the draft is converted to on commit.
func (b *Buffer) Kind() schema.Kind {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	return b.kind
}

// Path returns the current positional path of the field, or nil once the
// field no longer exists.
func (b *Buffer) Path() []string {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.state == Closed {
		return nil
	}
	path, _, ok := b.s.resolve(b.addr)
	if !ok {
		return nil
	}
	return path
}

// value converts the draft into a document value.
func (b *Buffer) value() (schema.Value, error) {
	v, err := schema.Coerce(b.kind, b.draft)
	if err != nil {
		return nil, err
	}
	if b.kind == schema.KindString && b.richText() {
		v = schema.String(RichText(b.draft))
	}
	return v, nil
}

func (b *Buffer) richText() bool {
	if b.s.catalog == nil || len(b.addr) != 1 {
		return false
	}
	return b.s.catalog.Widget(b.s.flavor, b.addr[0]) == registry.WidgetRichText
}

func (b *Buffer) name() string {
	if path, _, ok := b.s.resolve(b.addr); ok {
		return strings.Join(path, ".")
	}
	return b.id
}

// refresh copies the document value into the draft.
func (b *Buffer) refresh(v schema.Value) {
	b.kind = schema.Classify(v)
	b.draft = schema.Format(v)
}
