package editor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/aretw0/sparti/pkg/registry"
	"github.com/aretw0/sparti/pkg/schema"
)

// Uploader stores a file and returns the public URL it is served from.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

type options struct {
	flavor  string
	catalog *registry.Catalog
	confirm Confirmer
	logger  *slog.Logger
}

// Option configures a Session.
type Option func(*options)

// WithFlavor sets the document flavor used to look up reserved fields.
func WithFlavor(flavor string) Option {
	return func(o *options) {
		o.flavor = flavor
	}
}

// WithCatalog sets the component catalog. Without one, every field is custom.
func WithCatalog(c *registry.Catalog) Option {
	return func(o *options) {
		o.catalog = c
	}
}

// WithConfirmer sets who approves destructive operations.
func WithConfirmer(c Confirmer) Option {
	return func(o *options) {
		o.confirm = c
	}
}

// WithLogger sets the logger for the session.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Session holds the authoritative document of one editing surface together
// with the buffers of its field editors.
//
// All methods are safe to call from multiple goroutines; external updates
// usually arrive from a watcher while the user edits.
type Session struct {
	mu      sync.Mutex
	id      string
	flavor  string
	catalog *registry.Catalog
	confirm Confirmer
	logger  *slog.Logger

	doc     schema.Document
	base    schema.Document
	buffers map[string]*Buffer
	tables  map[string]*keyTable
	commits int
	closed  bool
}

// NewSession starts editing a copy of doc.
func NewSession(doc schema.Document, opts ...Option) *Session {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if doc == nil {
		doc = schema.Document{}
	}
	return &Session{
		id:      uuid.NewString(),
		flavor:  o.flavor,
		catalog: o.catalog,
		confirm: o.confirm,
		logger:  o.logger,
		doc:     doc.Clone(),
		base:    doc.Clone(),
		buffers: make(map[string]*Buffer),
		tables:  make(map[string]*keyTable),
	}
}

// ID returns the session identity.
func (s *Session) ID() string { return s.id }

// Flavor returns the document flavor.
func (s *Session) Flavor() string { return s.flavor }

// Document returns a copy of the authoritative document.
func (s *Session) Document() schema.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Pending returns the changes made since the document was last received.
func (s *Session) Pending() schema.Patch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return schema.Diff(s.base, s.doc)
}

// Bind returns the buffer of the field at path, creating it on first use.
// Array items are addressed by their current index.
func (s *Session) Bind(path ...string) (*Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrNoSuchField)
	}
	addr, v, err := s.identify(path)
	if err != nil {
		return nil, err
	}
	key := joinAddr(addr)
	for _, b := range s.buffers {
		if joinAddr(b.addr) == key {
			return b, nil
		}
	}
	b := &Buffer{s: s, id: uuid.NewString(), addr: addr}
	b.refresh(v)
	s.buffers[b.id] = b
	return b, nil
}

// Receive replaces the authoritative document with an external version.
// Idle buffers pick up the new values; focused and dirty buffers keep their
// drafts, which win when they are committed. Buffers whose field is gone are
// closed.
func (s *Session) Receive(doc schema.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if doc == nil {
		doc = schema.Document{}
	}
	s.rekey(doc.Clone())
	s.base = doc.Clone()
	s.sync()
	if s.logger != nil {
		s.logger.Debug("received external document", "session", s.id, "fields", len(doc))
	}
	return nil
}

// Save is the explicit commit point: every buffer holding a draft is written
// into the document in one step. Focused buffers stay focused. If any draft
// fails to convert, nothing is written.
func (s *Session) Save() (schema.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	next := s.doc
	var flushed []*Buffer
	for _, b := range s.ordered() {
		if b.state != Editing && b.state != DirtyUnfocused {
			continue
		}
		path, cur, ok := s.resolve(b.addr)
		if !ok {
			continue
		}
		v, err := b.value()
		if err != nil {
			return nil, fmt.Errorf("editor: field %s: %w", strings.Join(path, "."), err)
		}
		flushed = append(flushed, b)
		if schema.Equal(cur, v) {
			continue
		}
		next, err = schema.SetPath(next, path, v)
		if err != nil {
			return nil, err
		}
	}

	s.doc = next
	for _, b := range flushed {
		if b.state == DirtyUnfocused {
			b.state = Idle
		}
	}
	s.commits++
	s.sync()
	if s.logger != nil {
		s.logger.Debug("saved drafts", "session", s.id, "buffers", len(flushed))
	}
	return s.doc.Clone(), nil
}

// Close unmounts every buffer. The session rejects further edits.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.buffers {
		b.state = Closed
	}
	s.buffers = make(map[string]*Buffer)
	s.closed = true
}

// UploadInto uploads r and stores the resulting URL in the field at path.
// The document is only touched when the upload succeeds. The session is not
// locked while the upload runs.
func (s *Session) UploadInto(ctx context.Context, up Uploader, path []string, name string, r io.Reader) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	addr, _, err := s.identify(path)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	url, err := up.Upload(ctx, name, r)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("upload failed", "session", s.id, "file", name, "error", err)
		}
		return "", fmt.Errorf("editor: upload %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	if err := s.set(addr, schema.String(url)); err != nil {
		return "", err
	}
	s.sync()
	return url, nil
}

// FieldInfo describes a top-level field for renderers.
type FieldInfo struct {
	Key    string      `json:"key"`
	Label  string      `json:"label"`
	Kind   schema.Kind `json:"kind"`
	Known  bool        `json:"known"`
	Widget string      `json:"widget"`
}

// Fields lists the top-level fields: reserved ones first in catalog order,
// then custom ones sorted by key.
func (s *Session) Fields() []FieldInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := s.known()
	out := make([]FieldInfo, 0, len(s.doc))
	for _, key := range known {
		v, ok := s.doc[key]
		if !ok {
			continue
		}
		out = append(out, FieldInfo{
			Key:    key,
			Label:  schema.Label(key),
			Kind:   schema.Classify(v),
			Known:  true,
			Widget: s.catalog.Widget(s.flavor, key),
		})
	}
	custom := schema.PartitionUnknown(s.doc, known)
	for _, key := range custom.Keys() {
		kind := schema.Classify(custom[key])
		out = append(out, FieldInfo{
			Key:    key,
			Label:  schema.Label(key),
			Kind:   kind,
			Widget: registry.WidgetFor(kind),
		})
	}
	return out
}

func (s *Session) known() []string {
	if s.catalog == nil {
		return nil
	}
	return s.catalog.KnownFields(s.flavor)
}

// commit writes the draft of b. A buffer whose field disappeared is closed
// instead of writing.
func (s *Session) commit(b *Buffer) error {
	path, cur, ok := s.resolve(b.addr)
	if !ok {
		s.drop(b)
		return ErrNoSuchField
	}
	v, err := b.value()
	if err != nil {
		return fmt.Errorf("editor: field %s: %w", strings.Join(path, "."), err)
	}
	b.state = Idle
	if schema.Equal(cur, v) {
		return nil
	}
	next, err := schema.SetPath(s.doc, path, v)
	if err != nil {
		return err
	}
	s.doc = next
	s.commits++
	if s.logger != nil {
		s.logger.Debug("committed field", "session", s.id, "field", b.name())
	}
	return nil
}

// set writes v at addr.
func (s *Session) set(addr []string, v schema.Value) error {
	path, _, ok := s.resolve(addr)
	if !ok {
		return ErrNoSuchField
	}
	next, err := schema.SetPath(s.doc, path, v)
	if err != nil {
		return err
	}
	s.doc = next
	s.commits++
	return nil
}

// sync refreshes idle buffers from the document and closes the buffers whose
// field no longer exists.
func (s *Session) sync() {
	for _, b := range s.buffers {
		_, v, ok := s.resolve(b.addr)
		if !ok {
			s.drop(b)
			continue
		}
		if b.state == Idle {
			b.refresh(v)
		}
	}
}

func (s *Session) drop(b *Buffer) {
	b.state = Closed
	b.draft = ""
	delete(s.buffers, b.id)
}

// closeUnder drops every buffer and identity table at or below prefix.
func (s *Session) closeUnder(prefix []string) {
	for _, b := range s.buffers {
		if hasPrefix(b.addr, prefix) {
			s.drop(b)
		}
	}
	s.forget(prefix)
}

func (s *Session) ordered() []*Buffer {
	out := make([]*Buffer, 0, len(s.buffers))
	for _, b := range s.buffers {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return joinAddr(out[i].addr) < joinAddr(out[j].addr) })
	return out
}

// approve asks the confirmer. Callers must not hold the lock, so a prompt
// does not stall external updates.
func (s *Session) approve(action string) error {
	if s.confirm == nil || !s.confirm.Confirm(action) {
		return fmt.Errorf("%w: %s", ErrNotConfirmed, action)
	}
	return nil
}
