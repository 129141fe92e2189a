package editor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/sparti/pkg/schema"
)

// ArrayEditor performs structural edits on an array field. Leaf values of its
// items are edited through buffers from Session.Bind.
type ArrayEditor struct {
	s    *Session
	addr []string
}

// ObjectEditor performs structural edits on an object field or, with an
// empty path, on the document itself.
type ObjectEditor struct {
	s    *Session
	addr []string
}

// Array returns the structural editor of the array at path.
func (s *Session) Array(path ...string) (*ArrayEditor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	addr, v, err := s.identify(path)
	if err != nil {
		return nil, err
	}
	if _, ok := v.(schema.Array); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotArray, strings.Join(path, "."))
	}
	return &ArrayEditor{s: s, addr: addr}, nil
}

// Object returns the structural editor of the object at path. No path means
// the document root.
func (s *Session) Object(path ...string) (*ObjectEditor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	addr, v, err := s.identify(path)
	if err != nil {
		return nil, err
	}
	if _, ok := v.(schema.Document); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotObject, strings.Join(path, "."))
	}
	return &ObjectEditor{s: s, addr: addr}, nil
}

// locate resolves the container of an editor under the session lock.
func (s *Session) locate(addr []string) ([]string, schema.Value, error) {
	if s.closed {
		return nil, nil, ErrClosed
	}
	path, v, ok := s.resolve(addr)
	if !ok {
		return nil, nil, ErrNoSuchField
	}
	return path, v, nil
}

func (a *ArrayEditor) array() ([]string, schema.Array, error) {
	path, v, err := a.s.locate(a.addr)
	if err != nil {
		return nil, nil, err
	}
	arr, ok := v.(schema.Array)
	if !ok {
		return nil, nil, ErrNotArray
	}
	return path, arr, nil
}

// Len returns the number of items.
func (a *ArrayEditor) Len() int {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	_, arr, err := a.array()
	if err != nil {
		return 0
	}
	return len(arr)
}

// Key returns the identity key of the item at index.
func (a *ArrayEditor) Key(index int) (string, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	_, arr, err := a.array()
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(arr) {
		return "", fmt.Errorf("%w: index %d", ErrNoSuchField, index)
	}
	return a.s.table(a.addr, len(arr)).keys[index], nil
}

// Add appends the default value of kind and returns its index.
func (a *ArrayEditor) Add(kind schema.Kind) (int, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	path, arr, err := a.array()
	if err != nil {
		return 0, err
	}
	a.s.table(a.addr, len(arr))
	next := make(schema.Array, len(arr), len(arr)+1)
	copy(next, arr)
	next = append(next, schema.DefaultFor(kind))
	if err := a.s.replace(path, next); err != nil {
		return 0, err
	}
	a.s.table(a.addr, len(next))
	a.s.sync()
	return len(next) - 1, nil
}

// Remove deletes the item at index once confirmed. Buffers bound inside the
// item are closed without committing.
func (a *ArrayEditor) Remove(index int) error {
	key, err := a.Key(index)
	if err != nil {
		return err
	}
	if err := a.s.approve(fmt.Sprintf("Remove item %d?", index+1)); err != nil {
		return err
	}

	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	path, arr, err := a.array()
	if err != nil {
		return err
	}
	t := a.s.table(a.addr, len(arr))
	idx := indexOf(t.keys, key)
	if idx < 0 {
		return ErrNoSuchField
	}
	a.s.closeUnder(extend(a.addr, key))
	next := make(schema.Array, 0, len(arr)-1)
	next = append(next, arr[:idx]...)
	next = append(next, arr[idx+1:]...)
	if err := a.s.replace(path, next); err != nil {
		return err
	}
	t.keys = append(t.keys[:idx:idx], t.keys[idx+1:]...)
	a.s.sync()
	return nil
}

// Reorder moves the item at from to position to. Identity keys move with
// their items, so buffers keep editing the same logical entry.
func (a *ArrayEditor) Reorder(from, to int) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	path, arr, err := a.array()
	if err != nil {
		return err
	}
	if from < 0 || from >= len(arr) || to < 0 || to >= len(arr) {
		return fmt.Errorf("%w: cannot move %d to %d in %d items", ErrNoSuchField, from, to, len(arr))
	}
	if from == to {
		return nil
	}
	t := a.s.table(a.addr, len(arr))
	next := schema.Array(move(arr, from, to))
	if err := a.s.replace(path, next); err != nil {
		return err
	}
	t.keys = move(t.keys, from, to)
	a.s.sync()
	return nil
}

// ChangeKind replaces the item at index with the default value of kind once
// confirmed. The previous content is lost and its buffers are closed.
func (a *ArrayEditor) ChangeKind(index int, kind schema.Kind) error {
	key, err := a.Key(index)
	if err != nil {
		return err
	}
	if err := a.s.approve(fmt.Sprintf("Change item %d to %s? Its content will be lost.", index+1, kind)); err != nil {
		return err
	}

	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	path, arr, err := a.array()
	if err != nil {
		return err
	}
	idx := indexOf(a.s.table(a.addr, len(arr)).keys, key)
	if idx < 0 {
		return ErrNoSuchField
	}
	item := extend(a.addr, key)
	a.s.closeUnder(item)
	if err := a.s.replace(extend(path, strconv.Itoa(idx)), schema.DefaultFor(kind)); err != nil {
		return err
	}
	a.s.sync()
	return nil
}

func (o *ObjectEditor) object() ([]string, schema.Document, error) {
	path, v, err := o.s.locate(o.addr)
	if err != nil {
		return nil, nil, err
	}
	obj, ok := v.(schema.Document)
	if !ok {
		return nil, nil, ErrNotObject
	}
	return path, obj, nil
}

// Keys returns the keys of the object, sorted.
func (o *ObjectEditor) Keys() []string {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	_, obj, err := o.object()
	if err != nil {
		return nil
	}
	return obj.Keys()
}

// Validate checks a proposed key. At the document root, reserved fields of
// the flavor are rejected and only custom fields count as existing.
func (o *ObjectEditor) Validate(name string) schema.Validation {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	return o.validate(name)
}

func (o *ObjectEditor) validate(name string) schema.Validation {
	_, obj, err := o.object()
	if err != nil {
		return schema.Validation{Error: err.Error()}
	}
	if len(o.addr) == 0 {
		known := o.s.known()
		return schema.ValidateFieldName(name, known, schema.PartitionUnknown(obj, known).Keys())
	}
	return schema.ValidateFieldName(name, nil, obj.Keys())
}

// Add creates a new key holding the default value of kind.
func (o *ObjectEditor) Add(name string, kind schema.Kind) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if v := o.validate(name); !v.Valid {
		return fmt.Errorf("%w: %s", ErrInvalidName, v.Error)
	}
	path, _, err := o.object()
	if err != nil {
		return err
	}
	if err := o.s.replace(extend(path, name), schema.DefaultFor(kind)); err != nil {
		return err
	}
	o.s.sync()
	return nil
}

// Remove deletes key once confirmed. Buffers bound at or below it are closed
// without committing.
func (o *ObjectEditor) Remove(key string) error {
	if err := o.has(key); err != nil {
		return err
	}
	if err := o.s.approve(fmt.Sprintf("Remove field %q?", key)); err != nil {
		return err
	}

	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	path, obj, err := o.object()
	if err != nil {
		return err
	}
	if _, ok := obj[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchField, key)
	}
	o.s.closeUnder(extend(o.addr, key))
	if err := o.s.replace(extend(path, key), schema.Delete); err != nil {
		return err
	}
	o.s.sync()
	return nil
}

// ChangeKind replaces the value of key with the default of kind once
// confirmed. The previous content is lost and its buffers are closed.
func (o *ObjectEditor) ChangeKind(key string, kind schema.Kind) error {
	if err := o.has(key); err != nil {
		return err
	}
	if err := o.s.approve(fmt.Sprintf("Change %q to %s? Its content will be lost.", key, kind)); err != nil {
		return err
	}

	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	path, obj, err := o.object()
	if err != nil {
		return err
	}
	if _, ok := obj[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchField, key)
	}
	o.s.closeUnder(extend(o.addr, key))
	if err := o.s.replace(extend(path, key), schema.DefaultFor(kind)); err != nil {
		return err
	}
	o.s.sync()
	return nil
}

func (o *ObjectEditor) has(key string) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	_, obj, err := o.object()
	if err != nil {
		return err
	}
	if _, ok := obj[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchField, key)
	}
	return nil
}

// replace writes v at a positional path through the merge pipeline.
func (s *Session) replace(path []string, v schema.Value) error {
	next, err := schema.SetPath(s.doc, path, v)
	if err != nil {
		return err
	}
	s.doc = next
	s.commits++
	return nil
}

func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}

func move[T any](items []T, from, to int) []T {
	rest := make([]T, 0, len(items)-1)
	rest = append(rest, items[:from]...)
	rest = append(rest, items[from+1:]...)
	out := make([]T, 0, len(items))
	out = append(out, rest[:to]...)
	out = append(out, items[from])
	return append(out, rest[to:]...)
}
