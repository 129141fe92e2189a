package schema

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrPath is returned when a path does not address a value in the document.
var ErrPath = errors.New("invalid field path")

type tombstone struct{}

func (tombstone) Kind() Kind { return "" }
func (tombstone) sealed()    {}

// MarshalJSON encodes the sentinel as null, the merge-patch spelling of a
// deletion.
func (tombstone) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Delete is the sentinel that removes a key when used as a Patch value.
var Delete Value = tombstone{}

// IsDelete reports whether v is the Delete sentinel.
func IsDelete(v any) bool {
	_, ok := v.(tombstone)
	return ok
}

// Patch maps field names to new values or Delete.
type Patch map[string]Value

// ApplyUpdate returns a new document with updates applied. Keys set to
// Delete are removed, other keys are overwritten, unmentioned keys carry
// over. doc is never mutated.
func ApplyUpdate(doc Document, updates Patch) Document {
	out := make(Document, len(doc)+len(updates))
	for k, v := range doc {
		out[k] = v
	}
	for k, v := range updates {
		if v == nil || IsDelete(v) {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// Diff returns the patch that turns old into new. An empty patch means the
// documents are equal.
func Diff(old, new Document) Patch {
	patch := Patch{}
	for k, ov := range old {
		nv, ok := new[k]
		if !ok {
			patch[k] = Delete
			continue
		}
		if !Equal(ov, nv) {
			patch[k] = nv
		}
	}
	for k, nv := range new {
		if _, ok := old[k]; !ok {
			patch[k] = nv
		}
	}
	return patch
}

// Lookup resolves a path of keys and decimal array indices.
func Lookup(doc Document, path []string) (Value, bool) {
	if len(path) == 0 {
		return doc, true
	}
	var cur Value = doc
	for _, seg := range path {
		switch node := cur.(type) {
		case Document:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case Array:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// SetPath returns a copy of doc with the value at path replaced. Containers
// along the path are copied; siblings are shared. Setting Delete removes an
// object key or an array element. The last segment may name a missing object
// key; every other segment must exist.
func SetPath(doc Document, path []string, v Value) (Document, error) {
	if len(path) == 0 {
		next, ok := v.(Document)
		if !ok {
			return nil, fmt.Errorf("%w: root must be an object", ErrPath)
		}
		return next, nil
	}
	out, err := setIn(doc, path, v)
	if err != nil {
		return nil, err
	}
	return out.(Document), nil
}

func setIn(node Value, path []string, v Value) (Value, error) {
	seg := path[0]
	last := len(path) == 1
	switch n := node.(type) {
	case Document:
		if last {
			return ApplyUpdate(n, Patch{seg: v}), nil
		}
		child, ok := n[seg]
		if !ok {
			return nil, fmt.Errorf("%w: %q not found", ErrPath, seg)
		}
		updated, err := setIn(child, path[1:], v)
		if err != nil {
			return nil, err
		}
		return ApplyUpdate(n, Patch{seg: updated}), nil
	case Array:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(n) {
			return nil, fmt.Errorf("%w: index %q out of range", ErrPath, seg)
		}
		out := make(Array, 0, len(n))
		out = append(out, n[:idx]...)
		if last {
			if !IsDelete(v) {
				out = append(out, v)
			}
		} else {
			updated, err := setIn(n[idx], path[1:], v)
			if err != nil {
				return nil, err
			}
			out = append(out, updated)
		}
		return append(out, n[idx+1:]...), nil
	}
	return nil, fmt.Errorf("%w: %q is not a container", ErrPath, seg)
}
