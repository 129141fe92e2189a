package editor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/aretw0/sparti/pkg/schema"
)

// An address locates a value by identity rather than position: object keys
// stay as they are, array indices are replaced by the identity key of the
// item. Identity keys live in per-array tables that move with the items on
// reorder and removal.

const addrSep = "\x1f"

type keyTable struct {
	prefix []string
	keys   []string
}

func joinAddr(addr []string) string { return strings.Join(addr, addrSep) }

func hasPrefix(addr, prefix []string) bool {
	if len(addr) < len(prefix) {
		return false
	}
	for i := range prefix {
		if addr[i] != prefix[i] {
			return false
		}
	}
	return true
}

func extend(addr []string, seg string) []string {
	out := make([]string, len(addr), len(addr)+1)
	copy(out, addr)
	return append(out, seg)
}

// table returns the identity keys of the array at prefix, grown or trimmed to
// n entries. Existing keys keep their position.
func (s *Session) table(prefix []string, n int) *keyTable {
	k := joinAddr(prefix)
	t, ok := s.tables[k]
	if !ok {
		t = &keyTable{prefix: append([]string(nil), prefix...)}
		s.tables[k] = t
	}
	for len(t.keys) < n {
		t.keys = append(t.keys, uuid.NewString())
	}
	if len(t.keys) > n {
		t.keys = t.keys[:n]
	}
	return t
}

// identify converts a positional path (keys and decimal indices) into an
// address and returns the value found there.
func (s *Session) identify(path []string) ([]string, schema.Value, error) {
	var cur schema.Value = s.doc
	addr := make([]string, 0, len(path))
	for _, seg := range path {
		switch node := cur.(type) {
		case schema.Document:
			next, ok := node[seg]
			if !ok {
				return nil, nil, fmt.Errorf("%w: %s", ErrNoSuchField, strings.Join(path, "."))
			}
			addr = append(addr, seg)
			cur = next
		case schema.Array:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, nil, fmt.Errorf("%w: %s", ErrNoSuchField, strings.Join(path, "."))
			}
			t := s.table(addr, len(node))
			addr = append(addr, t.keys[idx])
			cur = node[idx]
		default:
			return nil, nil, fmt.Errorf("%w: %s", ErrNoSuchField, strings.Join(path, "."))
		}
	}
	return addr, cur, nil
}

// resolve converts an address back into the current positional path.
func (s *Session) resolve(addr []string) ([]string, schema.Value, bool) {
	var cur schema.Value = s.doc
	path := make([]string, 0, len(addr))
	for i, seg := range addr {
		switch node := cur.(type) {
		case schema.Document:
			next, ok := node[seg]
			if !ok {
				return nil, nil, false
			}
			path = append(path, seg)
			cur = next
		case schema.Array:
			t := s.table(addr[:i], len(node))
			idx := -1
			for j, key := range t.keys {
				if key == seg {
					idx = j
					break
				}
			}
			if idx < 0 {
				return nil, nil, false
			}
			path = append(path, strconv.Itoa(idx))
			cur = node[idx]
		default:
			return nil, nil, false
		}
	}
	return path, cur, true
}

// forget drops the identity tables at or below prefix.
func (s *Session) forget(prefix []string) {
	for k, t := range s.tables {
		if hasPrefix(t.prefix, prefix) {
			delete(s.tables, k)
		}
	}
}

// rekey replaces the document with next and rebuilds every identity table
// by matching the old items to the new ones. Equal items keep their keys
// wherever they moved. When as many old items as new ones are left
// unmatched, the leftovers are paired in order, which keeps identity across
// in-place edits. Every other new item gets a fresh key, and tables whose
// array is gone are dropped.
func (s *Session) rekey(next schema.Document) {
	type snapshot struct {
		t   *keyTable
		old schema.Array
	}
	tables := make([]*keyTable, 0, len(s.tables))
	for _, t := range s.tables {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool { return len(tables[i].prefix) < len(tables[j].prefix) })

	snaps := make([]snapshot, 0, len(tables))
	for _, t := range tables {
		_, v, ok := s.resolve(t.prefix)
		arr, isArr := v.(schema.Array)
		if !ok || !isArr {
			continue
		}
		s.table(t.prefix, len(arr))
		snaps = append(snaps, snapshot{t: t, old: arr})
	}

	s.doc = next
	s.tables = make(map[string]*keyTable, len(snaps))
	for _, snap := range snaps {
		_, v, ok := s.resolve(snap.t.prefix)
		arr, isArr := v.(schema.Array)
		if !ok || !isArr {
			continue
		}
		snap.t.keys = matchKeys(snap.old, snap.t.keys, arr)
		s.tables[joinAddr(snap.t.prefix)] = snap.t
	}
}

func matchKeys(old schema.Array, oldKeys []string, next schema.Array) []string {
	keys := make([]string, len(next))
	used := make([]bool, len(old))
	for j, item := range next {
		for i := range old {
			if !used[i] && schema.Equal(old[i], item) {
				used[i] = true
				keys[j] = oldKeys[i]
				break
			}
		}
	}

	var leftOld, leftNew []int
	for i := range old {
		if !used[i] {
			leftOld = append(leftOld, i)
		}
	}
	for j := range next {
		if keys[j] == "" {
			leftNew = append(leftNew, j)
		}
	}
	if len(leftOld) == len(leftNew) {
		for n, j := range leftNew {
			keys[j] = oldKeys[leftOld[n]]
		}
	}
	for j := range keys {
		if keys[j] == "" {
			keys[j] = uuid.NewString()
		}
	}
	return keys
}
