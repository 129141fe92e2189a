package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/aretw0/sparti/pkg/core"
	"github.com/aretw0/sparti/pkg/git"
)

// ErrTransactionClosed is returned by operations on a committed or rolled
// back transaction.
var ErrTransactionClosed = errors.New("transaction closed")

type txKey struct {
	tenant string
	id     string
}

// Transaction implements core.Transaction for the filesystem. Staged
// changes are written together and recorded as a single commit.
type Transaction struct {
	repo    *Repository
	staged  map[txKey]core.Document
	deleted map[txKey]bool
	mu      sync.Mutex
	closed  bool
}

// NewTransaction creates a new transaction.
func NewTransaction(repo *Repository) *Transaction {
	return &Transaction{
		repo:    repo,
		staged:  make(map[txKey]core.Document),
		deleted: make(map[txKey]bool),
	}
}

func (t *Transaction) key(ctx context.Context, tenant, id string) (txKey, error) {
	if tenant == "" {
		tenant = core.TenantFrom(ctx)
	}
	if err := t.repo.validate(tenant, id); err != nil {
		return txKey{}, err
	}
	return txKey{tenant: tenant, id: id}, nil
}

// Save stages a document for saving.
func (t *Transaction) Save(ctx context.Context, doc core.Document) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransactionClosed
	}
	k, err := t.key(ctx, doc.Tenant, doc.ID)
	if err != nil {
		return err
	}

	doc.Tenant = k.tenant
	doc.Fields = doc.Fields.Clone()
	t.staged[k] = doc
	delete(t.deleted, k)
	return nil
}

// Get retrieves a document, favoring staged changes.
func (t *Transaction) Get(ctx context.Context, id string) (core.Document, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return core.Document{}, ErrTransactionClosed
	}
	k, err := t.key(ctx, "", id)
	if err != nil {
		return core.Document{}, err
	}

	if t.deleted[k] {
		return core.Document{}, fmt.Errorf("%s/%s: %w", k.tenant, id, core.ErrNotFound)
	}
	if doc, ok := t.staged[k]; ok {
		doc.Fields = doc.Fields.Clone()
		return doc, nil
	}
	return t.repo.Get(ctx, id)
}

// Delete stages a document for deletion.
func (t *Transaction) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransactionClosed
	}
	k, err := t.key(ctx, "", id)
	if err != nil {
		return err
	}

	t.deleted[k] = true
	delete(t.staged, k)
	return nil
}

// Commit applies all staged changes.
func (t *Transaction) Commit(ctx context.Context, changeReason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransactionClosed
	}
	if t.repo.isReadOnly() {
		return core.ErrReadOnly
	}

	// 1. Git lock
	if !t.repo.config.Gitless {
		unlock, err := t.repo.git.Lock()
		if err != nil {
			return fmt.Errorf("failed to acquire git lock: %w", err)
		}
		defer unlock()
	}

	// 2. Apply writes and removals in a stable order
	var filesToAdd, filesToRm []string

	for _, k := range sortedKeys(t.staged) {
		rel, err := t.repo.writeDocument(k.tenant, t.staged[k])
		if err != nil {
			return fmt.Errorf("%s/%s: %w", k.tenant, k.id, err)
		}
		filesToAdd = append(filesToAdd, rel)
	}

	for _, k := range sortedKeys(t.deleted) {
		fullPath, _, found := t.repo.findFile(k.tenant, k.id)
		if !found {
			continue
		}
		rel := t.repo.relPath(fullPath)
		filesToRm = append(filesToRm, rel)
		t.repo.cache.Delete(rel)
		if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove file %s: %w", k.id, err)
		}
	}

	// 3. Git commit
	if !t.repo.config.Gitless {
		if err := t.repo.git.Add(filesToAdd...); err != nil {
			return fmt.Errorf("failed to git add: %w", err)
		}
		if err := t.repo.git.Rm(filesToRm...); err != nil {
			return fmt.Errorf("failed to git rm: %w", err)
		}

		msg := changeReason
		if msg == "" {
			msg = git.FormatChangeReason(git.ChangeDocs, "", "batch update", "")
		}
		if err := t.repo.git.Commit(git.AppendFooter(msg)); err != nil {
			return fmt.Errorf("failed to git commit: %w", err)
		}
	}

	t.repo.saveCache()

	t.closed = true
	return nil
}

// Rollback discards all staged changes.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.staged = nil
	t.deleted = nil
	t.closed = true
	return nil
}

func sortedKeys[V any](m map[txKey]V) []txKey {
	keys := make([]txKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].tenant != keys[j].tenant {
			return keys[i].tenant < keys[j].tenant
		}
		return keys[i].id < keys[j].id
	})
	return keys
}
