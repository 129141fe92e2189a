package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/sparti/pkg/core"
)

// ErrTransactionClosed is returned by operations on a finished transaction.
var ErrTransactionClosed = errors.New("transaction closed")

// Transaction implements core.Transaction on a database transaction.
type Transaction struct {
	repo   *Repository
	tx     *sql.Tx
	mu     sync.Mutex
	closed bool
}

// Begin starts a new transaction.
func (r *Repository) Begin(ctx context.Context) (core.Transaction, error) {
	if r.config.ReadOnly {
		return nil, core.ErrReadOnly
	}
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Transaction{repo: r, tx: tx}, nil
}

// Save stages a document.
func (t *Transaction) Save(ctx context.Context, doc core.Document) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}
	return saveDocument(ctx, t.tx, doc)
}

// Get reads a document, seeing the changes staged so far.
func (t *Transaction) Get(ctx context.Context, id string) (core.Document, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return core.Document{}, ErrTransactionClosed
	}
	return getDocument(ctx, t.tx, id)
}

// Delete stages a removal. Removing a missing document is not an error.
func (t *Transaction) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}
	_, err := deleteDocument(ctx, t.tx, id)
	return err
}

// Commit applies the staged changes. The change reason is only logged since
// the database keeps no history.
func (t *Transaction) Commit(ctx context.Context, changeReason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}
	t.closed = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	if l := t.repo.config.Logger; l != nil {
		l.Debug("sqlite transaction committed", "reason", changeReason)
	}
	return nil
}

// Rollback discards the staged changes.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.tx.Rollback()
}
