package core

import "errors"

// Common errors.
var (
	ErrReadOnly    = errors.New("repository is in read-only mode")
	ErrNotFound    = errors.New("document not found")
	ErrInvalidID   = errors.New("invalid document ID")
	ErrUnsupported = errors.New("operation not supported by repository")
)
