package editor

import "errors"

// Common errors.
var (
	ErrNotConfirmed = errors.New("destructive operation was not confirmed")
	ErrClosed       = errors.New("editor is closed")
	ErrNoSuchField  = errors.New("no such field")
	ErrNotArray     = errors.New("field is not an array")
	ErrNotObject    = errors.New("field is not an object")
	ErrInvalidName  = errors.New("invalid field name")
)
