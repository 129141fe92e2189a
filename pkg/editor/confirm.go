package editor

// Confirmer approves destructive structural operations such as removing an
// entry or changing its kind. A session without one refuses them.
type Confirmer interface {
	Confirm(action string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(action string) bool

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(action string) bool { return f(action) }

// AlwaysConfirm approves everything. Useful for scripted edits.
var AlwaysConfirm Confirmer = ConfirmFunc(func(string) bool { return true })
