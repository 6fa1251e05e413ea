package sentinel

import "errors"

// Store-level errors. Stores return these (optionally wrapped) so services
// translate them into domain errors exactly once.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrCorrupt       = errors.New("corrupt record")
	ErrUnavailable   = errors.New("unavailable")
	ErrConflict      = errors.New("conflicting write")
)
