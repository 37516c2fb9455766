package todo

import "errors"

// Error classes shared by every backend. Wrap them with fmt.Errorf("...: %w")
// and test with errors.Is.
var (
	// ErrValidation is raised before any backend call, e.g. for empty text.
	ErrValidation = errors.New("validation error")
	// ErrConnection means the backing store or the network is unreachable.
	ErrConnection = errors.New("connection error")
	// ErrNotFound means a mutation targeted an id that does not exist.
	ErrNotFound = errors.New("task not found")
	// ErrStorageCorrupt means persisted data could not be decoded.
	ErrStorageCorrupt = errors.New("stored data is corrupt")
	// ErrUnauthorized means the remote service rejected the credential.
	ErrUnauthorized = errors.New("unauthorized")
)
