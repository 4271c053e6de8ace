package links

import "errors"

// Sentinel kinds for handle link errors.
var (
	// ErrHandleTaken means another user already claimed the handle.
	ErrHandleTaken = errors.New("handle already linked to another user")

	// ErrNotLinked means the user has no linked handle.
	ErrNotLinked = errors.New("no handle linked")

	// ErrInvalidHandle means the handle is empty or unknown to the judge.
	ErrInvalidHandle = errors.New("invalid judge handle")

	// ErrLoad means the handle file could not be read at startup.
	ErrLoad = errors.New("failed to load handle store")

	// ErrPersist means the handle file could not be written.
	ErrPersist = errors.New("failed to persist handle store")
)
