package archive

import "errors"

// Sentinel kinds for archive errors.
var (
	// ErrLoad means the existing archive could not be read at startup.
	ErrLoad = errors.New("failed to load archive")

	// ErrPersist means a record could not be durably written.
	ErrPersist = errors.New("failed to persist archive")
)
