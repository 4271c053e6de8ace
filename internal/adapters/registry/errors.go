package registry

import "errors"

// Sentinel kinds for registry errors.
var (
	// ErrAlreadyActive means a duel between the pair is already running.
	ErrAlreadyActive = errors.New("duel already active for this pair")

	// ErrCapacityExceeded means the active-session ceiling was reached.
	ErrCapacityExceeded = errors.New("maximum active duels reached")
)
