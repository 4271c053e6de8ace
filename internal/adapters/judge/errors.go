package judge

import "errors"

// Sentinel kinds for judge client errors.
var (
	// ErrUnavailable means the judge API could not be reached or answered
	// with a failure after the retry budget. Always transient.
	ErrUnavailable = errors.New("judge data unavailable")
)
