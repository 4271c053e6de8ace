package selector

import "errors"

// Sentinel kinds for selection errors.
var (
	// ErrInsufficientProblems means the fallback search was exhausted for
	// at least one requested rating; no partial selection is returned.
	ErrInsufficientProblems = errors.New("not enough unsolved problems")
)
