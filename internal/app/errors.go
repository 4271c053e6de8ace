package service

import "errors"

// Sentinel kinds for service errors.
var (
	// ErrHandleNotLinked means a duel participant has no judge handle.
	ErrHandleNotLinked = errors.New("user has no linked judge handle")

	// ErrNotInSession means the user is not part of any active duel.
	ErrNotInSession = errors.New("no active duel for user")

	// ErrSelfDuel means both sides of the requested duel are the same user.
	ErrSelfDuel = errors.New("cannot duel yourself")

	// ErrNotStarted means an operation ran before Start.
	ErrNotStarted = errors.New("service not started")
)
