package teams

import "errors"

// Sentinel kinds for team errors.
var (
	// ErrInvalidName means the team name is empty.
	ErrInvalidName = errors.New("invalid team name")

	// ErrTeamExists means a team with that name already exists.
	ErrTeamExists = errors.New("team already exists")

	// ErrTeamNotFound means no team with that name exists.
	ErrTeamNotFound = errors.New("team not found")

	// ErrAlreadyInTeam means the user already belongs to a team.
	ErrAlreadyInTeam = errors.New("user already in a team")

	// ErrNotInTeam means the user belongs to no team.
	ErrNotInTeam = errors.New("user not in a team")
)
