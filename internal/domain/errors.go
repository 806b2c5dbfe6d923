package domain

import "errors"

var (
	ErrContestNotFound     = errors.New("contest not found")
	ErrContestFull         = errors.New("contest is already full")
	ErrContestNotJoinable  = errors.New("contest is not accepting participants")
	ErrContestNotDeletable = errors.New("contest cannot be deleted")
	ErrInvalidContest      = errors.New("invalid contest configuration")
	ErrSerialTaken         = errors.New("serial number already in use")

	ErrAlreadyJoined    = errors.New("team already joined this contest")
	ErrTeamLimitReached = errors.New("team limit per user reached for this contest")

	ErrTeamNotFound  = errors.New("team not found")
	ErrTeamNotOwned  = errors.New("team belongs to another user")
	ErrInvalidTeam   = errors.New("invalid team")
	ErrTeamNameTaken = errors.New("team name already taken")

	// ErrOracleUnavailable se devuelve cuando el feed de precios agotó los reintentos.
	ErrOracleUnavailable = errors.New("price oracle unavailable")
	// ErrResultsPending: contest finished cuyo resultado aún no pudo calcularse.
	ErrResultsPending = errors.New("contest results are not available yet")
)
