package matching

import "errors"

// Sentinel kinds for matching errors. All of them abort a run.
var (
	ErrEmptyTeamPool        = errors.New("no candidate team for session")
	ErrSessionsExhausted    = errors.New("unresolved sessions exhausted while teams remain below quota")
	ErrInsufficientSessions = errors.New("insufficient sessions for teams and quota")
	ErrInvalidQuota         = errors.New("quota must be at least 1")
	ErrNoTeams              = errors.New("no teams to schedule")
	ErrIterationLimit       = errors.New("iteration limit reached")
	ErrInconsistent         = errors.New("inconsistent assignment")
)
