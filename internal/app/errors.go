package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrInvalidPlan  = errors.New("invalid plan")
	ErrQueueFull    = errors.New("schedule queue full")
	ErrNotReady     = errors.New("schedule not completed")
	ErrTeamNotFound = errors.New("team not found")
	ErrStopped      = errors.New("service stopped before the job ran")
)
