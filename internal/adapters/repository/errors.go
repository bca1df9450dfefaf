package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("schedule not found")
	ErrInvalidLimit = errors.New("invalid list limit")
	ErrInvalidID    = errors.New("schedule id must not be empty")
)
