package preference

import "errors"

// Sentinel kinds for preference errors.
var (
	ErrUnknownActivity = errors.New("unknown activity kind")
	ErrMissingFunction = errors.New("no preference function for activity kind")
)
