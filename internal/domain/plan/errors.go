package plan

import "errors"

// Sentinel kinds for plan errors.
var (
	ErrDecode            = errors.New("decode plan")
	ErrUnsupportedFormat = errors.New("unsupported plan format")
	ErrInvalidPlan       = errors.New("invalid plan")
)
