package navx

import "errors"

var (
	// ErrMalformedSample is returned for a bridge line that is not four numbers.
	ErrMalformedSample = errors.New("navx: malformed sample")

	// ErrInvalidPortOptions is returned for serial settings the port cannot use.
	ErrInvalidPortOptions = errors.New("navx: invalid port options")
)
