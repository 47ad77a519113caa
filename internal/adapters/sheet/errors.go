package sheet

import "errors"

// Sentinel errors for listing loads.
var (
	ErrFetch         = errors.New("fetch listings failed")
	ErrParse         = errors.New("parse listings failed")
	ErrMissingColumn = errors.New("required column missing")
)
