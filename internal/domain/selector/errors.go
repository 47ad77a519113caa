package selector

import "errors"

// Sentinel kinds for pair selection.
var (
	ErrNotEnoughItems  = errors.New("at least two items are required for a comparison")
	ErrUnknownStrategy = errors.New("unknown pair selection strategy")
)
