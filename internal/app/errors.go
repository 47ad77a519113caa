package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrNotStarted  = errors.New("service not started")
	ErrNoSource    = errors.New("no item source configured")
	ErrLoadItems   = errors.New("load items failed")
	ErrUnknownItem = errors.New("unknown item")
	ErrSameItem    = errors.New("an item cannot be compared with itself")
	// ErrPersistence marks a failure after the outcome was applied in memory.
	// Callers should treat it as a warning.
	ErrPersistence = errors.New("persist state failed")
	// ErrStateNotRestored is joined into ErrPersistence when saving is
	// withheld because Start could not read the stored state.
	ErrStateNotRestored = errors.New("stored state was not restored; refusing to overwrite it")
)
