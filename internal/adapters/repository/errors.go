package repository

import "errors"

// Sentinel kinds for persistence errors.
var (
	ErrOpen   = errors.New("open store failed")
	ErrLoad   = errors.New("load state failed")
	ErrSave   = errors.New("save state failed")
	ErrClosed = errors.New("store closed")
)
