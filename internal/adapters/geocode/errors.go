package geocode

import "errors"

// Sentinel errors.
var (
	ErrCacheLoad = errors.New("load geocoding cache failed")
	ErrCacheSave = errors.New("save geocoding cache failed")
	ErrLookup    = errors.New("geocoding lookup failed")
)
