package mapview

import "errors"

var (
	// ErrSurfaceInUse is returned when a mount id already hosts a map.
	ErrSurfaceInUse = errors.New("mapview: surface already in use")
	// ErrNoTileLayer is returned when a view is used before a tile layer is attached.
	ErrNoTileLayer = errors.New("mapview: no tile layer attached")
)
