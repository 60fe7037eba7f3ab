package config

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrConfiguration marks a configuration that cannot build a map view.
	ErrConfiguration = errors.New("configuration error")
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
