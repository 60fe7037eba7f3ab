package service

import "errors"

var (
	// ErrFeatureNotFound is returned for an event on a track id the map does not show.
	ErrFeatureNotFound = errors.New("feature not found")
	// ErrUnknownEvent is returned for an interaction kind the map does not handle.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrNotMounted is returned when the controller is used before Init or after Teardown.
	ErrNotMounted = errors.New("map not mounted")
)
