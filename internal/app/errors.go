package service

import "errors"

// Sentinel kinds for service errors.
var (
	// ErrMissingDependency means a required capability was not wired
	// before Start. This is a startup-time configuration error.
	ErrMissingDependency = errors.New("missing dependency")
)
