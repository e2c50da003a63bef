package alertsink

import "errors"

// Sentinel kinds for alertsink errors.
var (
	ErrRelay = errors.New("telegram relay failed")
)
