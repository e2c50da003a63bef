package sink

import "errors"

// Sentinel kinds for sink errors.
var (
	// ErrDelivery marks a failed delivery attempt. Deliveries are not
	// retried; callers log and move on.
	ErrDelivery = errors.New("alert delivery failed")
)
