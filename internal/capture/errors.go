package capture

import "errors"

// Sentinel kinds for capture errors.
var (
	// ErrSourceClosed is returned by Read after the source was released.
	ErrSourceClosed = errors.New("frame source closed")

	// ErrNoFrame marks a transient failed read; the sampler skips the
	// tick and continues the window.
	ErrNoFrame = errors.New("no frame available")
)
