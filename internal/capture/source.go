// Package capture defines the frame acquisition contract and the
// wall-clock sampling window that feeds the detection pipeline.
package capture

import (
	"context"

	"github.com/sentrylab/vigil/internal/domain/model"
)

// FrameSource supplies frames on demand. Implementations may fail
// transiently; a failed read is reported as an error and the caller
// decides whether to retry on the next tick.
type FrameSource interface {
	// Read returns the next available frame. It should honor ctx for
	// cancellation but must not block past the next scheduled tick on a
	// healthy device.
	Read(ctx context.Context) (model.Frame, error)
}

// Releaser is implemented by sources backed by a device handle that must
// be released deterministically on shutdown.
type Releaser interface {
	Close() error
}
