// Package detect defines the object detection contract and the reduction
// of one sampling window to a single presence signal.
package detect

import (
	"context"

	"github.com/sentrylab/vigil/internal/domain/model"
)

// Detector classifies a single frame into zero or more detections. It is
// an external capability; implementations live in adapter packages.
type Detector interface {
	// Detect returns the detections found in f, honoring ctx for
	// cancellation. A failed inference is an error, not an empty result.
	Detect(ctx context.Context, f model.Frame) ([]model.Detection, error)
}

// Strategy selects how a window is reduced to a presence signal.
type Strategy string

const (
	// FirstMatch stops at the first frame containing the target class
	// and uses it as evidence. Later frames are not inspected.
	FirstMatch Strategy = "first-match"

	// BestOfWindow scans every frame and picks the frame holding the
	// highest-scoring match as evidence.
	BestOfWindow Strategy = "best-of-window"
)

// ParseStrategy maps a config string to a Strategy, defaulting to
// FirstMatch for unknown values. Config validation rejects unknown
// values before this is reached.
func ParseStrategy(s string) Strategy {
	if Strategy(s) == BestOfWindow {
		return BestOfWindow
	}
	return FirstMatch
}
