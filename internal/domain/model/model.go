// Package model contains domain models passed between pipeline stages.
package model

import "time"

// Frame is a single captured image. Data holds JPEG-encoded bytes; the
// buffer belongs to the cycle that captured it and must be copied before
// crossing a goroutine boundary.
type Frame struct {
	Data   []byte
	Width  int
	Height int
	TS     time.Time
}

// Clone returns a deep copy of the frame. Dispatch paths that outlive the
// capture cycle must operate on a clone.
func (f Frame) Clone() Frame {
	c := f
	c.Data = make([]byte, len(f.Data))
	copy(c.Data, f.Data)
	return c
}

// Box is an axis-aligned bounding box in pixel coordinates.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Detection is a single classified region in one frame. Scores are
// normalized to [0,1].
type Detection struct {
	ClassID int     `json:"class_id"`
	Class   string  `json:"class"`
	Score   float64 `json:"score"`
	Box     Box     `json:"box"`
}

// WindowResult reduces one sampling window to a single presence signal.
// Evidence is nil when the target class was not seen. Diagnostics holds
// the per-frame detections for frames that were actually scanned, in
// capture order.
type WindowResult struct {
	Present     bool
	Evidence    *Frame
	Matches     []Detection
	Diagnostics [][]Detection
	Scanned     int
}

// AlertState is the debounce state owned by the orchestrator loop. The
// zero value means idle. DetectedSince is the start of the current
// episode; AlertSent reports whether that episode already fired.
type AlertState struct {
	DetectedSince time.Time
	AlertSent     bool
}

// AlertEvent is an immutable alert snapshot handed to the dispatcher.
// Image holds the compressed evidence (nil for text-only alerts) and is
// owned exclusively by the event once constructed.
type AlertEvent struct {
	ID      string
	Message string
	Image   []byte
	TS      time.Time
}

// CompressionBudget bounds the size of an encoded evidence image.
// Quality values are JPEG qualities in [1,100].
type CompressionBudget struct {
	MaxBytes     int
	StartQuality int
	QualityStep  int
	QualityFloor int
}

// MaxIterations is the upper bound on re-encode attempts implied by the
// budget: one encode at StartQuality plus one per step down to the floor.
func (b CompressionBudget) MaxIterations() int {
	if b.QualityStep <= 0 || b.StartQuality <= b.QualityFloor {
		return 1
	}
	return (b.StartQuality-b.QualityFloor)/b.QualityStep + 1
}
