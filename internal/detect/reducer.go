package detect

import (
	"context"

	"github.com/sentrylab/vigil/internal/domain/model"
	"github.com/sentrylab/vigil/pkg/logger"
	"github.com/sentrylab/vigil/pkg/metrics"
)

// Reducer runs a Detector over the frames of one window and reduces the
// results to a WindowResult. Detector failures on individual frames are
// absorbed: logged, counted, and treated as "no detection".
type Reducer struct {
	detector Detector
	target   string
	minScore float64
	strategy Strategy
	logger   logger.Logger
}

// ReducerOption applies a configuration option to the Reducer.
type ReducerOption func(*Reducer)

// WithStrategy selects the window reduction strategy.
func WithStrategy(s Strategy) ReducerOption {
	return func(r *Reducer) {
		r.strategy = s
	}
}

// WithMinScore sets the minimum confidence for a detection to count as a
// match. Zero accepts everything the detector reports.
func WithMinScore(score float64) ReducerOption {
	return func(r *Reducer) {
		if score > 0 {
			r.minScore = score
		}
	}
}

// WithLogger sets a custom logger for the reducer.
func WithLogger(l logger.Logger) ReducerOption {
	return func(r *Reducer) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReducer creates a reducer that looks for targetClass.
func NewReducer(detector Detector, targetClass string, opts ...ReducerOption) *Reducer {
	r := &Reducer{
		detector: detector,
		target:   targetClass,
		strategy: FirstMatch,
		logger:   logger.Get().Named("detect"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reduce inspects frames in capture order. Under FirstMatch it stops at
// the first frame with a matching detection; under BestOfWindow it scans
// the full window and keeps the highest-scoring match. Either way the
// evidence frame, the matching detections of that frame, and per-frame
// diagnostics for the scanned prefix are returned.
func (r *Reducer) Reduce(ctx context.Context, frames []model.Frame) model.WindowResult {
	var res model.WindowResult
	bestScore := -1.0

	for i := range frames {
		if ctx.Err() != nil {
			return res
		}

		dets, err := r.detector.Detect(ctx, frames[i])
		res.Scanned++
		if err != nil {
			metrics.RecordDetectorError()
			r.logger.Warn(ctx, "detector failed; treating frame as empty",
				logger.Int("frame", i),
				logger.Error(err),
			)
			res.Diagnostics = append(res.Diagnostics, nil)
			continue
		}
		res.Diagnostics = append(res.Diagnostics, dets)

		matches := r.matches(dets)
		if len(matches) == 0 {
			continue
		}
		res.Present = true

		switch r.strategy {
		case BestOfWindow:
			if top := topScore(matches); top > bestScore {
				bestScore = top
				f := frames[i]
				res.Evidence = &f
				res.Matches = matches
			}
		default: // FirstMatch short-circuits the window.
			f := frames[i]
			res.Evidence = &f
			res.Matches = matches
			return res
		}
	}
	return res
}

// matches filters detections down to the target class at or above the
// configured confidence.
func (r *Reducer) matches(dets []model.Detection) []model.Detection {
	var out []model.Detection
	for _, d := range dets {
		if d.Class == r.target && d.Score >= r.minScore {
			out = append(out, d)
		}
	}
	return out
}

func topScore(dets []model.Detection) float64 {
	top := -1.0
	for _, d := range dets {
		if d.Score > top {
			top = d.Score
		}
	}
	return top
}
