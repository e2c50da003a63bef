package capture

import (
	"context"
	"time"

	"github.com/sentrylab/vigil/internal/domain/model"
	"github.com/sentrylab/vigil/pkg/logger"
	"github.com/sentrylab/vigil/pkg/metrics"
)

// Stats summarizes one sampling window.
type Stats struct {
	Attempted int
	Captured  int
	Dropped   int
	Elapsed   time.Duration
}

// Sampler collects an ordered frame sequence over a fixed wall-clock
// window at a target rate. Failed reads are skipped without shifting the
// tick schedule, and the window ends strictly on elapsed time so capture
// jitter cannot stretch the cycle.
type Sampler struct {
	window   time.Duration
	interval time.Duration
	logger   logger.Logger
}

// Option applies a configuration option to the Sampler.
type Option func(*Sampler)

// WithLogger sets a custom logger for the sampler.
func WithLogger(l logger.Logger) Option {
	return func(s *Sampler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSampler creates a sampler for the given window duration and capture
// rate in frames per second.
func NewSampler(window time.Duration, rate float64, opts ...Option) *Sampler {
	s := &Sampler{
		window:   window,
		interval: time.Duration(float64(time.Second) / rate),
		logger:   logger.Get().Named("sampler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval returns the tick spacing derived from the configured rate.
func (s *Sampler) Interval() time.Duration { return s.interval }

// Sample reads frames from src until the window elapses or ctx is
// canceled. The first read happens immediately; subsequent reads follow
// the tick schedule. Transient read failures are logged and skipped.
func (s *Sampler) Sample(ctx context.Context, src FrameSource) ([]model.Frame, Stats) {
	start := time.Now()
	deadline := time.NewTimer(s.window)
	defer deadline.Stop()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var (
		frames []model.Frame
		stats  Stats
	)

	read := func() {
		stats.Attempted++
		f, err := src.Read(ctx)
		if err != nil {
			stats.Dropped++
			metrics.RecordFrameDropped()
			s.logger.Debug(ctx, "frame read failed",
				logger.Int("tick", stats.Attempted),
				logger.Error(err),
			)
			return
		}
		stats.Captured++
		metrics.RecordFrameCaptured()
		frames = append(frames, f)
	}

	read()
	for {
		select {
		case <-ctx.Done():
			stats.Elapsed = time.Since(start)
			return frames, stats
		case <-deadline.C:
			stats.Elapsed = time.Since(start)
			return frames, stats
		case <-ticker.C:
			read()
		}
	}
}
