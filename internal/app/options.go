package service

import (
	"time"

	"github.com/sentrylab/vigil/internal/alert"
	"github.com/sentrylab/vigil/internal/capture"
	"github.com/sentrylab/vigil/internal/detect"
	"github.com/sentrylab/vigil/internal/domain/model"
	"github.com/sentrylab/vigil/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithFrameSource sets the frame source. If the source implements
// capture.Releaser it is released on Stop.
func WithFrameSource(src capture.FrameSource) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithDetector sets the object detection capability.
func WithDetector(d detect.Detector) Option {
	return func(s *Service) {
		if d != nil {
			s.detector = d
		}
	}
}

// WithSink sets the alert delivery backend.
func WithSink(sink alert.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithSaver sets the evidence saver used by the save policies.
func WithSaver(saver alert.Saver) Option {
	return func(s *Service) {
		if saver != nil {
			s.saver = saver
		}
	}
}

// WithRenderer overrides the default annotation renderer.
func WithRenderer(r alert.Renderer) Option {
	return func(s *Service) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithBroadcaster sets the live feed broadcaster.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *Service) {
		if b != nil {
			s.broadcaster = b
		}
	}
}

// WithTargetClass sets the class whose presence triggers alerts.
func WithTargetClass(class string) Option {
	return func(s *Service) {
		if class != "" {
			s.targetClass = class
		}
	}
}

// WithMinScore sets the minimum matching confidence.
func WithMinScore(score float64) Option {
	return func(s *Service) {
		if score > 0 {
			s.minScore = score
		}
	}
}

// WithSampling sets the window duration and capture rate.
func WithSampling(window time.Duration, rate float64) Option {
	return func(s *Service) {
		if window > 0 {
			s.window = window
		}
		if rate > 0 {
			s.rate = rate
		}
	}
}

// WithCycleSleep sets the pause between cycles.
func WithCycleSleep(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.cycleSleep = d
		}
	}
}

// WithAlertThreshold sets the minimum episode duration before firing.
func WithAlertThreshold(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.threshold = d
		}
	}
}

// WithStrategy sets the window reduction strategy.
func WithStrategy(st detect.Strategy) Option {
	return func(s *Service) {
		s.strategy = st
	}
}

// WithEvidencePolicy sets the evidence handling policy.
func WithEvidencePolicy(p alert.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithCompressionBudget sets the evidence image byte budget.
func WithCompressionBudget(b model.CompressionBudget) Option {
	return func(s *Service) {
		if b.MaxBytes > 0 {
			s.budget = b
		}
	}
}

// WithDispatchQueueSize bounds the alert dispatch queue.
func WithDispatchQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDispatchTimeout bounds the dispatcher drain during Stop.
func WithDispatchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.dispatchTimeout = d
		}
	}
}

// WithClock overrides the cycle timestamp source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
