// Package service provides the orchestrator that owns the
// sample -> detect -> debounce -> dispatch cycle.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sentrylab/vigil/internal/alert"
	"github.com/sentrylab/vigil/internal/capture"
	"github.com/sentrylab/vigil/internal/debounce"
	"github.com/sentrylab/vigil/internal/detect"
	"github.com/sentrylab/vigil/internal/domain/model"
	"github.com/sentrylab/vigil/pkg/logger"
	"github.com/sentrylab/vigil/pkg/metrics"
)

// CycleSummary is the per-cycle snapshot published to the stats endpoint
// and the live feed.
type CycleSummary struct {
	Cycle          int64     `json:"cycle"`
	TS             time.Time `json:"ts"`
	Present        bool      `json:"present"`
	State          string    `json:"state"`
	FramesCaptured int       `json:"frames_captured"`
	FramesDropped  int       `json:"frames_dropped"`
	FramesScanned  int       `json:"frames_scanned"`
	Fired          bool      `json:"fired"`
}

// Broadcaster receives per-cycle summaries for the live feed. Broadcast
// must not block the loop.
type Broadcaster interface {
	BroadcastCycle(summary CycleSummary)
}

// Service runs the detection event pipeline. The cycle loop is a single
// goroutine; alert dispatch runs on the dispatcher's worker. AlertState
// is owned exclusively by the loop and never crosses into dispatch.
type Service struct {
	mu sync.RWMutex

	// External capabilities
	source      capture.FrameSource
	detector    detect.Detector
	sink        alert.Sink
	saver       alert.Saver
	renderer    alert.Renderer
	broadcaster Broadcaster

	// Configuration
	targetClass     string
	minScore        float64
	window          time.Duration
	rate            float64
	cycleSleep      time.Duration
	threshold       time.Duration
	strategy        detect.Strategy
	policy          alert.Policy
	budget          model.CompressionBudget
	queueSize       int
	dispatchTimeout time.Duration
	now             func() time.Time

	// Core components, built at Start
	sampler    *capture.Sampler
	reducer    *detect.Reducer
	machine    *debounce.Machine
	dispatcher *alert.Dispatcher

	// Lifecycle
	started  bool
	cancel   context.CancelFunc
	loopDone chan struct{}

	// Published loop state (the loop writes, Stats reads)
	cycles       int64
	episodes     int64
	alertsFired  int64
	lastSummary  CycleSummary
	currentState string

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		targetClass: "person",
		minScore:    0.75,
		window:      5 * time.Second,
		rate:        10,
		cycleSleep:  2 * time.Second,
		threshold:   2 * time.Second,
		strategy:    detect.FirstMatch,
		policy:      alert.PolicySend,
		budget: model.CompressionBudget{
			MaxBytes:     100 << 10,
			StartQuality: 85,
			QualityStep:  5,
			QualityFloor: 10,
		},
		queueSize:       16,
		dispatchTimeout: 10 * time.Second,
		now:             time.Now,
		loopDone:        make(chan struct{}),
		currentState:    debounce.Idle.String(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates the wiring, builds the pipeline components, and
// launches the cycle loop. Missing capabilities are configuration-class
// errors: fatal before the loop begins.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	switch {
	case s.source == nil:
		return fmt.Errorf("%w: frame source", ErrMissingDependency)
	case s.detector == nil:
		return fmt.Errorf("%w: detector", ErrMissingDependency)
	case s.sink == nil:
		return fmt.Errorf("%w: alert sink", ErrMissingDependency)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("pipeline")
	}

	s.sampler = capture.NewSampler(s.window, s.rate, capture.WithLogger(s.logger))
	s.reducer = detect.NewReducer(s.detector, s.targetClass,
		detect.WithStrategy(s.strategy),
		detect.WithMinScore(s.minScore),
		detect.WithLogger(s.logger),
	)
	s.machine = debounce.New(s.threshold)

	dispatchOpts := []alert.Option{
		alert.WithPolicy(s.policy),
		alert.WithQueueSize(s.queueSize),
		alert.WithLogger(s.logger),
	}
	if s.renderer != nil {
		dispatchOpts = append(dispatchOpts, alert.WithRenderer(s.renderer))
	}
	if s.saver != nil {
		dispatchOpts = append(dispatchOpts, alert.WithSaver(s.saver))
	}
	s.dispatcher = alert.NewDispatcher(s.sink, s.budget, dispatchOpts...)
	s.dispatcher.Start(ctx)

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(loopCtx)

	s.started = true
	s.logger.Info(ctx, "detection pipeline started",
		logger.String("target_class", s.targetClass),
		logger.Duration("sample_window", s.window),
		logger.Float64("sample_rate", s.rate),
		logger.Duration("alert_threshold", s.threshold),
		logger.String("strategy", string(s.strategy)),
		logger.String("evidence_policy", string(s.policy)),
	)
	return nil
}

// Stop halts the loop, drains the dispatcher within the configured
// timeout, and releases the frame source if it owns a device handle.
// It is safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	ctx := context.Background()
	cancel()
	<-s.loopDone

	shutdownCtx, done := context.WithTimeout(ctx, s.dispatchTimeout)
	defer done()
	if err := s.dispatcher.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "dispatcher shutdown incomplete", logger.Error(err))
	}

	if releaser, ok := s.source.(capture.Releaser); ok {
		if err := releaser.Close(); err != nil {
			s.logger.Error(ctx, "failed to release frame source", logger.Error(err))
		}
	}
	s.logger.Info(ctx, "detection pipeline stopped")
}

// run is the cycle loop. Per-frame and per-cycle failures are absorbed
// by the lower layers; only cancellation ends the loop.
func (s *Service) run(ctx context.Context) {
	defer close(s.loopDone)

	var state model.AlertState
	for {
		if ctx.Err() != nil {
			return
		}
		cycleStart := time.Now()

		frames, stats := s.sampler.Sample(ctx, s.source)
		if ctx.Err() != nil {
			return
		}
		s.logger.Debug(ctx, "window sampled",
			logger.Int("captured", stats.Captured),
			logger.Int("dropped", stats.Dropped),
		)

		res := s.reducer.Reduce(ctx, frames)
		now := s.now()

		prev := debounce.StateOf(state)
		fired := s.machine.Step(&state, res.Present, now)
		cur := debounce.StateOf(state)

		s.observeTransition(ctx, prev, cur, res, fired)
		if fired {
			metrics.RecordAlertFired()
			s.dispatcher.Dispatch(ctx, s.targetClass, s.threshold, res, now)
		}

		metrics.RecordCycle(time.Since(cycleStart).Seconds())
		s.publish(res, stats, cur, fired, now)

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cycleSleep):
		}
	}
}

// observeTransition logs and counts debounce state changes.
func (s *Service) observeTransition(ctx context.Context, prev, cur debounce.State, res model.WindowResult, fired bool) {
	if res.Present {
		metrics.RecordWindowPresent()
	}
	metrics.UpdateEpisodeActive(cur != debounce.Idle)

	switch {
	case prev == debounce.Idle && cur != debounce.Idle:
		metrics.RecordEpisodeStarted()
		s.mu.Lock()
		s.episodes++
		s.mu.Unlock()
		s.logger.Info(ctx, "target detected; episode started",
			logger.String("target_class", s.targetClass),
		)
	case prev != debounce.Idle && cur == debounce.Idle:
		s.logger.Info(ctx, "target no longer detected; episode ended",
			logger.String("target_class", s.targetClass),
		)
	}
	if fired {
		s.logger.Info(ctx, "alert threshold crossed",
			logger.String("target_class", s.targetClass),
			logger.Duration("threshold", s.threshold),
		)
	}
}

// publish updates the stats snapshot and feeds the live broadcaster.
func (s *Service) publish(res model.WindowResult, stats capture.Stats, cur debounce.State, fired bool, now time.Time) {
	s.mu.Lock()
	s.cycles++
	if fired {
		s.alertsFired++
	}
	s.currentState = cur.String()
	summary := CycleSummary{
		Cycle:          s.cycles,
		TS:             now,
		Present:        res.Present,
		State:          s.currentState,
		FramesCaptured: stats.Captured,
		FramesDropped:  stats.Dropped,
		FramesScanned:  res.Scanned,
		Fired:          fired,
	}
	s.lastSummary = summary
	broadcaster := s.broadcaster
	s.mu.Unlock()

	if broadcaster != nil {
		broadcaster.BroadcastCycle(summary)
	}
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := map[string]interface{}{
		"started":      s.started,
		"target_class": s.targetClass,
		"state":        s.currentState,
		"cycles":       s.cycles,
		"episodes":     s.episodes,
		"alerts_fired": s.alertsFired,
		"last_cycle":   s.lastSummary,
	}
	if s.dispatcher != nil {
		out["dispatch_queue"] = s.dispatcher.QueueLen()
	}
	return out
}
