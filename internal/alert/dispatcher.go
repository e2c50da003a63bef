package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sentrylab/vigil/internal/domain/model"
	"github.com/sentrylab/vigil/internal/imaging"
	"github.com/sentrylab/vigil/pkg/logger"
	"github.com/sentrylab/vigil/pkg/metrics"
)

// Default dispatcher configuration constants.
const (
	defaultQueueSize = 16
)

// firing is the by-value snapshot handed from the cycle loop to the
// dispatch worker. The evidence frame is cloned at enqueue time so the
// loop's buffers never cross the goroutine boundary.
type firing struct {
	message  string
	ts       time.Time
	evidence *model.Frame
	matches  []model.Detection
}

// Dispatcher runs alert delivery off the cycle loop's critical path. A
// bounded queue feeds a single background worker; the worker's text and
// image deliveries for one event run concurrently with each other and
// with the next sampling window. The loop's debounce state is never
// touched here.
type Dispatcher struct {
	sink     Sink
	renderer Renderer
	saver    Saver
	budget   model.CompressionBudget
	policy   Policy

	queue    chan firing
	shutdown chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc
	started  bool
	mu       sync.Mutex

	logger logger.Logger
}

// NewDispatcher creates a dispatcher delivering through sink under the
// given compression budget.
func NewDispatcher(sink Sink, budget model.CompressionBudget, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:     sink,
		renderer: imaging.NewBoxRenderer(),
		budget:   budget,
		policy:   PolicySend,
		queue:    make(chan firing, defaultQueueSize),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the background worker. Delivery uses a context detached
// from ctx's cancellation so a loop shutdown does not abort an in-flight
// send; Shutdown bounds the drain instead.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel
	go d.run(runCtx)
}

// Dispatch snapshots the fired window and enqueues it. It reports false
// when the queue is full, in which case the alert is dropped and the
// episode stays marked as fired (no re-fire until a new episode).
func (d *Dispatcher) Dispatch(ctx context.Context, targetClass string, threshold time.Duration, res model.WindowResult, now time.Time) bool {
	f := firing{
		message: fmt.Sprintf("Alert: %s detected for %v.", targetClass, threshold),
		ts:      now,
		matches: append([]model.Detection(nil), res.Matches...),
	}
	if res.Evidence != nil {
		ev := res.Evidence.Clone()
		f.evidence = &ev
	}

	select {
	case d.queue <- f:
		metrics.UpdateDispatchQueueSize(len(d.queue))
		return true
	default:
		metrics.RecordDispatchDropped()
		d.logger.Error(ctx, "dispatch queue full; dropping alert",
			logger.String("message", f.message),
		)
		return false
	}
}

// QueueLen returns the current dispatch backlog.
func (d *Dispatcher) QueueLen() int { return len(d.queue) }

// Shutdown waits for the worker to drain in-flight work. When ctx
// expires first, remaining deliveries are abandoned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	close(d.shutdown)
	select {
	case <-d.done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return fmt.Errorf("dispatcher shutdown timed out: %w", ctx.Err())
	}
}

// run is the worker loop: deliver queued firings until shutdown, then
// drain whatever is already queued.
func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			for {
				select {
				case f := <-d.queue:
					d.process(ctx, f)
				default:
					return
				}
			}
		case f := <-d.queue:
			d.process(ctx, f)
			metrics.UpdateDispatchQueueSize(len(d.queue))
		}
	}
}

// process builds the AlertEvent and runs both deliveries. Each delivery
// fails independently; neither is retried.
func (d *Dispatcher) process(ctx context.Context, f firing) {
	ev := model.AlertEvent{
		ID:      uuid.NewString(),
		Message: f.message,
		TS:      f.ts,
	}

	if f.evidence != nil {
		ev.Image = d.prepareImage(ctx, f)
	}

	if d.policy.saves() && d.saver != nil && ev.Image != nil {
		if path, err := d.saver.Save(ev.TS, ev.Image); err != nil {
			d.logger.Error(ctx, "failed to save evidence",
				logger.String("alert_id", ev.ID),
				logger.Error(err),
			)
		} else {
			d.logger.Info(ctx, "evidence saved",
				logger.String("alert_id", ev.ID),
				logger.String("path", path),
			)
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.deliverText(ctx, ev)
	}()
	if d.policy.sends() && ev.Image != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.deliverImage(ctx, ev)
		}()
	}
	wg.Wait()
}

// prepareImage renders annotations and compresses to the byte budget.
// A render failure falls back to the raw frame; a compression failure
// drops the image and the alert goes out text-only.
func (d *Dispatcher) prepareImage(ctx context.Context, f firing) []byte {
	raw := f.evidence.Data
	if rendered, err := d.renderer.Render(*f.evidence, f.matches); err != nil {
		d.logger.Warn(ctx, "annotation render failed; using raw frame",
			logger.Error(err),
		)
	} else {
		raw = rendered
	}

	res, err := imaging.Compress(raw, d.budget)
	if err != nil {
		d.logger.Error(ctx, "evidence compression failed; sending text only",
			logger.Error(err),
		)
		return nil
	}
	if !res.WithinBudget {
		// Quality floor reached before the budget; the best-effort
		// image is still sent rather than dropped.
		d.logger.Warn(ctx, "evidence exceeds byte budget at quality floor",
			logger.Int("bytes", len(res.Data)),
			logger.Int("budget", d.budget.MaxBytes),
			logger.Int("quality", res.Quality),
		)
	}
	return res.Data
}

func (d *Dispatcher) deliverText(ctx context.Context, ev model.AlertEvent) {
	start := time.Now()
	err := d.sink.SendAlert(ctx, ev.Message)
	metrics.RecordDeliveryLatency("text", float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordDeliveryError("text")
		d.logger.Error(ctx, "text delivery failed",
			logger.String("alert_id", ev.ID),
			logger.String("message", ev.Message),
			logger.Error(err),
		)
		return
	}
	metrics.RecordAlertDelivered("text")
	d.logger.Info(ctx, "alert delivered",
		logger.String("alert_id", ev.ID),
		logger.String("message", ev.Message),
	)
}

func (d *Dispatcher) deliverImage(ctx context.Context, ev model.AlertEvent) {
	start := time.Now()
	err := d.sink.SendImage(ctx, ev.Message, ev.Image)
	metrics.RecordDeliveryLatency("image", float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordDeliveryError("image")
		d.logger.Error(ctx, "image delivery failed",
			logger.String("alert_id", ev.ID),
			logger.Int("image_bytes", len(ev.Image)),
			logger.Error(err),
		)
		return
	}
	metrics.RecordAlertDelivered("image")
}
