package alert

import (
	"github.com/sentrylab/vigil/pkg/logger"
)

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithRenderer sets the annotation renderer.
func WithRenderer(r Renderer) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.renderer = r
		}
	}
}

// WithSaver sets the evidence saver used by the save policies.
func WithSaver(s Saver) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.saver = s
		}
	}
}

// WithPolicy sets the evidence policy. Save policies require a Saver.
func WithPolicy(p Policy) Option {
	return func(d *Dispatcher) {
		d.policy = p
	}
}

// WithQueueSize bounds the dispatch queue.
func WithQueueSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.queue = make(chan firing, size)
		}
	}
}

// WithLogger sets a custom logger for the dispatcher.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}
