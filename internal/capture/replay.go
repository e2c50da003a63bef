package capture

import (
	"context"
	"sync"
	"time"

	"github.com/sentrylab/vigil/internal/domain/model"
)

// ReplaySource serves a fixed frame script in order, cycling when
// exhausted. A nil script entry models a transient read failure. It is
// used by tests and by the loop simulator in place of a real device.
type ReplaySource struct {
	mu     sync.Mutex
	script []*model.Frame
	pos    int
	closed bool
	reads  int
	closes int
}

// NewReplaySource builds a replay source from the given script. Entries
// that are nil produce ErrNoFrame on their turn.
func NewReplaySource(script []*model.Frame) *ReplaySource {
	return &ReplaySource{script: script}
}

// Read returns the next scripted frame, stamping it with the read time.
func (r *ReplaySource) Read(_ context.Context) (model.Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return model.Frame{}, ErrSourceClosed
	}
	r.reads++
	if len(r.script) == 0 {
		return model.Frame{}, ErrNoFrame
	}

	entry := r.script[r.pos%len(r.script)]
	r.pos++
	if entry == nil {
		return model.Frame{}, ErrNoFrame
	}
	f := entry.Clone()
	f.TS = time.Now()
	return f, nil
}

// Close releases the source. Further reads fail with ErrSourceClosed.
func (r *ReplaySource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.closes++
	return nil
}

// Reads reports how many reads were attempted against the source.
func (r *ReplaySource) Reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

// Closes reports how many times Close was called.
func (r *ReplaySource) Closes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closes
}
