// Package debounce turns the per-window presence signal into at most one
// alert per sustained detection episode.
//
// The machine has three states derived from model.AlertState:
//
//	IDLE               DetectedSince unset
//	PENDING            DetectedSince set, AlertSent false
//	FIRED-AND-HOLDING  DetectedSince set, AlertSent true
//
// Any absent cycle resets the machine fully, so a later episode can fire
// again. Only the PENDING threshold crossing fires.
package debounce

import (
	"time"

	"github.com/sentrylab/vigil/internal/domain/model"
)

// State identifies the machine's position within an episode.
type State int

const (
	Idle State = iota
	Pending
	FiredHolding
)

// String returns the state name for logs and the stats endpoint.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case FiredHolding:
		return "fired-and-holding"
	default:
		return "idle"
	}
}

// Machine applies the debounce transition table. It holds only the
// threshold; episode state lives in the caller-owned AlertState so the
// loop stays testable in isolation.
type Machine struct {
	threshold time.Duration
}

// New creates a machine that fires once a detection episode has lasted
// at least threshold.
func New(threshold time.Duration) *Machine {
	return &Machine{threshold: threshold}
}

// Threshold returns the configured minimum episode duration.
func (m *Machine) Threshold() time.Duration { return m.threshold }

// Step advances the machine by one cycle. It mutates st in place and
// reports whether this cycle crossed the threshold, i.e. whether exactly
// this cycle must emit an alert.
func (m *Machine) Step(st *model.AlertState, present bool, now time.Time) bool {
	if !present {
		st.DetectedSince = time.Time{}
		st.AlertSent = false
		return false
	}

	if st.DetectedSince.IsZero() {
		st.DetectedSince = now
		st.AlertSent = false
		return false
	}

	if !st.AlertSent && now.Sub(st.DetectedSince) >= m.threshold {
		st.AlertSent = true
		return true
	}
	return false
}

// StateOf maps an AlertState value to its machine state.
func StateOf(st model.AlertState) State {
	switch {
	case st.DetectedSince.IsZero():
		return Idle
	case st.AlertSent:
		return FiredHolding
	default:
		return Pending
	}
}
