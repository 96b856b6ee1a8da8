// Package sim contains the telemetry generator: per-subsystem health
// tracking, band sampling, orbit-derived position parameters, and the
// periodic tick loop that writes the parameter store and emits Space
// Packets.
package sim

import (
	"sync"
	"time"

	"github.com/signalsfoundry/ccsds-mission-sim/params"
)

// HealthState drives which value ranges the generator samples from.
type HealthState string

const (
	HealthNominal  HealthState = "NOMINAL"
	HealthDegraded HealthState = "DEGRADED"
	HealthSafe     HealthState = "SAFE"
)

type healthOverride struct {
	state HealthState
	// until bounds the override; zero means until explicitly cleared.
	until time.Time
}

// HealthTracker holds the process-scoped health state of each
// subsystem. All subsystems start NOMINAL. Overrides are bounded in
// time and expire lazily on read.
type HealthTracker struct {
	mu        sync.RWMutex
	overrides map[params.Subsystem]healthOverride
	now       func() time.Time
}

// HealthTrackerOption customises tracker construction.
type HealthTrackerOption func(*HealthTracker)

// WithHealthClock overrides the clock used for override expiry.
func WithHealthClock(now func() time.Time) HealthTrackerOption {
	return func(h *HealthTracker) { h.now = now }
}

// NewHealthTracker constructs a tracker with every subsystem NOMINAL.
func NewHealthTracker(opts ...HealthTrackerOption) *HealthTracker {
	h := &HealthTracker{
		overrides: make(map[params.Subsystem]healthOverride),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// State returns the effective health of a subsystem, reverting to
// NOMINAL once a bounded override has expired.
func (h *HealthTracker) State(sub params.Subsystem) HealthState {
	h.mu.RLock()
	ov, ok := h.overrides[sub]
	h.mu.RUnlock()

	if !ok {
		return HealthNominal
	}
	if !ov.until.IsZero() && h.now().After(ov.until) {
		return HealthNominal
	}
	return ov.state
}

// Override forces a subsystem's health for duration d; d <= 0 keeps the
// override until Clear is called.
func (h *HealthTracker) Override(sub params.Subsystem, state HealthState, d time.Duration) {
	ov := healthOverride{state: state}
	if d > 0 {
		ov.until = h.now().Add(d)
	}
	h.mu.Lock()
	h.overrides[sub] = ov
	h.mu.Unlock()
}

// Clear reverts a subsystem to NOMINAL.
func (h *HealthTracker) Clear(sub params.Subsystem) {
	h.mu.Lock()
	delete(h.overrides, sub)
	h.mu.Unlock()
}

// States snapshots the effective health of all subsystems.
func (h *HealthTracker) States() map[params.Subsystem]HealthState {
	out := make(map[params.Subsystem]HealthState, len(params.Subsystems))
	for _, sub := range params.Subsystems {
		out[sub] = h.State(sub)
	}
	return out
}
