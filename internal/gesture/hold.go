package gesture

import (
	"errors"
	"fmt"
	"time"
)

// ErrNegativeHold is returned for a hold duration below zero.
var ErrNegativeHold = errors.New("hold duration must not be negative")

// HoldTrigger fires once when a condition has been continuously true for
// the hold duration. It re-arms only after the condition goes false.
type HoldTrigger struct {
	hold    time.Duration
	start   time.Time
	started bool
	fired   bool
}

// NewHoldTrigger returns a trigger for the given hold duration.
func NewHoldTrigger(hold time.Duration) (*HoldTrigger, error) {
	if hold < 0 {
		return nil, fmt.Errorf("%w: %v", ErrNegativeHold, hold)
	}
	return &HoldTrigger{hold: hold}, nil
}

// Update feeds the condition observed at now. It returns true on exactly
// one call per qualifying hold.
func (h *HoldTrigger) Update(cond bool, now time.Time) bool {
	if !cond {
		h.Reset()
		return false
	}
	if !h.started {
		h.start = now
		h.started = true
		h.fired = false
		return false
	}
	if !h.fired && now.Sub(h.start) >= h.hold {
		h.fired = true
		return true
	}
	return false
}

// Reset forgets any hold in progress. Equivalent to Update(false, ...).
func (h *HoldTrigger) Reset() {
	h.start = time.Time{}
	h.started = false
	h.fired = false
}

// Pending reports whether a hold is in progress and has not fired yet.
func (h *HoldTrigger) Pending() bool { return h.started && !h.fired }

// Hold returns the configured hold duration.
func (h *HoldTrigger) Hold() time.Duration { return h.hold }
