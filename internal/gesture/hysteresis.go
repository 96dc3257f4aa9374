package gesture

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidThresholds is returned when a latch's down threshold is not
// strictly below its up threshold.
var ErrInvalidThresholds = errors.New("down threshold must be below up threshold")

// HysteresisLatch is a schmitt trigger over a distance: it latches true at
// or below the down threshold, false at or above the up threshold, and
// holds its state in the band between. Initial state is false.
type HysteresisLatch struct {
	down  float64
	up    float64
	state bool
}

// NewHysteresisLatch validates down < up.
func NewHysteresisLatch(down, up float64) (*HysteresisLatch, error) {
	if math.IsNaN(down) || math.IsNaN(up) || down >= up {
		return nil, fmt.Errorf("%w: down=%v up=%v", ErrInvalidThresholds, down, up)
	}
	return &HysteresisLatch{down: down, up: up}, nil
}

// Update feeds one measurement and returns the latched state.
func (l *HysteresisLatch) Update(distance float64) bool {
	switch {
	case distance <= l.down:
		l.state = true
	case distance >= l.up:
		l.state = false
	}
	return l.state
}

// State returns the latched state without updating it.
func (l *HysteresisLatch) State() bool { return l.state }

// Release forces the latch open, as when the measured hand is lost.
func (l *HysteresisLatch) Release() { l.state = false }

// Thresholds returns the down and up thresholds.
func (l *HysteresisLatch) Thresholds() (down, up float64) { return l.down, l.up }
