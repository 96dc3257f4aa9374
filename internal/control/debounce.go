package control

import (
	"errors"
	"fmt"

	"github.com/banshee-data/gesturelife/internal/life"
)

// ErrInvalidFrameCount is returned when a confirm or release count is below one.
var ErrInvalidFrameCount = errors.New("debounce frame counts must be at least 1")

// DrawDebouncer decides when a pinch stroke starts and stops drawing. The
// click state must hold for confirm consecutive frames to start a stroke
// and be released for release consecutive frames to end it. While a stroke
// is active, ShouldWrite suppresses repeated writes to the same cell.
type DrawDebouncer struct {
	confirm int
	release int

	on     int
	off    int
	active bool

	last    life.Cell
	hasLast bool
}

// NewDrawDebouncer validates both counts.
func NewDrawDebouncer(confirm, release int) (*DrawDebouncer, error) {
	if confirm < 1 || release < 1 {
		return nil, fmt.Errorf("%w: confirm=%d release=%d", ErrInvalidFrameCount, confirm, release)
	}
	return &DrawDebouncer{confirm: confirm, release: release}, nil
}

// Update feeds this frame's click state and returns whether drawing is
// active afterwards. Either transition forgets the last written cell.
func (d *DrawDebouncer) Update(clickDown bool) bool {
	if clickDown {
		d.on++
		d.off = 0
	} else {
		d.off++
		d.on = 0
	}

	switch {
	case !d.active && d.on >= d.confirm:
		d.active = true
		d.hasLast = false
		diagf("draw stroke started after %d frames", d.on)
	case d.active && d.off >= d.release:
		d.active = false
		d.hasLast = false
		diagf("draw stroke ended after %d frames", d.off)
	}
	return d.active
}

// Active reports whether a stroke is in progress.
func (d *DrawDebouncer) Active() bool { return d.active }

// ShouldWrite reports whether cell should be written: drawing is active
// and cell differs from the last written one. A true result records cell
// as the last written.
func (d *DrawDebouncer) ShouldWrite(cell life.Cell) bool {
	if !d.active {
		return false
	}
	if d.hasLast && d.last == cell {
		return false
	}
	d.last = cell
	d.hasLast = true
	return true
}
