package gesture

import "math"

// SmoothingFilter is an exponential moving average over a 2-D point
// stream. The accumulator is seeded by the first update and never reset.
type SmoothingFilter struct {
	alpha  float64
	x, y   float64
	primed bool
}

// NewSmoothingFilter returns a filter with factor alpha clamped to [0, 1].
// Alpha 0 freezes the output at the first input; alpha 1 disables
// smoothing. NaN is treated as 0.
func NewSmoothingFilter(alpha float64) *SmoothingFilter {
	if math.IsNaN(alpha) {
		alpha = 0
	}
	return &SmoothingFilter{alpha: min(max(alpha, 0), 1)}
}

// Alpha returns the clamped smoothing factor.
func (f *SmoothingFilter) Alpha() float64 { return f.alpha }

// Update feeds one raw point and returns the smoothed point truncated to
// integer pixels.
func (f *SmoothingFilter) Update(x, y float64) (int, int) {
	if !f.primed {
		f.x, f.y = x, y
		f.primed = true
	} else {
		f.x += (x - f.x) * f.alpha
		f.y += (y - f.y) * f.alpha
	}
	return int(f.x), int(f.y)
}

// Value returns the raw accumulator without truncation and whether the
// filter has seen any input.
func (f *SmoothingFilter) Value() (x, y float64, ok bool) {
	return f.x, f.y, f.primed
}
