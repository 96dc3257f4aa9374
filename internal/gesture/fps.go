package gesture

import "time"

// FrameRateMeter tracks an exponentially smoothed frames-per-second figure
// (90% previous value, 10% instantaneous rate).
type FrameRateMeter struct {
	last time.Time
	fps  float64
}

// Tick records a frame processed at now and returns the updated rate.
// Non-increasing timestamps leave the rate unchanged.
func (m *FrameRateMeter) Tick(now time.Time) float64 {
	if !m.last.IsZero() {
		if dt := now.Sub(m.last).Seconds(); dt > 0 {
			m.fps = 0.9*m.fps + 0.1*(1/dt)
		}
	}
	m.last = now
	return m.fps
}

// FPS returns the current smoothed rate.
func (m *FrameRateMeter) FPS() float64 { return m.fps }
