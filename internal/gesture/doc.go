// Package gesture turns a jittery per-frame stream of hand landmarks into
// a stable cursor and a small set of debounced interaction events.
//
// Responsibilities: landmark sample validation and pixel conversion,
// exponential cursor smoothing, pinch hysteresis, open-palm hold
// detection, the presence/grace policy that bridges short tracking
// dropouts, and a frame-rate meter.
// Key types: LandmarkSample, SmoothingFilter, HysteresisLatch,
// HoldTrigger, Engine, HandMouseEvent.
//
// Dependency rule: gesture knows nothing about grids or how samples are
// produced. Callers feed one sample (or nil) per frame into Engine.Process
// from a single goroutine.
package gesture
