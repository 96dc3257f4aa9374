package gesture

import (
	"fmt"
	"image"
	"math"
	"time"

	"github.com/banshee-data/gesturelife/internal/config"
)

// Action is a discrete one-shot command derived from a gesture.
type Action int

const (
	// ActionNone means the frame carried no command.
	ActionNone Action = iota
	// ActionClear is fired once when an open palm is held long enough.
	ActionClear
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionClear:
		return "clear"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// HandMouseEvent is the engine output for one processed frame.
type HandMouseEvent struct {
	// Cursor is the smoothed pointer position in frame pixels, or nil when
	// no hand has been seen within the grace period.
	Cursor      *image.Point
	ClickDown   bool
	HandPresent bool
	Action      Action
}

// Config holds the construction-time gesture thresholds.
type Config struct {
	Smoothing    float64       // EMA factor in [0, 1]
	PinchDown    float64       // pixels; pinch latches at or below
	PinchUp      float64       // pixels; pinch releases at or above
	PointerGrace time.Duration // how long a lost hand keeps its cursor
	ClearHold    time.Duration // open palm hold before ActionClear
	FingerMargin float64       // normalised y margin for finger extension

	PointerLandmark int // default ThumbTip
	PinchLandmark   int // default MiddleTip

	// Mirror flips samples horizontally before processing so that moving
	// the hand right moves the cursor right on a selfie camera.
	Mirror bool
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		Smoothing:       0.35,
		PinchDown:       30,
		PinchUp:         70,
		PointerGrace:    350 * time.Millisecond,
		ClearHold:       900 * time.Millisecond,
		FingerMargin:    0.02,
		PointerLandmark: ThumbTip,
		PinchLandmark:   MiddleTip,
		Mirror:          true,
	}
}

// ConfigFromTuning builds an engine config from the tuning file.
func ConfigFromTuning(t *config.TuningConfig) Config {
	cfg := DefaultConfig()
	cfg.Smoothing = t.GetSmoothing()
	cfg.PinchDown = t.GetPinchDownPx()
	cfg.PinchUp = t.GetPinchUpPx()
	cfg.PointerGrace = t.GetPointerGrace()
	cfg.ClearHold = t.GetClearHold()
	cfg.FingerMargin = t.GetFingerMargin()
	cfg.Mirror = t.GetMirror()
	return cfg
}

// Validate reports configuration errors that would otherwise surface on
// the first frame.
func (c Config) Validate() error {
	if c.PointerGrace < 0 {
		return fmt.Errorf("pointer grace must not be negative: %v", c.PointerGrace)
	}
	if math.IsNaN(c.FingerMargin) || math.IsInf(c.FingerMargin, 0) || c.FingerMargin < 0 {
		return fmt.Errorf("finger margin must be a non-negative number: %v", c.FingerMargin)
	}
	for name, idx := range map[string]int{"pointer": c.PointerLandmark, "pinch": c.PinchLandmark} {
		if idx < 0 || idx >= NumLandmarks {
			return fmt.Errorf("%s landmark %d out of range [0,%d)", name, idx, NumLandmarks)
		}
	}
	if c.PointerLandmark == c.PinchLandmark {
		return fmt.Errorf("pointer and pinch landmarks must differ (both %d)", c.PointerLandmark)
	}
	return nil
}

// Engine turns per-frame landmark samples into HandMouseEvents. It is not
// safe for concurrent use; one goroutine owns it for the whole session.
type Engine struct {
	cfg       Config
	smooth    *SmoothingFilter
	pinch     *HysteresisLatch
	clearHold *HoldTrigger
	fps       FrameRateMeter

	lastGood   image.Point
	lastGoodAt time.Time
	haveGood   bool

	frames   uint64
	rejected uint64
}

// NewEngine validates cfg and returns an engine with empty state.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gesture config: %w", err)
	}
	pinch, err := NewHysteresisLatch(cfg.PinchDown, cfg.PinchUp)
	if err != nil {
		return nil, fmt.Errorf("pinch latch: %w", err)
	}
	hold, err := NewHoldTrigger(cfg.ClearHold)
	if err != nil {
		return nil, fmt.Errorf("clear hold: %w", err)
	}
	return &Engine{
		cfg:       cfg,
		smooth:    NewSmoothingFilter(cfg.Smoothing),
		pinch:     pinch,
		clearHold: hold,
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// FPS returns the smoothed processing rate.
func (e *Engine) FPS() float64 { return e.fps.FPS() }

// Frames returns how many frames have been processed.
func (e *Engine) Frames() uint64 { return e.frames }

// Rejected returns how many samples failed Validate and were treated as
// "no hand".
func (e *Engine) Rejected() uint64 { return e.rejected }

// Process consumes one frame's sample (nil when no hand was detected) at
// time now and returns the resulting event. A sample that fails Validate
// is handled exactly like nil.
func (e *Engine) Process(sample *LandmarkSample, now time.Time) HandMouseEvent {
	e.frames++
	e.fps.Tick(now)

	if sample != nil {
		if err := sample.Validate(); err != nil {
			e.rejected++
			if e.rejected == 1 || e.rejected%100 == 0 {
				opsf("dropping malformed landmark sample (%d so far): %v", e.rejected, err)
			}
			sample = nil
		}
	}

	var ev HandMouseEvent
	if sample != nil {
		ev = e.present(sample, now)
	} else {
		ev = e.absent(now)
	}

	if ev.Action != ActionNone {
		diagf("frame %d: action %s", e.frames, ev.Action)
	}
	tracef("frame %d: present=%t cursor=%v click=%t action=%s fps=%.1f",
		e.frames, ev.HandPresent, ev.Cursor, ev.ClickDown, ev.Action, e.fps.FPS())
	return ev
}

func (e *Engine) present(sample *LandmarkSample, now time.Time) HandMouseEvent {
	if e.cfg.Mirror {
		sample = sample.Mirrored()
	}

	ptr := sample.Pixel(e.cfg.PointerLandmark)
	pinch := sample.Pixel(e.cfg.PinchLandmark)

	x, y := e.smooth.Update(float64(ptr.X), float64(ptr.Y))
	cursor := image.Point{X: x, Y: y}
	e.lastGood = cursor
	e.lastGoodAt = now
	e.haveGood = true

	dist := math.Hypot(float64(pinch.X-ptr.X), float64(pinch.Y-ptr.Y))
	click := e.pinch.Update(dist)

	action := ActionNone
	if !click {
		if e.clearHold.Update(openPalm(sample.Points, e.cfg.FingerMargin), now) {
			action = ActionClear
		}
	} else {
		// A pinch cancels a pending clear; the hold restarts from zero.
		e.clearHold.Update(false, now)
	}

	return HandMouseEvent{
		Cursor:      &cursor,
		ClickDown:   click,
		HandPresent: true,
		Action:      action,
	}
}

func (e *Engine) absent(now time.Time) HandMouseEvent {
	var cursor *image.Point
	if e.haveGood && now.Sub(e.lastGoodAt) <= e.cfg.PointerGrace {
		c := e.lastGood
		cursor = &c
	} else {
		e.haveGood = false
	}

	e.pinch.Release()
	e.clearHold.Update(false, now)

	return HandMouseEvent{Cursor: cursor}
}
