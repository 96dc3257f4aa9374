package control

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/banshee-data/gesturelife/internal/gesture"
	"github.com/banshee-data/gesturelife/internal/landmarks"
	"github.com/banshee-data/gesturelife/internal/timeutil"
)

// Observer receives a snapshot after every frame and generation. Observe
// runs on the Runner goroutine and must not block.
type Observer interface {
	Observe(Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Snapshot)

// Observe calls f(s).
func (f ObserverFunc) Observe(s Snapshot) { f(s) }

// FrameObserver is optionally implemented by observers that also want the
// raw sample and event for every polled frame, such as session recorders.
type FrameObserver interface {
	ObserveFrame(at time.Time, sample *gesture.LandmarkSample, ev gesture.HandMouseEvent)
}

// Command is applied to the controller on the Runner goroutine.
type Command func(*Controller)

// RunnerConfig sets the two cadences.
type RunnerConfig struct {
	PollInterval       time.Duration // frame poll, e.g. 10ms
	GenerationInterval time.Duration // generation tick, e.g. 120ms
}

// Runner owns a Controller and drives it from one goroutine: frames are
// polled from a Source on one ticker, generations advance on another and
// queued Commands are applied in between.
type Runner struct {
	ctrl      *Controller
	src       landmarks.Source
	clock     timeutil.Clock
	cfg       RunnerConfig
	observers []Observer
	commands  chan Command

	// last is the most recent non-nil sample handed to the controller.
	// Caching sources return the same pointer until a new frame lands.
	last *gesture.LandmarkSample

	sourceErrors atomic.Uint64
	repeats      atomic.Uint64
}

// NewRunner returns a runner. src may be nil for pointer-only sessions;
// a nil clock uses the wall clock.
func NewRunner(ctrl *Controller, src landmarks.Source, clock timeutil.Clock, cfg RunnerConfig, observers ...Observer) *Runner {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Runner{
		ctrl:      ctrl,
		src:       src,
		clock:     clock,
		cfg:       cfg,
		observers: observers,
		commands:  make(chan Command, 16),
	}
}

// ErrCommandQueueFull is returned by Submit when the runner is not keeping up.
var ErrCommandQueueFull = errors.New("command queue full")

// Submit queues cmd for the runner goroutine. It never blocks.
func (r *Runner) Submit(cmd Command) error {
	select {
	case r.commands <- cmd:
		return nil
	default:
		return ErrCommandQueueFull
	}
}

// SourceErrors counts polls that failed and were treated as "no hand".
func (r *Runner) SourceErrors() uint64 { return r.sourceErrors.Load() }

// RepeatedFrames counts polls skipped because the source had no new frame.
func (r *Runner) RepeatedFrames() uint64 { return r.repeats.Load() }

// Run blocks until ctx is cancelled. Returns nil on clean shutdown.
func (r *Runner) Run(ctx context.Context) error {
	if r.cfg.PollInterval <= 0 || r.cfg.GenerationInterval <= 0 {
		return errors.New("runner intervals must be positive")
	}

	poll := r.clock.NewTicker(r.cfg.PollInterval)
	defer poll.Stop()
	gen := r.clock.NewTicker(r.cfg.GenerationInterval)
	defer gen.Stop()

	diagf("runner started: poll=%v generation=%v source=%t", r.cfg.PollInterval, r.cfg.GenerationInterval, r.src != nil)
	r.publish()

	for {
		select {
		case <-ctx.Done():
			diagf("runner stopping at generation %d", r.ctrl.Grid().Generation())
			return nil
		case cmd := <-r.commands:
			cmd(r.ctrl)
			r.publish()
		case <-poll.C():
			if r.src != nil {
				r.pollOnce(ctx)
			}
		case <-gen.C():
			if r.ctrl.Tick() {
				r.publish()
			}
		}
	}
}

// pollOnce fetches one sample and applies it. Source errors degrade to
// "no hand" for this frame. A sample identical to the previous one is not
// a new frame and is skipped, so debounce counts and smoothing advance
// once per tracker frame rather than once per poll.
func (r *Runner) pollOnce(ctx context.Context) {
	sample, err := r.src.Sample(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if n := r.sourceErrors.Add(1); n == 1 || n%100 == 0 {
			opsf("landmark source error (%d so far): %v", n, err)
		}
		sample = nil
	}
	if sample != nil && sample == r.last {
		r.repeats.Add(1)
		return
	}
	r.last = sample

	now := r.clock.Now()
	ev := r.ctrl.HandleFrame(sample, now)
	for _, o := range r.observers {
		if fo, ok := o.(FrameObserver); ok {
			fo.ObserveFrame(now, sample, ev)
		}
	}
	r.publish()
}

func (r *Runner) publish() {
	if len(r.observers) == 0 {
		return
	}
	s := r.ctrl.Snapshot()
	s.At = r.clock.Now()
	for _, o := range r.observers {
		o.Observe(s)
	}
}
