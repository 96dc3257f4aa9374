package landmarks

import (
	"context"
	"sync"
	"time"

	"github.com/banshee-data/gesturelife/internal/gesture"
	"github.com/banshee-data/gesturelife/internal/timeutil"
)

// TimedSample is one captured frame at an offset from the start of the
// capture. A nil Sample records a frame with no hand.
type TimedSample struct {
	Offset time.Duration
	Sample *gesture.LandmarkSample
}

// Playback replays captured samples at their original pace. Sample returns
// the latest captured frame whose offset has elapsed since the first call.
// After the last frame playback either stops (reporting no hand) or, when
// looping, starts over.
type Playback struct {
	clock   timeutil.Clock
	samples []TimedSample
	loop    bool

	mu      sync.Mutex
	start   time.Time
	started bool
	idx     int
	done    bool
}

// NewPlayback returns a playback over samples, which must be sorted by
// Offset. A nil clock uses the wall clock.
func NewPlayback(samples []TimedSample, clock timeutil.Clock, loop bool) *Playback {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Playback{clock: clock, samples: samples, loop: loop}
}

// Len returns the number of captured frames.
func (p *Playback) Len() int { return len(p.samples) }

// Done reports whether a non-looping playback has run past its last frame.
func (p *Playback) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Sample implements Source.
func (p *Playback) Sample(ctx context.Context) (*gesture.LandmarkSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.samples) == 0 || p.done {
		return nil, nil
	}
	now := p.clock.Now()
	if !p.started {
		p.start = now
		p.started = true
		p.idx = 0
	}

	elapsed := now.Sub(p.start)
	last := p.samples[len(p.samples)-1].Offset
	if elapsed > last {
		if !p.loop {
			p.done = true
			diagf("playback finished after %d frames", len(p.samples))
			return nil, nil
		}
		p.start = now
		p.idx = 0
		elapsed = 0
		diagf("playback looping")
	}

	for p.idx+1 < len(p.samples) && p.samples[p.idx+1].Offset <= elapsed {
		p.idx++
	}
	if p.samples[p.idx].Offset > elapsed {
		return nil, nil
	}
	return p.samples[p.idx].Sample, nil
}
