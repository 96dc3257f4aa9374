package store

import (
	"context"
	"fmt"

	"github.com/banshee-data/gesturelife/internal/landmarks"
	"github.com/banshee-data/gesturelife/internal/timeutil"
)

// LoadReplay decodes a session's frames into timed samples relative to the
// first frame. Undecodable payloads are skipped.
func (s *Store) LoadReplay(ctx context.Context, id string, minConfidence float64) ([]landmarks.TimedSample, error) {
	if _, err := s.GetSession(ctx, id); err != nil {
		return nil, err
	}
	frames, err := s.Frames(ctx, id)
	if err != nil {
		return nil, err
	}

	out := make([]landmarks.TimedSample, 0, len(frames))
	bad := 0
	for _, f := range frames {
		d, err := landmarks.DecodeDatagram(f.Payload)
		if err != nil {
			bad++
			continue
		}
		offset := f.CapturedAt.Sub(frames[0].CapturedAt)
		if n := len(out); n > 0 && offset < out[n-1].Offset {
			offset = out[n-1].Offset
		}
		out = append(out, landmarks.TimedSample{Offset: offset, Sample: d.SampleAbove(minConfidence)})
	}
	if bad > 0 {
		opsf("session %s: skipped %d undecodable frames", id, bad)
	}
	return out, nil
}

// NewReplaySource plays a recorded session back as a landmarks.Source.
func NewReplaySource(ctx context.Context, s *Store, id string, minConfidence float64, clock timeutil.Clock, loop bool) (*landmarks.Playback, error) {
	samples, err := s.LoadReplay(ctx, id, minConfidence)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("session %s has no frames", id)
	}
	diagf("replaying session %s: %d frames over %v", id, len(samples), samples[len(samples)-1].Offset)
	return landmarks.NewPlayback(samples, clock, loop), nil
}
