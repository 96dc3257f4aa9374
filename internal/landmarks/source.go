package landmarks

import (
	"context"

	"github.com/banshee-data/gesturelife/internal/gesture"
)

// Source yields the current landmark sample. A nil sample with a nil
// error means no hand is visible. Errors are transient: callers treat
// them as "no hand" for the frame and poll again.
type Source interface {
	Sample(ctx context.Context) (*gesture.LandmarkSample, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*gesture.LandmarkSample, error)

// Sample calls f(ctx).
func (f SourceFunc) Sample(ctx context.Context) (*gesture.LandmarkSample, error) { return f(ctx) }
