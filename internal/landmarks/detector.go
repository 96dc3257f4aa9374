package landmarks

import (
	"context"
	"image"
	"time"

	"github.com/banshee-data/gesturelife/internal/config"
	"github.com/banshee-data/gesturelife/internal/gesture"
)

// Frame is one captured camera image.
type Frame struct {
	Seq   uint64
	At    time.Time
	Image image.Image
}

// Hand is one detected hand: normalised landmarks plus the model's
// presence flag and confidence.
type Hand struct {
	Landmarks []gesture.Point
	Present   bool
	Score     float64
}

// Detector defines the boundary to a hand-landmark model.
type Detector interface {
	// Detect analyses a frame and returns zero or more hands.
	Detect(ctx context.Context, frame Frame) ([]Hand, error)

	// Close releases any resources held by the detector.
	Close() error
}

// DetectorConfig holds detection options passed to the model.
type DetectorConfig struct {
	// MaxHands is the maximum number of hands to detect.
	MaxHands int

	// MinConfidence is the minimum detection confidence (0.0-1.0).
	MinConfidence float64
}

// DefaultDetectorConfig tracks a single hand at 0.7 confidence.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		MaxHands:      1,
		MinConfidence: 0.7,
	}
}

// DetectorConfigFromTuning reads max_hands and min_detection_confidence.
func DetectorConfigFromTuning(t *config.TuningConfig) DetectorConfig {
	return DetectorConfig{
		MaxHands:      t.GetMaxHands(),
		MinConfidence: t.GetMinDetectionConfidence(),
	}
}

// SelectHand returns the first present hand with a full landmark set and a
// score of at least minConfidence, or nil.
func SelectHand(hands []Hand, minConfidence float64) *Hand {
	for i := range hands {
		h := &hands[i]
		if !h.Present || len(h.Landmarks) != gesture.NumLandmarks {
			continue
		}
		if h.Score < minConfidence {
			continue
		}
		return h
	}
	return nil
}

// Sample converts the hand into a gesture sample for a width×height frame.
// Landmarks are copied.
func (h *Hand) Sample(width, height int) *gesture.LandmarkSample {
	pts := make([]gesture.Point, len(h.Landmarks))
	copy(pts, h.Landmarks)
	return &gesture.LandmarkSample{Points: pts, Width: width, Height: height}
}
