package gesture

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// NumLandmarks is the number of points in one hand sample (21-point hand
// topology: wrist, then four joints per finger from thumb to pinky).
const NumLandmarks = 21

// Landmark indices used by the engine.
const (
	Wrist     = 0
	ThumbTip  = 4
	IndexPIP  = 6
	IndexTip  = 8
	MiddlePIP = 10
	MiddleTip = 12
	RingPIP   = 14
	RingTip   = 16
	PinkyPIP  = 18
	PinkyTip  = 20
)

// ErrMalformedSample is returned by Validate for samples the engine must
// treat as "no hand".
var ErrMalformedSample = errors.New("malformed landmark sample")

// Point is a normalised image coordinate: (0,0) is the top-left corner of
// the frame and (1,1) the bottom-right. Trackers may report points slightly
// outside that range.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LandmarkSample is one detected hand for one frame. Width and Height are
// the frame size in pixels used to convert normalised points.
type LandmarkSample struct {
	Points []Point
	Width  int
	Height int
}

// Validate checks the landmark count, frame size and that every coordinate
// is finite.
func (s *LandmarkSample) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil sample", ErrMalformedSample)
	}
	if len(s.Points) != NumLandmarks {
		return fmt.Errorf("%w: %d landmarks, want %d", ErrMalformedSample, len(s.Points), NumLandmarks)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: frame size %dx%d", ErrMalformedSample, s.Width, s.Height)
	}
	for i, p := range s.Points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return fmt.Errorf("%w: landmark %d is not finite", ErrMalformedSample, i)
		}
	}
	return nil
}

// Pixel converts landmark i to pixel coordinates, truncating toward zero.
func (s *LandmarkSample) Pixel(i int) image.Point {
	p := s.Points[i]
	return image.Point{X: int(p.X * float64(s.Width)), Y: int(p.Y * float64(s.Height))}
}

// Mirrored returns a copy flipped horizontally, as if the camera frame had
// been mirrored before detection.
func (s *LandmarkSample) Mirrored() *LandmarkSample {
	out := &LandmarkSample{
		Points: make([]Point, len(s.Points)),
		Width:  s.Width,
		Height: s.Height,
	}
	for i, p := range s.Points {
		out.Points[i] = Point{X: 1 - p.X, Y: p.Y}
	}
	return out
}

// fingerExtended reports whether the fingertip sits above its middle joint
// by more than margin (normalised units; y grows downwards).
func fingerExtended(pts []Point, tip, pip int, margin float64) bool {
	return pts[tip].Y+margin < pts[pip].Y
}

// openPalm is true when index, middle, ring and pinky are all extended.
func openPalm(pts []Point, margin float64) bool {
	return fingerExtended(pts, IndexTip, IndexPIP, margin) &&
		fingerExtended(pts, MiddleTip, MiddlePIP, margin) &&
		fingerExtended(pts, RingTip, RingPIP, margin) &&
		fingerExtended(pts, PinkyTip, PinkyPIP, margin)
}
