package landmarks

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/banshee-data/gesturelife/internal/gesture"
)

// MaxDatagramSize bounds a single tracker datagram.
const MaxDatagramSize = 8192

// ErrBadDatagram wraps every datagram decoding failure.
var ErrBadDatagram = errors.New("bad landmark datagram")

// Datagram is the JSON message an external tracker sends once per frame:
//
//	{"seq":42,"width":640,"height":480,
//	 "hands":[{"present":true,"score":0.93,"landmarks":[[0.51,0.62],...]}]}
//
// Landmarks are normalised [x, y] pairs; a third z value is accepted and
// ignored. An empty hands list means no hand was seen.
type Datagram struct {
	Seq    uint64     `json:"seq"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Hands  []WireHand `json:"hands"`
}

// WireHand is one hand inside a Datagram.
type WireHand struct {
	Present   bool        `json:"present"`
	Score     float64     `json:"score"`
	Landmarks [][]float64 `json:"landmarks"`
}

// DecodeDatagram parses and validates one datagram.
func DecodeDatagram(b []byte) (*Datagram, error) {
	if len(b) > MaxDatagramSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrBadDatagram, len(b), MaxDatagramSize)
	}
	var d Datagram
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDatagram, err)
	}
	if d.Width <= 0 || d.Height <= 0 {
		return nil, fmt.Errorf("%w: frame size %dx%d", ErrBadDatagram, d.Width, d.Height)
	}
	for i, h := range d.Hands {
		for j, lm := range h.Landmarks {
			if len(lm) < 2 {
				return nil, fmt.Errorf("%w: hand %d landmark %d has %d values", ErrBadDatagram, i, j, len(lm))
			}
		}
	}
	return &d, nil
}

// Encode marshals the datagram.
func (d *Datagram) Encode() ([]byte, error) {
	return json.Marshal(d)
}

// DetectedHands converts the wire hands.
func (d *Datagram) DetectedHands() []Hand {
	hands := make([]Hand, 0, len(d.Hands))
	for _, wh := range d.Hands {
		h := Hand{Present: wh.Present, Score: wh.Score, Landmarks: make([]gesture.Point, len(wh.Landmarks))}
		for i, lm := range wh.Landmarks {
			h.Landmarks[i] = gesture.Point{X: lm[0], Y: lm[1]}
		}
		hands = append(hands, h)
	}
	return hands
}

// Sample returns the first present hand with a full landmark set, or nil.
func (d *Datagram) Sample() *gesture.LandmarkSample {
	return d.SampleAbove(0)
}

// SampleAbove is Sample restricted to hands scoring at least minConfidence.
func (d *Datagram) SampleAbove(minConfidence float64) *gesture.LandmarkSample {
	h := SelectHand(d.DetectedHands(), minConfidence)
	if h == nil {
		return nil
	}
	return h.Sample(d.Width, d.Height)
}

// NewDatagram builds the datagram carrying sample (nil for "no hand").
// frameW and frameH are used when sample is nil.
func NewDatagram(seq uint64, sample *gesture.LandmarkSample, frameW, frameH int) *Datagram {
	d := &Datagram{Seq: seq, Width: frameW, Height: frameH, Hands: []WireHand{}}
	if sample == nil {
		return d
	}
	d.Width, d.Height = sample.Width, sample.Height
	wh := WireHand{Present: true, Score: 1, Landmarks: make([][]float64, len(sample.Points))}
	for i, p := range sample.Points {
		wh.Landmarks[i] = []float64{p.X, p.Y}
	}
	d.Hands = append(d.Hands, wh)
	return d
}
