package landmarks

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/gesturelife/internal/gesture"
	"github.com/banshee-data/gesturelife/internal/timeutil"
)

// FrameReader yields camera frames.
type FrameReader interface {
	ReadFrame(ctx context.Context) (Frame, error)
	Close() error
}

// ErrNoFrames is returned when a frame directory holds no images.
var ErrNoFrames = errors.New("no frames")

// DirFrameReader cycles through the still images (.jpg, .jpeg, .png) in a
// directory in name order. It stands in for camera acquisition when
// replaying recorded footage offline.
type DirFrameReader struct {
	paths []string
	clock timeutil.Clock

	mu  sync.Mutex
	idx int
	seq uint64
}

// NewDirFrameReader lists the images in dir.
func NewDirFrameReader(dir string, clock timeutil.Clock) (*DirFrameReader, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFrames, dir)
	}
	slices.Sort(paths)
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &DirFrameReader{paths: paths, clock: clock}, nil
}

// Len returns the number of images.
func (r *DirFrameReader) Len() int { return len(r.paths) }

// ReadFrame decodes the next image, wrapping around at the end.
func (r *DirFrameReader) ReadFrame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	r.mu.Lock()
	path := r.paths[r.idx]
	r.idx = (r.idx + 1) % len(r.paths)
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return Frame{}, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Frame{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return Frame{Seq: seq, At: r.clock.Now(), Image: img}, nil
}

// Close is a no-op.
func (r *DirFrameReader) Close() error { return nil }

// DetectorSource runs a Detector over frames from a FrameReader on its own
// goroutine and keeps the newest result, the same way UDPListener keeps the
// newest datagram. Sample never blocks on the detector: a slow or hung
// inference service only makes the cached sample go stale.
type DetectorSource struct {
	frames   FrameReader
	detector Detector
	cfg      DetectorConfig
	interval time.Duration
	maxAge   time.Duration
	clock    timeutil.Clock

	mu       sync.Mutex
	latest   *gesture.LandmarkSample
	latestAt time.Time
	stats    DetectorStats
}

// DetectorStats counts detection cycles.
type DetectorStats struct {
	Frames uint64 `json:"frames"`
	Hands  uint64 `json:"hands"`
	Errors uint64 `json:"errors"`
}

// DetectorSourceConfig configures a DetectorSource.
type DetectorSourceConfig struct {
	Detector DetectorConfig
	// Interval is the minimum time between detections, 33ms by default.
	Interval time.Duration
	// MaxAge is how long a detected hand is reported, 250ms by default.
	MaxAge time.Duration
	Clock  timeutil.Clock
}

// NewDetectorSource pairs a frame reader with a detector. Call Run to start
// detecting.
func NewDetectorSource(frames FrameReader, detector Detector, cfg DetectorSourceConfig) *DetectorSource {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 250 * time.Millisecond
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &DetectorSource{
		frames:   frames,
		detector: detector,
		cfg:      cfg.Detector,
		interval: interval,
		maxAge:   maxAge,
		clock:    clock,
	}
}

// Run detects frames until ctx is cancelled. Detection errors clear the
// cached sample and are logged; the loop keeps going.
func (s *DetectorSource) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	diagf("detector source started: interval=%v", s.interval)
	for {
		if err := s.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if n := s.Stats().Errors; n == 1 || n%100 == 0 {
				opsf("detector error (%d so far): %v", n, err)
			}
		}
		select {
		case <-ctx.Done():
			diagf("detector source stopping")
			return nil
		case <-ticker.C():
		}
	}
}

// Refresh reads one frame, detects hands and caches the first acceptable
// hand scaled to the frame size. A frame with no acceptable hand or a
// failed cycle caches "no hand".
func (s *DetectorSource) Refresh(ctx context.Context) error {
	sample, err := s.detect(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Frames++
	s.latest = sample
	s.latestAt = s.clock.Now()
	if err != nil {
		s.stats.Errors++
		return err
	}
	if sample != nil {
		s.stats.Hands++
	}
	return nil
}

func (s *DetectorSource) detect(ctx context.Context) (*gesture.LandmarkSample, error) {
	frame, err := s.frames.ReadFrame(ctx)
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	hands, err := s.detector.Detect(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("detect frame %d: %w", frame.Seq, err)
	}
	h := SelectHand(hands, s.cfg.MinConfidence)
	if h == nil {
		return nil, nil
	}
	b := frame.Image.Bounds()
	return h.Sample(b.Dx(), b.Dy()), nil
}

// Sample implements Source. It returns the newest detected sample, or nil
// once that sample is older than MaxAge.
func (s *DetectorSource) Sample(ctx context.Context) (*gesture.LandmarkSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil || s.clock.Since(s.latestAt) > s.maxAge {
		return nil, nil
	}
	return s.latest, nil
}

// Stats returns a copy of the detection counters.
func (s *DetectorSource) Stats() DetectorStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close closes the detector and the frame reader.
func (s *DetectorSource) Close() error {
	return errors.Join(s.detector.Close(), s.frames.Close())
}
