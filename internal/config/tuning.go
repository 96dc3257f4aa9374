package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the session tuning file. Every field is optional: the
// Get* accessors fall back to built-in defaults for omitted fields, so
// partial files are safe.
type TuningConfig struct {
	// Grid and cadence
	GridRows           *int     `json:"grid_rows,omitempty"`
	GridCols           *int     `json:"grid_cols,omitempty"`
	GenerationInterval *string  `json:"generation_interval,omitempty"` // duration string like "120ms"
	PollInterval       *string  `json:"poll_interval,omitempty"`
	RandomDensity      *float64 `json:"random_density,omitempty"`

	// Gesture engine
	Smoothing    *float64 `json:"smoothing,omitempty"`
	PinchDownPx  *float64 `json:"pinch_down_px,omitempty"`
	PinchUpPx    *float64 `json:"pinch_up_px,omitempty"`
	PointerGrace *string  `json:"pointer_grace,omitempty"`
	ClearHold    *string  `json:"clear_hold,omitempty"`
	FingerMargin *float64 `json:"finger_margin,omitempty"`
	Mirror       *bool    `json:"mirror,omitempty"`

	// Draw debounce
	DrawConfirmFrames *int `json:"draw_confirm_frames,omitempty"`
	DrawReleaseFrames *int `json:"draw_release_frames,omitempty"`

	// Landmark source
	FrameWidth             *int     `json:"frame_width,omitempty"`
	FrameHeight            *int     `json:"frame_height,omitempty"`
	MaxHands               *int     `json:"max_hands,omitempty"`
	MinDetectionConfidence *float64 `json:"min_detection_confidence,omitempty"`
	SampleMaxAge           *string  `json:"sample_max_age,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	e := EmptyTuningConfig()
	return &TuningConfig{
		GridRows:               ptrInt(e.GetGridRows()),
		GridCols:               ptrInt(e.GetGridCols()),
		GenerationInterval:     ptrString(e.GetGenerationInterval().String()),
		PollInterval:           ptrString(e.GetPollInterval().String()),
		RandomDensity:          ptrFloat64(e.GetRandomDensity()),
		Smoothing:              ptrFloat64(e.GetSmoothing()),
		PinchDownPx:            ptrFloat64(e.GetPinchDownPx()),
		PinchUpPx:              ptrFloat64(e.GetPinchUpPx()),
		PointerGrace:           ptrString(e.GetPointerGrace().String()),
		ClearHold:              ptrString(e.GetClearHold().String()),
		FingerMargin:           ptrFloat64(e.GetFingerMargin()),
		Mirror:                 ptrBool(e.GetMirror()),
		DrawConfirmFrames:      ptrInt(e.GetDrawConfirmFrames()),
		DrawReleaseFrames:      ptrInt(e.GetDrawReleaseFrames()),
		FrameWidth:             ptrInt(e.GetFrameWidth()),
		FrameHeight:            ptrInt(e.GetFrameHeight()),
		MaxHands:               ptrInt(e.GetMaxHands()),
		MinDetectionConfidence: ptrFloat64(e.GetMinDetectionConfidence()),
		SampleMaxAge:           ptrString(e.GetSampleMaxAge().String()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/<pkg>/
		"../../../" + DefaultConfigPath, // from cmd/<bin>/ or nested packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks field ranges and cross-field invariants. Omitted fields
// are checked through their defaults so a partial file cannot pair a set
// value with an incompatible default.
func (c *TuningConfig) Validate() error {
	for name, s := range map[string]*string{
		"generation_interval": c.GenerationInterval,
		"poll_interval":       c.PollInterval,
		"pointer_grace":       c.PointerGrace,
		"clear_hold":          c.ClearHold,
		"sample_max_age":      c.SampleMaxAge,
	} {
		if s != nil && *s != "" {
			if _, err := time.ParseDuration(*s); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *s, err)
			}
		}
	}

	if c.GetGridRows() < 1 || c.GetGridCols() < 1 {
		return fmt.Errorf("grid dimensions must be positive, got %dx%d", c.GetGridRows(), c.GetGridCols())
	}
	if c.GetGenerationInterval() <= 0 {
		return fmt.Errorf("generation_interval must be positive, got %v", c.GetGenerationInterval())
	}
	if c.GetPollInterval() <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", c.GetPollInterval())
	}
	if d := c.GetRandomDensity(); d < 0 || d > 1 {
		return fmt.Errorf("random_density must be between 0 and 1, got %f", d)
	}
	if s := c.GetSmoothing(); s < 0 || s > 1 {
		return fmt.Errorf("smoothing must be between 0 and 1, got %f", s)
	}
	if c.GetPinchDownPx() >= c.GetPinchUpPx() {
		return fmt.Errorf("pinch_down_px (%g) must be below pinch_up_px (%g)", c.GetPinchDownPx(), c.GetPinchUpPx())
	}
	if c.GetPointerGrace() < 0 {
		return fmt.Errorf("pointer_grace must be non-negative, got %v", c.GetPointerGrace())
	}
	if c.GetClearHold() < 0 {
		return fmt.Errorf("clear_hold must be non-negative, got %v", c.GetClearHold())
	}
	if c.GetFingerMargin() < 0 {
		return fmt.Errorf("finger_margin must be non-negative, got %f", c.GetFingerMargin())
	}
	if c.GetDrawConfirmFrames() < 1 || c.GetDrawReleaseFrames() < 1 {
		return fmt.Errorf("draw_confirm_frames and draw_release_frames must be at least 1, got %d/%d",
			c.GetDrawConfirmFrames(), c.GetDrawReleaseFrames())
	}
	if c.GetFrameWidth() < 1 || c.GetFrameHeight() < 1 {
		return fmt.Errorf("frame dimensions must be positive, got %dx%d", c.GetFrameWidth(), c.GetFrameHeight())
	}
	if c.GetMaxHands() < 1 {
		return fmt.Errorf("max_hands must be at least 1, got %d", c.GetMaxHands())
	}
	if v := c.GetMinDetectionConfidence(); v < 0 || v > 1 {
		return fmt.Errorf("min_detection_confidence must be between 0 and 1, got %f", v)
	}
	if c.GetSampleMaxAge() <= 0 {
		return fmt.Errorf("sample_max_age must be positive, got %v", c.GetSampleMaxAge())
	}
	return nil
}

func durationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def // default on parse error
	}
	return d
}

// GetGridRows returns the grid_rows value or the default.
func (c *TuningConfig) GetGridRows() int {
	if c.GridRows == nil {
		return 30
	}
	return *c.GridRows
}

// GetGridCols returns the grid_cols value or the default.
func (c *TuningConfig) GetGridCols() int {
	if c.GridCols == nil {
		return 50
	}
	return *c.GridCols
}

// GetGenerationInterval returns the delay between automatic generations.
func (c *TuningConfig) GetGenerationInterval() time.Duration {
	return durationOr(c.GenerationInterval, 120*time.Millisecond)
}

// GetPollInterval returns the landmark poll period.
func (c *TuningConfig) GetPollInterval() time.Duration {
	return durationOr(c.PollInterval, 10*time.Millisecond)
}

// GetRandomDensity returns the live fraction used by the Random button.
func (c *TuningConfig) GetRandomDensity() float64 {
	if c.RandomDensity == nil {
		return 0.2
	}
	return *c.RandomDensity
}

// GetSmoothing returns the cursor EMA factor.
func (c *TuningConfig) GetSmoothing() float64 {
	if c.Smoothing == nil {
		return 0.35
	}
	return *c.Smoothing
}

// GetPinchDownPx returns the pinch distance at or below which the click latches down.
func (c *TuningConfig) GetPinchDownPx() float64 {
	if c.PinchDownPx == nil {
		return 30.0
	}
	return *c.PinchDownPx
}

// GetPinchUpPx returns the pinch distance at or above which the click releases.
func (c *TuningConfig) GetPinchUpPx() float64 {
	if c.PinchUpPx == nil {
		return 70.0
	}
	return *c.PinchUpPx
}

// GetPointerGrace returns how long a lost cursor is bridged.
func (c *TuningConfig) GetPointerGrace() time.Duration {
	return durationOr(c.PointerGrace, 350*time.Millisecond)
}

// GetClearHold returns how long an open palm must be held to clear.
func (c *TuningConfig) GetClearHold() time.Duration {
	return durationOr(c.ClearHold, 900*time.Millisecond)
}

// GetFingerMargin returns the normalised tip-above-PIP margin.
func (c *TuningConfig) GetFingerMargin() float64 {
	if c.FingerMargin == nil {
		return 0.02
	}
	return *c.FingerMargin
}

// GetMirror reports whether landmark x coordinates are flipped.
func (c *TuningConfig) GetMirror() bool {
	if c.Mirror == nil {
		return true
	}
	return *c.Mirror
}

// GetDrawConfirmFrames returns the consecutive pinch frames that start a stroke.
func (c *TuningConfig) GetDrawConfirmFrames() int {
	if c.DrawConfirmFrames == nil {
		return 3
	}
	return *c.DrawConfirmFrames
}

// GetDrawReleaseFrames returns the consecutive open frames that end a stroke.
func (c *TuningConfig) GetDrawReleaseFrames() int {
	if c.DrawReleaseFrames == nil {
		return 2
	}
	return *c.DrawReleaseFrames
}

// GetFrameWidth returns the assumed camera frame width in pixels.
func (c *TuningConfig) GetFrameWidth() int {
	if c.FrameWidth == nil {
		return 640
	}
	return *c.FrameWidth
}

// GetFrameHeight returns the assumed camera frame height in pixels.
func (c *TuningConfig) GetFrameHeight() int {
	if c.FrameHeight == nil {
		return 480
	}
	return *c.FrameHeight
}

// GetMaxHands returns the detector hand limit.
func (c *TuningConfig) GetMaxHands() int {
	if c.MaxHands == nil {
		return 1
	}
	return *c.MaxHands
}

// GetMinDetectionConfidence returns the minimum hand score accepted.
func (c *TuningConfig) GetMinDetectionConfidence() float64 {
	if c.MinDetectionConfidence == nil {
		return 0.7
	}
	return *c.MinDetectionConfidence
}

// GetSampleMaxAge returns how old a streamed sample may be before it is
// treated as "no hand".
func (c *TuningConfig) GetSampleMaxAge() time.Duration {
	return durationOr(c.SampleMaxAge, 250*time.Millisecond)
}
