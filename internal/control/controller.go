package control

import (
	"fmt"
	"image"
	"math/rand/v2"
	"time"

	"github.com/banshee-data/gesturelife/internal/config"
	"github.com/banshee-data/gesturelife/internal/gesture"
	"github.com/banshee-data/gesturelife/internal/life"
)

// Mode selects what an active pinch stroke does.
type Mode int

const (
	// ModeDraw lets pinch strokes set cells live. The simulation is paused.
	ModeDraw Mode = iota
	// ModeSimulate advances generations; strokes only move the highlight.
	ModeSimulate
)

func (m Mode) String() string {
	switch m {
	case ModeDraw:
		return "draw"
	case ModeSimulate:
		return "simulate"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// ParseMode accepts "draw" or "simulate".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "draw", "Draw":
		return ModeDraw, nil
	case "simulate", "Simulate":
		return ModeSimulate, nil
	}
	return ModeDraw, fmt.Errorf("unknown mode %q", s)
}

// Config holds the controller's construction-time settings.
type Config struct {
	Rows          int
	Cols          int
	ConfirmFrames int
	ReleaseFrames int
	RandomDensity float64

	// FrameWidth and FrameHeight are used to map cursors to cells until
	// the first sample reports its own frame size.
	FrameWidth  int
	FrameHeight int
}

// DefaultConfig matches config/tuning.defaults.json.
func DefaultConfig() Config {
	return Config{
		Rows:          30,
		Cols:          50,
		ConfirmFrames: 3,
		ReleaseFrames: 2,
		RandomDensity: 0.2,
		FrameWidth:    640,
		FrameHeight:   480,
	}
}

// ConfigFromTuning builds a controller config from the tuning file.
func ConfigFromTuning(t *config.TuningConfig) Config {
	return Config{
		Rows:          t.GetGridRows(),
		Cols:          t.GetGridCols(),
		ConfirmFrames: t.GetDrawConfirmFrames(),
		ReleaseFrames: t.GetDrawReleaseFrames(),
		RandomDensity: t.GetRandomDensity(),
		FrameWidth:    t.GetFrameWidth(),
		FrameHeight:   t.GetFrameHeight(),
	}
}

// Controller owns the grid and applies buttons, pointer clicks and gesture
// events to it. It is not safe for concurrent use; the Runner serialises
// every call onto its own goroutine.
type Controller struct {
	cfg    Config
	grid   *life.Grid
	engine *gesture.Engine
	draw   *DrawDebouncer
	rng    *rand.Rand

	mode    Mode
	running bool

	frameW, frameH int

	cursor    life.Cell
	hasCursor bool
	lastEvent gesture.HandMouseEvent

	cellWrites uint64
	clears     uint64
}

// NewController validates cfg. engine may be nil when only pointer input
// is used. A nil rng is replaced by a randomly seeded one.
func NewController(cfg Config, engine *gesture.Engine, rng *rand.Rand) (*Controller, error) {
	grid, err := life.New(cfg.Rows, cfg.Cols)
	if err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}
	draw, err := NewDrawDebouncer(cfg.ConfirmFrames, cfg.ReleaseFrames)
	if err != nil {
		return nil, fmt.Errorf("draw debouncer: %w", err)
	}
	if cfg.FrameWidth < 1 || cfg.FrameHeight < 1 {
		return nil, fmt.Errorf("frame size must be positive: %dx%d", cfg.FrameWidth, cfg.FrameHeight)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Controller{
		cfg:    cfg,
		grid:   grid,
		engine: engine,
		draw:   draw,
		rng:    rng,
		mode:   ModeDraw,
		frameW: cfg.FrameWidth,
		frameH: cfg.FrameHeight,
	}, nil
}

// Grid exposes the live grid for seeding and tests. Callers must not
// retain it across Runner ticks.
func (c *Controller) Grid() *life.Grid { return c.grid }

// Mode returns the current mode.
func (c *Controller) Mode() Mode { return c.mode }

// Running reports whether Tick advances generations.
func (c *Controller) Running() bool { return c.running }

// SetMode switches mode without touching the running flag.
func (c *Controller) SetMode(m Mode) {
	if m != ModeDraw && m != ModeSimulate {
		opsf("ignoring unknown mode %d", int(m))
		return
	}
	c.mode = m
}

// Start resumes generation ticks and switches to simulate mode.
func (c *Controller) Start() {
	c.running = true
	c.mode = ModeSimulate
	diagf("start at generation %d", c.grid.Generation())
}

// Pause stops generation ticks and switches to draw mode.
func (c *Controller) Pause() {
	if c.running {
		diagf("pause at generation %d", c.grid.Generation())
	}
	c.running = false
	c.mode = ModeDraw
}

// StepOnce pauses and advances exactly one generation.
func (c *Controller) StepOnce() {
	c.Pause()
	c.grid.Step()
}

// ClearGrid pauses and kills every cell.
func (c *Controller) ClearGrid() {
	c.Pause()
	c.grid.Clear()
	c.clears++
}

// RandomGrid pauses and refills the grid at density. A negative density
// uses the configured default.
func (c *Controller) RandomGrid(density float64) {
	if density < 0 {
		density = c.cfg.RandomDensity
	}
	c.Pause()
	c.grid.Randomize(c.rng, density)
}

// Seed pauses and stamps a pattern with its top-left corner at (row, col).
func (c *Controller) Seed(p *life.Pattern, row, col int) int {
	c.Pause()
	return c.grid.Stamp(p, row, col)
}

// ToggleCell flips one cell, as a pointer click does. Out-of-range cells
// are ignored.
func (c *Controller) ToggleCell(row, col int) {
	c.grid.Toggle(row, col)
}

// Tick advances one generation when running. It reports whether the grid
// was stepped.
func (c *Controller) Tick() bool {
	if !c.running {
		return false
	}
	c.grid.Step()
	return true
}

// HandleFrame runs the gesture engine over one frame's sample (nil when
// no hand was detected) and applies the resulting event. Event production
// always completes before any draw-state mutation.
func (c *Controller) HandleFrame(sample *gesture.LandmarkSample, now time.Time) gesture.HandMouseEvent {
	if c.engine == nil {
		return gesture.HandMouseEvent{}
	}
	ev := c.engine.Process(sample, now)
	w, h := c.frameW, c.frameH
	if sample != nil && sample.Width > 0 && sample.Height > 0 {
		w, h = sample.Width, sample.Height
	}
	c.HandleEvent(ev, w, h)
	return ev
}

// HandleEvent applies one gesture event whose cursor is expressed in a
// frameW×frameH pixel space.
func (c *Controller) HandleEvent(ev gesture.HandMouseEvent, frameW, frameH int) {
	if frameW > 0 && frameH > 0 {
		c.frameW, c.frameH = frameW, frameH
	}
	c.lastEvent = ev

	if ev.Action == gesture.ActionClear {
		opsf("clear gesture: wiping %d live cells", c.grid.Population())
		c.ClearGrid()
	}

	drawing := c.draw.Update(ev.ClickDown)

	if ev.Cursor == nil {
		c.hasCursor = false
		return
	}
	cell := c.cursorToCell(*ev.Cursor)
	c.cursor = cell
	c.hasCursor = true

	if c.mode == ModeDraw && drawing && c.draw.ShouldWrite(cell) {
		c.grid.Set(cell.Row, cell.Col, true)
		c.cellWrites++
		tracef("draw cell (%d,%d)", cell.Row, cell.Col)
	}
}

// cursorToCell clamps p into the current frame and scales it onto the grid.
func (c *Controller) cursorToCell(p image.Point) life.Cell {
	x := min(max(p.X, 0), c.frameW-1)
	y := min(max(p.Y, 0), c.frameH-1)
	return life.Cell{
		Row: y * c.grid.Rows() / c.frameH,
		Col: x * c.grid.Cols() / c.frameW,
	}
}

// CursorCell returns the highlighted cell, if any hand cursor is known.
func (c *Controller) CursorCell() (row, col int, ok bool) {
	if !c.hasCursor {
		return -1, -1, false
	}
	return c.cursor.Row, c.cursor.Col, true
}

// Drawing reports whether a pinch stroke is active.
func (c *Controller) Drawing() bool { return c.draw.Active() }

// Snapshot returns an immutable copy of everything a renderer needs.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		Rows:        c.grid.Rows(),
		Cols:        c.grid.Cols(),
		Cells:       c.grid.Cells(),
		Generation:  c.grid.Generation(),
		Population:  c.grid.Population(),
		Mode:        c.mode,
		Running:     c.running,
		HandPresent: c.lastEvent.HandPresent,
		ClickDown:   c.lastEvent.ClickDown,
		Drawing:     c.draw.Active(),
		CellWrites:  c.cellWrites,
		Clears:      c.clears,
	}
	if c.hasCursor {
		cell := c.cursor
		s.Cursor = &cell
	}
	if c.engine != nil {
		s.FPS = c.engine.FPS()
		s.Frames = c.engine.Frames()
	}
	return s
}
