package life

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

// ErrInvalidDimensions is returned when a grid is constructed with fewer than
// one row or column.
var ErrInvalidDimensions = errors.New("grid dimensions must be positive")

// Cell addresses one grid position.
type Cell struct {
	Row int
	Col int
}

// Grid is a fixed rows×cols field of live/dead cells stored row-major.
// Dimensions never change after construction. Reads outside the grid
// return false and writes outside it are ignored, so callers may pass
// coordinates derived from rounding near the edges.
//
// A Grid is owned by a single goroutine; it does no locking.
type Grid struct {
	rows       int
	cols       int
	cells      []bool
	back       []bool // next-generation buffer, swapped in by Step
	generation uint64
}

// New returns an all-dead grid.
func New(rows, cols int) (*Grid, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, rows, cols)
	}
	return &Grid{
		rows:  rows,
		cols:  cols,
		cells: make([]bool, rows*cols),
		back:  make([]bool, rows*cols),
	}, nil
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// Generation returns how many steps have been applied since construction.
func (g *Grid) Generation() uint64 { return g.generation }

// InBounds reports whether (row, col) lies inside the grid.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.rows && col >= 0 && col < g.cols
}

// Alive reports whether the cell is live. Out-of-range cells are dead.
func (g *Grid) Alive(row, col int) bool {
	if !g.InBounds(row, col) {
		return false
	}
	return g.cells[row*g.cols+col]
}

// Set writes a single cell. Out-of-range writes are no-ops.
func (g *Grid) Set(row, col int, alive bool) {
	if !g.InBounds(row, col) {
		return
	}
	g.cells[row*g.cols+col] = alive
}

// Toggle flips a single cell. Out-of-range toggles are no-ops.
func (g *Grid) Toggle(row, col int) {
	if !g.InBounds(row, col) {
		return
	}
	i := row*g.cols + col
	g.cells[i] = !g.cells[i]
}

// Clear kills every cell. The generation counter is kept.
func (g *Grid) Clear() {
	clear(g.cells)
}

// Randomize replaces the grid with cells that are live with probability
// density, clamped to [0, 1].
func (g *Grid) Randomize(rng *rand.Rand, density float64) {
	density = min(max(density, 0), 1)
	for i := range g.cells {
		g.cells[i] = rng.Float64() < density
	}
	diagf("randomized %dx%d grid at density %.2f: population=%d", g.rows, g.cols, density, g.Population())
}

// Population counts live cells.
func (g *Grid) Population() int {
	n := 0
	for _, alive := range g.cells {
		if alive {
			n++
		}
	}
	return n
}

// Cells returns a row-major copy of the cell states.
func (g *Grid) Cells() []bool {
	out := make([]bool, len(g.cells))
	copy(out, g.cells)
	return out
}

// LiveCells lists live cells in row-major order.
func (g *Grid) LiveCells() []Cell {
	var out []Cell
	for i, alive := range g.cells {
		if alive {
			out = append(out, Cell{Row: i / g.cols, Col: i % g.cols})
		}
	}
	return out
}

// Clone returns an independent copy including the generation counter.
func (g *Grid) Clone() *Grid {
	c := &Grid{
		rows:       g.rows,
		cols:       g.cols,
		cells:      g.Cells(),
		back:       make([]bool, len(g.cells)),
		generation: g.generation,
	}
	return c
}

// Equal reports whether two grids have the same dimensions and cell states.
// Generation counters are not compared.
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || g.rows != other.rows || g.cols != other.cols {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

// String renders live cells as '*' and dead cells as '-', one line per row.
func (g *Grid) String() string {
	var b strings.Builder
	b.Grow(g.rows * (g.cols + 1))
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			if g.cells[r*g.cols+c] {
				b.WriteByte('*')
			} else {
				b.WriteByte('-')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
