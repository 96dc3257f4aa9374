package control

import (
	"strings"
	"time"

	"github.com/banshee-data/gesturelife/internal/life"
)

// Snapshot is a read-only copy of controller state for renderers,
// monitors and recorders.
type Snapshot struct {
	At         time.Time `json:"at"`
	Rows       int       `json:"rows"`
	Cols       int       `json:"cols"`
	Cells      []bool    `json:"-"`
	Generation uint64    `json:"generation"`
	Population int       `json:"population"`
	Mode       Mode      `json:"mode"`
	Running    bool      `json:"running"`

	Cursor      *life.Cell `json:"cursor,omitempty"`
	HandPresent bool       `json:"hand_present"`
	ClickDown   bool       `json:"click_down"`
	Drawing     bool       `json:"drawing"`

	FPS        float64 `json:"fps"`
	Frames     uint64  `json:"frames"`
	CellWrites uint64  `json:"cell_writes"`
	Clears     uint64  `json:"clears"`
}

// Alive reports whether a cell was live. Out-of-range cells are dead.
func (s Snapshot) Alive(row, col int) bool {
	if row < 0 || row >= s.Rows || col < 0 || col >= s.Cols {
		return false
	}
	return s.Cells[row*s.Cols+col]
}

// LiveCells lists live cells in row-major order.
func (s Snapshot) LiveCells() []life.Cell {
	var out []life.Cell
	for i, alive := range s.Cells {
		if alive {
			out = append(out, life.Cell{Row: i / s.Cols, Col: i % s.Cols})
		}
	}
	return out
}

// Render draws the grid as text: '*' live, '-' dead, and the cursor cell
// as '@' (live) or '+' (dead).
func (s Snapshot) Render() string {
	var b strings.Builder
	b.Grow(s.Rows * (s.Cols + 1))
	for r := 0; r < s.Rows; r++ {
		for c := 0; c < s.Cols; c++ {
			alive := s.Cells[r*s.Cols+c]
			onCursor := s.Cursor != nil && s.Cursor.Row == r && s.Cursor.Col == c
			switch {
			case onCursor && alive:
				b.WriteByte('@')
			case onCursor:
				b.WriteByte('+')
			case alive:
				b.WriteByte('*')
			default:
				b.WriteByte('-')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
