package life

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyPattern is returned when a pattern has no cell rows.
var ErrEmptyPattern = errors.New("pattern has no cells")

// Pattern is a rectangular block of cells parsed from plaintext notation.
type Pattern struct {
	Name string
	Rows int
	Cols int
	Live []Cell // offsets relative to the top-left corner
}

// Glider is the smallest spaceship; it moves one cell diagonally every four
// generations. The command seeds it by default.
const Glider = `!Name: Glider
.O.
..O
OOO
`

// Block is a 2×2 still life.
const Block = `!Name: Block
OO
OO
`

// Blinker is a period-2 oscillator.
const Blinker = `!Name: Blinker
OOO
`

// ParsePattern reads plaintext notation: '.' is dead, 'O' or '*' is live,
// lines starting with '!' are comments ("!Name: x" sets the name). Rows may
// be ragged; missing trailing cells are dead.
func ParsePattern(text string) (*Pattern, error) {
	p := &Pattern{}
	sc := bufio.NewScanner(strings.NewReader(text))
	row := 0
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if strings.HasPrefix(line, "!") {
			if name, ok := strings.CutPrefix(line, "!Name:"); ok {
				p.Name = strings.TrimSpace(name)
			}
			continue
		}
		if line == "" && row == 0 {
			continue
		}
		for col, ch := range line {
			switch ch {
			case 'O', '*':
				p.Live = append(p.Live, Cell{Row: row, Col: col})
			case '.':
			default:
				return nil, fmt.Errorf("pattern row %d col %d: unexpected %q", row, col, ch)
			}
		}
		p.Cols = max(p.Cols, len(line))
		row++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read pattern: %w", err)
	}
	if row == 0 {
		return nil, ErrEmptyPattern
	}
	p.Rows = row
	return p, nil
}

// MustParsePattern is ParsePattern for compile-time constants. It panics on error.
func MustParsePattern(text string) *Pattern {
	p, err := ParsePattern(text)
	if err != nil {
		panic(err)
	}
	return p
}

// Stamp sets the pattern's live cells with its top-left corner at (row, col).
// Cells that fall outside the grid are clipped. Returns how many cells were
// written.
func (g *Grid) Stamp(p *Pattern, row, col int) int {
	written := 0
	for _, c := range p.Live {
		r, cc := row+c.Row, col+c.Col
		if !g.InBounds(r, cc) {
			continue
		}
		g.Set(r, cc, true)
		written++
	}
	if written < len(p.Live) {
		diagf("stamp %q at (%d,%d) clipped %d of %d cells", p.Name, row, col, len(p.Live)-written, len(p.Live))
	}
	return written
}
