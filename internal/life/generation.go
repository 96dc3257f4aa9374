package life

// NeighborCount returns the number of live cells in the 3×3 block centred on
// (row, col), excluding the cell itself. The block is clamped to the grid:
// there is no wraparound, so edge cells have fewer than eight neighbours.
func (g *Grid) NeighborCount(row, col int) int {
	return neighborCount(g.cells, g.rows, g.cols, row, col)
}

func neighborCount(cells []bool, rows, cols, row, col int) int {
	r0, r1 := max(row-1, 0), min(row+1, rows-1)
	c0, c1 := max(col-1, 0), min(col+1, cols-1)

	n := 0
	for r := r0; r <= r1; r++ {
		base := r * cols
		for c := c0; c <= c1; c++ {
			if (r != row || c != col) && cells[base+c] {
				n++
			}
		}
	}
	return n
}

// nextState applies the survival/birth rule: a live cell survives with two or
// three neighbours, a dead cell is born with exactly three.
func nextState(alive bool, neighbors int) bool {
	if alive {
		return neighbors == 2 || neighbors == 3
	}
	return neighbors == 3
}

// Step advances the grid one generation in place and returns how many cells
// changed state. Every cell is computed from the previous generation into
// the back buffer; the buffers are swapped only after the whole pass, so no
// cell ever sees a partially updated neighbourhood.
func (g *Grid) Step() int {
	changed := 0
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			i := r*g.cols + c
			next := nextState(g.cells[i], neighborCount(g.cells, g.rows, g.cols, r, c))
			g.back[i] = next
			if next != g.cells[i] {
				changed++
			}
		}
	}
	g.cells, g.back = g.back, g.cells
	g.generation++
	tracef("generation %d: changed=%d", g.generation, changed)
	return changed
}

// Next returns the following generation as a new grid, leaving g untouched.
func Next(g *Grid) *Grid {
	n := g.Clone()
	n.Step()
	return n
}
