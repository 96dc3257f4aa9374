package life

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustGrid(t *testing.T, rows, cols int) *Grid {
	t.Helper()
	g, err := New(rows, cols)
	require.NoError(t, err)
	return g
}

func stamped(t *testing.T, rows, cols int, text string, row, col int) *Grid {
	t.Helper()
	g := mustGrid(t, rows, cols)
	g.Stamp(MustParsePattern(text), row, col)
	return g
}

func TestNew_InvalidDimensions(t *testing.T) {
	t.Parallel()

	for _, dims := range [][2]int{{0, 5}, {5, 0}, {-1, 3}, {0, 0}} {
		_, err := New(dims[0], dims[1])
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidDimensions))
	}

	g, err := New(1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Rows())
	assert.Equal(t, 1, g.Cols())
}

func TestNeighborCount_Clamped(t *testing.T) {
	t.Parallel()

	g := mustGrid(t, 3, 3)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			g.Set(r, c, true)
		}
	}

	assert.Equal(t, 3, g.NeighborCount(0, 0), "corner has three neighbours, no wraparound")
	assert.Equal(t, 5, g.NeighborCount(0, 1), "edge has five neighbours")
	assert.Equal(t, 8, g.NeighborCount(1, 1), "centre excludes itself")
}

func TestStep(t *testing.T) {
	t.Parallel()

	t.Run("all dead stays dead", func(t *testing.T) {
		t.Parallel()
		g := mustGrid(t, 3, 3)
		changed := g.Step()
		assert.Equal(t, 0, changed)
		assert.Equal(t, 0, g.Population())
		assert.Equal(t, uint64(1), g.Generation())
	})

	t.Run("single cell dies of underpopulation", func(t *testing.T) {
		t.Parallel()
		g := mustGrid(t, 3, 3)
		g.Set(1, 1, true)
		assert.Equal(t, 1, g.Step())
		assert.Equal(t, 0, g.Population())
	})

	t.Run("block is a still life", func(t *testing.T) {
		t.Parallel()
		g := stamped(t, 4, 4, Block, 1, 1)
		before := g.Cells()
		assert.Equal(t, 0, g.Step())
		if diff := cmp.Diff(before, g.Cells()); diff != "" {
			t.Errorf("block changed (-before +after):\n%s", diff)
		}
	})

	t.Run("block in a corner is a still life", func(t *testing.T) {
		t.Parallel()
		g := stamped(t, 2, 2, Block, 0, 0)
		g.Step()
		assert.Equal(t, 4, g.Population())
	})

	t.Run("blinker oscillates with period two", func(t *testing.T) {
		t.Parallel()
		g := stamped(t, 5, 5, Blinker, 2, 1)
		start := g.Clone()

		g.Step()
		vertical := mustGrid(t, 5, 5)
		vertical.Set(1, 2, true)
		vertical.Set(2, 2, true)
		vertical.Set(3, 2, true)
		assert.True(t, g.Equal(vertical), "after one step:\n%s", g)

		g.Step()
		assert.True(t, g.Equal(start), "after two steps:\n%s", g)
	})

	t.Run("glider translates one cell diagonally every four generations", func(t *testing.T) {
		t.Parallel()
		g := stamped(t, 20, 20, Glider, 1, 1)
		for i := 1; i <= 3; i++ {
			for range 4 {
				g.Step()
			}
			want := stamped(t, 20, 20, Glider, 1+i, 1+i)
			if diff := cmp.Diff(want.Cells(), g.Cells()); diff != "" {
				t.Fatalf("glider after %d generations (-want +got):\n%s", 4*i, diff)
			}
		}
		assert.Equal(t, uint64(12), g.Generation())
	})
}

func TestNext_LeavesInputUntouched(t *testing.T) {
	t.Parallel()

	g := stamped(t, 5, 5, Blinker, 2, 1)
	before := g.Cells()

	n := Next(g)
	assert.Equal(t, before, g.Cells())
	assert.Equal(t, uint64(0), g.Generation())
	assert.Equal(t, uint64(1), n.Generation())
	assert.Equal(t, g.Rows(), n.Rows())
	assert.Equal(t, g.Cols(), n.Cols())
	assert.False(t, n.Equal(g))
}

func TestCellWrites_OutOfRangeAreNoOps(t *testing.T) {
	t.Parallel()

	g := mustGrid(t, 3, 4)
	g.Set(-1, 0, true)
	g.Set(0, 4, true)
	g.Set(3, 0, true)
	g.Toggle(5, 5)
	g.Toggle(-1, -1)

	assert.Equal(t, 0, g.Population())
	assert.False(t, g.Alive(-1, 0))
	assert.False(t, g.Alive(99, 99))
}

func TestToggleSetClear(t *testing.T) {
	t.Parallel()

	g := mustGrid(t, 3, 3)
	g.Toggle(0, 0)
	assert.True(t, g.Alive(0, 0))
	g.Toggle(0, 0)
	assert.False(t, g.Alive(0, 0))

	g.Set(2, 1, true)
	g.Set(1, 2, true)
	assert.Equal(t, []Cell{{Row: 1, Col: 2}, {Row: 2, Col: 1}}, g.LiveCells())

	g.Step()
	gen := g.Generation()
	g.Clear()
	assert.Equal(t, 0, g.Population())
	assert.Equal(t, gen, g.Generation())
}

func TestRandomize(t *testing.T) {
	t.Parallel()

	g := mustGrid(t, 10, 10)
	rng := rand.New(rand.NewPCG(1, 2))

	g.Randomize(rng, 0)
	assert.Equal(t, 0, g.Population())

	g.Randomize(rng, 1)
	assert.Equal(t, 100, g.Population())

	g.Randomize(rng, 7) // clamped to 1
	assert.Equal(t, 100, g.Population())

	g.Randomize(rng, 0.5)
	assert.Greater(t, g.Population(), 0)
	assert.Less(t, g.Population(), 100)
}

func TestString(t *testing.T) {
	t.Parallel()

	g := stamped(t, 3, 3, Glider, 0, 0)
	assert.Equal(t, "-*-\n--*\n***\n", g.String())
}

func TestParsePattern(t *testing.T) {
	t.Parallel()

	p, err := ParsePattern(Glider)
	require.NoError(t, err)
	assert.Equal(t, "Glider", p.Name)
	assert.Equal(t, 3, p.Rows)
	assert.Equal(t, 3, p.Cols)
	assert.Len(t, p.Live, 5)

	p, err = ParsePattern("*.\n.*")
	require.NoError(t, err)
	assert.Equal(t, []Cell{{0, 0}, {1, 1}}, p.Live)

	_, err = ParsePattern("!only comments\n")
	assert.ErrorIs(t, err, ErrEmptyPattern)

	_, err = ParsePattern("O?O")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected")
}

func TestStamp_ClipsAtEdges(t *testing.T) {
	t.Parallel()

	g := mustGrid(t, 3, 3)
	written := g.Stamp(MustParsePattern(Glider), 1, 0)
	// Only the glider cells landing inside the 3×3 grid are written.
	assert.Equal(t, 2, written)
	assert.Equal(t, 2, g.Population())
}
