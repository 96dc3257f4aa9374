package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gesturelife/internal/life"
)

func TestNewDrawDebouncer_Invalid(t *testing.T) {
	t.Parallel()

	for _, c := range [][2]int{{0, 2}, {3, 0}, {-1, -1}} {
		_, err := NewDrawDebouncer(c[0], c[1])
		assert.ErrorIs(t, err, ErrInvalidFrameCount)
	}
}

func TestDrawDebouncer_ConfirmRelease(t *testing.T) {
	t.Parallel()

	d, err := NewDrawDebouncer(3, 2)
	require.NoError(t, err)

	var active []bool
	for _, click := range []bool{true, true, true, false, false} {
		active = append(active, d.Update(click))
	}
	assert.Equal(t, []bool{false, false, true, true, false}, active)
}

func TestDrawDebouncer_InterruptedPinchResetsCount(t *testing.T) {
	t.Parallel()

	d, err := NewDrawDebouncer(3, 2)
	require.NoError(t, err)

	for _, click := range []bool{true, true, false, true, true} {
		assert.False(t, d.Update(click))
	}
	assert.True(t, d.Update(true))

	// A single released frame does not end the stroke.
	assert.True(t, d.Update(false))
	assert.True(t, d.Update(true))
	assert.True(t, d.Update(false))
	assert.False(t, d.Update(false))
}

func TestDrawDebouncer_ShouldWrite(t *testing.T) {
	t.Parallel()

	d, err := NewDrawDebouncer(1, 1)
	require.NoError(t, err)

	a := life.Cell{Row: 1, Col: 1}
	b := life.Cell{Row: 1, Col: 2}

	assert.False(t, d.ShouldWrite(a), "inactive never writes")

	d.Update(true)
	assert.True(t, d.ShouldWrite(a))
	assert.False(t, d.ShouldWrite(a), "same cell suppressed")
	assert.True(t, d.ShouldWrite(b))
	assert.True(t, d.ShouldWrite(a), "returning to a cell writes again")

	// A new stroke forgets the last written cell.
	d.Update(false)
	assert.False(t, d.ShouldWrite(a))
	d.Update(true)
	assert.True(t, d.ShouldWrite(a))
}
