package landmarks

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gesturelife/internal/gesture"
)

// fullHand returns 21 normalised landmarks fanned out from (x, y).
func fullHand(x, y float64) []gesture.Point {
	pts := make([]gesture.Point, gesture.NumLandmarks)
	for i := range pts {
		pts[i] = gesture.Point{X: x + float64(i)*0.005, Y: y - float64(i)*0.005}
	}
	return pts
}

func handJSON(present bool, score float64, pts []gesture.Point) string {
	var lms []string
	for _, p := range pts {
		lms = append(lms, fmt.Sprintf("[%g,%g]", p.X, p.Y))
	}
	return fmt.Sprintf(`{"present":%t,"score":%g,"landmarks":[%s]}`, present, score, strings.Join(lms, ","))
}

func datagramJSON(seq uint64, hands ...string) []byte {
	return []byte(fmt.Sprintf(`{"seq":%d,"width":640,"height":480,"hands":[%s]}`, seq, strings.Join(hands, ",")))
}

func TestDecodeDatagram(t *testing.T) {
	t.Parallel()

	pts := fullHand(0.4, 0.6)
	d, err := DecodeDatagram(datagramJSON(7, handJSON(true, 0.9, pts)))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), d.Seq)
	require.Len(t, d.Hands, 1)

	s := d.Sample()
	require.NotNil(t, s)
	assert.Equal(t, 640, s.Width)
	assert.Equal(t, 480, s.Height)
	assert.Equal(t, pts, s.Points)
	require.NoError(t, s.Validate())
}

func TestDatagram_Sample_Selection(t *testing.T) {
	t.Parallel()

	absent := handJSON(false, 0.99, fullHand(0.1, 0.9))
	partial := handJSON(true, 0.99, fullHand(0.2, 0.9)[:5])
	weak := handJSON(true, 0.3, fullHand(0.3, 0.9))
	good := handJSON(true, 0.8, fullHand(0.5, 0.9))

	d, err := DecodeDatagram(datagramJSON(1, absent, partial, weak, good))
	require.NoError(t, err)

	s := d.Sample()
	require.NotNil(t, s)
	assert.Equal(t, 0.3, s.Points[0].X, "first present full hand at any score")

	s = d.SampleAbove(0.7)
	require.NotNil(t, s)
	assert.Equal(t, 0.5, s.Points[0].X)

	assert.Nil(t, d.SampleAbove(0.95))

	empty, err := DecodeDatagram(datagramJSON(2))
	require.NoError(t, err)
	assert.Nil(t, empty.Sample())
}

func TestDecodeDatagram_AcceptsZ(t *testing.T) {
	t.Parallel()

	var lms []string
	for i := 0; i < gesture.NumLandmarks; i++ {
		lms = append(lms, "[0.5,0.5,-0.02]")
	}
	body := fmt.Sprintf(`{"seq":1,"width":320,"height":240,"hands":[{"present":true,"score":1,"landmarks":[%s]}]}`, strings.Join(lms, ","))
	d, err := DecodeDatagram([]byte(body))
	require.NoError(t, err)
	require.NotNil(t, d.Sample())
	assert.Equal(t, 0.5, d.Sample().Points[3].Y)
}

func TestDecodeDatagram_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte("hello")},
		{"truncated", []byte(`{"seq":1,"width":`)},
		{"zero width", []byte(`{"seq":1,"width":0,"height":480,"hands":[]}`)},
		{"short landmark", []byte(`{"seq":1,"width":640,"height":480,"hands":[{"present":true,"landmarks":[[0.5]]}]}`)},
		{"too large", []byte(`{"seq":1,"pad":"` + strings.Repeat("x", MaxDatagramSize) + `"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDatagram(tt.body)
			assert.ErrorIs(t, err, ErrBadDatagram)
		})
	}
}

func TestNewDatagram(t *testing.T) {
	t.Parallel()

	sample := &gesture.LandmarkSample{Points: fullHand(0.25, 0.75), Width: 1280, Height: 720}
	b, err := NewDatagram(9, sample, 640, 480).Encode()
	require.NoError(t, err)

	d, err := DecodeDatagram(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), d.Seq)
	assert.Equal(t, sample, d.Sample())

	b, err = NewDatagram(10, nil, 640, 480).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"seq":10,"width":640,"height":480,"hands":[]}`, string(b))
}
