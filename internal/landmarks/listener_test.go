package landmarks

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gesturelife/internal/timeutil"
)

func TestNewUDPListener_Defaults(t *testing.T) {
	l := NewUDPListener(UDPListenerConfig{Address: ":5005"})

	assert.Equal(t, ":5005", l.address)
	assert.Equal(t, 256*1024, l.rcvBuf)
	assert.Equal(t, 250*time.Millisecond, l.maxAge)
	assert.NotNil(t, l.clock)
}

func TestUDPListener_HandlePacket(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	l := NewUDPListener(UDPListenerConfig{MaxAge: 200 * time.Millisecond, MinConfidence: 0.5, Clock: clock})
	ctx := context.Background()

	s, err := l.Sample(ctx)
	require.NoError(t, err)
	assert.Nil(t, s, "nothing received yet")

	require.NoError(t, l.HandlePacket(datagramJSON(1, handJSON(true, 0.9, fullHand(0.4, 0.6)))))
	s, err = l.Sample(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 0.4, s.Points[0].X)

	// Older sequence numbers are dropped while the current sample is fresh.
	clock.Advance(50 * time.Millisecond)
	err = l.HandlePacket(datagramJSON(1, handJSON(true, 0.9, fullHand(0.1, 0.6))))
	require.Error(t, err)
	s, _ = l.Sample(ctx)
	assert.Equal(t, 0.4, s.Points[0].X)

	// A datagram with no hands clears the sample immediately.
	require.NoError(t, l.HandlePacket(datagramJSON(2)))
	s, _ = l.Sample(ctx)
	assert.Nil(t, s)

	// Low-confidence hands are ignored.
	require.NoError(t, l.HandlePacket(datagramJSON(3, handJSON(true, 0.2, fullHand(0.3, 0.6)))))
	s, _ = l.Sample(ctx)
	assert.Nil(t, s)

	require.NoError(t, l.HandlePacket(datagramJSON(4, handJSON(true, 0.9, fullHand(0.2, 0.6)))))
	clock.Advance(200 * time.Millisecond)
	s, _ = l.Sample(ctx)
	assert.NotNil(t, s, "max age is inclusive")

	clock.Advance(time.Millisecond)
	s, _ = l.Sample(ctx)
	assert.Nil(t, s, "stale sample reports no hand")

	// Once stale, a restarted tracker with a low seq is accepted.
	require.NoError(t, l.HandlePacket(datagramJSON(1, handJSON(true, 0.9, fullHand(0.15, 0.6)))))
	s, _ = l.Sample(ctx)
	require.NotNil(t, s)
	assert.Equal(t, 0.15, s.Points[0].X)

	assert.ErrorIs(t, l.HandlePacket([]byte("junk")), ErrBadDatagram)

	stats := l.Stats()
	assert.Equal(t, uint64(7), stats.Packets)
	assert.Equal(t, uint64(1), stats.DecodeErrors)
	assert.Equal(t, uint64(1), stats.OutOfOrder)
	assert.Equal(t, uint64(1), stats.LastSeq)
}

func TestUDPListener_Loopback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewUDPListener(UDPListenerConfig{Address: "127.0.0.1:0", MaxAge: time.Minute})
	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	addr, err := l.LocalAddr(waitCtx)
	require.NoError(t, err)

	conn, err := net.Dial("udp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(datagramJSON(1, handJSON(true, 0.9, fullHand(0.45, 0.55))))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, err := l.Sample(ctx)
		return err == nil && s != nil && s.Points[0].X == 0.45
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}

	_, err = l.Sample(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUDPListener_BadAddress(t *testing.T) {
	l := NewUDPListener(UDPListenerConfig{Address: "not an address"})
	err := l.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve")
}
