package landmarks

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/banshee-data/gesturelife/internal/gesture"
	"github.com/banshee-data/gesturelife/internal/timeutil"
)

// ListenerStats counts datagrams seen by a UDPListener.
type ListenerStats struct {
	Packets      uint64 `json:"packets"`
	Bytes        uint64 `json:"bytes"`
	DecodeErrors uint64 `json:"decode_errors"`
	OutOfOrder   uint64 `json:"out_of_order"`
	LastSeq      uint64 `json:"last_seq"`
}

// UDPListener receives tracker datagrams and keeps the newest sample. It
// implements Source: Sample returns the newest sample until it is older
// than MaxAge, after which it reports no hand.
type UDPListener struct {
	address       string
	rcvBuf        int
	maxAge        time.Duration
	minConfidence float64
	clock         timeutil.Clock

	mu       sync.Mutex
	conn     *net.UDPConn
	ready    chan struct{}
	latest   *gesture.LandmarkSample
	latestAt time.Time
	haveAny  bool
	stats    ListenerStats
}

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address       string
	RcvBuf        int
	MaxAge        time.Duration
	MinConfidence float64
	Clock         timeutil.Clock
}

// NewUDPListener creates a listener. Zero values default to a 256KiB
// receive buffer, 250ms max age and the wall clock.
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	rcvBuf := config.RcvBuf
	if rcvBuf <= 0 {
		rcvBuf = 256 * 1024
	}
	maxAge := config.MaxAge
	if maxAge <= 0 {
		maxAge = 250 * time.Millisecond
	}
	clock := config.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &UDPListener{
		address:       config.Address,
		rcvBuf:        rcvBuf,
		maxAge:        maxAge,
		minConfidence: config.MinConfidence,
		clock:         clock,
		ready:         make(chan struct{}),
	}
}

// Start listens until ctx is cancelled.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	defer conn.Close()

	if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
		opsf("failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
	}

	l.mu.Lock()
	l.conn = conn
	close(l.ready)
	l.mu.Unlock()

	diagf("UDP listener started on %s", conn.LocalAddr())

	buffer := make([]byte, MaxDatagramSize+1)
	for {
		select {
		case <-ctx.Done():
			diagf("UDP listener stopping due to context cancellation")
			return nil
		default:
		}

		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, from, err := conn.ReadFromUDP(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			opsf("UDP read error: %v", err)
			continue
		}
		if err := l.HandlePacket(buffer[:n]); err != nil {
			diagf("dropping datagram from %v: %v", from, err)
		}
	}
}

// LocalAddr blocks until the socket is bound, then returns its address.
func (l *UDPListener) LocalAddr(ctx context.Context) (net.Addr, error) {
	select {
	case <-l.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.LocalAddr(), nil
}

// HandlePacket decodes one datagram payload and, if it is newer than the
// current sample, replaces it. A stale current sample is always replaced
// so that a restarted tracker (whose seq resets) is picked up.
func (l *UDPListener) HandlePacket(packet []byte) error {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.stats.Packets++
	l.stats.Bytes += uint64(len(packet))

	d, err := DecodeDatagram(packet)
	if err != nil {
		l.stats.DecodeErrors++
		return err
	}

	fresh := l.haveAny && now.Sub(l.latestAt) <= l.maxAge
	if fresh && d.Seq != 0 && d.Seq <= l.stats.LastSeq {
		l.stats.OutOfOrder++
		return fmt.Errorf("out of order seq %d (last %d)", d.Seq, l.stats.LastSeq)
	}

	l.latest = d.SampleAbove(l.minConfidence)
	l.latestAt = now
	l.haveAny = true
	l.stats.LastSeq = d.Seq
	tracef("seq=%d hands=%d present=%t", d.Seq, len(d.Hands), l.latest != nil)
	return nil
}

// Sample returns the newest sample, or nil once it is older than MaxAge.
func (l *UDPListener) Sample(ctx context.Context) (*gesture.LandmarkSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.haveAny || l.clock.Since(l.latestAt) > l.maxAge {
		return nil, nil
	}
	return l.latest, nil
}

// Stats returns a copy of the counters.
func (l *UDPListener) Stats() ListenerStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}
