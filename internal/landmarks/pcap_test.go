package landmarks

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gesturelife/internal/timeutil"
)

type capturedDatagram struct {
	at      time.Time
	dstPort uint16
	payload []byte
}

// writeTestPCAP writes Ethernet/IPv4/UDP frames carrying the payloads.
func writeTestPCAP(t *testing.T, packets []capturedDatagram) []byte {
	t.Helper()

	var out bytes.Buffer
	w := pcapgo.NewWriter(&out)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))

	for _, p := range packets {
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
			DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IPv4(192, 168, 1, 10),
			DstIP:    net.IPv4(192, 168, 1, 20),
		}
		udp := &layers.UDP{SrcPort: 40000, DstPort: layers.UDPPort(p.dstPort)}

		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true}
		require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(p.payload)))

		data := buf.Bytes()
		ci := gopacket.CaptureInfo{Timestamp: p.at, CaptureLength: len(data), Length: len(data)}
		require.NoError(t, w.WritePacket(ci, data))
	}
	return out.Bytes()
}

func TestReadPCAP_FiltersPort(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	raw := writeTestPCAP(t, []capturedDatagram{
		{t0, 5005, datagramJSON(1)},
		{t0.Add(10 * time.Millisecond), 9999, datagramJSON(2)},
		{t0.Add(20 * time.Millisecond), 5005, datagramJSON(3)},
	})

	var seqs []uint64
	n, err := ReadPCAP(context.Background(), bytes.NewReader(raw), 5005, func(_ time.Time, payload []byte) error {
		d, err := DecodeDatagram(payload)
		require.NoError(t, err)
		seqs = append(seqs, d.Seq)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []uint64{1, 3}, seqs)
}

func TestReadPCAP_CallbackErrorStops(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	raw := writeTestPCAP(t, []capturedDatagram{
		{t0, 5005, datagramJSON(1)},
		{t0, 5005, datagramJSON(2)},
	})
	stop := errors.New("stop")
	n, err := ReadPCAP(context.Background(), bytes.NewReader(raw), 5005, func(time.Time, []byte) error { return stop })
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)
}

func TestReadPCAP_NotAPCAP(t *testing.T) {
	_, err := ReadPCAP(context.Background(), bytes.NewReader([]byte("definitely not pcap")), 5005, nil)
	require.Error(t, err)
}

func TestLoadPCAP_AndPlayback(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	raw := writeTestPCAP(t, []capturedDatagram{
		{t0, 5005, datagramJSON(1, handJSON(true, 0.9, fullHand(0.1, 0.6)))},
		{t0.Add(33 * time.Millisecond), 5005, []byte("garbage")},
		{t0.Add(66 * time.Millisecond), 5005, datagramJSON(2)},
		{t0.Add(100 * time.Millisecond), 5005, datagramJSON(3, handJSON(true, 0.9, fullHand(0.3, 0.6)))},
	})
	path := filepath.Join(t.TempDir(), "session.pcap")
	require.NoError(t, os.WriteFile(path, raw, 0644))

	samples, err := LoadPCAP(context.Background(), path, 5005, 0.5)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, time.Duration(0), samples[0].Offset)
	assert.Equal(t, 66*time.Millisecond, samples[1].Offset)
	assert.Nil(t, samples[1].Sample)
	assert.Equal(t, 100*time.Millisecond, samples[2].Offset)

	clock := timeutil.NewMockClock(time.Unix(5, 0))
	src, err := NewPCAPSource(context.Background(), path, 5005, 0.5, clock, false)
	require.NoError(t, err)
	assert.Equal(t, 3, src.Len())

	ctx := context.Background()
	s, _ := src.Sample(ctx)
	require.NotNil(t, s)
	assert.Equal(t, 0.1, s.Points[0].X)

	clock.Advance(70 * time.Millisecond)
	s, _ = src.Sample(ctx)
	assert.Nil(t, s)

	clock.Advance(30 * time.Millisecond)
	s, _ = src.Sample(ctx)
	require.NotNil(t, s)
	assert.Equal(t, 0.3, s.Points[0].X)
	assert.False(t, src.Done())

	clock.Advance(time.Millisecond)
	s, _ = src.Sample(ctx)
	assert.Nil(t, s)
	assert.True(t, src.Done())
}

func TestNewPCAPSource_Errors(t *testing.T) {
	_, err := NewPCAPSource(context.Background(), filepath.Join(t.TempDir(), "missing.pcap"), 5005, 0, nil, false)
	require.Error(t, err)

	raw := writeTestPCAP(t, []capturedDatagram{{time.Unix(1, 0), 9999, datagramJSON(1)}})
	path := filepath.Join(t.TempDir(), "other-port.pcap")
	require.NoError(t, os.WriteFile(path, raw, 0644))
	_, err = NewPCAPSource(context.Background(), path, 5005, 0, nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no datagrams")
}
