package landmarks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/gesturelife/internal/timeutil"
)

// PCAPPacketFunc receives each matching UDP payload with its capture time.
type PCAPPacketFunc func(captured time.Time, payload []byte) error

// ReadPCAP walks a pcap stream and calls fn for every UDP payload whose
// source or destination port is udpPort. Returning an error from fn stops
// the walk with that error.
func ReadPCAP(ctx context.Context, r io.Reader, udpPort int, fn PCAPPacketFunc) (int, error) {
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to open PCAP stream: %w", err)
	}

	packetSource := gopacket.NewPacketSource(reader, reader.LinkType())
	packetCount, matched := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return matched, err
		}
		packet, err := packetSource.NextPacket()
		if errors.Is(err, io.EOF) {
			diagf("PCAP read complete: %d packets, %d on port %d", packetCount, matched, udpPort)
			return matched, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			opsf("PCAP truncated after %d packets", packetCount)
			return matched, nil
		}
		if err != nil {
			return matched, fmt.Errorf("PCAP packet %d: %w", packetCount+1, err)
		}
		packetCount++

		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok || len(udp.Payload) == 0 {
			continue
		}
		if int(udp.DstPort) != udpPort && int(udp.SrcPort) != udpPort {
			continue
		}
		matched++
		if err := fn(packet.Metadata().Timestamp, udp.Payload); err != nil {
			return matched, err
		}
	}
}

// LoadPCAP reads every tracker datagram on udpPort from a pcap file and
// returns them as timed samples relative to the first one. Undecodable
// payloads are skipped.
func LoadPCAP(ctx context.Context, path string, udpPort int, minConfidence float64) ([]TimedSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PCAP file %s: %w", path, err)
	}
	defer f.Close()

	var (
		out   []TimedSample
		first time.Time
		bad   int
	)
	_, err = ReadPCAP(ctx, f, udpPort, func(captured time.Time, payload []byte) error {
		d, err := DecodeDatagram(payload)
		if err != nil {
			bad++
			return nil
		}
		if len(out) == 0 {
			first = captured
		}
		offset := captured.Sub(first)
		if n := len(out); n > 0 && offset < out[n-1].Offset {
			offset = out[n-1].Offset
		}
		out = append(out, TimedSample{Offset: offset, Sample: d.SampleAbove(minConfidence)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if bad > 0 {
		opsf("PCAP %s: skipped %d undecodable datagrams", path, bad)
	}
	return out, nil
}

// NewPCAPSource loads a pcap file into a Playback.
func NewPCAPSource(ctx context.Context, path string, udpPort int, minConfidence float64, clock timeutil.Clock, loop bool) (*Playback, error) {
	samples, err := LoadPCAP(ctx, path, udpPort, minConfidence)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("PCAP %s: no datagrams on UDP port %d", path, udpPort)
	}
	diagf("PCAP %s: %d frames over %v", path, len(samples), samples[len(samples)-1].Offset)
	return NewPlayback(samples, clock, loop), nil
}
