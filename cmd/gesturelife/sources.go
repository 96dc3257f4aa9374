package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/banshee-data/gesturelife/internal/config"
	"github.com/banshee-data/gesturelife/internal/control"
	"github.com/banshee-data/gesturelife/internal/landmarks"
	"github.com/banshee-data/gesturelife/internal/monitoring"
	"github.com/banshee-data/gesturelife/internal/store"
	"github.com/banshee-data/gesturelife/internal/timeutil"
)

type sourceOptions struct {
	replayID    string
	store       *store.Store
	pcapFile    string
	pcapPort    int
	framesDir   string
	detectorURL string
	healthURL   string
	udpAddr     string
	loop        bool
	tuning      *config.TuningConfig
	clock       timeutil.Clock
}

// openedSource is a landmark source plus whatever keeps it alive.
type openedSource struct {
	src   landmarks.Source
	name  string
	run   func(context.Context) error
	check func(context.Context) error
	close func() error
}

// openSource picks the landmark source in priority order: session replay,
// pcap replay, detector over still frames, then the live UDP listener.
func openSource(ctx context.Context, opts sourceOptions) (*openedSource, error) {
	minConf := opts.tuning.GetMinDetectionConfidence()
	noop := func() error { return nil }

	switch {
	case opts.replayID != "":
		if opts.store == nil {
			return nil, errors.New("-replay requires -db")
		}
		pb, err := store.NewReplaySource(ctx, opts.store, opts.replayID, minConf, opts.clock, opts.loop)
		if err != nil {
			return nil, err
		}
		return &openedSource{src: pb, name: "replay:" + opts.replayID, close: noop}, nil

	case opts.pcapFile != "":
		pb, err := landmarks.NewPCAPSource(ctx, opts.pcapFile, opts.pcapPort, minConf, opts.clock, opts.loop)
		if err != nil {
			return nil, err
		}
		return &openedSource{src: pb, name: "pcap", close: noop}, nil

	case opts.framesDir != "" || opts.detectorURL != "":
		if opts.framesDir == "" || opts.detectorURL == "" {
			return nil, errors.New("-frames and -detector-url must be used together")
		}
		frames, err := landmarks.NewDirFrameReader(opts.framesDir, opts.clock)
		if err != nil {
			return nil, err
		}
		detector, err := landmarks.NewHTTPDetector(landmarks.HTTPDetectorConfig{
			InferenceURL: opts.detectorURL,
			HealthURL:    opts.healthURL,
			Detector:     landmarks.DetectorConfigFromTuning(opts.tuning),
		})
		if err != nil {
			return nil, err
		}
		ds := landmarks.NewDetectorSource(frames, detector, landmarks.DetectorSourceConfig{
			Detector: landmarks.DetectorConfigFromTuning(opts.tuning),
			MaxAge:   opts.tuning.GetSampleMaxAge(),
			Clock:    opts.clock,
		})
		return &openedSource{src: ds, name: "detector", run: ds.Run, check: detector.CheckHealth, close: func() error {
			monitoring.Logf("detector source: %+v", ds.Stats())
			return ds.Close()
		}}, nil

	default:
		if opts.udpAddr == "" {
			return nil, errors.New("no landmark source configured")
		}
		l := landmarks.NewUDPListener(landmarks.UDPListenerConfig{
			Address:       opts.udpAddr,
			MaxAge:        opts.tuning.GetSampleMaxAge(),
			MinConfidence: minConf,
			Clock:         opts.clock,
		})
		return &openedSource{src: l, name: "udp", run: l.Start, close: func() error {
			st := l.Stats()
			monitoring.Logf("udp listener: %+v", st)
			return nil
		}}, nil
	}
}

// consoleObserver prints the grid at most once per interval.
func consoleObserver(w io.Writer, interval time.Duration) control.Observer {
	var last time.Time
	return control.ObserverFunc(func(s control.Snapshot) {
		if !last.IsZero() && s.At.Sub(last) < interval {
			return
		}
		last = s.At
		fmt.Fprintf(w, "\ngeneration %d  population %d  mode %s  running %t  hand %t  fps %.1f\n%s",
			s.Generation, s.Population, s.Mode, s.Running, s.HandPresent, s.FPS, s.Render())
	})
}
