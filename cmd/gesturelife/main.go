package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/gesturelife/internal/config"
	"github.com/banshee-data/gesturelife/internal/control"
	"github.com/banshee-data/gesturelife/internal/gesture"
	"github.com/banshee-data/gesturelife/internal/life"
	"github.com/banshee-data/gesturelife/internal/monitor"
	"github.com/banshee-data/gesturelife/internal/monitoring"
	"github.com/banshee-data/gesturelife/internal/store"
	"github.com/banshee-data/gesturelife/internal/timeutil"
	"github.com/banshee-data/gesturelife/internal/version"
)

// options holds the command-line flags.
type options struct {
	tuningFile        string
	listen            string
	grpcListen        string
	udpAddr           string
	detectorURL       string
	detectorHealthURL string
	framesDir         string
	pcapFile          string
	pcapPort          int
	loopReplay        bool
	dbFile            string
	replayID          string
	plotDir           string
	seed              string
	start             bool
	consoleRate       time.Duration
	verbose           bool
	trace             bool
	showVersion       bool
}

// registerFlags defines the flags on fs, taking defaults from env so that
// flags still win.
func registerFlags(fs *flag.FlagSet, env config.Env) *options {
	o := &options{}
	fs.StringVar(&o.tuningFile, "config", env.TuningPath, "Path to the tuning config JSON")
	fs.StringVar(&o.listen, "listen", env.HTTPListen, "HTTP status/control listen address (empty disables)")
	fs.StringVar(&o.grpcListen, "grpc-listen", env.GRPCListen, "gRPC health listen address (empty disables)")
	fs.StringVar(&o.udpAddr, "udp-addr", env.UDPListen, "UDP address for tracker landmark datagrams")
	fs.StringVar(&o.detectorURL, "detector-url", env.DetectorURL, "Hand inference service URL (used with -frames)")
	fs.StringVar(&o.detectorHealthURL, "detector-health-url", env.DetectorHealthURL, "Inference service health URL (default /health on the detector host)")
	fs.StringVar(&o.framesDir, "frames", env.FramesDir, "Directory of still frames fed to the detector")
	fs.StringVar(&o.pcapFile, "pcap", env.PCAPFile, "Replay tracker datagrams from a pcap file")
	fs.IntVar(&o.pcapPort, "pcap-port", env.PCAPPort, "UDP port carrying tracker datagrams in the pcap")
	fs.BoolVar(&o.loopReplay, "loop", false, "Loop pcap or session replay")
	fs.StringVar(&o.dbFile, "db", env.DBPath, "SQLite session database (empty disables recording)")
	fs.StringVar(&o.replayID, "replay", env.ReplaySession, "Replay a recorded session from -db")
	fs.StringVar(&o.plotDir, "plot-dir", env.PlotDir, "Write population.png here on exit")
	fs.StringVar(&o.seed, "seed", "glider", "Initial grid: glider, block, blinker, random or none")
	fs.BoolVar(&o.start, "start", false, "Start simulating immediately")
	fs.DurationVar(&o.consoleRate, "console", 0, "Print the grid to stdout at this interval (0 disables)")
	fs.BoolVar(&o.verbose, "verbose", env.Verbose, "Enable diag logging")
	fs.BoolVar(&o.trace, "trace", false, "Enable per-frame trace logging")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	return o
}

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("failed to read environment: %v", err)
	}
	opts := registerFlags(flag.CommandLine, env)
	flag.Parse()
	if opts.showVersion {
		fmt.Println(version.String())
		return
	}

	streams := monitoring.LogWriters{Ops: os.Stderr}
	if opts.verbose {
		streams.Diag = os.Stderr
	}
	if opts.trace {
		streams.Trace = os.Stderr
	}
	monitoring.SetLogWriters(streams)

	tuning, err := config.LoadTuningConfig(opts.tuningFile)
	if err != nil {
		log.Fatalf("failed to load tuning config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := timeutil.RealClock{}

	engine, err := gesture.NewEngine(gesture.ConfigFromTuning(tuning))
	if err != nil {
		log.Fatalf("failed to create gesture engine: %v", err)
	}
	ctrl, err := control.NewController(control.ConfigFromTuning(tuning), engine, nil)
	if err != nil {
		log.Fatalf("failed to create controller: %v", err)
	}
	if err := seedGrid(ctrl, opts.seed); err != nil {
		log.Fatalf("failed to seed grid: %v", err)
	}
	if opts.start {
		ctrl.Start()
	}

	var st *store.Store
	if opts.dbFile != "" {
		st, err = store.Open(opts.dbFile)
		if err != nil {
			log.Fatalf("failed to open session database: %v", err)
		}
		defer st.Close()
	}

	src, err := openSource(ctx, sourceOptions{
		replayID:    opts.replayID,
		store:       st,
		pcapFile:    opts.pcapFile,
		pcapPort:    opts.pcapPort,
		framesDir:   opts.framesDir,
		detectorURL: opts.detectorURL,
		healthURL:   opts.detectorHealthURL,
		udpAddr:     opts.udpAddr,
		loop:        opts.loopReplay,
		tuning:      tuning,
		clock:       clock,
	})
	if err != nil {
		log.Fatalf("failed to open landmark source: %v", err)
	}
	defer src.close()

	var wg sync.WaitGroup
	start := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil {
				log.Printf("%s stopped: %v", name, err)
				stop()
			}
		}()
	}

	population := monitor.NewPopulationRecorder(0)
	observers := []control.Observer{population}

	if st != nil {
		sess, err := st.StartSession(ctx, clock.Now(), tuning.GetGridRows(), tuning.GetGridCols(), src.name)
		if err != nil {
			log.Fatalf("failed to start session: %v", err)
		}
		recorder := store.NewRecorder(st, sess, store.RecorderConfig{
			FrameWidth:  tuning.GetFrameWidth(),
			FrameHeight: tuning.GetFrameHeight(),
			Clock:       clock,
		})
		observers = append(observers, recorder)
		start("session recorder", recorder.Run)
		monitoring.Logf("recording session %s to %s", sess.ID, st.Path())
	}

	if opts.grpcListen != "" {
		hs, err := monitor.NewHealthServer(monitor.HealthConfig{
			Address:       opts.grpcListen,
			DetectorCheck: src.check,
			Clock:         clock,
		})
		if err != nil {
			log.Fatalf("failed to start gRPC health server: %v", err)
		}
		observers = append(observers, hs)
		start("gRPC health server", hs.Serve)
	}

	if opts.consoleRate > 0 {
		observers = append(observers, consoleObserver(os.Stdout, opts.consoleRate))
	}

	var ws *monitor.WebServer
	if opts.listen != "" {
		ws = monitor.NewWebServer(monitor.WebServerConfig{
			Address:       opts.listen,
			Population:    population,
			Store:         st,
			RandomDensity: tuning.GetRandomDensity(),
		})
		observers = append(observers, ws)
	}

	runner := control.NewRunner(ctrl, src.src, clock, control.RunnerConfig{
		PollInterval:       tuning.GetPollInterval(),
		GenerationInterval: tuning.GetGenerationInterval(),
	}, observers...)

	if ws != nil {
		ws.SetCommander(runner)
		start("HTTP server", ws.Start)
	}
	if src.run != nil {
		start(src.name+" source", src.run)
	}

	monitoring.Logf("gesturelife running: source=%s grid=%dx%d poll=%v generation=%v",
		src.name, tuning.GetGridRows(), tuning.GetGridCols(), tuning.GetPollInterval(), tuning.GetGenerationInterval())

	if err := runner.Run(ctx); err != nil {
		log.Printf("runner stopped: %v", err)
	}
	stop()
	wg.Wait()

	final := ctrl.Snapshot()
	monitoring.Logf("stopped at generation %d: population=%d frames=%d fps=%.1f source_errors=%d",
		final.Generation, final.Population, final.Frames, final.FPS, runner.SourceErrors())

	if opts.plotDir != "" {
		dir := opts.plotDir
		if path, err := population.SavePNG(dir); err != nil {
			log.Printf("population plot: %v", err)
		} else {
			monitoring.Logf("wrote %s", path)
		}
	}
	if s := population.Summary(); s.Count > 0 {
		fmt.Printf("population over %d generations: mean=%.1f stddev=%.1f median=%.0f p90=%.0f max=%.0f\n",
			s.Count, s.Mean, s.StdDev, s.Median, s.P90, s.Max)
	}
}

var seedPatterns = map[string]string{
	"glider":  life.Glider,
	"block":   life.Block,
	"blinker": life.Blinker,
}

// seedGrid stamps the initial pattern near the top-left corner.
func seedGrid(ctrl *control.Controller, seed string) error {
	switch seed {
	case "", "none":
		return nil
	case "random":
		ctrl.RandomGrid(-1)
		return nil
	}
	text, ok := seedPatterns[seed]
	if !ok {
		return fmt.Errorf("unknown seed %q", seed)
	}
	p, err := life.ParsePattern(text)
	if err != nil {
		return err
	}
	ctrl.Seed(p, 1, 1)
	return nil
}
