package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/banshee-data/gesturelife/internal/control"
	"github.com/banshee-data/gesturelife/internal/gesture"
	"github.com/banshee-data/gesturelife/internal/landmarks"
	"github.com/banshee-data/gesturelife/internal/timeutil"
)

type recordKind int

const (
	kindFrame recordKind = iota
	kindGeneration
	kindAction
)

type record struct {
	kind       recordKind
	at         time.Time
	seq        uint64
	present    bool
	payload    []byte
	generation uint64
	population int
	action     string
}

// RecorderConfig contains configuration for a Recorder.
type RecorderConfig struct {
	// FlushInterval is how often queued rows are written (default 1s).
	FlushInterval time.Duration
	// QueueSize bounds rows waiting to be written (default 4096). Rows
	// beyond it are dropped and counted.
	QueueSize int
	// FrameWidth and FrameHeight are stored with frames that carry no hand.
	FrameWidth  int
	FrameHeight int
	// Clock drives the flush ticker; nil uses the wall clock.
	Clock timeutil.Clock
}

// Recorder stores a running session. It implements control.Observer and
// control.FrameObserver; both methods only enqueue and never block. Run
// writes the queue in batches on its own goroutine.
type Recorder struct {
	store   *Store
	session *Session
	cfg     RecorderConfig
	queue   chan record

	dropped atomic.Uint64
	written atomic.Uint64

	// Owned by the observer goroutine.
	seq         uint64
	lastSample  *gesture.LandmarkSample
	sawFrame    bool
	primed      bool
	lastGen     uint64
	lastClears  uint64
	lastRunning bool
}

// NewRecorder returns a recorder appending to session.
func NewRecorder(store *Store, session *Session, cfg RecorderConfig) *Recorder {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 4096
	}
	if cfg.FrameWidth <= 0 || cfg.FrameHeight <= 0 {
		cfg.FrameWidth, cfg.FrameHeight = 640, 480
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Recorder{
		store:   store,
		session: session,
		cfg:     cfg,
		queue:   make(chan record, cfg.QueueSize),
	}
}

// Session returns the session being recorded.
func (r *Recorder) Session() *Session { return r.session }

// Dropped counts rows discarded because the queue was full.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Written counts rows committed to the database.
func (r *Recorder) Written() uint64 { return r.written.Load() }

func (r *Recorder) enqueue(rec record) {
	select {
	case r.queue <- rec:
	default:
		if n := r.dropped.Add(1); n == 1 || n%1000 == 0 {
			opsf("session %s: recorder queue full, %d rows dropped", r.session.ID, n)
		}
	}
}

// ObserveFrame records the sample when it differs from the previous one.
// Sources that hold a sample across polls return the same pointer, so
// repeated polls of one tracker frame are stored once.
func (r *Recorder) ObserveFrame(at time.Time, sample *gesture.LandmarkSample, _ gesture.HandMouseEvent) {
	if r.sawFrame && sample == r.lastSample {
		return
	}
	r.sawFrame = true
	r.lastSample = sample
	r.seq++

	payload, err := landmarks.NewDatagram(r.seq, sample, r.cfg.FrameWidth, r.cfg.FrameHeight).Encode()
	if err != nil {
		opsf("session %s: encode frame %d: %v", r.session.ID, r.seq, err)
		return
	}
	r.enqueue(record{kind: kindFrame, at: at, seq: r.seq, present: sample != nil, payload: payload})
}

// Observe records generation populations and start/pause/clear actions.
func (r *Recorder) Observe(s control.Snapshot) {
	if !r.primed {
		r.primed = true
		r.lastGen, r.lastClears, r.lastRunning = s.Generation, s.Clears, s.Running
		return
	}
	if s.Generation != r.lastGen {
		r.enqueue(record{kind: kindGeneration, at: s.At, generation: s.Generation, population: s.Population})
		r.lastGen = s.Generation
	}
	if s.Clears != r.lastClears {
		r.enqueue(record{kind: kindAction, at: s.At, action: "clear"})
		r.lastClears = s.Clears
	}
	if s.Running != r.lastRunning {
		action := "pause"
		if s.Running {
			action = "start"
		}
		r.enqueue(record{kind: kindAction, at: s.At, action: action})
		r.lastRunning = s.Running
	}
}

// Run writes queued rows every FlushInterval until ctx is cancelled, then
// drains the queue, stamps the session end and returns nil.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := r.cfg.Clock.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	diagf("recorder started for session %s: flush=%v", r.session.ID, r.cfg.FlushInterval)
	batch := make([]record, 0, 256)
	for {
		select {
		case <-ctx.Done():
			batch = r.drain(batch)
			r.flush(batch)
			if err := r.store.EndSession(context.Background(), r.session.ID, r.cfg.Clock.Now()); err != nil {
				opsf("session %s: %v", r.session.ID, err)
			}
			diagf("recorder stopped: session %s written=%d dropped=%d", r.session.ID, r.Written(), r.Dropped())
			return nil
		case <-ticker.C():
			batch = r.drain(batch)
			r.flush(batch)
			batch = batch[:0]
		}
	}
}

func (r *Recorder) drain(batch []record) []record {
	for {
		select {
		case rec := <-r.queue:
			batch = append(batch, rec)
		default:
			return batch
		}
	}
}

func (r *Recorder) flush(batch []record) {
	if len(batch) == 0 {
		return
	}
	if err := r.writeBatch(context.Background(), batch); err != nil {
		opsf("session %s: failed to write %d rows: %v", r.session.ID, len(batch), err)
		return
	}
	r.written.Add(uint64(len(batch)))
	tracef("session %s: wrote %d rows", r.session.ID, len(batch))
}

func (r *Recorder) writeBatch(ctx context.Context, batch []record) error {
	tx, err := r.store.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	id := r.session.ID
	for _, rec := range batch {
		switch rec.kind {
		case kindFrame:
			_, err = tx.ExecContext(ctx,
				`INSERT INTO landmark_frames (session_id, seq, captured_ns, hand_present, payload) VALUES (?, ?, ?, ?, ?)`,
				id, int64(rec.seq), rec.at.UnixNano(), rec.present, rec.payload)
		case kindGeneration:
			_, err = tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO generations (session_id, generation, recorded_ns, population) VALUES (?, ?, ?, ?)`,
				id, int64(rec.generation), rec.at.UnixNano(), rec.population)
		case kindAction:
			_, err = tx.ExecContext(ctx,
				`INSERT INTO actions (session_id, recorded_ns, action) VALUES (?, ?, ?)`,
				id, rec.at.UnixNano(), rec.action)
		}
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}
