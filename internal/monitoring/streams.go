package monitoring

import (
	"io"

	"github.com/banshee-data/gesturelife/internal/control"
	"github.com/banshee-data/gesturelife/internal/gesture"
	"github.com/banshee-data/gesturelife/internal/landmarks"
	"github.com/banshee-data/gesturelife/internal/life"
	"github.com/banshee-data/gesturelife/internal/store"
)

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

// SetLogWriters routes the ops, diag and trace streams of every engine
// package. Pass nil for any writer to disable that stream everywhere.
func SetLogWriters(w LogWriters) {
	life.SetLogWriters(w.Diag, w.Trace)
	gesture.SetLogWriters(w.Ops, w.Diag, w.Trace)
	control.SetLogWriters(w.Ops, w.Diag, w.Trace)
	landmarks.SetLogWriters(w.Ops, w.Diag, w.Trace)
	store.SetLogWriters(w.Ops, w.Diag, w.Trace)
}
