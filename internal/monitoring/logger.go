// Package monitoring holds the process-level diagnostic logger and the
// wiring that routes every engine package's log streams to one place.
package monitoring

import (
	"io"
	"log"
	"os"
)

var std = log.New(os.Stderr, "[gesturelife] ", log.LstdFlags|log.Lmicroseconds)

// Logf is the process-level diagnostic logger used by the command and the
// status server. It may be replaced by SetLogger; tests can redirect or mute it.
var Logf func(format string, v ...interface{}) = std.Printf

// SetLogger replaces Logf. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetOutput points the default Logf at w, keeping its prefix and flags.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
	Logf = std.Printf
}
