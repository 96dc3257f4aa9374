// Package control wires gesture events and pointer clicks to the life grid.
//
// Responsibilities: the draw debouncer (confirm/release frame counts and
// duplicate-cell suppression), the controller that owns the grid, the
// Draw/Simulate mode and the Start/Pause/Step/Clear/Random buttons, and
// the Runner that drives frame polling and generation ticks from a single
// goroutine.
// Key types: DrawDebouncer, Controller, Snapshot, Runner.
//
// Dependency rule: control imports life, gesture and landmarks. It never
// renders; renderers and recorders receive Snapshots through Observer.
package control
