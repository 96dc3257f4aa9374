// Package life owns the automaton grid and its generation engine.
//
// Responsibilities: fixed-size boolean grid, clamped (non-wrapping)
// neighbour counting, double-buffered generation steps, single-cell
// writes, random fill and plaintext pattern stamping.
// Key types: Grid, Cell, Pattern.
//
// Dependency rule: life depends on nothing else in this module. Gesture
// and controller code mutate a Grid only through its methods.
package life
