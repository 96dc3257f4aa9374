// Package landmarks produces per-frame hand landmark samples for the
// gesture engine.
//
// Samples come from one of several Sources: a hand-landmark Detector fed
// by a FrameReader, a UDP listener receiving JSON datagrams from an
// external tracker, or a Playback of previously captured datagrams (pcap
// files or recorded sessions). Every Source returns at most one hand per
// call and reports "no hand" as a nil sample.
package landmarks
