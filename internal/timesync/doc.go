// Package timesync aligns timestamp streams from multiple independent
// sensors against a designated reference sensor. Sensors sample at
// different, possibly irregular rates and are not phase-locked; for each
// reference timestamp the synchronizer finds the closest timestamp from
// every other sensor and emits an aligned row, subject to a maximum
// allowed time difference and a startup-outlier rule for the reference's
// first sample.
//
// Four interchangeable matching strategies are provided (brute force,
// linear scan, binary search, and an adaptive-window hybrid); for
// well-separated data they produce identical alignments and differ only
// in cost. A benchmark harness runs all four over the same input and
// picks a best by a weighted accuracy/speed score.
package timesync
