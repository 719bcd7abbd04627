package timesync

import "errors"

// ErrInvalidInput reports a structural problem with the input: a missing
// reference sensor, an empty series, an unsorted series, or a
// non-positive admission threshold. It aborts a run before any output is
// produced; per-row admission failures are never errors, they only
// shorten the output.
var ErrInvalidInput = errors.New("invalid input")
