package timesync

import (
	"fmt"
	"sort"
)

// Algorithm selects one of the closest-match strategies.
type Algorithm string

const (
	// AlgorithmBruteForce scans every timestamp per call. O(n*m) total.
	AlgorithmBruteForce Algorithm = "brute_force"
	// AlgorithmLinearScan keeps a forward-only cursor per sensor and is
	// only valid when driven in ascending reference-time order. O(n+m).
	AlgorithmLinearScan Algorithm = "linear_scan"
	// AlgorithmBinarySearch is stateless lower-bound search. O(n log m).
	AlgorithmBinarySearch Algorithm = "binary_search"
	// AlgorithmHybrid restricts binary search to an adaptive per-sensor
	// window sized from that sensor's average sample interval.
	AlgorithmHybrid Algorithm = "hybrid"
)

// Algorithms returns all strategies in canonical order.
func Algorithms() []Algorithm {
	return []Algorithm{AlgorithmBruteForce, AlgorithmLinearScan, AlgorithmBinarySearch, AlgorithmHybrid}
}

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	switch a {
	case AlgorithmBruteForce, AlgorithmLinearScan, AlgorithmBinarySearch, AlgorithmHybrid:
		return true
	}
	return false
}

// ClosestMatcher finds, for a reference timestamp, the closest timestamp
// in a sensor series. Implementations never fail on a non-empty series;
// ok is false only when a strategy legitimately has no candidate at all
// (the hybrid's empty window), which callers treat like a failed
// admission rather than an error.
//
// Exact ties are broken toward the earlier timestamp in every
// implementation, so all strategies agree on well-separated data.
type ClosestMatcher interface {
	// Name returns the algorithm name for logging and metrics.
	Name() string

	// FindClosest returns the closest timestamp in s to refTime and the
	// absolute difference.
	FindClosest(refTime float64, s *Series) (match float64, absDiff float64, ok bool)

	// Reset clears any per-run state (linear-scan cursors).
	Reset()
}

// newMatcher builds the matcher for one synchronization run.
// maxTimeDiff feeds the hybrid's window floor; the other strategies
// ignore it.
func newMatcher(algo Algorithm, maxTimeDiff float64) (ClosestMatcher, error) {
	switch algo {
	case AlgorithmBruteForce:
		return &bruteForceMatcher{}, nil
	case AlgorithmLinearScan:
		return &linearScanMatcher{cursors: make(map[string]int)}, nil
	case AlgorithmBinarySearch:
		return &binarySearchMatcher{}, nil
	case AlgorithmHybrid:
		return &hybridMatcher{maxTimeDiff: maxTimeDiff, windows: make(map[string]float64)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrInvalidInput, algo)
	}
}

// lowerBound returns the first index i with ts[i] >= t.
func lowerBound(ts []float64, t float64) int {
	return sort.SearchFloat64s(ts, t)
}

// upperBound returns the first index i with ts[i] > t.
func upperBound(ts []float64, t float64) int {
	return sort.Search(len(ts), func(i int) bool { return ts[i] > t })
}

// closestNeighbor compares the insertion-point neighbors ts[idx-1] and
// ts[idx], clamping at the ends. The predecessor wins exact ties.
func closestNeighbor(ts []float64, idx int, refTime float64) (float64, float64) {
	switch {
	case idx == 0:
		return ts[0], abs(refTime - ts[0])
	case idx == len(ts):
		last := ts[len(ts)-1]
		return last, abs(refTime - last)
	default:
		prevDiff := abs(refTime - ts[idx-1])
		nextDiff := abs(refTime - ts[idx])
		if prevDiff <= nextDiff {
			return ts[idx-1], prevDiff
		}
		return ts[idx], nextDiff
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
