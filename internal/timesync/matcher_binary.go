package timesync

// binarySearchMatcher locates the insertion point of the reference time
// with a lower-bound search and compares the immediate neighbors.
// Stateless, so it has no ordering requirement on calls and is safe for
// concurrent readers of the same series. O(log m) per call.
type binarySearchMatcher struct{}

func (m *binarySearchMatcher) Name() string { return string(AlgorithmBinarySearch) }

func (m *binarySearchMatcher) FindClosest(refTime float64, s *Series) (float64, float64, bool) {
	idx := lowerBound(s.timestamps, refTime)
	match, diff := closestNeighbor(s.timestamps, idx, refTime)
	return match, diff, true
}

func (m *binarySearchMatcher) Reset() {}
