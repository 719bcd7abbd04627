package timesync

// bruteForceMatcher scans the whole series on every call, tracking the
// minimum absolute difference seen so far. The first timestamp to reach
// a given minimum wins, so earlier indexes win exact ties. Chosen for
// auditability, not speed.
type bruteForceMatcher struct{}

func (m *bruteForceMatcher) Name() string { return string(AlgorithmBruteForce) }

func (m *bruteForceMatcher) FindClosest(refTime float64, s *Series) (float64, float64, bool) {
	closest := s.timestamps[0]
	minDiff := abs(refTime - closest)
	for _, ts := range s.timestamps[1:] {
		if diff := abs(refTime - ts); diff < minDiff {
			minDiff = diff
			closest = ts
		}
	}
	return closest, minDiff, true
}

func (m *bruteForceMatcher) Reset() {}
