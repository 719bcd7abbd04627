package timesync

// linearScanMatcher keeps one forward-only cursor per sensor. Each call
// advances the cursor while the sensor timestamp is below the reference
// time, then compares the timestamps on either side of the cursor.
// Amortized O(1) per call, but only when calls arrive in ascending
// reference-time order; the Synchronizer guarantees that and owns the
// matcher for exactly one run.
type linearScanMatcher struct {
	cursors map[string]int
}

func (m *linearScanMatcher) Name() string { return string(AlgorithmLinearScan) }

func (m *linearScanMatcher) FindClosest(refTime float64, s *Series) (float64, float64, bool) {
	idx := m.cursors[s.name]
	for idx < len(s.timestamps) && s.timestamps[idx] < refTime {
		idx++
	}
	// Reference times within a run are non-decreasing, so the advanced
	// cursor stays valid even when this row is later rejected.
	m.cursors[s.name] = idx
	match, diff := closestNeighbor(s.timestamps, idx, refTime)
	return match, diff, true
}

func (m *linearScanMatcher) Reset() {
	m.cursors = make(map[string]int)
}
