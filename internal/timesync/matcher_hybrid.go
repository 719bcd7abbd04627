package timesync

// hybridMatcher restricts the search to a window around the reference
// time before scanning for the minimum. The window is adaptive per
// sensor: max(2*maxTimeDiff, 2*average inter-sample interval), so
// sensors whose sampling rate varies across a recording neither
// undershoot nor overshoot a fixed window. An empty window means no
// candidate at all, which is distinct from a candidate that fails the
// admission threshold.
type hybridMatcher struct {
	maxTimeDiff float64
	windows     map[string]float64
}

func (m *hybridMatcher) Name() string { return string(AlgorithmHybrid) }

func (m *hybridMatcher) FindClosest(refTime float64, s *Series) (float64, float64, bool) {
	w := m.window(s)

	lo := lowerBound(s.timestamps, refTime-w)
	hi := upperBound(s.timestamps, refTime+w)
	if lo >= hi {
		return 0, 0, false
	}

	// The windowed subset is small; a linear scan over it picks the
	// minimum, earlier timestamp winning exact ties.
	closest := s.timestamps[lo]
	minDiff := abs(refTime - closest)
	for _, ts := range s.timestamps[lo+1 : hi] {
		if diff := abs(refTime - ts); diff < minDiff {
			minDiff = diff
			closest = ts
		}
	}
	return closest, minDiff, true
}

func (m *hybridMatcher) window(s *Series) float64 {
	if w, cached := m.windows[s.name]; cached {
		return w
	}
	w := 2 * m.maxTimeDiff
	if iv := 2 * s.AvgInterval(); iv > w {
		w = iv
	}
	m.windows[s.name] = w
	return w
}

func (m *hybridMatcher) Reset() {
	m.windows = make(map[string]float64)
}
