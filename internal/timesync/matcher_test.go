package timesync

import (
	"math"
	"testing"
)

func mustSeries(t *testing.T, name string, ts []float64) *Series {
	t.Helper()
	s, err := NewSeries(name, ts)
	if err != nil {
		t.Fatalf("NewSeries(%s): %v", name, err)
	}
	return s
}

// All four matchers must agree on these single-call cases; the linear
// scan's calls are already in ascending reference order.
func TestFindClosestAllAlgorithms(t *testing.T) {
	series := []float64{1.0, 2.0, 3.5, 10.0}

	testCases := []struct {
		name      string
		refTime   float64
		wantMatch float64
		wantDiff  float64
	}{
		{"before_first_clamps", 0.2, 1.0, 0.8},
		{"exact_match", 2.0, 2.0, 0.0},
		{"between_prefers_nearer", 3.0, 3.5, 0.5},
		{"exact_tie_prefers_earlier", 1.5, 1.0, 0.5},
		{"after_last_clamps", 12.0, 10.0, 2.0},
	}

	for _, algo := range Algorithms() {
		t.Run(string(algo), func(t *testing.T) {
			s := mustSeries(t, "sensor", series)

			for _, tc := range testCases {
				t.Run(tc.name, func(t *testing.T) {
					// Fresh matcher per case: the linear scan's cursor
					// assumes ascending reference times within a pass.
					m, err := newMatcher(algo, 5.0)
					if err != nil {
						t.Fatalf("newMatcher: %v", err)
					}
					match, diff, ok := m.FindClosest(tc.refTime, s)
					if !ok {
						t.Fatal("ok = false, want true")
					}
					if match != tc.wantMatch {
						t.Errorf("match = %f, want %f", match, tc.wantMatch)
					}
					if math.Abs(diff-tc.wantDiff) > 1e-12 {
						t.Errorf("diff = %f, want %f", diff, tc.wantDiff)
					}
				})
			}
		})
	}
}

func TestLinearScanCursorAdvances(t *testing.T) {
	m, err := newMatcher(AlgorithmLinearScan, 0.5)
	if err != nil {
		t.Fatalf("newMatcher: %v", err)
	}
	s := mustSeries(t, "sensor", []float64{0.0, 1.0, 2.0, 3.0, 4.0})

	// Ascending reference times across calls: each call must still find
	// the nearest neighbor despite the cursor never moving backwards.
	refs := []float64{0.4, 1.6, 3.1}
	want := []float64{0.0, 2.0, 3.0}
	for i, ref := range refs {
		match, _, ok := m.FindClosest(ref, s)
		if !ok || match != want[i] {
			t.Errorf("call %d: match = %f (ok=%v), want %f", i, match, ok, want[i])
		}
	}

	// Reset must allow a fresh pass from the start.
	m.Reset()
	if match, _, _ := m.FindClosest(0.4, s); match != 0.0 {
		t.Errorf("after Reset: match = %f, want 0.0", match)
	}
}

func TestHybridEmptyWindow(t *testing.T) {
	m, err := newMatcher(AlgorithmHybrid, 0.5)
	if err != nil {
		t.Fatalf("newMatcher: %v", err)
	}
	// Dense cluster: avg interval 0.1, so the window is
	// max(2*0.5, 2*0.1) = 1.0 around the reference time.
	s := mustSeries(t, "sensor", []float64{0.0, 0.1, 0.2, 0.3, 0.4, 0.5})

	if _, _, ok := m.FindClosest(3.0, s); ok {
		t.Error("expected no candidate for reference far outside the window")
	}

	match, diff, ok := m.FindClosest(0.55, s)
	if !ok {
		t.Fatal("expected candidate inside window")
	}
	if match != 0.5 || math.Abs(diff-0.05) > 1e-12 {
		t.Errorf("match = %f diff = %f, want 0.5 / 0.05", match, diff)
	}
}

func TestHybridWindowAdaptsToSparseSensor(t *testing.T) {
	m, err := newMatcher(AlgorithmHybrid, 0.1)
	if err != nil {
		t.Fatalf("newMatcher: %v", err)
	}
	// Sparse sensor: avg interval 5.0 dominates 2*maxTimeDiff, widening
	// the window to 10.0 so a mid-gap reference still sees candidates.
	s := mustSeries(t, "sensor", []float64{0.0, 5.0, 10.0})

	match, diff, ok := m.FindClosest(7.0, s)
	if !ok {
		t.Fatal("expected candidate: adaptive window should cover the gap")
	}
	if match != 5.0 || math.Abs(diff-2.0) > 1e-12 {
		t.Errorf("match = %f diff = %f, want 5.0 / 2.0", match, diff)
	}
}

func TestNewMatcherUnknownAlgorithm(t *testing.T) {
	if _, err := newMatcher(Algorithm("quantum"), 0.5); err == nil {
		t.Error("expected error for unknown algorithm")
	}
}

func TestBounds(t *testing.T) {
	ts := []float64{1.0, 2.0, 2.0, 3.0}

	if got := lowerBound(ts, 2.0); got != 1 {
		t.Errorf("lowerBound = %d, want 1", got)
	}
	if got := upperBound(ts, 2.0); got != 3 {
		t.Errorf("upperBound = %d, want 3", got)
	}
	if got := lowerBound(ts, 0.0); got != 0 {
		t.Errorf("lowerBound below range = %d, want 0", got)
	}
	if got := upperBound(ts, 9.0); got != 4 {
		t.Errorf("upperBound above range = %d, want 4", got)
	}
}
