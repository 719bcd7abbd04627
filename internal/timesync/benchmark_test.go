package timesync

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/sensorsync/internal/timeutil"
)

func TestBenchmarkRunsAllAlgorithms(t *testing.T) {
	series := threeRateSeries(t)
	cfg := Config{ReferenceSensor: "lidar_0", MaxTimeDiff: 0.5}

	res, err := Benchmark(series, cfg, WithClock(timeutil.NewMockClock(time.Unix(0, 0))))
	if err != nil {
		t.Fatalf("Benchmark: %v", err)
	}

	if len(res.PerAlgorithm) != len(Algorithms()) {
		t.Fatalf("got %d algorithm runs, want %d", len(res.PerAlgorithm), len(Algorithms()))
	}

	var baseline Alignment
	for _, algo := range Algorithms() {
		run, found := res.PerAlgorithm[algo]
		if !found {
			t.Fatalf("missing run for %s", algo)
		}
		if run.SyncCount != 3 {
			t.Errorf("%s: SyncCount = %d, want 3", algo, run.SyncCount)
		}
		if run.SyncCount != len(run.Aligned) {
			t.Errorf("%s: SyncCount %d != len(Aligned) %d", algo, run.SyncCount, len(run.Aligned))
		}
		if baseline == nil {
			baseline = run.Aligned
		} else if diff := cmp.Diff(baseline, run.Aligned); diff != "" {
			t.Errorf("%s alignment differs:\n%s", algo, diff)
		}
	}

	// Mock clock never advances, so every exec time is zero and the mean
	// errors are identical (exact matches); the tie resolves to the first
	// algorithm in canonical order.
	if res.Best != AlgorithmBruteForce {
		t.Errorf("Best = %s, want %s on all-tie", res.Best, AlgorithmBruteForce)
	}
}

func TestBenchmarkCustomScore(t *testing.T) {
	series := threeRateSeries(t)
	cfg := Config{ReferenceSensor: "lidar_0", MaxTimeDiff: 0.5}

	calls := 0
	score := func(report ErrorReport, execTime time.Duration) float64 {
		calls++
		// Algorithms are scored in canonical order; give the hybrid
		// (fourth) the lowest score.
		if calls == 4 {
			return 0
		}
		return 1
	}

	res, err := Benchmark(series, cfg,
		WithClock(timeutil.NewMockClock(time.Unix(0, 0))),
		WithScoreFunc(score),
	)
	if err != nil {
		t.Fatalf("Benchmark: %v", err)
	}
	if res.Best != AlgorithmHybrid {
		t.Errorf("Best = %s, want %s", res.Best, AlgorithmHybrid)
	}
}

func TestBenchmarkPropagatesValidation(t *testing.T) {
	series := threeRateSeries(t)
	cfg := Config{ReferenceSensor: "nonexistent", MaxTimeDiff: 0.5}

	if _, err := Benchmark(series, cfg); err == nil {
		t.Error("expected validation error for missing reference sensor")
	}
}

// The documented weighting: best = argmin(0.6*meanAbsError + 0.4*seconds).
func TestDefaultScoreWeighting(t *testing.T) {
	entries := []struct {
		algo Algorithm
		err  float64
		time time.Duration
	}{
		{AlgorithmBruteForce, 0.10, 1 * time.Second},          // 0.46
		{AlgorithmLinearScan, 0.50, 0},                        // 0.30
		{AlgorithmBinarySearch, 0.20, 500 * time.Millisecond}, // 0.32
		{AlgorithmHybrid, 0.05, 2 * time.Second},              // 0.83
	}

	best := entries[0].algo
	bestScore := DefaultScore(ErrorReport{MeanAbsError: entries[0].err}, entries[0].time)
	for _, e := range entries[1:] {
		if s := DefaultScore(ErrorReport{MeanAbsError: e.err}, e.time); s < bestScore {
			bestScore = s
			best = e.algo
		}
	}

	if best != AlgorithmLinearScan {
		t.Errorf("argmin = %s, want %s", best, AlgorithmLinearScan)
	}
	if !approxEqual(bestScore, 0.30) {
		t.Errorf("best score = %f, want 0.30", bestScore)
	}
}
