package timesync

import (
	"time"

	"github.com/banshee-data/sensorsync/internal/timeutil"
)

// AlgorithmRun holds the outcome of one algorithm's full pass over the
// input during a benchmark.
type AlgorithmRun struct {
	Algorithm Algorithm     `json:"algorithm"`
	ExecTime  time.Duration `json:"exec_time_ns"`
	SyncCount int           `json:"sync_count"`
	Report    ErrorReport   `json:"error_report"`

	// Aligned is kept for callers that want to inspect or render the
	// winning alignment; it is not serialized (too large).
	Aligned Alignment `json:"-"`
}

// BenchmarkResult holds per-algorithm outcomes and the selected best.
type BenchmarkResult struct {
	PerAlgorithm map[Algorithm]AlgorithmRun `json:"per_algorithm"`
	Best         Algorithm                  `json:"best"`
}

// ScoreFunc ranks an algorithm run; lower is better.
type ScoreFunc func(report ErrorReport, execTime time.Duration) float64

// DefaultScore weighs accuracy over raw speed: 60% mean absolute error,
// 40% wall-clock seconds.
func DefaultScore(report ErrorReport, execTime time.Duration) float64 {
	return 0.6*report.MeanAbsError + 0.4*execTime.Seconds()
}

// BenchmarkOption customizes a Benchmark call.
type BenchmarkOption func(*benchmarkOptions)

type benchmarkOptions struct {
	clock timeutil.Clock
	score ScoreFunc
}

// WithClock substitutes the wall clock used for timing. Tests inject a
// MockClock to make timing deterministic.
func WithClock(c timeutil.Clock) BenchmarkOption {
	return func(o *benchmarkOptions) { o.clock = c }
}

// WithScoreFunc replaces the default accuracy/speed weighting.
func WithScoreFunc(f ScoreFunc) BenchmarkOption {
	return func(o *benchmarkOptions) { o.score = f }
}

// Benchmark synchronizes the same input once per algorithm, timing each
// pass, and selects the best by minimizing the score function. The four
// passes share only the read-only input series. cfg.Algorithm is ignored;
// the reference sensor and threshold apply to every pass.
func Benchmark(seriesBySensor map[string]*Series, cfg Config, opts ...BenchmarkOption) (*BenchmarkResult, error) {
	o := benchmarkOptions{
		clock: timeutil.RealClock{},
		score: DefaultScore,
	}
	for _, opt := range opts {
		opt(&o)
	}

	result := &BenchmarkResult{
		PerAlgorithm: make(map[Algorithm]AlgorithmRun, len(Algorithms())),
	}

	bestScore := 0.0
	for i, algo := range Algorithms() {
		runCfg := cfg
		runCfg.Algorithm = algo

		start := o.clock.Now()
		aligned, err := Synchronize(seriesBySensor, runCfg)
		if err != nil {
			return nil, err
		}
		elapsed := o.clock.Since(start)

		run := AlgorithmRun{
			Algorithm: algo,
			ExecTime:  elapsed,
			SyncCount: len(aligned),
			Report:    ComputeErrorReport(aligned, cfg.ReferenceSensor),
			Aligned:   aligned,
		}
		result.PerAlgorithm[algo] = run

		// Ties keep the earlier algorithm in canonical order.
		score := o.score(run.Report, run.ExecTime)
		if i == 0 || score < bestScore {
			bestScore = score
			result.Best = algo
		}
	}
	return result, nil
}
