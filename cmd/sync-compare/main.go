// Package main provides a comparison tool for timestamp matching
// algorithms. It synchronizes multi-sensor timestamp captures through
// each algorithm and reports accuracy and timing, or serves the HTTP
// API for interactive use.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/sensorsync/internal/api"
	"github.com/banshee-data/sensorsync/internal/report"
	"github.com/banshee-data/sensorsync/internal/syncdb"
	"github.com/banshee-data/sensorsync/internal/timesync"
)

// Config holds configuration for the comparison run.
type Config struct {
	InputFile  string
	Reference  string
	MaxDiff    float64
	Algo       string
	OutputDir  string
	OutputJSON string
	HTMLFile   string
	Plots      bool
	DBPath     string
	Listen     string
	Verbose    bool
}

// AlgoResult holds one algorithm's outcome in the exported report.
type AlgoResult struct {
	Algorithm    string               `json:"algorithm"`
	ExecTimeUs   int64                `json:"exec_time_us"`
	SyncCount    int                  `json:"sync_count"`
	Report       timesync.ErrorReport `json:"error_report"`
	aligned      timesync.Alignment
}

// ComparisonResult holds the results of the full comparison.
type ComparisonResult struct {
	InputFile       string                `json:"input_file"`
	ReferenceSensor string                `json:"reference_sensor"`
	MaxTimeDiff     float64               `json:"max_time_diff"`
	SensorCount     int                   `json:"sensor_count"`
	PerAlgorithm    map[string]AlgoResult `json:"per_algorithm"`
	Best            string                `json:"best"`
}

func main() {
	cfg := parseFlags()

	if cfg.Listen != "" {
		if err := serve(cfg); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
		return
	}

	if cfg.InputFile == "" {
		log.Fatal("Input file is required (use -input or -serve)")
	}
	if _, err := os.Stat(cfg.InputFile); os.IsNotExist(err) {
		log.Fatalf("Input file not found: %s", cfg.InputFile)
	}
	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	seriesBySensor, err := loadSeries(cfg.InputFile)
	if err != nil {
		log.Fatalf("Failed to load input: %v", err)
	}

	result, err := runComparison(cfg, seriesBySensor)
	if err != nil {
		log.Fatalf("Comparison failed: %v", err)
	}

	printResults(result)

	if cfg.OutputJSON != "" {
		outputPath := outPath(cfg, cfg.OutputJSON)
		if err := exportJSON(result, outputPath); err != nil {
			log.Printf("Warning: failed to export JSON: %v", err)
		} else {
			log.Printf("Results exported to: %s", outputPath)
		}
	}

	if cfg.HTMLFile != "" {
		outputPath := outPath(cfg, cfg.HTMLFile)
		if err := exportHTML(seriesBySensor, result, outputPath); err != nil {
			log.Printf("Warning: failed to export HTML report: %v", err)
		} else {
			log.Printf("HTML report written to: %s", outputPath)
		}
	}

	if cfg.Plots {
		if err := exportPlots(cfg, seriesBySensor, result); err != nil {
			log.Printf("Warning: failed to export plots: %v", err)
		}
	}

	if cfg.DBPath != "" {
		if err := persistRun(cfg, seriesBySensor, result); err != nil {
			log.Printf("Warning: failed to persist run: %v", err)
		}
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.InputFile, "input", "", "Path to JSON file mapping sensor names to timestamp arrays")
	flag.StringVar(&cfg.Reference, "reference", "", "Reference sensor name (default: first sensor alphabetically)")
	flag.Float64Var(&cfg.MaxDiff, "max-diff", 0.5, "Maximum allowed timestamp difference in seconds")
	flag.StringVar(&cfg.Algo, "algo", "all", "Algorithm: brute_force, linear_scan, binary_search, hybrid, or all")
	flag.StringVar(&cfg.OutputDir, "output", "", "Output directory for results")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Output JSON filename (e.g., results.json)")
	flag.StringVar(&cfg.HTMLFile, "html", "", "Output HTML report filename (e.g., report.html)")
	flag.BoolVar(&cfg.Plots, "plots", false, "Write timeline and error-histogram PNGs to the output directory")
	flag.StringVar(&cfg.DBPath, "db", "", "SQLite path for persisting run history")
	flag.StringVar(&cfg.Listen, "serve", "", "Serve the HTTP API on this address (e.g., :8080) instead of running a comparison")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Enable verbose logging")

	flag.Parse()

	return cfg
}

func serve(cfg Config) error {
	var store *syncdb.RunStore
	if cfg.DBPath != "" {
		db, err := syncdb.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open run database: %w", err)
		}
		defer db.Close()
		store = syncdb.NewRunStore(db)
		log.Printf("Persisting runs to %s", cfg.DBPath)
	}

	srv := api.NewServer(store)
	log.Printf("Listening on %s", cfg.Listen)
	return http.ListenAndServe(cfg.Listen, api.LoggingMiddleware(srv.ServeMux()))
}

// loadSeries reads a JSON object mapping sensor names to ascending
// timestamp arrays.
func loadSeries(path string) (map[string]*timesync.Series, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string][]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return timesync.SeriesMap(raw)
}

func runComparison(cfg Config, seriesBySensor map[string]*timesync.Series) (*ComparisonResult, error) {
	reference := cfg.Reference
	if reference == "" {
		for name := range seriesBySensor {
			if reference == "" || name < reference {
				reference = name
			}
		}
		log.Printf("No reference sensor given, using %q", reference)
	}

	syncCfg := timesync.Config{
		ReferenceSensor: reference,
		MaxTimeDiff:     cfg.MaxDiff,
	}

	result := &ComparisonResult{
		InputFile:       cfg.InputFile,
		ReferenceSensor: reference,
		MaxTimeDiff:     cfg.MaxDiff,
		SensorCount:     len(seriesBySensor),
		PerAlgorithm:    make(map[string]AlgoResult),
	}

	if cfg.Algo == "all" {
		res, err := timesync.Benchmark(seriesBySensor, syncCfg)
		if err != nil {
			return nil, err
		}
		for algo, run := range res.PerAlgorithm {
			result.PerAlgorithm[string(algo)] = AlgoResult{
				Algorithm:  string(algo),
				ExecTimeUs: run.ExecTime.Microseconds(),
				SyncCount:  run.SyncCount,
				Report:     run.Report,
				aligned:    run.Aligned,
			}
		}
		result.Best = string(res.Best)
		return result, nil
	}

	syncCfg.Algorithm = timesync.Algorithm(cfg.Algo)
	start := time.Now()
	aligned, err := timesync.Synchronize(seriesBySensor, syncCfg)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	result.PerAlgorithm[cfg.Algo] = AlgoResult{
		Algorithm:  cfg.Algo,
		ExecTimeUs: elapsed.Microseconds(),
		SyncCount:  len(aligned),
		Report:     timesync.ComputeErrorReport(aligned, reference),
		aligned:    aligned,
	}
	result.Best = cfg.Algo
	return result, nil
}

func printResults(result *ComparisonResult) {
	fmt.Println("\n=== Timestamp Synchronization Results ===")
	fmt.Printf("Input File: %s\n", result.InputFile)
	fmt.Printf("Reference Sensor: %s\n", result.ReferenceSensor)
	fmt.Printf("Max Time Diff: %gs\n", result.MaxTimeDiff)
	fmt.Printf("Sensors: %d\n", result.SensorCount)

	fmt.Println("\n--- Per-Algorithm Statistics ---")
	for _, algo := range timesync.Algorithms() {
		stats, found := result.PerAlgorithm[string(algo)]
		if !found {
			continue
		}
		fmt.Printf("\n%s:\n", stats.Algorithm)
		fmt.Printf("  Synchronized Rows: %d\n", stats.SyncCount)
		fmt.Printf("  Mean Abs Error: %.3f ms\n", stats.Report.MeanAbsError*1000)
		fmt.Printf("  Max Abs Error: %.3f ms\n", stats.Report.MaxAbsError*1000)
		fmt.Printf("  Std Dev: %.3f ms\n", stats.Report.StdDev*1000)
		fmt.Printf("  RMSE: %.3f ms\n", stats.Report.RMSE*1000)
		fmt.Printf("  Exec Time: %d µs\n", stats.ExecTimeUs)
	}

	fmt.Printf("\nBest Algorithm: %s\n", result.Best)
}

func exportJSON(result *ComparisonResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func exportHTML(seriesBySensor map[string]*timesync.Series, result *ComparisonResult, path string) error {
	res := benchmarkResultFrom(result)
	syncCfg := timesync.Config{
		ReferenceSensor: result.ReferenceSensor,
		MaxTimeDiff:     result.MaxTimeDiff,
		Algorithm:       timesync.Algorithm(result.Best),
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return report.WriteBenchmarkHTML(f, seriesBySensor, syncCfg, res)
}

func exportPlots(cfg Config, seriesBySensor map[string]*timesync.Series, result *ComparisonResult) error {
	best := result.PerAlgorithm[result.Best]

	timelinePath := outPath(cfg, "timeline.png")
	if err := report.SaveTimelinePNG(timelinePath, seriesBySensor, best.aligned, result.ReferenceSensor); err != nil {
		return err
	}
	log.Printf("Timeline plot written to: %s", timelinePath)

	histPath := outPath(cfg, "errors.png")
	if err := report.SaveErrorHistogramPNG(histPath, best.aligned, result.ReferenceSensor); err != nil {
		return err
	}
	log.Printf("Error histogram written to: %s", histPath)
	return nil
}

func persistRun(cfg Config, seriesBySensor map[string]*timesync.Series, result *ComparisonResult) error {
	db, err := syncdb.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	raw := make(map[string][]float64, len(seriesBySensor))
	for name, s := range seriesBySensor {
		raw[name] = s.Timestamps()
	}
	seriesJSON, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	best := result.PerAlgorithm[result.Best]
	run := &syncdb.SyncRun{
		ReferenceSensor: result.ReferenceSensor,
		Algorithm:       result.Best,
		MaxTimeDiff:     result.MaxTimeDiff,
		SyncCount:       best.SyncCount,
		MeanAbsError:    best.Report.MeanAbsError,
		MaxAbsError:     best.Report.MaxAbsError,
		StdDev:          best.Report.StdDev,
		RMSE:            best.Report.RMSE,
		ExecTimeUs:      best.ExecTimeUs,
		SeriesJSON:      seriesJSON,
	}
	if err := syncdb.NewRunStore(db).Insert(run); err != nil {
		return err
	}
	log.Printf("Run %s persisted to %s", run.RunID, cfg.DBPath)
	return nil
}

// benchmarkResultFrom rebuilds a BenchmarkResult view of the comparison
// so the HTML renderer can reuse the benchmark layout.
func benchmarkResultFrom(result *ComparisonResult) *timesync.BenchmarkResult {
	res := &timesync.BenchmarkResult{
		PerAlgorithm: make(map[timesync.Algorithm]timesync.AlgorithmRun, len(result.PerAlgorithm)),
		Best:         timesync.Algorithm(result.Best),
	}
	for name, stats := range result.PerAlgorithm {
		res.PerAlgorithm[timesync.Algorithm(name)] = timesync.AlgorithmRun{
			Algorithm: timesync.Algorithm(name),
			ExecTime:  time.Duration(stats.ExecTimeUs) * time.Microsecond,
			SyncCount: stats.SyncCount,
			Report:    stats.Report,
			Aligned:   stats.aligned,
		}
	}
	return res
}

func outPath(cfg Config, name string) string {
	if cfg.OutputDir != "" {
		return filepath.Join(cfg.OutputDir, name)
	}
	return name
}
