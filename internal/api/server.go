// Package api exposes synchronization, benchmarking, and run history
// over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/sensorsync/internal/report"
	"github.com/banshee-data/sensorsync/internal/syncdb"
	"github.com/banshee-data/sensorsync/internal/timesync"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server serves the synchronization API. The run store is optional:
// with a nil store, sync and benchmark still work but runs are not
// persisted and history endpoints return 503.
type Server struct {
	store *syncdb.RunStore
}

func NewServer(store *syncdb.RunStore) *Server {
	return &Server{store: store}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sync", s.handleSync)
	mux.HandleFunc("/api/benchmark", s.handleBenchmark)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/debug/report", s.handleDebugReport)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// syncRequest is the body of POST /api/sync and POST /api/benchmark.
// For benchmark requests the algorithm field is ignored.
type syncRequest struct {
	Series          map[string][]float64 `json:"series"`
	ReferenceSensor string               `json:"reference_sensor"`
	MaxTimeDiff     float64              `json:"max_time_diff"`
	Algorithm       timesync.Algorithm   `json:"algorithm"`
}

func (req *syncRequest) config() timesync.Config {
	return timesync.Config{
		ReferenceSensor: req.ReferenceSensor,
		MaxTimeDiff:     req.MaxTimeDiff,
		Algorithm:       req.Algorithm,
	}
}

type syncResponse struct {
	RunID   string               `json:"run_id,omitempty"`
	Config  timesync.Config      `json:"config"`
	Aligned timesync.Alignment   `json:"aligned"`
	Report  timesync.ErrorReport `json:"report"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	series, err := timesync.SeriesMap(req.Series)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid series: %v", err))
		return
	}

	cfg := req.config()
	start := time.Now()
	aligned, err := timesync.Synchronize(series, cfg)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Synchronization failed: %v", err))
		return
	}
	execTime := time.Since(start)

	rep := timesync.ComputeErrorReport(aligned, cfg.ReferenceSensor)

	resp := syncResponse{Config: cfg, Aligned: aligned, Report: rep}
	if s.store != nil {
		runID, err := s.persistRun(req, cfg.Algorithm, len(aligned), rep, execTime)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to persist run: %v", err))
			return
		}
		resp.RunID = runID
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write response")
		return
	}
}

// benchmarkResponse summarises one algorithm in a benchmark reply.
type benchmarkRun struct {
	Algorithm  timesync.Algorithm   `json:"algorithm"`
	ExecTimeUs int64                `json:"exec_time_us"`
	SyncCount  int                  `json:"sync_count"`
	Report     timesync.ErrorReport `json:"report"`
}

type benchmarkResponse struct {
	RunID   string             `json:"run_id,omitempty"`
	Best    timesync.Algorithm `json:"best"`
	Runs    []benchmarkRun     `json:"runs"`
	Aligned timesync.Alignment `json:"aligned"`
}

func (s *Server) handleBenchmark(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	series, err := timesync.SeriesMap(req.Series)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid series: %v", err))
		return
	}

	cfg := req.config()
	res, err := timesync.Benchmark(series, cfg)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Benchmark failed: %v", err))
		return
	}

	best := res.PerAlgorithm[res.Best]
	resp := benchmarkResponse{Best: res.Best, Aligned: best.Aligned}
	for _, algo := range timesync.Algorithms() {
		run := res.PerAlgorithm[algo]
		resp.Runs = append(resp.Runs, benchmarkRun{
			Algorithm:  algo,
			ExecTimeUs: run.ExecTime.Microseconds(),
			SyncCount:  run.SyncCount,
			Report:     run.Report,
		})
	}

	if s.store != nil {
		runID, err := s.persistRun(req, res.Best, best.SyncCount, best.Report, best.ExecTime)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to persist run: %v", err))
			return
		}
		resp.RunID = runID
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write response")
		return
	}
}

func (s *Server) persistRun(req syncRequest, algo timesync.Algorithm, syncCount int, rep timesync.ErrorReport, execTime time.Duration) (string, error) {
	seriesJSON, err := json.Marshal(req.Series)
	if err != nil {
		return "", fmt.Errorf("marshal series: %w", err)
	}
	run := &syncdb.SyncRun{
		ReferenceSensor: req.ReferenceSensor,
		Algorithm:       string(algo),
		MaxTimeDiff:     req.MaxTimeDiff,
		SyncCount:       syncCount,
		MeanAbsError:    rep.MeanAbsError,
		MaxAbsError:     rep.MaxAbsError,
		StdDev:          rep.StdDev,
		RMSE:            rep.RMSE,
		ExecTimeUs:      execTime.Microseconds(),
		SeriesJSON:      seriesJSON,
	}
	if err := s.store.Insert(run); err != nil {
		return "", err
	}
	return run.RunID, nil
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.store == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "Run persistence is not enabled")
		return
	}

	if runID := r.URL.Query().Get("run_id"); runID != "" {
		run, err := s.store.Get(runID)
		if err != nil {
			s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Failed to retrieve run: %v", err))
			return
		}
		if err := json.NewEncoder(w).Encode(run); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, "Failed to write run")
		}
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	runs, err := s.store.ListRecent(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list runs: %v", err))
		return
	}
	if err := json.NewEncoder(w).Encode(runs); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write runs")
		return
	}
}

// handleDebugReport re-runs the benchmark for a stored run and renders
// the result as an HTML page.
func (s *Server) handleDebugReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.store == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "Run persistence is not enabled")
		return
	}

	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "missing 'run_id' parameter")
		return
	}

	run, err := s.store.Get(runID)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Failed to retrieve run: %v", err))
		return
	}
	if len(run.SeriesJSON) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "Run has no stored series data")
		return
	}

	var raw map[string][]float64
	if err := json.Unmarshal(run.SeriesJSON, &raw); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Corrupt series data: %v", err))
		return
	}
	series, err := timesync.SeriesMap(raw)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Corrupt series data: %v", err))
		return
	}

	cfg := timesync.Config{
		ReferenceSensor: run.ReferenceSensor,
		MaxTimeDiff:     run.MaxTimeDiff,
		Algorithm:       timesync.Algorithm(run.Algorithm),
	}
	res, err := timesync.Benchmark(series, cfg)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Benchmark failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.WriteBenchmarkHTML(w, series, cfg, res); err != nil {
		log.Printf("render debug report for run %s: %v", runID, err)
	}
}
