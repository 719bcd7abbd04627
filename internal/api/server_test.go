package api

import (
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/sensorsync/internal/syncdb"
	"github.com/banshee-data/sensorsync/internal/testutil"
	"github.com/banshee-data/sensorsync/internal/timesync"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := syncdb.Open(filepath.Join(t.TempDir(), "api_test.db"))
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewServer(syncdb.NewRunStore(db))
}

func testRequestBody() syncRequest {
	return syncRequest{
		Series: map[string][]float64{
			"lidar_0": {0.0, 1.0, 2.0, 3.0},
			"lidar_1": {0.1, 1.1, 2.1, 3.1},
		},
		ReferenceSensor: "lidar_0",
		MaxTimeDiff:     0.5,
		Algorithm:       timesync.AlgorithmBinarySearch,
	}
}

func TestHandleSync(t *testing.T) {
	srv := newTestServer(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/sync", testRequestBody())
	rec := testutil.NewTestRecorder()
	srv.ServeMux().ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var resp syncResponse
	testutil.DecodeJSON(t, rec, &resp)
	if resp.RunID == "" {
		t.Error("expected run_id to be set")
	}
	if len(resp.Aligned) != 4 {
		t.Errorf("aligned rows = %d, want 4", len(resp.Aligned))
	}
	if got := resp.Report.MeanAbsError; got < 0.09 || got > 0.11 {
		t.Errorf("mean abs error = %f, want ~0.1", got)
	}
}

func TestHandleSyncInvalidBody(t *testing.T) {
	srv := newTestServer(t)

	req := testutil.NewTestRequest(http.MethodPost, "/api/sync", strings.NewReader("{not json"))
	rec := testutil.NewTestRecorder()
	srv.ServeMux().ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestHandleSyncUnknownAlgorithm(t *testing.T) {
	srv := newTestServer(t)

	body := testRequestBody()
	body.Algorithm = timesync.Algorithm("quantum")
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/sync", body)
	rec := testutil.NewTestRecorder()
	srv.ServeMux().ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestHandleSyncMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	req := testutil.NewTestRequest(http.MethodGet, "/api/sync", nil)
	rec := testutil.NewTestRecorder()
	srv.ServeMux().ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestHandleBenchmark(t *testing.T) {
	srv := newTestServer(t)

	body := testRequestBody()
	body.Algorithm = "" // benchmark ignores the algorithm field
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/benchmark", body)
	rec := testutil.NewTestRecorder()
	srv.ServeMux().ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var resp benchmarkResponse
	testutil.DecodeJSON(t, rec, &resp)
	if len(resp.Runs) != len(timesync.Algorithms()) {
		t.Errorf("runs = %d, want %d", len(resp.Runs), len(timesync.Algorithms()))
	}
	if !resp.Best.Valid() {
		t.Errorf("best = %q, want a valid algorithm", resp.Best)
	}
	if resp.RunID == "" {
		t.Fatal("expected run_id to be set")
	}

	// The winning run is retrievable through the history endpoint.
	getReq := testutil.NewTestRequest(http.MethodGet, "/api/runs?run_id="+resp.RunID, nil)
	getRec := testutil.NewTestRecorder()
	srv.ServeMux().ServeHTTP(getRec, getReq)

	testutil.AssertStatusCode(t, getRec.Code, http.StatusOK)

	var run syncdb.SyncRun
	testutil.DecodeJSON(t, getRec, &run)
	if run.Algorithm != string(resp.Best) {
		t.Errorf("persisted algorithm = %s, want %s", run.Algorithm, resp.Best)
	}
	if run.SyncCount != 4 {
		t.Errorf("persisted sync count = %d, want 4", run.SyncCount)
	}
}

func TestHandleRunsList(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 3; i++ {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/sync", testRequestBody())
		rec := testutil.NewTestRecorder()
		srv.ServeMux().ServeHTTP(rec, req)
		testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	}

	req := testutil.NewTestRequest(http.MethodGet, "/api/runs?limit=2", nil)
	rec := testutil.NewTestRecorder()
	srv.ServeMux().ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var runs []syncdb.SyncRun
	testutil.DecodeJSON(t, rec, &runs)
	if len(runs) != 2 {
		t.Errorf("runs = %d, want 2", len(runs))
	}
}

func TestHandleRunsInvalidLimit(t *testing.T) {
	srv := newTestServer(t)

	req := testutil.NewTestRequest(http.MethodGet, "/api/runs?limit=zero", nil)
	rec := testutil.NewTestRecorder()
	srv.ServeMux().ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestHandleRunsMissingRun(t *testing.T) {
	srv := newTestServer(t)

	req := testutil.NewTestRequest(http.MethodGet, "/api/runs?run_id=no-such-run", nil)
	rec := testutil.NewTestRecorder()
	srv.ServeMux().ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestHandleRunsWithoutStore(t *testing.T) {
	srv := NewServer(nil)

	req := testutil.NewTestRequest(http.MethodGet, "/api/runs", nil)
	rec := testutil.NewTestRecorder()
	srv.ServeMux().ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusServiceUnavailable)
}

func TestHandleSyncWithoutStore(t *testing.T) {
	srv := NewServer(nil)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/sync", testRequestBody())
	rec := testutil.NewTestRecorder()
	srv.ServeMux().ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var resp syncResponse
	testutil.DecodeJSON(t, rec, &resp)
	if resp.RunID != "" {
		t.Errorf("run_id = %q, want empty without a store", resp.RunID)
	}
}

func TestHandleDebugReport(t *testing.T) {
	srv := newTestServer(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/sync", testRequestBody())
	rec := testutil.NewTestRecorder()
	srv.ServeMux().ServeHTTP(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var resp syncResponse
	testutil.DecodeJSON(t, rec, &resp)

	repReq := testutil.NewTestRequest(http.MethodGet, "/debug/report?run_id="+resp.RunID, nil)
	repRec := testutil.NewTestRecorder()
	srv.ServeMux().ServeHTTP(repRec, repReq)

	testutil.AssertStatusCode(t, repRec.Code, http.StatusOK)
	if ct := repRec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %s, want text/html", ct)
	}
	if !strings.Contains(repRec.Body.String(), "Raw Sensor Timestamps") {
		t.Error("expected report HTML to contain the raw timestamp chart")
	}
}

func TestHandleDebugReportMissingRunID(t *testing.T) {
	srv := newTestServer(t)

	req := testutil.NewTestRequest(http.MethodGet, "/debug/report", nil)
	rec := testutil.NewTestRecorder()
	srv.ServeMux().ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}
