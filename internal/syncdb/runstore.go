package syncdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SyncRun is a persisted synchronization run: the configuration it ran
// with, its quality report, and a summary of the input it consumed.
type SyncRun struct {
	RunID           string          `json:"run_id"`
	ReferenceSensor string          `json:"reference_sensor"`
	Algorithm       string          `json:"algorithm"`
	MaxTimeDiff     float64         `json:"max_time_diff"`
	SyncCount       int             `json:"sync_count"`
	MeanAbsError    float64         `json:"mean_abs_error"`
	MaxAbsError     float64         `json:"max_abs_error"`
	StdDev          float64         `json:"std_dev"`
	RMSE            float64         `json:"rmse"`
	ExecTimeUs      int64           `json:"exec_time_us"`
	SeriesJSON      json.RawMessage `json:"series_json,omitempty"`
	CreatedAt       int64           `json:"created_at"`
}

// RunStore provides persistence for synchronization runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a RunStore backed by the given database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db.DB}
}

// Insert persists a new run. If RunID is empty, a UUID is generated.
func (s *RunStore) Insert(run *SyncRun) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}

	var seriesStr interface{}
	if len(run.SeriesJSON) > 0 {
		seriesStr = string(run.SeriesJSON)
	}

	err := retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO sync_runs (
				run_id, reference_sensor, algorithm, max_time_diff,
				sync_count, mean_abs_error, max_abs_error, std_dev, rmse,
				exec_time_us, series_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.ReferenceSensor, run.Algorithm, run.MaxTimeDiff,
			run.SyncCount, run.MeanAbsError, run.MaxAbsError, run.StdDev, run.RMSE,
			run.ExecTimeUs, seriesStr, run.CreatedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.RunID, err)
	}
	return nil
}

// Get returns a single run by ID.
func (s *RunStore) Get(runID string) (*SyncRun, error) {
	row := s.db.QueryRow(`
		SELECT run_id, reference_sensor, algorithm, max_time_diff,
		       sync_count, mean_abs_error, max_abs_error, std_dev, rmse,
		       exec_time_us, series_json, created_at
		FROM sync_runs
		WHERE run_id = ?`, runID)

	run, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}

// ListRecent returns up to limit runs, newest first.
func (s *RunStore) ListRecent(limit int) ([]*SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT run_id, reference_sensor, algorithm, max_time_diff,
		       sync_count, mean_abs_error, max_abs_error, std_dev, rmse,
		       exec_time_us, series_json, created_at
		FROM sync_runs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Delete removes a run by ID.
func (s *RunStore) Delete(runID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM sync_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("run %s not found", runID)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*SyncRun, error) {
	var run SyncRun
	var seriesStr sql.NullString
	err := row.Scan(
		&run.RunID, &run.ReferenceSensor, &run.Algorithm, &run.MaxTimeDiff,
		&run.SyncCount, &run.MeanAbsError, &run.MaxAbsError, &run.StdDev, &run.RMSE,
		&run.ExecTimeUs, &seriesStr, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if seriesStr.Valid {
		run.SeriesJSON = json.RawMessage(seriesStr.String)
	}
	return &run, nil
}
