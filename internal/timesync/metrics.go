package timesync

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrorReport aggregates the synchronization deviations of one
// Alignment: every |reference - match| across all rows and all
// non-reference sensors, pooled into a single sample.
type ErrorReport struct {
	MeanAbsError float64 `json:"mean_abs_error"`
	MaxAbsError  float64 `json:"max_abs_error"`
	StdDev       float64 `json:"std_dev"`
	RMSE         float64 `json:"rmse"`
}

// ComputeErrorReport computes the quality report for an alignment. An
// empty alignment yields the zero report; that is a defined degenerate
// case, not an error.
func ComputeErrorReport(aligned Alignment, referenceSensor string) ErrorReport {
	var diffs []float64
	for _, row := range aligned {
		refTime := row[referenceSensor]
		for sensor, ts := range row {
			if sensor != referenceSensor {
				diffs = append(diffs, abs(refTime-ts))
			}
		}
	}
	if len(diffs) == 0 {
		return ErrorReport{}
	}

	report := ErrorReport{
		MeanAbsError: stat.Mean(diffs, nil),
	}
	var sumSq float64
	for _, d := range diffs {
		if d > report.MaxAbsError {
			report.MaxAbsError = d
		}
		sumSq += d * d
	}
	report.RMSE = math.Sqrt(sumSq / float64(len(diffs)))
	// Sample standard deviation needs at least two values.
	if len(diffs) > 1 {
		report.StdDev = stat.StdDev(diffs, nil)
	}
	return report
}
