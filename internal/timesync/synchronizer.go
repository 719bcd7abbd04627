package timesync

import (
	"fmt"
	"sort"
)

// Config holds the parameters for one synchronization run. Constructed
// once per run and never mutated.
type Config struct {
	// ReferenceSensor drives the output row cadence; every other sensor
	// is matched against its timestamps.
	ReferenceSensor string `json:"reference_sensor"`

	// MaxTimeDiff is the admission threshold in seconds: a row is only
	// emitted when every non-reference match is within this distance of
	// the reference timestamp (inclusive). Must be > 0.
	MaxTimeDiff float64 `json:"max_time_diff"`

	// Algorithm selects the closest-match strategy.
	Algorithm Algorithm `json:"algorithm"`
}

// Tuple maps each sensor name to the timestamp it contributed to one
// aligned row. It always contains the reference sensor's own timestamp
// plus one entry per other sensor.
type Tuple map[string]float64

// Alignment is an ordered sequence of Tuples, ascending by the reference
// sensor's timestamp. Produced fresh per run; immutable once returned.
type Alignment []Tuple

// Synchronize performs one full pass over the reference sensor's series,
// matching every other sensor's closest timestamp per reference
// timestamp. Rows where any sensor's closest match exceeds cfg.MaxTimeDiff
// are silently dropped; structural input problems abort the run with
// ErrInvalidInput before any output is produced.
//
// Each call is a pure function of its inputs: the same immutable series
// and config always yield the same Alignment, and concurrent runs share
// no mutable state.
func Synchronize(seriesBySensor map[string]*Series, cfg Config) (Alignment, error) {
	if err := validate(seriesBySensor, cfg); err != nil {
		return nil, err
	}

	ref := seriesBySensor[cfg.ReferenceSensor]
	others := otherSensors(seriesBySensor, cfg.ReferenceSensor)

	matcher, err := newMatcher(cfg.Algorithm, cfg.MaxTimeDiff)
	if err != nil {
		return nil, err
	}

	start := 0
	if skipFirstTimestamp(ref.First(), seriesBySensor, others, cfg.MaxTimeDiff) {
		start = 1
	}

	aligned := make(Alignment, 0, ref.Len()-start)
	for i := start; i < ref.Len(); i++ {
		refTime := ref.At(i)
		row := Tuple{cfg.ReferenceSensor: refTime}
		admitted := true

		for _, sensor := range others {
			match, diff, ok := matcher.FindClosest(refTime, seriesBySensor[sensor])
			if !ok || diff > cfg.MaxTimeDiff {
				admitted = false
				break
			}
			row[sensor] = match
		}

		if admitted {
			aligned = append(aligned, row)
		}
	}
	return aligned, nil
}

func validate(seriesBySensor map[string]*Series, cfg Config) error {
	if !cfg.Algorithm.Valid() {
		return fmt.Errorf("%w: unknown algorithm %q", ErrInvalidInput, cfg.Algorithm)
	}
	if cfg.MaxTimeDiff <= 0 {
		return fmt.Errorf("%w: max_time_diff must be positive, got %f", ErrInvalidInput, cfg.MaxTimeDiff)
	}
	if len(seriesBySensor) == 0 {
		return fmt.Errorf("%w: no sensor data provided", ErrInvalidInput)
	}
	if _, found := seriesBySensor[cfg.ReferenceSensor]; !found {
		return fmt.Errorf("%w: reference sensor %q not found", ErrInvalidInput, cfg.ReferenceSensor)
	}
	// Ascending order is enforced by NewSeries; only emptiness can slip
	// through via a zero-value Series.
	for name, s := range seriesBySensor {
		if s == nil || s.Len() == 0 {
			return fmt.Errorf("%w: sensor %q has no timestamps", ErrInvalidInput, name)
		}
	}
	return nil
}

// otherSensors returns the non-reference sensor names in sorted order so
// that matching order, and therefore output and rejection behavior, is
// deterministic across runs.
func otherSensors(seriesBySensor map[string]*Series, reference string) []string {
	others := make([]string, 0, len(seriesBySensor)-1)
	for name := range seriesBySensor {
		if name != reference {
			others = append(others, name)
		}
	}
	sort.Strings(others)
	return others
}

// skipFirstTimestamp implements the startup-outlier rule: the reference's
// first timestamp is excluded from the pass when any other sensor has no
// timestamp within maxTimeDiff of it. An isolated leading sample that
// arrived before the other sensors were ready should not force a
// long-range match. Only the first element is ever inspected.
func skipFirstTimestamp(first float64, seriesBySensor map[string]*Series, others []string, maxTimeDiff float64) bool {
	for _, sensor := range others {
		if !seriesBySensor[sensor].hasWithin(first, maxTimeDiff) {
			return true
		}
	}
	return false
}
