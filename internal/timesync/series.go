package timesync

import (
	"fmt"
	"sort"
)

// Series is an immutable, ascending-ordered sequence of timestamps
// (seconds since an arbitrary epoch) recorded by one named sensor.
// Build it once with NewSeries; it is never mutated afterwards, so a
// single Series may be shared by concurrent synchronization runs.
type Series struct {
	name       string
	timestamps []float64
}

// NewSeries validates and copies the given timestamps into a Series.
// Timestamps must be non-empty and non-decreasing.
func NewSeries(name string, timestamps []float64) (*Series, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: sensor name is empty", ErrInvalidInput)
	}
	if len(timestamps) == 0 {
		return nil, fmt.Errorf("%w: sensor %q has no timestamps", ErrInvalidInput, name)
	}
	for i := 0; i < len(timestamps)-1; i++ {
		if timestamps[i] > timestamps[i+1] {
			return nil, fmt.Errorf("%w: sensor %q timestamps are not sorted (index %d: %f > %f)",
				ErrInvalidInput, name, i, timestamps[i], timestamps[i+1])
		}
	}
	ts := make([]float64, len(timestamps))
	copy(ts, timestamps)
	return &Series{name: name, timestamps: ts}, nil
}

// SeriesMap builds a validated Series per sensor from raw timestamp
// slices, as decoded from JSON input.
func SeriesMap(raw map[string][]float64) (map[string]*Series, error) {
	out := make(map[string]*Series, len(raw))
	for name, ts := range raw {
		s, err := NewSeries(name, ts)
		if err != nil {
			return nil, err
		}
		out[name] = s
	}
	return out, nil
}

// Name returns the sensor name.
func (s *Series) Name() string { return s.name }

// Len returns the number of timestamps.
func (s *Series) Len() int { return len(s.timestamps) }

// At returns the timestamp at index i.
func (s *Series) At(i int) float64 { return s.timestamps[i] }

// First and Last return the boundary timestamps.
func (s *Series) First() float64 { return s.timestamps[0] }
func (s *Series) Last() float64  { return s.timestamps[len(s.timestamps)-1] }

// Timestamps returns a copy of the underlying timestamps.
func (s *Series) Timestamps() []float64 {
	out := make([]float64, len(s.timestamps))
	copy(out, s.timestamps)
	return out
}

// AvgInterval returns the mean gap between consecutive timestamps.
// A single-sample series has no interval and returns 0.
func (s *Series) AvgInterval() float64 {
	if len(s.timestamps) < 2 {
		return 0
	}
	span := s.timestamps[len(s.timestamps)-1] - s.timestamps[0]
	return span / float64(len(s.timestamps)-1)
}

// hasWithin reports whether any timestamp lies within tol of t.
func (s *Series) hasWithin(t, tol float64) bool {
	idx := sort.SearchFloat64s(s.timestamps, t)
	if idx < len(s.timestamps) && s.timestamps[idx]-t <= tol {
		return true
	}
	if idx > 0 && t-s.timestamps[idx-1] <= tol {
		return true
	}
	return false
}
