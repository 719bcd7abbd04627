package timeutil

import (
	"testing"
	"time"
)

func TestRealClockNowAdvances(t *testing.T) {
	c := RealClock{}
	t1 := c.Now()
	t2 := c.Now()
	if t2.Before(t1) {
		t.Errorf("Now went backwards: %v then %v", t1, t2)
	}
	if c.Since(t1) < 0 {
		t.Error("Since returned a negative duration")
	}
}

func TestMockClock(t *testing.T) {
	base := time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(base)

	if got := c.Now(); !got.Equal(base) {
		t.Errorf("Now = %v, want %v", got, base)
	}

	c.Advance(1500 * time.Millisecond)
	if got := c.Since(base); got != 1500*time.Millisecond {
		t.Errorf("Since = %v, want 1.5s", got)
	}

	later := base.Add(time.Hour)
	c.Set(later)
	if got := c.Now(); !got.Equal(later) {
		t.Errorf("Now after Set = %v, want %v", got, later)
	}
}
