package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildIsStrictlyIncreasing(t *testing.T) {
	s := Build([]Rung{
		{Threshold: time.Hour, Interval: 5 * time.Minute},
		{Threshold: 4 * time.Hour, Interval: 30 * time.Minute},
		{Threshold: 24 * time.Hour, Interval: 3 * time.Hour},
	})
	for i := 1; i < len(s.Offsets); i++ {
		assert.Greater(t, s.Offsets[i], s.Offsets[i-1])
	}
	assert.Equal(t, time.Duration(0), s.Offsets[0])
}

func TestTxRequiredNoPriorTransmission(t *testing.T) {
	s := Build([]Rung{{Threshold: time.Hour, Interval: 5 * time.Minute}})
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	assert.True(t, s.TxRequired(time.Time{}, time.Time{}, now))
}

func TestScheduleExhaustion(t *testing.T) {
	// spec.md 8 S5: schedule {10m:5m}; after tx at t=0,5m,10m, at t=20m
	// tx_required is false.
	s := Build([]Rung{{Threshold: 10 * time.Minute, Interval: 5 * time.Minute}})
	first := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	last := first.Add(10 * time.Minute)
	now := first.Add(20 * time.Minute)
	assert.False(t, s.TxRequired(first, last, now))
}

func TestScheduleNeverFlapsBackToTrue(t *testing.T) {
	s := Build([]Rung{{Threshold: 10 * time.Minute, Interval: 5 * time.Minute}})
	first := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	last := first.Add(10 * time.Minute)
	for m := 11; m < 120; m += 7 {
		now := first.Add(time.Duration(m) * time.Minute)
		assert.False(t, s.TxRequired(first, last, now), "minute %d", m)
	}
}

func TestTxRequiredWithinJitter(t *testing.T) {
	s := Build([]Rung{{Threshold: time.Hour, Interval: 5 * time.Minute}})
	first := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	last := first // Delta = 0, next offset is 5m
	now := first.Add(5*time.Minute - 3*time.Second)
	assert.True(t, s.TxRequired(first, last, now))
	now = first.Add(5*time.Minute - 10*time.Second)
	assert.False(t, s.TxRequired(first, last, now))
}
