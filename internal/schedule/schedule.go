// Package schedule implements the Retransmission Schedule (spec.md 4.6): a
// piecewise-constant repetition policy answering whether a retransmission
// is due.
package schedule

import "time"

// jitter absorbs clock skew in the supervisor's fixed period (spec.md 4.6).
const jitter = 5 * time.Second

// Rung is one (threshold, interval) pair of the configured repetition
// ladder: from the end of the previous rung to threshold, retransmit every
// interval.
type Rung struct {
	Threshold time.Duration
	Interval  time.Duration
}

// Schedule is the precomputed, strictly increasing offset ladder
// 0 = d0 < d1 < ... < dn derived from a sequence of Rungs.
type Schedule struct {
	Offsets []time.Duration
}

// Build precomputes the offset ladder from an ordered sequence of rungs,
// per spec.md 4.6: within each threshold bracket, append
// floor((threshold-last_offset)/interval) further points separated by
// interval.
func Build(rungs []Rung) Schedule {
	offsets := []time.Duration{0}
	last := time.Duration(0)
	for _, rung := range rungs {
		if rung.Interval <= 0 {
			continue
		}
		for last+rung.Interval <= rung.Threshold {
			last += rung.Interval
			offsets = append(offsets, last)
		}
	}
	return Schedule{Offsets: offsets}
}

// TxRequired decides whether a retransmission on a sink is due, per
// spec.md 4.6:
//   - no prior transmission (first is the zero time) -> true
//   - otherwise, find the smallest offset strictly greater than
//     last-first; if none exists the schedule is exhausted -> false;
//     otherwise true iff first+offset <= now+5s.
func (s Schedule) TxRequired(first, last, now time.Time) bool {
	if first.IsZero() {
		return true
	}
	delta := last.Sub(first)
	for _, d := range s.Offsets {
		if d > delta {
			return !first.Add(d).After(now.Add(jitter))
		}
	}
	return false
}
