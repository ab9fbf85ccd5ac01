// Package sink implements the APRS-family Sink (spec.md 4.7.1, 4.8): the
// transport-facing half of the emission engine. A Sink takes the current
// batch of "head" alerts, filters each by geography and retransmission
// schedule, asks the APRS emission engine for frames, and writes the
// KISS-framed result to a serial port or TCP socket in a single I/O
// operation per cycle.
package sink

import (
	"context"
	"time"

	"github.com/mikecamilleri/mowasgw/internal/ax25"
	"github.com/mikecamilleri/mowasgw/internal/aprs"
	"github.com/mikecamilleri/mowasgw/internal/geo"
	"github.com/mikecamilleri/mowasgw/internal/geodata"
	"github.com/mikecamilleri/mowasgw/internal/record"
	"github.com/mikecamilleri/mowasgw/internal/schedule"
	"go.uber.org/zap"
)

// Sink is one configured radio transport (spec.md 4.8 step 6).
type Sink interface {
	// Alert filters heads, emits frames for every record that is
	// admitted and due for retransmission, writes them to the
	// transport, and calls TxDone on every record it successfully wrote.
	Alert(ctx context.Context, heads []*record.Record, now time.Time) error

	// Name identifies this sink for TxState bookkeeping (spec.md 4.2).
	Name() string
}

// Filter bundles the per-sink filtering state shared by every transport:
// region of interest, minimum-age admission window, and retransmission
// ladder (spec.md 4.5, 4.6).
type Filter struct {
	Region geo.RegionSet
	MaxAge time.Duration
	Ladder schedule.Schedule
}

// selectDue returns, in order, the heads that are admitted by f and due
// for retransmission on sinkKey at now.
func selectDue(heads []*record.Record, sinkKey record.TxStateKey, f Filter, now time.Time) []*record.Record {
	var due []*record.Record
	for _, r := range heads {
		if !matchesRegion(r, f.Region) {
			continue
		}
		if !geo.Admit(r, sinkKey, f.MaxAge, now) {
			continue
		}
		first, last, _ := r.TxStatus(sinkKey)
		if !f.Ladder.TxRequired(first, last, now) {
			continue
		}
		due = append(due, r)
	}
	return due
}

// matchesRegion reports whether any area of any info block of r's alert
// falls inside rs, via either a direct geocode match or (when only a
// polygon is present) unconditional admission — the geographic filter
// proper operates on administrative codes, so polygon-only areas are
// always considered in-region (spec.md: "no geometric intersection test...
// matching is strictly by administrative area code").
func matchesRegion(r *record.Record, rs geo.RegionSet) bool {
	for _, info := range r.Alert.Infos {
		for _, area := range info.Areas {
			if len(area.Geocodes) == 0 {
				return true
			}
			for _, ars := range area.Geocodes["ARS"] {
				if rs.Match(ars) {
					return true
				}
			}
		}
	}
	return false
}

// emitAndEncode runs the emission engine for every due record and
// KISS-frames the combined result onto one byte stream.
func emitAndEncode(due []*record.Record, geoIdx *geodata.Index, id aprs.Identity, cfg aprs.Config, port int, now time.Time, log *zap.Logger) []byte {
	var raw [][]byte
	for _, r := range due {
		frames := aprs.Emit(r, geoIdx, id, cfg, now, log)
		for _, f := range frames {
			raw = append(raw, f.Encode())
		}
	}
	return ax25.Encode(raw, port)
}
