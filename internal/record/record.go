// Package record implements the Alert Record (spec.md 4.2): a persisted,
// mutable wrapper around a capmodel.Alert that survives across CAP
// updates, carrying the gateway's own attrs (persistent radio ids) and
// per-sink transmission bookkeeping.
package record

import (
	"fmt"
	"time"

	"github.com/mikecamilleri/mowasgw/internal/capmodel"
)

// TxStateKey identifies a sink for the purposes of transmission state:
// (sink-type, sink-name), e.g. ("aprs", "uhf-digi-1").
type TxStateKey struct {
	Type string
	Name string
}

// TxState records when a record was first and last transmitted on a sink.
type TxState struct {
	First time.Time
	Last  time.Time
}

// Record is one entry of the Alert Cache.
type Record struct {
	Alert   capmodel.Alert
	Attrs   map[string]interface{}
	TxState map[TxStateKey]TxState
}

// New creates a Record for a freshly-ingested alert with empty attrs and
// transmission state.
func New(a capmodel.Alert) *Record {
	return &Record{
		Alert:   a,
		Attrs:   make(map[string]interface{}),
		TxState: make(map[TxStateKey]TxState),
	}
}

// Merge replaces the CAP payload of r with newer, requiring identifier
// equality. Attrs and TxState are left untouched (spec.md 4.2, invariant 1
// of spec.md 3). A mismatched identifier is a programmer error and panics,
// per spec.md 7's "integrity violations... fail loudly".
func (r *Record) Merge(newer capmodel.Alert) {
	if r.Alert.Identifier != newer.Identifier {
		panic(fmt.Sprintf("record: merge identifier mismatch: %s != %s", r.Alert.Identifier, newer.Identifier))
	}
	r.Alert = newer
}

// PIDs returns the record's persistent radio ids, or nil if none have been
// assigned yet.
func (r *Record) PIDs() []int {
	v, ok := r.Attrs["pids"]
	if !ok {
		return nil
	}
	pids, ok := v.([]int)
	if !ok {
		return nil
	}
	return pids
}

// SetPIDs sets the record's persistent radio ids.
func (r *Record) SetPIDs(pids []int) {
	if r.Attrs == nil {
		r.Attrs = make(map[string]interface{})
	}
	r.Attrs["pids"] = pids
}

// TxStatus returns the first and last transmission times recorded for sink,
// and whether any transmission has been recorded at all.
func (r *Record) TxStatus(sink TxStateKey) (first, last time.Time, ok bool) {
	ts, ok := r.TxState[sink]
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return ts.First, ts.Last, true
}

// TxDone records that r was transmitted on sink at time t. The first
// transmission time is set only once; last is always updated.
func (r *Record) TxDone(sink TxStateKey, t time.Time) {
	if r.TxState == nil {
		r.TxState = make(map[TxStateKey]TxState)
	}
	ts, ok := r.TxState[sink]
	if !ok {
		ts.First = t
	}
	ts.Last = t
	r.TxState[sink] = ts
}
