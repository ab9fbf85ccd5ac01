package record

import (
	"encoding/json"
	"time"

	"github.com/mikecamilleri/mowasgw/internal/capmodel"
)

// wireTxState is the on-disk shape of one sink's transmission state, per
// spec.md 6.1: {first: iso8601, last: iso8601}.
type wireTxState struct {
	First time.Time `json:"first"`
	Last  time.Time `json:"last"`
}

// wireRecord is the on-disk shape of one cache entry, per spec.md 6.1:
// {alert: <CAP-as-JSON>, attrs: {...}, txstate: {<type>: {<name>: {...}}}}.
type wireRecord struct {
	Alert   capmodel.Alert                     `json:"alert"`
	Attrs   map[string]interface{}             `json:"attrs,omitempty"`
	TxState map[string]map[string]wireTxState  `json:"txstate,omitempty"`
}

// MarshalJSON implements the cache file shape of spec.md 6.1.
func (r *Record) MarshalJSON() ([]byte, error) {
	w := wireRecord{
		Alert: r.Alert,
		Attrs: r.Attrs,
	}
	if len(r.TxState) > 0 {
		w.TxState = make(map[string]map[string]wireTxState)
		for k, v := range r.TxState {
			byName, ok := w.TxState[k.Type]
			if !ok {
				byName = make(map[string]wireTxState)
				w.TxState[k.Type] = byName
			}
			byName[k.Name] = wireTxState{First: v.First, Last: v.Last}
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements the cache file shape of spec.md 6.1, re-parsing
// every timestamp (the round-trip property of spec.md 8.1).
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Alert = w.Alert
	r.Attrs = w.Attrs
	if r.Attrs == nil {
		r.Attrs = make(map[string]interface{})
	}
	r.TxState = make(map[TxStateKey]TxState)
	for sinkType, byName := range w.TxState {
		for sinkName, ts := range byName {
			r.TxState[TxStateKey{Type: sinkType, Name: sinkName}] = TxState{First: ts.First, Last: ts.Last}
		}
	}

	// attrs["pids"] survives a JSON round-trip as []interface{}; normalize
	// it back to []int so PIDs()/SetPIDs() keep their contract.
	if raw, ok := r.Attrs["pids"]; ok {
		if arr, ok := raw.([]interface{}); ok {
			pids := make([]int, 0, len(arr))
			for _, v := range arr {
				if f, ok := v.(float64); ok {
					pids = append(pids, int(f))
				}
			}
			r.Attrs["pids"] = pids
		}
	}
	return nil
}
