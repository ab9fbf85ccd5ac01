// Package cache implements the Alert Cache (spec.md 4.4): a persistent,
// reference-aware store that deduplicates, ages out, and assigns
// persistent radio identifiers to live alerts while honoring the CAP
// reference/supersession graph.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/mikecamilleri/mowasgw/internal/capmodel"
	"github.com/mikecamilleri/mowasgw/internal/record"
	"go.uber.org/zap"
)

// Cache owns a map of identifier -> *record.Record, backed by a single
// JSON file (spec.md 6.1). Exactly one process owns the file; there is no
// locking protocol (spec.md 5).
type Cache struct {
	path    string
	horizon time.Duration
	log     *zap.Logger

	records map[string]*record.Record
}

// DefaultHorizon is the default age horizon of spec.md 4.4: 31 days.
const DefaultHorizon = 31 * 24 * time.Hour

// New creates an empty Cache backed by path, with the given age horizon.
func New(path string, horizon time.Duration, log *zap.Logger) *Cache {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		path:    path,
		horizon: horizon,
		log:     log,
		records: make(map[string]*record.Record),
	}
}

// Update ingests an alert per spec.md 4.4.1: merge in place if the
// identifier is already present; insert if the alert is within the age
// horizon of now; otherwise drop it silently (an ancient alert should not
// be resurrected by a newly-added source).
func (c *Cache) Update(a capmodel.Alert, now time.Time) {
	if r, ok := c.records[a.Identifier]; ok {
		r.Merge(a)
		return
	}
	if a.Sent.Add(c.horizon).Before(now) {
		return
	}
	c.records[a.Identifier] = record.New(a)
}

// Purge removes stale records, per spec.md 4.4.2: records at or after the
// threshold are fresh; for every fresh record, every identifier it
// references is rescued out of the deletion set (a stale alert still
// pointed at by a live update/cancel must stay in the cache, so
// supersession remains resolvable). Purge returns the post-purge set of
// live identifiers.
func (c *Cache) Purge(now time.Time) map[string]bool {
	threshold := now.Add(-c.horizon)

	toDelete := make(map[string]bool)
	for id, r := range c.records {
		if r.Alert.Sent.Before(threshold) {
			toDelete[id] = true
		}
	}

	for _, r := range c.records {
		if r.Alert.Sent.Before(threshold) {
			continue // not fresh, its references don't rescue anything
		}
		for _, refID := range r.Alert.ReferenceIdentifiers() {
			delete(toDelete, refID)
		}
	}

	for id := range toDelete {
		delete(c.records, id)
	}

	live := make(map[string]bool, len(c.records))
	for id := range c.records {
		live[id] = true
	}
	return live
}

// Query returns the "head" alerts per spec.md 4.4.3: every live record
// whose identifier is not referenced by any other live record. These are
// the most recent version of each update thread and the only records
// considered for emission.
func (c *Cache) Query() []*record.Record {
	referenced := make(map[string]bool)
	for _, r := range c.records {
		for _, refID := range r.Alert.ReferenceIdentifiers() {
			referenced[refID] = true
		}
	}

	var heads []*record.Record
	for id, r := range c.records {
		if !referenced[id] {
			heads = append(heads, r)
		}
	}
	sort.Slice(heads, func(i, j int) bool { return heads[i].Alert.Identifier < heads[j].Alert.Identifier })
	return heads
}

// AssignPersistentIDs implements the persistent id assignment algorithm of
// spec.md 4.4.4. It is monotonic (assignments never revert) and
// terminates in at most len(needPIDs) passes. Records on a reference
// cycle are logged and left un-tagged.
func (c *Cache) AssignPersistentIDs() {
	withPIDs := make(map[string]*record.Record)
	needPIDs := make(map[string]*record.Record)
	for id, r := range c.records {
		if pids := r.PIDs(); len(pids) > 0 {
			withPIDs[id] = r
		} else {
			needPIDs[id] = r
		}
	}

	used := make(map[int]bool)
	max := 0
	for _, r := range withPIDs {
		for _, p := range r.PIDs() {
			used[p] = true
			if p > max {
				max = p
			}
		}
	}

	free := freeIDs(used, max, len(needPIDs))
	freeIdx := 0
	nextFree := func() int {
		if freeIdx < len(free) {
			id := free[freeIdx]
			freeIdx++
			return id
		}
		max++
		return max
	}

	assigned := make(map[string][]int)
	for id, r := range withPIDs {
		assigned[id] = r.PIDs()
	}

	for {
		progressed := false
		for id, r := range needPIDs {
			refIDs := liveReferences(r, c.records)

			allAssigned := true
			pidSet := make(map[int]bool)
			for _, refID := range refIDs {
				refPIDs, ok := assigned[refID]
				if !ok {
					allAssigned = false
					break
				}
				for _, p := range refPIDs {
					pidSet[p] = true
				}
			}
			if !allAssigned {
				continue
			}

			var pids []int
			if len(refIDs) == 0 {
				pids = []int{nextFree()}
			} else {
				for p := range pidSet {
					pids = append(pids, p)
				}
				sort.Ints(pids)
			}

			assigned[id] = pids
			delete(needPIDs, id)
			progressed = true
		}
		if !progressed || len(needPIDs) == 0 {
			break
		}
	}

	for id, pids := range assigned {
		if r, ok := c.records[id]; ok {
			r.SetPIDs(pids)
		}
	}

	for id := range needPIDs {
		c.log.Warn("persistent id assignment: reference cycle detected, leaving record un-tagged",
			zap.String("alert_id", id))
	}
}

// liveReferences restricts r's references to identifiers actually present
// in the cache (a reference to an already-purged predecessor contributes
// nothing to the union).
func liveReferences(r *record.Record, all map[string]*record.Record) []string {
	var live []string
	for _, refID := range r.Alert.ReferenceIdentifiers() {
		if _, ok := all[refID]; ok {
			live = append(live, refID)
		}
	}
	return live
}

// freeIDs returns the gap list of spec.md 4.4.4: the sorted positive
// integers in [1, max] not in used, limited to limit entries; if still
// short, it is extended upward from max+1.
func freeIDs(used map[int]bool, max int, limit int) []int {
	var free []int
	for i := 1; i <= max && len(free) < limit; i++ {
		if !used[i] {
			free = append(free, i)
		}
	}
	next := max + 1
	for len(free) < limit {
		free = append(free, next)
		next++
	}
	return free
}

// Dump writes the cache to its backing file as a single UTF-8 JSON object
// keyed by identifier (spec.md 6.1).
func (c *Cache) Dump() error {
	data, err := json.MarshalIndent(c.records, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("cache: write temp file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("cache: rename temp file: %w", err)
	}
	return nil
}

// Load reads the cache from its backing file. A missing file is not an
// error: the cache simply starts empty.
func (c *Cache) Load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cache: read file: %w", err)
	}
	var records map[string]*record.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("cache: unmarshal: %w", err)
	}
	c.records = records
	return nil
}

// Len returns the number of records currently in the cache.
func (c *Cache) Len() int {
	return len(c.records)
}
