package cache

import (
	"testing"
	"time"

	"github.com/mikecamilleri/mowasgw/internal/capmodel"
	"github.com/mikecamilleri/mowasgw/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(sender, id string, sent time.Time) capmodel.Reference {
	return capmodel.Reference{Sender: sender, Identifier: id, Sent: sent}
}

func TestUpdateDropsAncientAlert(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	c := New(t.TempDir()+"/cache.json", 31*24*time.Hour, nil)
	c.Update(capmodel.Alert{Identifier: "old", Sent: now.Add(-60 * 24 * time.Hour)}, now)
	assert.Equal(t, 0, c.Len())
}

func TestUpdateMergesExisting(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	c := New(t.TempDir()+"/cache.json", 31*24*time.Hour, nil)
	c.Update(capmodel.Alert{Identifier: "a", Sent: now, MsgType: "Alert"}, now)
	c.Update(capmodel.Alert{Identifier: "a", Sent: now, MsgType: "Update"}, now)
	assert.Equal(t, 1, c.Len())
}

func TestPurgePreservesSupersessionChain(t *testing.T) {
	// spec.md 8.2
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	horizon := 31 * 24 * time.Hour
	c := New(t.TempDir()+"/cache.json", horizon, nil)

	staleSent := now.Add(-40 * 24 * time.Hour)
	c.Update(capmodel.Alert{Identifier: "b", Sent: staleSent}, now.Add(-40*24*time.Hour+time.Minute))
	c.Update(capmodel.Alert{
		Identifier: "a", Sent: now, MsgType: "Update",
		References: []capmodel.Reference{ref("src", "b", staleSent)},
	}, now)

	live := c.Purge(now)
	assert.True(t, live["a"])
	assert.True(t, live["b"], "b should survive purge: still referenced by live a")
}

func TestPurgeDropsUnreferencedStale(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	c := New(t.TempDir()+"/cache.json", 31*24*time.Hour, nil)
	staleSent := now.Add(-40 * 24 * time.Hour)
	c.Update(capmodel.Alert{Identifier: "b", Sent: staleSent}, staleSent.Add(time.Minute))

	live := c.Purge(now)
	assert.False(t, live["b"])
	assert.Equal(t, 0, c.Len())
}

func TestQueryReturnsOnlyHeads(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	c := New(t.TempDir()+"/cache.json", 31*24*time.Hour, nil)
	c.Update(capmodel.Alert{Identifier: "a", Sent: now.Add(-time.Hour)}, now)
	c.Update(capmodel.Alert{
		Identifier: "b", Sent: now, MsgType: "Update",
		References: []capmodel.Reference{ref("src", "a", now.Add(-time.Hour))},
	}, now)

	heads := c.Query()
	require.Len(t, heads, 1)
	assert.Equal(t, "b", heads[0].Alert.Identifier)
}

func TestPersistentIDStability(t *testing.T) {
	// spec.md 8.5: smallest positive integer not in used_pids
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	c := New(t.TempDir()+"/cache.json", 31*24*time.Hour, nil)
	c.Update(capmodel.Alert{Identifier: "a", Sent: now}, now)
	c.Update(capmodel.Alert{Identifier: "b", Sent: now}, now)
	c.Update(capmodel.Alert{Identifier: "c", Sent: now}, now)
	c.records["a"].SetPIDs([]int{1})
	c.records["b"].SetPIDs([]int{2})

	c.AssignPersistentIDs()

	assert.Equal(t, []int{3}, c.records["c"].PIDs())
}

func TestPersistentIDInheritance(t *testing.T) {
	// spec.md 8.6: C.references = [A, B]; A.pids=[1], B.pids=[3] -> C.pids=[1,3]
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	c := New(t.TempDir()+"/cache.json", 31*24*time.Hour, nil)
	c.Update(capmodel.Alert{Identifier: "A", Sent: now.Add(-time.Hour)}, now)
	c.Update(capmodel.Alert{Identifier: "B", Sent: now.Add(-time.Hour)}, now)
	c.records["A"].SetPIDs([]int{1})
	c.records["B"].SetPIDs([]int{3})
	c.Update(capmodel.Alert{
		Identifier: "C", Sent: now, MsgType: "Update",
		References: []capmodel.Reference{
			ref("src", "A", now.Add(-time.Hour)),
			ref("src", "B", now.Add(-time.Hour)),
		},
	}, now)

	c.AssignPersistentIDs()

	assert.Equal(t, []int{1, 3}, c.records["C"].PIDs())
}

func TestUpdateChainInheritsID(t *testing.T) {
	// spec.md 8 S2
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	c := New(t.TempDir()+"/cache.json", 31*24*time.Hour, nil)
	c.Update(capmodel.Alert{Identifier: "A", Sent: now.Add(-time.Hour)}, now)
	c.records["A"].SetPIDs([]int{7})
	c.Update(capmodel.Alert{
		Identifier: "B", Sent: now, MsgType: "Update",
		References: []capmodel.Reference{ref("src", "A", now.Add(-time.Hour))},
	}, now)

	c.AssignPersistentIDs()

	assert.Equal(t, []int{7}, c.records["B"].PIDs())
}

func TestReferenceCycleLeavesRecordsUntagged(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	c := New(t.TempDir()+"/cache.json", 31*24*time.Hour, nil)
	c.Update(capmodel.Alert{
		Identifier: "x", Sent: now,
		References: []capmodel.Reference{ref("src", "y", now)},
	}, now)
	c.Update(capmodel.Alert{
		Identifier: "y", Sent: now,
		References: []capmodel.Reference{ref("src", "x", now)},
	}, now)

	c.AssignPersistentIDs()

	assert.Empty(t, c.records["x"].PIDs())
	assert.Empty(t, c.records["y"].PIDs())
}

func TestDumpLoadRoundTrip(t *testing.T) {
	// spec.md 8.1
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	path := t.TempDir() + "/cache.json"
	c := New(path, 31*24*time.Hour, nil)
	c.Update(capmodel.Alert{Identifier: "a", Sent: now}, now)
	c.records["a"].SetPIDs([]int{5})
	c.records["a"].TxDone(record.TxStateKey{Type: "aprs", Name: "digi1"}, now)
	require.NoError(t, c.Dump())

	c2 := New(path, 31*24*time.Hour, nil)
	require.NoError(t, c2.Load())

	require.Equal(t, c.Len(), c2.Len())
	assert.Equal(t, []int{5}, c2.records["a"].PIDs())
}
