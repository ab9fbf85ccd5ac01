package geo

import (
	"testing"
	"time"

	"github.com/mikecamilleri/mowasgw/internal/capmodel"
	"github.com/mikecamilleri/mowasgw/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCodePadsAndTruncates(t *testing.T) {
	c, err := NormalizeCode("09")
	require.NoError(t, err)
	assert.Equal(t, "090000000000", c)

	c, err = NormalizeCode("0916200000001")
	assert.Equal(t, "091620000000", c)
	require.Error(t, err)
	var trunc *TruncatedError
	assert.ErrorAs(t, err, &trunc)

	_, err = NormalizeCode("1234")
	assert.Error(t, err)

	_, err = NormalizeCode("09a")
	assert.Error(t, err)
}

func TestMatchSymmetry(t *testing.T) {
	// spec.md 8.4
	rs := Reduce([]string{"091620000000"})
	assert.True(t, rs.Match("091620000000"))
	// 8- and 6-digit codes are not valid NormalizeCode input; pad them to
	// 12 digits directly.
	assert.True(t, rs.Match("09162000"+"0000"))
	assert.True(t, rs.Match("091620"+"000000"))
	c, _ := NormalizeCode("09")
	assert.True(t, rs.Match(c))
	c, _ = NormalizeCode("071110000000")
	assert.False(t, rs.Match(c))
}

func TestGeocodeReduction(t *testing.T) {
	// spec.md 8.6 (S6)
	bavaria, _ := NormalizeCode("09")
	munich, _ := NormalizeCode("091620000000")
	niedersachsen, _ := NormalizeCode("07")
	rs := Reduce([]string{bavaria, munich, niedersachsen})

	got := rs.Codes()
	assert.ElementsMatch(t, []string{bavaria, niedersachsen}, got)
}

func TestReductionIsIdempotent(t *testing.T) {
	codes := []string{"090000000000", "091620000000", "070000000000"}
	once := Reduce(codes)
	twice := Reduce(once.Codes())
	assert.ElementsMatch(t, once.Codes(), twice.Codes())
}

func TestAdmitMinimumAge(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	sink := record.TxStateKey{Type: "aprs", Name: "digi1"}

	fresh := record.New(capmodel.Alert{Identifier: "a", Sent: now.Add(-1 * time.Hour)})
	assert.True(t, Admit(fresh, sink, 4*time.Hour, now))

	stale := record.New(capmodel.Alert{Identifier: "b", Sent: now.Add(-5 * time.Hour)})
	assert.False(t, Admit(stale, sink, 4*time.Hour, now))

	// already transmitted: never age-discarded
	stale.TxDone(sink, now.Add(-5*time.Hour))
	assert.True(t, Admit(stale, sink, 4*time.Hour, now))
}
