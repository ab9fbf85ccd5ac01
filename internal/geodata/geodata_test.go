package geodata

import (
	"database/sql"
	"encoding/binary"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// gpbBlob wraps a WKB-encoded geometry in a minimal GeoPackage binary
// header (magic "GP", version 0, no envelope, little-endian).
func gpbBlob(t *testing.T, geom orb.Geometry) []byte {
	t.Helper()
	wkbBytes, err := wkb.Marshal(geom, binary.LittleEndian)
	require.NoError(t, err)

	header := []byte{'G', 'P', 0x00, 0x01} // flags: byte order=1 (LE), no envelope
	header = append(header, 0, 0, 0, 0)    // srs_id, unused by the loader
	return append(header, wkbBytes...)
}

func TestLoadEmptyPathYieldsEmptyIndex(t *testing.T) {
	idx, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
	_, ok := idx.Lookup("091620000000")
	assert.False(t, ok)
}

func TestLoadDecodesPolygonAndMultiPolygon(t *testing.T) {
	path := t.TempDir() + "/region.gpkg"
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE region (ARS TEXT, geom BLOB)`)
	require.NoError(t, err)

	poly := orb.Polygon{orb.Ring{{11.0, 48.0}, {11.1, 48.0}, {11.1, 48.1}, {11.0, 48.0}}}
	mp := orb.MultiPolygon{poly}

	_, err = db.Exec(`INSERT INTO region (ARS, geom) VALUES (?, ?)`, "091620000000", gpbBlob(t, poly))
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO region (ARS, geom) VALUES (?, ?)`, "091630000000", gpbBlob(t, mp))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	idx, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())

	got, ok := idx.Lookup("091620000000")
	require.True(t, ok)
	assert.Len(t, got, 1)

	got2, ok := idx.Lookup("091630000000")
	require.True(t, ok)
	assert.Len(t, got2, 1)

	_, ok = idx.Lookup("missing")
	assert.False(t, ok)
}

func TestLoadSkipsMalformedGeometry(t *testing.T) {
	path := t.TempDir() + "/region.gpkg"
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE region (ARS TEXT, geom BLOB)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO region (ARS, geom) VALUES (?, ?)`, "bad", []byte("not a gpb blob"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	idx, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
}
