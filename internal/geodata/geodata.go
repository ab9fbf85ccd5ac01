// Package geodata implements the Geodata Index (spec.md 4.1): an
// immutable, read-only-after-load mapping from a 12-digit ARS code to the
// multipolygon covering that administrative area. The file is produced
// offline by the VG5000 tool, an external collaborator this package only
// consumes the output of.
package geodata

import (
	"database/sql"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	_ "modernc.org/sqlite"
)

// Index is an immutable ARS -> MultiPolygon map.
type Index struct {
	byARS map[string]orb.MultiPolygon
}

// Empty returns an Index with no entries. An alert whose geocode falls
// through an empty index falls back to the bulletin path (spec.md 4.1):
// absent is not an error.
func Empty() *Index {
	return &Index{byARS: make(map[string]orb.MultiPolygon)}
}

// Lookup returns the multipolygon for ars, or false if absent.
func (idx *Index) Lookup(ars string) (orb.MultiPolygon, bool) {
	mp, ok := idx.byARS[ars]
	return mp, ok
}

// Len returns the number of ARS entries loaded.
func (idx *Index) Len() int {
	return len(idx.byARS)
}

// Load reads the single-layer GeoPackage described in spec.md 6.2
// (`region(ARS char(12), geom MultiPolygon)`, WGS84/EPSG:4326, traditional
// lon/lat axis order) into an Index. A blank path yields Empty().
func Load(path string) (*Index, error) {
	if path == "" {
		return Empty(), nil
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("geodata: open %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT ARS, geom FROM region`)
	if err != nil {
		return nil, fmt.Errorf("geodata: query region layer: %w", err)
	}
	defer rows.Close()

	idx := Empty()
	for rows.Next() {
		var ars string
		var blob []byte
		if err := rows.Scan(&ars, &blob); err != nil {
			return nil, fmt.Errorf("geodata: scan row: %w", err)
		}
		geom, err := decodeGPB(blob)
		if err != nil {
			// one malformed geometry doesn't sink the whole index
			continue
		}
		mp, ok := toMultiPolygon(geom)
		if !ok {
			continue
		}
		idx.byARS[ars] = mp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("geodata: iterate region layer: %w", err)
	}
	return idx, nil
}

// decodeGPB strips the OGC GeoPackage binary header (magic "GP", version,
// flags byte, optional envelope) from blob and decodes the trailing
// standard WKB geometry.
//
// Header layout (little vs big endianness per the flags byte):
//
//	bytes 0-1: magic "GP"
//	byte 2:    version
//	byte 3:    flags (bit 0 = byte order; bits 1-3 = envelope indicator)
func decodeGPB(blob []byte) (orb.Geometry, error) {
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return nil, fmt.Errorf("geodata: not a GeoPackage geometry blob")
	}
	flags := blob[3]
	envelopeCode := (flags >> 1) & 0x07
	var envelopeLen int
	switch envelopeCode {
	case 0:
		envelopeLen = 0
	case 1:
		envelopeLen = 32
	case 2, 3:
		envelopeLen = 48
	case 4:
		envelopeLen = 64
	default:
		return nil, fmt.Errorf("geodata: invalid envelope indicator")
	}

	wkbStart := 8 + envelopeLen
	if len(blob) < wkbStart {
		return nil, fmt.Errorf("geodata: truncated geometry blob")
	}

	geom, err := wkb.Unmarshal(blob[wkbStart:])
	if err != nil {
		return nil, fmt.Errorf("geodata: decode wkb: %w", err)
	}
	return geom, nil
}

// toMultiPolygon normalizes a decoded geometry (Polygon or MultiPolygon,
// the two shapes the VG5000 tool emits) into an orb.MultiPolygon.
func toMultiPolygon(geom orb.Geometry) (orb.MultiPolygon, bool) {
	switch g := geom.(type) {
	case orb.MultiPolygon:
		return g, true
	case orb.Polygon:
		return orb.MultiPolygon{g}, true
	default:
		return nil, false
	}
}
