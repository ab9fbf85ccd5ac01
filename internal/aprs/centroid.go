package aprs

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// collapse merges polys into a single multipolygon containing every ring
// of every input polygon, per spec.md 4.7.3's max_areas bound: beyond the
// configured count, airtime is bounded by emitting one combined area
// instead of one frame per area.
func collapse(polys []orb.Polygon) orb.MultiPolygon {
	mp := make(orb.MultiPolygon, 0, len(polys))
	mp = append(mp, polys...)
	return mp
}

// centroidOf computes the area-weighted centroid of g, returning false if
// the geometry is empty or degenerate (zero area), per spec.md 4.7.3's
// "drop centroids that are invalid/empty".
func centroidOf(g orb.Geometry) (orb.Point, bool) {
	centroid, area := planar.CentroidArea(g)
	if area == 0 {
		return orb.Point{}, false
	}
	return centroid, true
}
