// Package aprs implements the APRS Emission Engine (spec.md 4.7): turning
// a filtered CAP record into a set of AX.25 UI frames carrying APRS
// object, item, bulletin, or cancellation packets.
package aprs

import (
	"fmt"
	"time"

	"github.com/mikecamilleri/mowasgw/internal/ax25"
	"github.com/mikecamilleri/mowasgw/internal/capmodel"
	"github.com/mikecamilleri/mowasgw/internal/geodata"
	"github.com/mikecamilleri/mowasgw/internal/record"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

// staleBehind and staleAhead bound how far a chosen info timestamp may
// drift from now before it is omitted entirely (spec.md 4.7.4): APRS
// timestamps carry only day-hour-minute, so an out-of-window timestamp
// would be ambiguous rather than merely stale.
const (
	staleBehind = 21 * 24 * time.Hour
	staleAhead  = 7 * 24 * time.Hour
)

// Identity carries the AX.25 routing fields shared by every frame emitted
// for one sink (spec.md 6.4).
type Identity struct {
	DstCall string
	MyCall  string
	Digis   []string
}

// Emit converts one "head" record into an ordered list of AX.25 UI frames,
// per spec.md 4.7.1-4.7.9. geoIdx resolves geocode-only areas to
// multipolygons; a nil or empty index simply yields no position for those
// areas, falling back to bulletins. log receives warnings for truncated
// callsigns and missing geodata; a nil logger is treated as a no-op.
func Emit(rec *record.Record, geoIdx *geodata.Index, id Identity, cfg Config, now time.Time, log *zap.Logger) []ax25.Frame {
	if log == nil {
		log = zap.NewNop()
	}
	mode, fellBack := normalizeBulletinMode(cfg.BulletinMode)
	if fellBack {
		log.Warn("aprs: unrecognised bulletin_mode, falling back to fallback", zap.String("mode", string(cfg.BulletinMode)))
	}

	pid := 0
	if pids := rec.PIDs(); len(pids) > 0 {
		pid = pids[0]
	}
	cancel := rec.Alert.IsCancel()
	multiInfo := len(rec.Alert.Infos) > 1

	var frames []ax25.Frame
	for infoIdx, info := range rec.Alert.Infos {
		polys := collectPolygons(info, geoIdx, log)

		var positions []orb.Point
		if cfg.BeaconEnabled {
			if cfg.MaxAreas > 0 && len(polys) > cfg.MaxAreas {
				if len(polys) > 0 {
					if c, ok := centroidOf(collapse(polys)); ok {
						positions = append(positions, c)
					}
				}
			} else {
				for _, p := range polys {
					if c, ok := centroidOf(p); ok {
						positions = append(positions, c)
					}
				}
			}
		}

		ts, haveTime := infoTimestamp(info, rec.Alert.Sent, cfg.BeaconTime, now)
		comment := commentText(info, cancel)

		multiArea := len(positions) > 1
		for areaIdx, pos := range positions {
			name, truncated := coinCallsign(cfg.Prefix, pid, areaIdx, infoIdx, multiArea, multiInfo)
			if truncated {
				log.Warn("aprs: callsign truncated to 9 characters", zap.String("name", name))
			}
			body := objectPacket(name, cancel, haveTime, ts, pos, cfg.Compressed, comment, cfg.TruncateComment)
			frames = append(frames, buildFrame(id, body))
		}

		wantBulletin := mode == BulletinAlways || (mode == BulletinFallback && len(positions) == 0)
		if wantBulletin {
			body := bulletinPacket(cfg.BulletinID, comment)
			frames = append(frames, buildFrame(id, body))
		}
	}

	return frames
}

// collectPolygons resolves every area of info to polygons: parsed
// CAP polygons directly, or geocode lookups against geoIdx.
func collectPolygons(info capmodel.Info, geoIdx *geodata.Index, log *zap.Logger) []orb.Polygon {
	var polys []orb.Polygon
	for _, area := range info.Areas {
		for _, ring := range area.Polygons {
			polys = append(polys, capPolygonToOrb(ring))
		}
		if len(area.Polygons) > 0 {
			continue
		}
		for _, ars := range area.Geocodes["ARS"] {
			if geoIdx == nil {
				continue
			}
			mp, ok := geoIdx.Lookup(ars)
			if !ok {
				log.Warn("aprs: no geodata for geocode, skipping area", zap.String("ars", ars))
				continue
			}
			polys = append(polys, mp...)
		}
	}
	return polys
}

// capPolygonToOrb converts a capmodel.Polygon (a single closed ring) to an
// orb.Polygon with no holes.
func capPolygonToOrb(p capmodel.Polygon) orb.Polygon {
	ring := make(orb.Ring, 0, len(p))
	for _, pt := range p {
		ring = append(ring, orb.Point{pt.Lon, pt.Lat})
	}
	return orb.Polygon{ring}
}

// infoTimestamp implements spec.md 4.7.4's priority and staleness window.
func infoTimestamp(info capmodel.Info, sent time.Time, beaconTime bool, now time.Time) (time.Time, bool) {
	if !beaconTime {
		return time.Time{}, false
	}
	var t time.Time
	switch {
	case !info.Onset.IsZero():
		t = info.Onset
	case !info.Effective.IsZero():
		t = info.Effective
	case !sent.IsZero():
		t = sent
	default:
		return time.Time{}, false
	}
	age := now.Sub(t)
	if age >= staleBehind || age <= -staleAhead {
		return time.Time{}, false
	}
	return t, true
}

// commentText resolves the comment/bulletin text of spec.md 4.7.5, falling
// back to the cancellation/alert defaults of spec.md S3 when headline is
// absent.
func commentText(info capmodel.Info, cancel bool) string {
	if info.Headline != "" {
		return cleanText(info.Headline)
	}
	if cancel {
		return "Unspezifische MoWaS-Entwarnung"
	}
	return "Unspezifische MoWaS-Warnung"
}

// objectPacket builds the APRS info field for an object (with timestamp)
// or item (without), per spec.md 4.7.7.
func objectPacket(name string, cancel, haveTime bool, ts time.Time, pos orb.Point, compressed bool, comment string, truncateComment bool) []byte {
	statusByte := byte('!')
	if cancel {
		statusByte = '_'
	}

	var buf []byte
	if !haveTime {
		buf = append(buf, ')')
		buf = append(buf, []byte(padItem(name))...)
		buf = append(buf, statusByte)
	} else {
		objStatus := byte('*')
		if cancel {
			objStatus = '_'
		}
		buf = append(buf, ';')
		buf = append(buf, []byte(padObject(name))...)
		buf = append(buf, objStatus)
		buf = append(buf, []byte(dhm(ts))...)
	}

	buf = append(buf, []byte(position(pos[1], pos[0], compressed))...)

	text := comment
	if truncateComment {
		text = truncateEllipsis(text, 43)
	}
	buf = append(buf, []byte(text)...)
	return buf
}

// dhm renders a UTC timestamp as APRS's day-hour-minute-z form.
func dhm(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%02d%02d%02dz", u.Day(), u.Hour(), u.Minute())
}

// bulletinPacket builds the APRS info field for a general bulletin, per
// spec.md 4.7.8.
func bulletinPacket(id string, text string) []byte {
	id6 := id
	if len(id6) > 6 {
		id6 = id6[:6]
	}
	for len(id6) < 6 {
		id6 += " "
	}
	body := stripReserved(text)
	body = truncateHard(body, 67)
	return []byte(fmt.Sprintf(":BLN%s:%s", id6, body))
}

// buildFrame wraps body in an AX.25 UI frame per spec.md 6.4.
func buildFrame(id Identity, body []byte) ax25.Frame {
	digis := make([]ax25.Address, 0, len(id.Digis))
	for _, d := range id.Digis {
		digis = append(digis, ax25.ParseAddress(d))
	}
	return ax25.Frame{
		Dest:   ax25.ParseAddress(id.DstCall),
		Source: ax25.ParseAddress(id.MyCall),
		Digis:  digis,
		Info:   body,
	}
}
