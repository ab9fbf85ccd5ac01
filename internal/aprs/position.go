package aprs

import (
	"fmt"
	"math"
)

// symbolTable and symbolCode select the APRS symbol used for every MoWaS
// beacon: the civil-defense siren, table '\' code '\'' per APRS101 appendix 2.
const (
	symbolTable = '\\'
	symbolCode  = '\''
)

// normalizeLat reduces lat into (-90, +90] via modular reduction, per
// spec.md 4.7.7's defensive handling of out-of-range input.
func normalizeLat(lat float64) float64 {
	v := math.Mod(lat+90.0, 180.0)
	if v <= 0 {
		v += 180.0
	}
	return v - 90.0
}

// normalizeLon reduces lon into (-180, +180].
func normalizeLon(lon float64) float64 {
	v := math.Mod(lon+180.0, 360.0)
	if v <= 0 {
		v += 360.0
	}
	return v - 180.0
}

// uncompressedPosition renders the classic APRS fixed-width position:
// DDMM.mmN/DDDMM.mmWs (8 + 1 + 9 + 1 bytes).
func uncompressedPosition(lat, lon float64) string {
	lat = normalizeLat(lat)
	lon = normalizeLon(lon)

	hemiLat := byte('N')
	if lat < 0 {
		hemiLat = 'S'
		lat = -lat
	}
	hemiLon := byte('E')
	if lon < 0 {
		hemiLon = 'W'
		lon = -lon
	}

	latDeg := int(lat)
	latMin := (lat - float64(latDeg)) * 60.0
	lonDeg := int(lon)
	lonMin := (lon - float64(lonDeg)) * 60.0

	return fmt.Sprintf("%02d%05.2f%c%c%03d%05.2f%c%c",
		latDeg, latMin, hemiLat, symbolTable,
		lonDeg, lonMin, hemiLon, symbolCode)
}

// base91 encodes v (assumed to fit in width digits of base 91) into width
// ASCII characters, most-significant digit first, per APRS101's
// compressed position format.
func base91(v int, width int) string {
	if v < 0 {
		v = 0
	}
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = byte(33 + v%91)
		v /= 91
	}
	return string(buf)
}

// compressedPosition renders the APRS base-91 compressed position format:
// symbol table char, 4-char lat, 4-char lon, symbol code, then 3 bytes of
// course/speed/compression-type left blank (no radio-range data carried).
func compressedPosition(lat, lon float64) string {
	lat = normalizeLat(lat)
	lon = normalizeLon(lon)

	y := int(math.Round(380926.0 * (90.0 - lat)))
	x := int(math.Round(190463.0 * (180.0 + lon)))

	return fmt.Sprintf("%c%s%s%c   ", symbolTable, base91(y, 4), base91(x, 4), symbolCode)
}

// position renders the position field, either compressed or uncompressed
// per the sink's configuration.
func position(lat, lon float64, compressed bool) string {
	if compressed {
		return compressedPosition(lat, lon)
	}
	return uncompressedPosition(lat, lon)
}
