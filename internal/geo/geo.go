// Package geo implements the Geographic Filter (spec.md 4.5): hierarchical
// ARS area-code matching against a configured region of interest, with
// redundancy elimination.
package geo

import (
	"fmt"
	"strings"
	"time"

	"github.com/mikecamilleri/mowasgw/internal/record"
)

// chainBoundaries are the length-class boundaries at which ARS prefixes are
// meaningful administrative units: country(0), state(2), government
// district(3), district(5), municipal association(9), municipality(12).
var chainBoundaries = [6]int{0, 2, 3, 5, 9, 12}

const arsLength = 12

// allowedLengths are the valid ARS lengths a configured geocode may arrive
// at before padding.
var allowedLengths = map[int]bool{2: true, 3: true, 5: true, 9: true, 12: true}

// NormalizeCode normalizes a configured geocode per spec.md 4.5 /
// spec.md 3's "Region-of-interest set": the string must be purely digits;
// right-pad to 12 with "0"; length > 12 is truncated with a warning
// (returned as a non-fatal *TruncatedError, the caller logs it); any other
// length is a fatal configuration error.
func NormalizeCode(s string) (string, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("geo: geocode %q is not purely digits", s)
		}
	}

	if len(s) > arsLength {
		return s[:arsLength], &TruncatedError{Code: s, Truncated: s[:arsLength]}
	}

	if !allowedLengths[len(s)] {
		return "", fmt.Errorf("geo: geocode %q has disallowed length %d", s, len(s))
	}

	return s + strings.Repeat("0", arsLength-len(s)), nil
}

// TruncatedError reports that a geocode longer than 12 digits was
// truncated. It is not fatal: the caller should log it and continue.
type TruncatedError struct {
	Code      string
	Truncated string
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("geo: geocode %q truncated to %q", e.Code, e.Truncated)
}

// SupersetChain returns the six prefixes of ars at the administrative
// length-class boundaries, each padded with trailing zeros: country,
// state, government district, district, municipal association,
// municipality (which is ars itself). The chain always includes the
// nationwide code "000000000000" (index 0).
func SupersetChain(ars string) [6]string {
	var chain [6]string
	for i, b := range chainBoundaries {
		chain[i] = ars[:b] + strings.Repeat("0", arsLength-b)
	}
	return chain
}

// RegionSet is a reduced, normalized set of region-of-interest ARS codes.
type RegionSet struct {
	codes map[string]bool // the reduced G
	super map[string]bool // G_super = union of SupersetChain(g) for g in G
}

// Reduce builds a RegionSet from a slice of already-normalized 12-digit ARS
// codes, dropping any code whose superset chain intersects another code
// already in the set (a coarser code already covers it). Reduce is
// idempotent: reducing an already-reduced set returns the same set
// (spec.md 8.3).
func Reduce(codes []string) RegionSet {
	unique := make(map[string]bool, len(codes))
	for _, c := range codes {
		unique[c] = true
	}

	reduced := make(map[string]bool, len(unique))
	for g := range unique {
		covered := false
		for _, sup := range SupersetChain(g) {
			if sup == g {
				continue
			}
			if unique[sup] {
				covered = true
				break
			}
		}
		if !covered {
			reduced[g] = true
		}
	}

	super := make(map[string]bool)
	for g := range reduced {
		for _, sup := range SupersetChain(g) {
			super[sup] = true
		}
	}

	return RegionSet{codes: reduced, super: super}
}

// Codes returns the reduced set of region-of-interest codes.
func (rs RegionSet) Codes() []string {
	out := make([]string, 0, len(rs.codes))
	for c := range rs.codes {
		out = append(out, c)
	}
	return out
}

// Match reports whether an incoming 12-digit geocode h matches this region
// of interest: h is coarser than (or equal to) some region of interest, or
// h is finer than one (spec.md 4.5).
func (rs RegionSet) Match(h string) bool {
	if rs.super[h] {
		return true
	}
	for _, sup := range SupersetChain(h) {
		if rs.codes[sup] {
			return true
		}
	}
	return false
}

// Admit implements the minimum-age admission rule (spec.md 4.5): an alert
// never before transmitted on sink is only admitted if sent+maxAge >= now;
// an alert already transmitted on sink is never age-discarded.
func Admit(r *record.Record, sink record.TxStateKey, maxAge time.Duration, now time.Time) bool {
	if _, _, ok := r.TxStatus(sink); ok {
		return true
	}
	return !r.Alert.Sent.Add(maxAge).Before(now)
}
