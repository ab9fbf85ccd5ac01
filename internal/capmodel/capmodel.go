// Copyright 2019 Michael Camilleri <mike@mikecamilleri.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package capmodel implements parsing and normalization of OASIS Common
// Alerting Protocol alert messages for the gateway's core. Unlike the wire
// formats it is decoded from (CAP-XML for DARC, CAP-JSON for BBK), every
// Alert exposed by this package always carries Infos, Areas and Geocodes as
// slices, even where the source document had exactly one. <resource>
// elements are not decoded and have no counterpart in Alert or Info.
package capmodel

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const timeFormat = "2006-01-02T15:04:05-07:00"

// Alert is the normalized, list-safe in-memory representation of a CAP
// alert message.
type Alert struct {
	Identifier string      `json:"identifier"`
	Sender     string      `json:"sender"`
	Sent       time.Time   `json:"sent"`
	Status     string      `json:"status"`
	MsgType    string      `json:"msgType"`
	Scope      string      `json:"scope"`
	References []Reference `json:"references,omitempty"`
	Infos      []Info      `json:"infos,omitempty"`
}

// IsCancel reports whether this alert's msgType is "cancel" (matched
// case-insensitively, per the source's inconsistent capitalization).
func (a *Alert) IsCancel() bool {
	return strings.EqualFold(a.MsgType, "cancel")
}

// Info is one <info> block of an Alert.
type Info struct {
	Language  string    `json:"language"`
	Event     string    `json:"event"`
	Headline  string    `json:"headline,omitempty"`
	Effective time.Time `json:"effective,omitempty"`
	Onset     time.Time `json:"onset,omitempty"`
	Expires   time.Time `json:"expires,omitempty"`
	Areas     []Area    `json:"areas,omitempty"`
}

// Area is one <area> block of an Info.
type Area struct {
	AreaDesc string     `json:"areaDesc,omitempty"`
	Polygons []Polygon  `json:"polygons,omitempty"`
	Geocodes url.Values `json:"geocodes,omitempty"` // keyed by valueName, e.g. Geocodes["ARS"]
}

// Reference points at an earlier alert this one supersedes.
type Reference struct {
	Sender     string    `json:"sender"`
	Identifier string    `json:"identifier"`
	Sent       time.Time `json:"sent"`
}

// Polygon is a single ring of lon,lat points. The first and last point are
// required to be equal (a closed ring).
type Polygon []Point

// Point is a WGS84 coordinate in traditional lon/lat axis order, matching
// the "lon,lat" pair order of the polygon strings parsed below: Lon is
// always x, Lat is always y.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Closed reports whether the first and last points of the ring are equal.
func (p Polygon) Closed() bool {
	if len(p) < 2 {
		return false
	}
	return p[0] == p[len(p)-1]
}

// parseTimeString parses a CAP ISO-8601 timestamp. A blank string parses as
// the zero time with no error, since effective/onset/expires are optional.
func parseTimeString(s string) (time.Time, error) {
	if len(s) == 0 {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, errors.New("error parsing time string")
	}
	return t, nil
}

// parseReferencesString parses CAP's whitespace-separated
// "sender,identifier,sent" reference tuples.
func parseReferencesString(s string) ([]Reference, error) {
	if len(s) == 0 {
		return nil, nil
	}
	fields := strings.Fields(s)
	refs := make([]Reference, 0, len(fields))
	for _, f := range fields {
		parts := strings.Split(f, ",")
		if len(parts) != 3 {
			return nil, errors.New("reference must contain three parts")
		}
		t, err := parseTimeString(parts[2])
		if err != nil {
			return nil, err
		}
		refs = append(refs, Reference{Sender: parts[0], Identifier: parts[1], Sent: t})
	}
	return refs, nil
}

// ReferenceIdentifiers returns just the identifier half of each reference,
// the half the cache's supersession graph actually keys off of.
func (a *Alert) ReferenceIdentifiers() []string {
	if len(a.References) == 0 {
		return nil
	}
	ids := make([]string, 0, len(a.References))
	for _, r := range a.References {
		ids = append(ids, r.Identifier)
	}
	return ids
}

// parsePolygonString parses a CAP polygon string: whitespace-separated
// "lon,lat" pairs. It repairs a known producer bug (spec.md 4.7.3): a ring
// of >= 3 points whose first point is the literal sentinel -1.0,-1.0 and
// whose second point equals its last is missing its real first point, so
// the sentinel is dropped. Rings that are not closed after repair are
// rejected.
func parsePolygonString(s string) (Polygon, error) {
	if len(s) == 0 {
		return nil, errors.New("error parsing polygon string")
	}
	fields := strings.Fields(s)
	if len(fields) < 4 {
		return nil, errors.New("error parsing polygon string")
	}
	pts := make(Polygon, 0, len(fields))
	for _, f := range fields {
		vals := strings.Split(f, ",")
		if len(vals) != 2 {
			return nil, errors.New("error parsing polygon string")
		}
		lon, err := strconv.ParseFloat(vals[0], 64)
		if err != nil {
			return nil, errors.New("error parsing polygon string")
		}
		lat, err := strconv.ParseFloat(vals[1], 64)
		if err != nil {
			return nil, errors.New("error parsing polygon string")
		}
		pts = append(pts, Point{Lat: lat, Lon: lon})
	}

	if len(pts) >= 3 && pts[0] == (Point{Lat: -1.0, Lon: -1.0}) && pts[1] == pts[len(pts)-1] {
		pts = pts[1:]
	}

	if !pts.Closed() {
		return nil, errors.New("polygon ring is not closed")
	}
	return pts, nil
}
