package capmodel

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"

	"golang.org/x/net/html/charset"
)

// ParseXML parses a single OASIS CAP-v1.2 XML alert document, as delivered
// by the DARC source adapter. A custom decoder is used since the document's
// declared charset may not be UTF-8.
func ParseXML(data []byte) (*Alert, error) {
	w := &wireAlert{}
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(w); err != nil {
		return nil, fmt.Errorf("capmodel: error unmarshalling alert XML: %w", err)
	}
	return w.normalize()
}

// wireAlert mirrors the CAP XML schema directly; a single <info>, <area>,
// or <geocode> element is unmarshalled the same as a repeated one because
// Infos/Areas/Geocodes are always slices here, never single structs.
// <resource> elements are not decoded. See package doc.
type wireAlert struct {
	Identifier string `xml:"identifier"`
	Sender     string `xml:"sender"`
	Sent       string `xml:"sent"`
	Status     string `xml:"status"`
	MsgType    string `xml:"msgType"`
	Scope      string `xml:"scope"`
	References string `xml:"references"`
	Infos      []struct {
		Language  string `xml:"language"`
		Event     string `xml:"event"`
		Effective string `xml:"effective"`
		Onset     string `xml:"onset"`
		Expires   string `xml:"expires"`
		Headline  string `xml:"headline"`
		Areas     []struct {
			AreaDesc string   `xml:"areaDesc"`
			Polygons []string `xml:"polygon"`
			Geocodes []struct {
				ValueName string `xml:"valueName"`
				Value     string `xml:"value"`
			} `xml:"geocode"`
		} `xml:"area"`
	} `xml:"info"`
}

func (w *wireAlert) normalize() (*Alert, error) {
	a := &Alert{
		Identifier: w.Identifier,
		Sender:     w.Sender,
		Status:     w.Status,
		MsgType:    w.MsgType,
		Scope:      w.Scope,
	}

	var err error
	if a.Sent, err = parseTimeString(w.Sent); err != nil {
		return nil, fmt.Errorf("capmodel: invalid alert.sent: %w", err)
	}
	if a.References, err = parseReferencesString(w.References); err != nil {
		return nil, fmt.Errorf("capmodel: invalid alert.references: %w", err)
	}

	for _, wi := range w.Infos {
		info := Info{
			Language: wi.Language,
			Event:    wi.Event,
			Headline: wi.Headline,
		}
		if len(info.Language) == 0 {
			info.Language = "en-US"
		}
		if info.Effective, err = parseTimeString(wi.Effective); err != nil {
			return nil, fmt.Errorf("capmodel: invalid info.effective: %w", err)
		}
		if info.Onset, err = parseTimeString(wi.Onset); err != nil {
			return nil, fmt.Errorf("capmodel: invalid info.onset: %w", err)
		}
		if info.Expires, err = parseTimeString(wi.Expires); err != nil {
			return nil, fmt.Errorf("capmodel: invalid info.expires: %w", err)
		}

		for _, wa := range wi.Areas {
			area := Area{AreaDesc: wa.AreaDesc}
			for _, p := range wa.Polygons {
				poly, perr := parsePolygonString(p)
				if perr != nil {
					// malformed geometry: skip this ring, keep the rest of
					// the area (spec.md 7: "malformed alert geometry").
					continue
				}
				area.Polygons = append(area.Polygons, poly)
			}
			for _, g := range wa.Geocodes {
				if len(g.ValueName) == 0 {
					continue
				}
				if area.Geocodes == nil {
					area.Geocodes = make(url.Values)
				}
				area.Geocodes.Add(g.ValueName, g.Value)
			}
			info.Areas = append(info.Areas, area)
		}

		a.Infos = append(a.Infos, info)
	}

	return a, nil
}
