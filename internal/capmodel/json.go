package capmodel

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// ParseJSON parses a single BBK-normalized CAP-v1.2 JSON alert object, as
// delivered by the BBK-URL and BBK-File source adapters.
func ParseJSON(data []byte) (*Alert, error) {
	var w wireAlertJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("capmodel: error unmarshalling alert JSON: %w", err)
	}
	return w.normalize()
}

// ParseJSONArray parses the JSON array of CAP alert objects returned by the
// BBK feed endpoint.
func ParseJSONArray(data []byte) ([]*Alert, error) {
	var ws []wireAlertJSON
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("capmodel: error unmarshalling alert JSON array: %w", err)
	}
	alerts := make([]*Alert, 0, len(ws))
	for i := range ws {
		a, err := ws[i].normalize()
		if err != nil {
			// one bad alert in a batch doesn't sink the whole feed; it is
			// skipped without being reported to the caller (spec.md 4.3).
			continue
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

type wireAlertJSON struct {
	Identifier string         `json:"identifier"`
	Sender     string         `json:"sender"`
	Sent       string         `json:"sent"`
	Status     string         `json:"status"`
	MsgType    string         `json:"msgType"`
	Scope      string         `json:"scope"`
	References string         `json:"references"`
	Info       []wireInfoJSON `json:"info"`
}

type wireInfoJSON struct {
	Language  string         `json:"language"`
	Event     string         `json:"event"`
	Effective string         `json:"effective"`
	Onset     string         `json:"onset"`
	Expires   string         `json:"expires"`
	Headline  string         `json:"headline"`
	Area      []wireAreaJSON `json:"area"`
}

type wireAreaJSON struct {
	AreaDesc string            `json:"areaDesc"`
	Polygon  []string          `json:"polygon"`
	Geocode  []wireGeocodeJSON `json:"geocode"`
}

type wireGeocodeJSON struct {
	ValueName string `json:"valueName"`
	Value     string `json:"value"`
}

func (w *wireAlertJSON) normalize() (*Alert, error) {
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

	for _, wi := range w.Info {
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

		for _, wa := range wi.Area {
			area := Area{AreaDesc: wa.AreaDesc}
			for _, p := range wa.Polygon {
				poly, perr := parsePolygonString(p)
				if perr != nil {
					continue
				}
				area.Polygons = append(area.Polygons, poly)
			}
			for _, g := range wa.Geocode {
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
