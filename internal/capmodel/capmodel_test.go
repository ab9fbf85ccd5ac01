package capmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<alert xmlns="urn:oasis:names:tc:emergency:cap:1.2">
  <identifier>2.49.0.0.276.0.DE.20260731.BBK0001.1</identifier>
  <sender>bbk.bund.de</sender>
  <sent>2026-07-31T10:00:00+02:00</sent>
  <status>Actual</status>
  <msgType>Alert</msgType>
  <scope>Public</scope>
  <info>
    <language>de-DE</language>
    <event>Bombenfund</event>
    <onset>2026-07-31T10:10:00+02:00</onset>
    <headline>Bombenr&#228;umung Innenstadt</headline>
    <area>
      <areaDesc>M&#252;nchen</areaDesc>
      <polygon>11.57,48.14 11.58,48.14 11.58,48.15 11.57,48.15 11.57,48.14</polygon>
      <geocode>
        <valueName>ARS</valueName>
        <value>091620000000</value>
      </geocode>
    </area>
  </info>
</alert>`

func TestParseXML(t *testing.T) {
	a, err := ParseXML([]byte(sampleXML))
	require.NoError(t, err)
	assert.Equal(t, "2.49.0.0.276.0.DE.20260731.BBK0001.1", a.Identifier)
	assert.Equal(t, "Alert", a.MsgType)
	assert.False(t, a.IsCancel())
	require.Len(t, a.Infos, 1)
	assert.Equal(t, "Bombenräumung Innenstadt", a.Infos[0].Headline)
	require.Len(t, a.Infos[0].Areas, 1)
	require.Len(t, a.Infos[0].Areas[0].Polygons, 1)
	assert.True(t, a.Infos[0].Areas[0].Polygons[0].Closed())
	assert.Equal(t, "091620000000", a.Infos[0].Areas[0].Geocodes.Get("ARS"))
}

func TestParseXMLCancelIsCaseInsensitive(t *testing.T) {
	xml := `<alert xmlns="urn:oasis:names:tc:emergency:cap:1.2">
  <identifier>x</identifier>
  <sender>s</sender>
  <sent>2026-07-31T10:00:00+02:00</sent>
  <status>Actual</status>
  <msgType>CANCEL</msgType>
  <scope>Public</scope>
</alert>`
	a, err := ParseXML([]byte(xml))
	require.NoError(t, err)
	assert.True(t, a.IsCancel())
}

func TestParsePolygonRepairsSentinelBug(t *testing.T) {
	poly, err := parsePolygonString("-1.0,-1.0 11.58,48.14 11.58,48.15 11.57,48.15 11.58,48.14")
	require.NoError(t, err)
	assert.Equal(t, Point{Lon: 11.58, Lat: 48.14}, poly[0])
	assert.True(t, poly.Closed())
}

func TestParsePolygonRejectsUnclosedRing(t *testing.T) {
	_, err := parsePolygonString("11.58,48.14 11.58,48.15 11.57,48.15")
	assert.Error(t, err)
}

const sampleJSONArray = `[{
  "identifier": "bbk-1",
  "sender": "bbk.bund.de",
  "sent": "2026-07-31T10:00:00+02:00",
  "status": "Actual",
  "msgType": "Update",
  "scope": "Public",
  "references": "bbk.bund.de,bbk-0,2026-07-30T10:00:00+02:00",
  "info": [{
    "language": "de-DE",
    "event": "Unwetter",
    "headline": "Sturm",
    "area": [{
      "areaDesc": "Bayern",
      "geocode": [{"valueName": "ARS", "value": "091620000000"}]
    }]
  }]
}]`

func TestParseJSONArray(t *testing.T) {
	alerts, err := ParseJSONArray([]byte(sampleJSONArray))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, "bbk-1", a.Identifier)
	require.Len(t, a.References, 1)
	assert.Equal(t, "bbk-0", a.References[0].Identifier)
	assert.Equal(t, []string{"bbk-0"}, a.ReferenceIdentifiers())
}
