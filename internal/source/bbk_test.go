package source

import (
	"context"
	"os"
	"testing"

	httpmock "github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBBKArray = `[
  {
    "identifier": "bbk-1",
    "sender": "bbk.bund.de",
    "sent": "2026-07-31T10:00:00+00:00",
    "status": "Actual",
    "msgType": "Alert",
    "info": [
      {"language": "de-DE", "event": "Sirene", "headline": "Probealarm"}
    ]
  }
]`

func TestBBKURLAdapterFetch(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://example.org/bbk.json",
		httpmock.NewStringResponder(200, sampleBBKArray))

	a := NewBBKURLAdapter("https://example.org/bbk.json", nil)

	alerts, err := a.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "bbk-1", alerts[0].Identifier)
}

func TestBBKURLAdapterHTTPErrorIsTransient(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://example.org/down.json",
		httpmock.NewStringResponder(500, "error"))

	a := NewBBKURLAdapter("https://example.org/down.json", nil)

	_, err := a.Fetch(context.Background())
	assert.Error(t, err)
}

func TestBBKFileAdapterFetch(t *testing.T) {
	path := t.TempDir() + "/bbk.json"
	require.NoError(t, os.WriteFile(path, []byte(sampleBBKArray), 0o644))

	a := NewBBKFileAdapter(path, nil)
	alerts, err := a.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "bbk-1", alerts[0].Identifier)
}

func TestBBKFileAdapterMissingFile(t *testing.T) {
	a := NewBBKFileAdapter("/nonexistent/bbk.json", nil)
	_, err := a.Fetch(context.Background())
	assert.Error(t, err)
}
