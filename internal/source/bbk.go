package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/mikecamilleri/mowasgw/internal/capmodel"
	"go.uber.org/zap"
)

// BBKURLAdapter fetches the BBK JSON warning feed over HTTP (spec.md 6.3).
// It keeps no local scratch state, so Purge is a no-op.
type BBKURLAdapter struct {
	URL        string
	HTTPClient *http.Client
	Log        *zap.Logger
}

// NewBBKURLAdapter returns an adapter fetching url with a default timeout.
func NewBBKURLAdapter(url string, log *zap.Logger) *BBKURLAdapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &BBKURLAdapter{
		URL:        url,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		Log:        log,
	}
}

// Fetch downloads and parses the BBK JSON array at a.URL.
func (a *BBKURLAdapter) Fetch(ctx context.Context) ([]capmodel.Alert, error) {
	body, err := doGetRequest(ctx, a.HTTPClient, a.URL)
	if err != nil {
		return nil, fmt.Errorf("source: bbk url fetch %s: %w", a.URL, err)
	}
	parsed, err := capmodel.ParseJSONArray(body)
	if err != nil {
		return nil, fmt.Errorf("source: bbk url parse %s: %w", a.URL, err)
	}
	return derefAll(parsed), nil
}

// Purge is a no-op: BBKURLAdapter keeps no local scratch files.
func (a *BBKURLAdapter) Purge(valid map[string]bool) error { return nil }

// BBKFileAdapter reads an already-downloaded BBK JSON file from disk. Used
// when an operator maintains their own fetch/caching pipeline in front of
// this gateway.
type BBKFileAdapter struct {
	Path string
	Log  *zap.Logger
}

// NewBBKFileAdapter returns an adapter reading path.
func NewBBKFileAdapter(path string, log *zap.Logger) *BBKFileAdapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &BBKFileAdapter{Path: path, Log: log}
}

// Fetch reads and parses the BBK JSON array at a.Path.
func (a *BBKFileAdapter) Fetch(ctx context.Context) ([]capmodel.Alert, error) {
	body, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("source: bbk file read %s: %w", a.Path, err)
	}
	parsed, err := capmodel.ParseJSONArray(body)
	if err != nil {
		return nil, fmt.Errorf("source: bbk file parse %s: %w", a.Path, err)
	}
	return derefAll(parsed), nil
}

// Purge is a no-op: the file is owned and rotated by the operator's own
// pipeline, not by this gateway.
func (a *BBKFileAdapter) Purge(valid map[string]bool) error { return nil }

// derefAll converts a slice of *capmodel.Alert to the plain-value slice
// the rest of the gateway deals in (capmodel.Alert is small and the Cache
// copies it on every Update anyway).
func derefAll(ptrs []*capmodel.Alert) []capmodel.Alert {
	out := make([]capmodel.Alert, 0, len(ptrs))
	for _, p := range ptrs {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// doGetRequest performs a bare GET and returns the response body, in the
// style of the teacher's NWS client's doAPIRequest.
func doGetRequest(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return respBody, nil
}
