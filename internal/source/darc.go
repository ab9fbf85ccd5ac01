package source

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mikecamilleri/mowasgw/internal/capmodel"
	"go.uber.org/zap"
)

// notifyManifest is the DARC notify-file shape of spec.md 6.3.
type notifyManifest struct {
	ID  string `json:"id"`
	URL struct {
		XML struct {
			Internet []string `json:"internet"`
			Hamnet   []string `json:"hamnet"`
		} `json:"xml"`
		Audio struct {
			Internet []string `json:"internet"`
			Hamnet   []string `json:"hamnet"`
		} `json:"audio"`
	} `json:"url"`
}

// DARCAdapter scans a watch directory of notify manifests and downloads
// each manifest's referenced CAP XML from a prioritised, shuffled list of
// mirror URLs (spec.md 4.3).
type DARCAdapter struct {
	WatchDir       string
	ScratchDir     string
	EnableInternet bool
	EnableHamnet   bool
	HTTPClient     *http.Client
	Log            *zap.Logger

	rand *rand.Rand
}

// NewDARCAdapter returns a DARCAdapter scanning watchDir for notify files
// and caching downloads under scratchDir.
func NewDARCAdapter(watchDir, scratchDir string, enableInternet, enableHamnet bool, log *zap.Logger) *DARCAdapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &DARCAdapter{
		WatchDir:       watchDir,
		ScratchDir:     scratchDir,
		EnableInternet: enableInternet,
		EnableHamnet:   enableHamnet,
		HTTPClient:     &http.Client{Timeout: defaultTimeout},
		Log:            log,
		rand:           rand.New(rand.NewSource(1)),
	}
}

// sanitizeFilename replaces '/' with '_', per spec.md 4.3.
func sanitizeFilename(s string) string {
	return strings.ReplaceAll(s, "/", "_")
}

// Fetch scans WatchDir for notify manifests, downloads any CAP XML not
// already cached in ScratchDir, and parses every successfully-downloaded
// document.
func (a *DARCAdapter) Fetch(ctx context.Context) ([]capmodel.Alert, error) {
	entries, err := os.ReadDir(a.WatchDir)
	if err != nil {
		return nil, fmt.Errorf("source: darc watch dir %s: %w", a.WatchDir, err)
	}

	if err := os.MkdirAll(a.ScratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("source: darc scratch dir %s: %w", a.ScratchDir, err)
	}

	var alerts []capmodel.Alert
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		manifest, err := a.readManifest(filepath.Join(a.WatchDir, entry.Name()))
		if err != nil {
			a.Log.Warn("source: darc skipping malformed manifest", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}

		xmlPath := filepath.Join(a.ScratchDir, sanitizeFilename(manifest.ID)+".xml")
		if !fileExists(xmlPath) {
			mirrors := a.mirrorsFor(manifest)
			if err := a.downloadFirst(ctx, mirrors, xmlPath); err != nil {
				a.Log.Warn("source: darc could not download CAP XML, will retry next cycle",
					zap.String("id", manifest.ID), zap.Error(err))
				continue
			}
		}

		body, err := os.ReadFile(xmlPath)
		if err != nil {
			a.Log.Warn("source: darc reading cached CAP XML", zap.Error(err))
			continue
		}
		alert, err := capmodel.ParseXML(body)
		if err != nil {
			a.Log.Warn("source: darc parsing CAP XML", zap.String("id", manifest.ID), zap.Error(err))
			continue
		}
		alerts = append(alerts, *alert)
	}
	return alerts, nil
}

// readManifest parses one notify JSON manifest.
func (a *DARCAdapter) readManifest(path string) (*notifyManifest, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m notifyManifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// mirrorsFor builds the shuffled, priority-ordered mirror list for a
// manifest: internet mirrors before hamnet (hamnet is the fallback
// network, favoured only when internet is disabled), each class shuffled
// uniformly among itself, each class independently toggleable by config.
func (a *DARCAdapter) mirrorsFor(m *notifyManifest) []string {
	var mirrors []string
	if a.EnableInternet {
		mirrors = append(mirrors, shuffled(a.rand, m.URL.XML.Internet)...)
	}
	if a.EnableHamnet {
		mirrors = append(mirrors, shuffled(a.rand, m.URL.XML.Hamnet)...)
	}
	return mirrors
}

// downloadFirst tries each mirror in order until one succeeds, writing the
// body to destPath.
func (a *DARCAdapter) downloadFirst(ctx context.Context, mirrors []string, destPath string) error {
	var lastErr error
	for _, url := range mirrors {
		body, err := doGetRequest(ctx, a.HTTPClient, url)
		if err != nil {
			lastErr = err
			continue
		}
		return os.WriteFile(destPath, body, 0o644)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no mirrors available")
	}
	return lastErr
}

// Purge deletes scratch CAP files whose alert identifier is no longer
// live, and any notify manifest whose CAP counterpart was successfully
// downloaded and is no longer live. A notify file whose CAP could not be
// downloaded is always kept so the next cycle retries (spec.md 4.3).
func (a *DARCAdapter) Purge(valid map[string]bool) error {
	entries, err := os.ReadDir(a.ScratchDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("source: darc purge scratch dir: %w", err)
	}
	downloaded := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".xml") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".xml")
		downloaded[id] = true
		if valid[id] {
			continue
		}
		if err := os.Remove(filepath.Join(a.ScratchDir, entry.Name())); err != nil && !os.IsNotExist(err) {
			a.Log.Warn("source: darc purge removing scratch file", zap.String("file", entry.Name()), zap.Error(err))
		}
	}

	notifyEntries, err := os.ReadDir(a.WatchDir)
	if err != nil {
		return nil
	}
	for _, entry := range notifyEntries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(a.WatchDir, entry.Name())
		manifest, err := a.readManifest(path)
		if err != nil {
			continue
		}
		if valid[manifest.ID] {
			continue
		}
		if !downloaded[sanitizeFilename(manifest.ID)] {
			continue // CAP never downloaded; keep the notify file so we retry
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			a.Log.Warn("source: darc purge removing notify file", zap.String("file", entry.Name()), zap.Error(err))
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// shuffled returns a uniformly-shuffled copy of items.
func shuffled(r *rand.Rand, items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
