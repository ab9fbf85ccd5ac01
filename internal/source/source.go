// Package source implements the Source Adapter (spec.md 4.3): fetching
// fresh CAP alerts from a configured feed and purging local scratch files
// once the cache has folded them in.
package source

import (
	"context"
	"time"

	"github.com/mikecamilleri/mowasgw/internal/capmodel"
)

// defaultTimeout bounds every HTTP call a source adapter makes (spec.md 5:
// "a reasonable timeout... implementers should choose a default in the
// 10-30s range").
const defaultTimeout = 20 * time.Second

// Adapter fetches alerts from one configured feed and, once the cache
// reports which identifiers are still live, purges any local scratch
// state tied to identifiers it no longer needs to track.
type Adapter interface {
	// Fetch returns the alerts currently available from this adapter. A
	// transient error (HTTP, JSON, XML, file I/O) is returned to the
	// caller, which logs it and skips this adapter for the cycle
	// (spec.md 7) rather than aborting the loop.
	Fetch(ctx context.Context) ([]capmodel.Alert, error)

	// Purge releases any local state (downloaded files, manifests) for
	// identifiers not in valid. Implementations that keep no local state
	// may no-op.
	Purge(valid map[string]bool) error
}
