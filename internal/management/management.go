// Package management serves the gateway's side-channel HTTP endpoints
// (spec.md 5): /healthz and /metrics, running in the one legitimate
// goroutine of the binary, entirely decoupled from the supervisor loop.
package management

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Health tracks the timestamp of the most recently completed supervisor
// cycle, guarded by a mutex since it is written by the supervisor
// goroutine and read by the HTTP handler goroutine (spec.md 5).
type Health struct {
	mu      sync.Mutex
	lastOK  time.Time
	lastErr error
}

// ReportCycle records the outcome of one supervisor cycle.
func (h *Health) ReportCycle(at time.Time, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastOK = at
	h.lastErr = err
}

func (h *Health) snapshot() (time.Time, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastOK, h.lastErr
}

// NewRouter returns a configured chi.Router serving:
//
//	GET /healthz  – 200 if the last supervisor cycle succeeded, 503 otherwise
//	GET /metrics  – Prometheus exposition format, scraped from reg
func NewRouter(health *Health, reg prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		lastOK, err := health.snapshot()
		if lastOK.IsZero() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("no cycle completed yet"))
			return
		}
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}
