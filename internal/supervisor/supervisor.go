// Package supervisor implements the fixed-period driver loop (spec.md
// 4.8): fetch -> cache update -> purge -> persistent-id assignment ->
// per-sink emission -> persist -> source cleanup, with per-collaborator
// error containment so one misbehaving source or sink never stops the
// others from firing.
package supervisor

import (
	"context"
	"time"

	"github.com/mikecamilleri/mowasgw/internal/cache"
	"github.com/mikecamilleri/mowasgw/internal/capmodel"
	"github.com/mikecamilleri/mowasgw/internal/management"
	"github.com/mikecamilleri/mowasgw/internal/metrics"
	"github.com/mikecamilleri/mowasgw/internal/record"
	"github.com/mikecamilleri/mowasgw/internal/sink"
	"github.com/mikecamilleri/mowasgw/internal/source"
	"go.uber.org/zap"
)

// Period is the fixed cycle length of spec.md 4.8.
const Period = 60 * time.Second

// NamedSource pairs a Source Adapter with the name the supervisor logs and
// reports metrics under.
type NamedSource struct {
	Name    string
	Adapter source.Adapter
}

// Supervisor owns the Alert Cache and drives the nine-step cycle.
type Supervisor struct {
	Cache   *cache.Cache
	Sources []NamedSource
	Sinks   []sink.Sink
	Metrics *metrics.Registry
	Health  *management.Health
	Log     *zap.Logger

	// Now is the clock source; overridden in tests. Defaults to time.Now.
	Now func() time.Time
}

// New returns a Supervisor ready to Run.
func New(c *cache.Cache, sources []NamedSource, sinks []sink.Sink, m *metrics.Registry, h *management.Health, log *zap.Logger) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{
		Cache:   c,
		Sources: sources,
		Sinks:   sinks,
		Metrics: m,
		Health:  h,
		Log:     log,
		Now:     time.Now,
	}
}

// Run drives cycles every Period until ctx is cancelled (SIGINT/SIGTERM),
// per spec.md 4.8's phase-preserving sleep.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		t1 := s.Now()
		s.runCycle(ctx, t1)

		elapsed := s.Now().Sub(t1)
		sleepFor := Period - elapsed%Period

		select {
		case <-ctx.Done():
			s.Log.Info("supervisor: shutting down")
			return nil
		case <-time.After(sleepFor):
		}
	}
}

// runCycle performs steps 1-8 of spec.md 4.8 for one iteration.
func (s *Supervisor) runCycle(ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.Log.Error("supervisor: cycle panicked, recovering", zap.Any("panic", r))
			s.reportHealth(now, errFromRecover(r))
		}
	}()

	start := time.Now()

	// Step 2: drain every source into the cache.
	for _, ns := range s.Sources {
		var alerts []capmodel.Alert
		err := contain(func() (err error) {
			alerts, err = ns.Adapter.Fetch(ctx)
			return err
		})
		if err != nil {
			s.Log.Warn("supervisor: source fetch failed", zap.String("source", ns.Name), zap.Error(err))
			if s.Metrics != nil {
				s.Metrics.SourceErrors.WithLabelValues(ns.Name).Inc()
			}
			continue
		}
		for _, a := range alerts {
			s.Cache.Update(a, now)
		}
		if s.Metrics != nil {
			s.Metrics.AlertsFetched.WithLabelValues(ns.Name).Add(float64(len(alerts)))
		}
	}

	// Step 3: age out stale records.
	valid := s.Cache.Purge(now)

	// Step 4: (re-)allocate persistent radio ids.
	s.Cache.AssignPersistentIDs()

	// Step 5: resolve the head alerts.
	heads := s.Cache.Query()
	if s.Metrics != nil {
		s.Metrics.AlertsLive.Set(float64(len(heads)))
	}

	// Step 6: emit to every sink.
	for _, sk := range s.Sinks {
		if err := s.alertSink(ctx, sk, heads, now); err != nil {
			s.Log.Warn("supervisor: sink emission failed", zap.String("sink", sk.Name()), zap.Error(err))
			if s.Metrics != nil {
				s.Metrics.SinkErrors.WithLabelValues(sk.Name()).Inc()
			}
		}
	}

	// Step 7: persist the cache before touching source scratch state, so a
	// crash between steps 7 and 8 leaves the cache authoritative.
	if err := s.Cache.Dump(); err != nil {
		s.Log.Error("supervisor: cache dump failed", zap.Error(err))
		s.reportHealth(now, err)
		return
	}

	// Step 8: let every source purge scratch state tied to dead identifiers.
	for _, ns := range s.Sources {
		if err := contain(func() error { return ns.Adapter.Purge(valid) }); err != nil {
			s.Log.Warn("supervisor: source purge failed", zap.String("source", ns.Name), zap.Error(err))
		}
	}

	if s.Metrics != nil {
		s.Metrics.CyclesTotal.Inc()
		s.Metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}
	s.reportHealth(now, nil)
}

// alertSink wraps one sink's Alert call in its own recover so a panicking
// sink cannot prevent the cache from being persisted or other sinks from
// firing (spec.md 5).
func (s *Supervisor) alertSink(ctx context.Context, sk sink.Sink, heads []*record.Record, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errFromRecover(r)
		}
	}()
	return sk.Alert(ctx, heads, now)
}

// contain runs fn, turning a panic inside it into a returned error so one
// misbehaving source cannot abort the rest of the cycle.
func contain(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errFromRecover(r)
		}
	}()
	return fn()
}

func (s *Supervisor) reportHealth(now time.Time, err error) {
	if s.Health != nil {
		s.Health.ReportCycle(now, err)
	}
}

func errFromRecover(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &panicError{r}
}

type panicError struct{ v interface{} }

func (p *panicError) Error() string { return "panic: " + formatPanic(p.v) }

func formatPanic(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "unknown panic"
}
