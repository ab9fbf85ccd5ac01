// Command mowasgw runs the MoWaS-to-APRS gateway: it loads its YAML
// configuration, wires the cache, geodata index, source adapters, and
// radio sinks, and drives the supervisor loop until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikecamilleri/mowasgw/internal/aprs"
	"github.com/mikecamilleri/mowasgw/internal/cache"
	"github.com/mikecamilleri/mowasgw/internal/config"
	"github.com/mikecamilleri/mowasgw/internal/geo"
	"github.com/mikecamilleri/mowasgw/internal/geodata"
	"github.com/mikecamilleri/mowasgw/internal/logging"
	"github.com/mikecamilleri/mowasgw/internal/management"
	"github.com/mikecamilleri/mowasgw/internal/metrics"
	"github.com/mikecamilleri/mowasgw/internal/schedule"
	"github.com/mikecamilleri/mowasgw/internal/sink"
	"github.com/mikecamilleri/mowasgw/internal/source"
	"github.com/mikecamilleri/mowasgw/internal/supervisor"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "/etc/mowas.yml", "path to YAML configuration")
	logLevel := flag.String("log-level", "", "override logging.level")
	logConsole := flag.Bool("log-console", false, "override logging.console")
	logFile := flag.String("log-file", "", "override logging.file")
	flag.Parse()

	if err := run(*configPath, *logLevel, *logConsole, *logFile); err != nil {
		fmt.Fprintln(os.Stderr, "mowasgw:", err)
		os.Exit(1)
	}
}

func run(configPath, logLevelOverride string, logConsoleOverride bool, logFileOverride string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if logLevelOverride != "" {
		cfg.Logging.Level = logLevelOverride
	}
	if logConsoleOverride {
		cfg.Logging.Console = true
	}
	if logFileOverride != "" {
		cfg.Logging.File = logFileOverride
	}

	log, err := logging.Build(logging.Options{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    cfg.Logging.File,
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	geoIdx, err := geodata.Load(cfg.Geodata.Path)
	if err != nil {
		return fmt.Errorf("load geodata: %w", err)
	}
	log.Info("geodata index loaded", zap.Int("ars_count", geoIdx.Len()))

	c := cache.New(cfg.Cache.Path, cfg.Cache.Purge.Duration, log)
	if err := c.Load(); err != nil {
		return fmt.Errorf("load cache: %w", err)
	}

	sources, err := buildSources(cfg, log)
	if err != nil {
		return fmt.Errorf("build sources: %w", err)
	}

	sinks, err := buildSinks(cfg, geoIdx, log)
	if err != nil {
		return fmt.Errorf("build sinks: %w", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	health := &management.Health{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgmtSrv := &http.Server{
		Addr:    "127.0.0.1:9090",
		Handler: management.NewRouter(health, reg),
	}
	go func() {
		if err := mgmtSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("management server stopped", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mgmtSrv.Shutdown(shutdownCtx)
	}()

	sup := supervisor.New(c, sources, sinks, m, health, log)
	return sup.Run(ctx)
}

// buildSources instantiates one source.Adapter per source.<flavour>.<name>
// entry of the config (spec.md 4.3, 6.5).
func buildSources(cfg *config.Config, log *zap.Logger) ([]supervisor.NamedSource, error) {
	var out []supervisor.NamedSource
	for flavour, entries := range cfg.Source {
		for name, sc := range entries {
			label := flavour + "." + name
			switch flavour {
			case "bbk-url":
				out = append(out, supervisor.NamedSource{Name: label, Adapter: source.NewBBKURLAdapter(sc.URL, log)})
			case "bbk-file":
				out = append(out, supervisor.NamedSource{Name: label, Adapter: source.NewBBKFileAdapter(sc.Path, log)})
			case "darc":
				out = append(out, supervisor.NamedSource{
					Name:    label,
					Adapter: source.NewDARCAdapter(sc.WatchDir, sc.ScratchDir, sc.EnableInternet, sc.EnableHamnet, log),
				})
			default:
				return nil, fmt.Errorf("unknown source flavour %q", flavour)
			}
		}
	}
	return out, nil
}

// buildSinks instantiates one sink.Sink per target.<flavour>.<name> entry
// of the config (spec.md 4.7-4.8, 6.5).
func buildSinks(cfg *config.Config, geoIdx *geodata.Index, log *zap.Logger) ([]sink.Sink, error) {
	var out []sink.Sink
	for flavour, entries := range cfg.Target {
		for name, tc := range entries {
			region, err := normalizeRegion(tc.Filter.Geocodes, log)
			if err != nil {
				return nil, fmt.Errorf("target.%s.%s: %w", flavour, name, err)
			}
			rungs, err := config.Rungs(tc.Schedule)
			if err != nil {
				return nil, fmt.Errorf("target.%s.%s: %w", flavour, name, err)
			}
			filter := sink.Filter{
				Region: region,
				MaxAge: tc.Filter.MaxAge.Duration,
				Ladder: schedule.Build(rungs),
			}
			identity := aprs.Identity{
				DstCall: tc.Aprs.DstCall,
				MyCall:  tc.Aprs.MyCall,
				Digis:   tc.Aprs.DigiPath,
			}
			aprsCfg := aprs.DefaultConfig()
			aprsCfg.TruncateComment = tc.Aprs.TruncateComment
			aprsCfg.BeaconEnabled = tc.Aprs.Beacon.Enabled
			if tc.Aprs.Beacon.Prefix != "" {
				aprsCfg.Prefix = tc.Aprs.Beacon.Prefix
			}
			aprsCfg.BeaconTime = tc.Aprs.Beacon.Time
			aprsCfg.Compressed = tc.Aprs.Beacon.Compressed
			aprsCfg.MaxAreas = tc.Aprs.Beacon.MaxAreas
			if tc.Aprs.Bulletin.Mode != "" {
				aprsCfg.BulletinMode = aprs.BulletinMode(tc.Aprs.Bulletin.Mode)
			}
			if tc.Aprs.Bulletin.ID != "" {
				aprsCfg.BulletinID = tc.Aprs.Bulletin.ID
			}

			switch flavour {
			case "serial":
				if tc.Serial == nil {
					return nil, fmt.Errorf("target.serial.%s: serial block is required", name)
				}
				s := buildSerialSink(name, tc, identity, aprsCfg, filter, geoIdx, log)
				out = append(out, s)
			case "tcp":
				if tc.Remote == nil {
					return nil, fmt.Errorf("target.tcp.%s: remote block is required", name)
				}
				addr := fmt.Sprintf("%s:%d", tc.Remote.Host, tc.Remote.Port)
				s := sink.NewTCPSink(name, addr, tc.Kiss.Port, log)
				s.Identity = identity
				s.AprsCfg = aprsCfg
				s.Filter = filter
				s.GeoIdx = geoIdx
				out = append(out, s)
			default:
				return nil, fmt.Errorf("unknown target flavour %q", flavour)
			}
		}
	}
	return out, nil
}

func buildSerialSink(name string, tc config.TargetConfig, identity aprs.Identity, aprsCfg aprs.Config, filter sink.Filter, geoIdx *geodata.Index, log *zap.Logger) *sink.SerialSink {
	s := sink.NewSerialSink(name, tc.Serial.Device, tc.Serial.Baud, tc.Kiss.Port, log)
	s.Identity = identity
	s.AprsCfg = aprsCfg
	s.Filter = filter
	s.GeoIdx = geoIdx
	s.CmdUp = []byte(tc.Serial.CmdUp)
	s.CmdPre = []byte(tc.Serial.CmdPre)
	s.CmdPost = []byte(tc.Serial.CmdPost)
	s.CmdDown = []byte(tc.Serial.CmdDown)
	return s
}

// normalizeRegion applies geo.NormalizeCode to every configured geocode
// and reduces the result (spec.md 4.5). A normalization error is fatal
// unless it is a *geo.TruncatedError, which is a logged warning that still
// yields a usable (truncated) code.
func normalizeRegion(raw []string, log *zap.Logger) (geo.RegionSet, error) {
	codes := make([]string, 0, len(raw))
	for _, r := range raw {
		norm, err := geo.NormalizeCode(r)
		var trunc *geo.TruncatedError
		switch {
		case errors.As(err, &trunc):
			log.Warn("geocode truncated", zap.String("code", trunc.Code), zap.String("truncated", trunc.Truncated))
			codes = append(codes, norm)
		case err != nil:
			return geo.RegionSet{}, err
		default:
			codes = append(codes, norm)
		}
	}
	return geo.Reduce(codes), nil
}
