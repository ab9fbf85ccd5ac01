// Package config loads and validates the gateway's single YAML document
// (spec.md 6.5), decoding it into nested structs mirroring the key table
// one-for-one.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/mikecamilleri/mowasgw/internal/schedule"
	"gopkg.in/yaml.v3"
)

// Config is the top-level document.
type Config struct {
	Logging LoggingConfig                    `yaml:"logging"`
	Geodata GeodataConfig                    `yaml:"geodata"`
	Cache   CacheConfig                      `yaml:"cache"`
	Source  map[string]map[string]SourceConfig `yaml:"source"` // flavour -> name -> config
	Target  map[string]map[string]TargetConfig `yaml:"target"` // flavour -> name -> config
}

// LoggingConfig is the logging.{level,console,file} key group.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
	File    string `yaml:"file"`
}

// GeodataConfig is the geodata.path key.
type GeodataConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig is the cache.{path,purge} key group.
type CacheConfig struct {
	Path  string   `yaml:"path"`
	Purge Duration `yaml:"purge"`
}

// SourceConfig covers every source flavour's fields (spec.md 4.3); which
// ones apply depends on the flavour key the source is nested under.
type SourceConfig struct {
	// bbk-url
	URL string `yaml:"url"`
	// bbk-file
	Path string `yaml:"path"`
	// darc
	WatchDir       string `yaml:"watch_dir"`
	ScratchDir     string `yaml:"scratch_dir"`
	EnableInternet bool   `yaml:"enable_internet"`
	EnableHamnet   bool   `yaml:"enable_hamnet"`
}

// TargetConfig is one target.<flavour>.<name> entry.
type TargetConfig struct {
	Filter   FilterConfig        `yaml:"filter"`
	Schedule map[string]Duration `yaml:"schedule"` // threshold string -> interval
	Aprs     AprsConfig          `yaml:"aprs"`
	Kiss     KissConfig          `yaml:"kiss"`
	Serial   *SerialConfig       `yaml:"serial"`
	Remote   *RemoteConfig       `yaml:"remote"`
}

// FilterConfig is target.<flavour>.<name>.filter.{geocodes,max_age}.
type FilterConfig struct {
	Geocodes []string `yaml:"geocodes"`
	MaxAge   Duration `yaml:"max_age"`
}

// AprsConfig is target.<flavour>.<name>.aprs.*.
type AprsConfig struct {
	DstCall         string        `yaml:"dstcall"`
	MyCall          string        `yaml:"mycall"`
	DigiPath        []string      `yaml:"digipath"`
	TruncateComment bool          `yaml:"truncate_comment"`
	Beacon          BeaconConfig  `yaml:"beacon"`
	Bulletin        BulletinConfig `yaml:"bulletin"`
}

// BeaconConfig is target.<flavour>.<name>.aprs.beacon.*.
type BeaconConfig struct {
	Enabled    bool `yaml:"enabled"`
	Prefix     string `yaml:"prefix"`
	Time       bool `yaml:"time"`
	Compressed bool `yaml:"compressed"`
	MaxAreas   int  `yaml:"max_areas"`
}

// BulletinConfig is target.<flavour>.<name>.aprs.bulletin.*.
type BulletinConfig struct {
	Mode string `yaml:"mode"`
	ID   string `yaml:"id"`
}

// KissConfig is target.<flavour>.<name>.kiss.port: a single KISS port
// number read from the key `port`; there is no `ports` key.
type KissConfig struct {
	Port int `yaml:"port"`
}

// SerialConfig is target.<flavour>.<name>.serial.*.
type SerialConfig struct {
	Device  string `yaml:"device"`
	Baud    int    `yaml:"baud"`
	CmdUp   string `yaml:"cmd_up"`
	CmdPre  string `yaml:"cmd_pre"`
	CmdPost string `yaml:"cmd_post"`
	CmdDown string `yaml:"cmd_down"`
}

// RemoteConfig is target.<flavour>.<name>.remote.{host,port}.
type RemoteConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

var validLogLevels = map[string]bool{
	"error": true, "warning": true, "info": true, "debug": true,
}

var validBulletinModes = map[string]bool{
	"never": true, "fallback": true, "always": true,
}

// Load reads the YAML document at path, applies defaults, and validates
// required fields, returning a typed error describing every failure found.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: cannot parse %q: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed for %q: %w", path, err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	for flavour, sources := range cfg.Target {
		for name, t := range sources {
			if t.Aprs.DstCall == "" {
				t.Aprs.DstCall = "APMOWA"
			}
			if len(t.Aprs.DigiPath) == 0 {
				t.Aprs.DigiPath = []string{"WIDE1-1"}
			}
			cfg.Target[flavour][name] = t
		}
	}
}

func validate(cfg *Config) error {
	var errs []error

	if !validLogLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Errorf("logging.level %q must be one of: error, warning, info, debug", cfg.Logging.Level))
	}

	for flavour, sources := range cfg.Source {
		for name, s := range sources {
			prefix := fmt.Sprintf("source.%s.%s", flavour, name)
			switch flavour {
			case "bbk-url":
				if s.URL == "" {
					errs = append(errs, fmt.Errorf("%s: url is required", prefix))
				}
			case "bbk-file":
				if s.Path == "" {
					errs = append(errs, fmt.Errorf("%s: path is required", prefix))
				}
			case "darc":
				if s.WatchDir == "" {
					errs = append(errs, fmt.Errorf("%s: watch_dir is required", prefix))
				}
				if s.ScratchDir == "" {
					errs = append(errs, fmt.Errorf("%s: scratch_dir is required", prefix))
				}
			default:
				errs = append(errs, fmt.Errorf("%s: unknown source flavour %q", prefix, flavour))
			}
		}
	}

	for flavour, sinks := range cfg.Target {
		for name, t := range sinks {
			prefix := fmt.Sprintf("target.%s.%s", flavour, name)
			if t.Aprs.MyCall == "" {
				errs = append(errs, fmt.Errorf("%s: aprs.mycall is required", prefix))
			}
			if t.Aprs.Bulletin.Mode != "" && !validBulletinModes[t.Aprs.Bulletin.Mode] {
				errs = append(errs, fmt.Errorf("%s: aprs.bulletin.mode %q must be one of: never, fallback, always", prefix, t.Aprs.Bulletin.Mode))
			}
			switch flavour {
			case "serial":
				if t.Serial == nil || t.Serial.Device == "" {
					errs = append(errs, fmt.Errorf("%s: serial.device is required", prefix))
				}
			case "tcp":
				if t.Remote == nil || t.Remote.Host == "" {
					errs = append(errs, fmt.Errorf("%s: remote.host is required", prefix))
				}
			default:
				errs = append(errs, fmt.Errorf("%s: unknown target flavour %q", prefix, flavour))
			}
		}
	}

	return errors.Join(errs...)
}

// Rungs converts a schedule config map into the ordered []schedule.Rung
// Build expects, sorting by threshold ascending (YAML maps carry no
// ordering of their own).
func Rungs(sched map[string]Duration) ([]schedule.Rung, error) {
	type kv struct {
		threshold string
		interval  Duration
	}
	pairs := make([]kv, 0, len(sched))
	for k, v := range sched {
		pairs = append(pairs, kv{k, v})
	}

	parsed := make([]schedule.Rung, len(pairs))
	for i, p := range pairs {
		th, err := ParseDuration(p.threshold)
		if err != nil {
			return nil, fmt.Errorf("config: schedule threshold %q: %w", p.threshold, err)
		}
		parsed[i] = schedule.Rung{Threshold: th, Interval: p.interval.Duration}
	}

	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Threshold < parsed[j].Threshold })
	return parsed, nil
}
