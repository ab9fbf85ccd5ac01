package config

import (
	"fmt"
	"strconv"
	"time"
)

// Duration decodes spec.md 6.5's "<N>[m|h|d|w]" grammar: a bare integer
// with an optional single-letter unit suffix, defaulting to minutes when
// the suffix is omitted.
type Duration struct {
	time.Duration
}

var unitMultiplier = map[byte]time.Duration{
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseDuration parses one "<N>[m|h|d|w]" value.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("config: empty duration")
	}

	unit := time.Minute
	numPart := s
	last := s[len(s)-1]
	if mult, ok := unitMultiplier[last]; ok {
		unit = mult
		numPart = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	return time.Duration(n) * unit, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler, round-tripping through minutes.
func (d Duration) MarshalYAML() (interface{}, error) {
	return fmt.Sprintf("%dm", int64(d.Duration/time.Minute)), nil
}
