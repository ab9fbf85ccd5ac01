package aprs

// BulletinMode selects when a bulletin frame is emitted alongside or
// instead of position objects (spec.md 4.7.8).
type BulletinMode string

const (
	BulletinNever    BulletinMode = "never"
	BulletinFallback BulletinMode = "fallback"
	BulletinAlways   BulletinMode = "always"
)

// Config holds everything the emission engine needs to turn a record into
// frames: APRS identity/routing plus beacon and bulletin behaviour
// (spec.md 6.5, keys `target.<flavour>.<name>.aprs.*`).
type Config struct {
	// Identity/routing
	Prefix          string // object-name prefix, default "MOWA"
	TruncateComment bool

	// Beacon (object/item) behaviour
	BeaconEnabled bool
	BeaconTime    bool
	Compressed    bool
	MaxAreas      int

	// Bulletin behaviour
	BulletinMode BulletinMode
	BulletinID   string // 6-char bulletin id, default "0MOWAS"
}

// DefaultConfig returns the configuration defaults named throughout spec.md
// 4.7 and 6.5.
func DefaultConfig() Config {
	return Config{
		Prefix:          "MOWA",
		TruncateComment: true,
		BeaconEnabled:   true,
		BeaconTime:      true,
		BulletinMode:    BulletinFallback,
		BulletinID:      "0MOWAS",
	}
}

// normalizeBulletinMode falls back to BulletinFallback, with a caller-
// visible flag, when mode is unrecognised (spec.md 4.7.8).
func normalizeBulletinMode(mode BulletinMode) (BulletinMode, bool) {
	switch mode {
	case BulletinNever, BulletinFallback, BulletinAlways:
		return mode, false
	default:
		return BulletinFallback, true
	}
}
