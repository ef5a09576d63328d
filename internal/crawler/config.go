package crawler

import "fmt"

// Config holds the walk parameters. It is decoupled from Viper; the config
// package builds it.
type Config struct {
	// BaseID is the identifier used when no checkpoint exists and the anchor
	// for reseeding.
	BaseID int64
	// StartID is the identifier loaded from the checkpoint store. Zero means BaseID.
	StartID int64
	// MaxMisses is how many consecutive missing pages are tolerated before
	// retreating to the last known-good identifier.
	MaxMisses int
	// MaxHours is the freshness window. Ads at most this old are held back.
	MaxHours float64
	// IgnoreAuto drops stale ads posted by automated posters instead of yielding them.
	IgnoreAuto bool
	// ReseedSpread bounds the random offset added to BaseID on a reseed.
	ReseedSpread int
}

// Multipliers are the candidate step growth factors after a stale ad.
var Multipliers = []float64{1.5, 1.6, 1.7, 1.8, 1.9, 2.0}

// DefaultConfig mirrors the production bot settings.
func DefaultConfig() Config {
	return Config{
		BaseID:       41925759,
		MaxMisses:    10,
		MaxHours:     0.5,
		IgnoreAuto:   true,
		ReseedSpread: 1000,
	}
}

// Validate checks for obviously bad configuration values.
func (c Config) Validate() error {
	if c.BaseID <= 0 {
		return fmt.Errorf("crawler.base_id must be > 0")
	}
	if c.StartID < 0 {
		return fmt.Errorf("crawler start id must be >= 0")
	}
	if c.MaxMisses <= 0 {
		return fmt.Errorf("crawler.max_misses must be > 0")
	}
	if c.MaxHours < 0 {
		return fmt.Errorf("crawler.max_hours must be >= 0")
	}
	if c.ReseedSpread < 0 {
		return fmt.Errorf("crawler.reseed_spread must be >= 0")
	}
	return nil
}
