package interp

// Clock reports the current time in milliseconds. Injectable so tests and
// replay tooling can drive render time explicitly.
type Clock func() float64

// Config holds per-engine interpolation settings. All times are in
// milliseconds, distances in world units.
type Config struct {
	// Delay is the render-time offset subtracted from the clock: the
	// deliberate jitter-buffer lag that keeps a bracketing snapshot pair
	// available at the cost of fixed input-to-display latency.
	Delay float64

	// MaxExtrapolation bounds how far past the newest sample a target
	// time may fall before the engine stops projecting and freezes on
	// the last known state.
	MaxExtrapolation float64

	// SnapThreshold is the Euclidean distance beyond which a position
	// change counts as a teleport rather than continuous motion.
	SnapThreshold float64

	// MaxBufferSize caps the per-entity snapshot buffer; oldest samples
	// are evicted first.
	MaxBufferSize int
}

// DefaultConfig returns the default interpolation configuration.
func DefaultConfig() Config {
	return Config{
		Delay:            100,
		MaxExtrapolation: 200,
		SnapThreshold:    100,
		MaxBufferSize:    20,
	}
}

// withDefaults fills unset fields so a partially populated Config behaves
// sanely. Delay may legitimately be zero.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxExtrapolation <= 0 {
		c.MaxExtrapolation = d.MaxExtrapolation
	}
	if c.SnapThreshold <= 0 {
		c.SnapThreshold = d.SnapThreshold
	}
	if c.MaxBufferSize <= 0 {
		c.MaxBufferSize = d.MaxBufferSize
	}
	return c
}
