package monitor

import "time"

// Default detector thresholds and windows. Any zero field in Config is
// replaced by the matching default.
const (
	defaultWhaleThreshold       = 50.0
	defaultLargeThreshold       = 10.0
	defaultLaunchVelocityLimit  = 20
	defaultAddressVelocityLimit = 10
	defaultPriceChangePct       = 20.0
	defaultWashMinTrades        = 5
	defaultWashRatio            = 0.8
	defaultVolumeMultiplier     = 5.0
	defaultRepeatMinCount       = 5
	defaultRepeatTolerancePct   = 5.0

	defaultVolumeWindow   = 5 * time.Minute
	defaultWashWindow     = 5 * time.Minute
	defaultVelocityWindow = time.Minute
	defaultPriceWindow    = time.Minute
	defaultAlertCooldown  = time.Minute
	defaultSweepInterval  = time.Minute
	defaultAlertRetention = time.Hour
	defaultAlertBuffer    = 256
)

// Volume history sampling is fixed: at most one sample per minute, kept for
// one hour.
const (
	volumeAlpha       = 0.1
	volumeSampleEvery = time.Minute
	volumeHistoryKeep = time.Hour
)

// Config holds detector thresholds and window sizes. SOL thresholds are
// absolute amounts, percentage fields are expressed as percents (20 means
// 20%).
type Config struct {
	WhaleThreshold       float64
	LargeThreshold       float64
	LaunchVelocityLimit  int
	AddressVelocityLimit int
	PriceChangePct       float64
	WashMinTrades        int
	WashRatio            float64
	VolumeMultiplier     float64
	RepeatMinCount       int
	RepeatTolerancePct   float64

	VolumeWindow   time.Duration
	WashWindow     time.Duration
	VelocityWindow time.Duration
	PriceWindow    time.Duration
	AlertCooldown  time.Duration
	SweepInterval  time.Duration
	AlertRetention time.Duration

	// AlertBuffer is the capacity of the Alerts channel.
	AlertBuffer int
}

// DefaultConfig returns the stock detector configuration.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.WhaleThreshold <= 0 {
		c.WhaleThreshold = defaultWhaleThreshold
	}
	if c.LargeThreshold <= 0 {
		c.LargeThreshold = defaultLargeThreshold
	}
	if c.LaunchVelocityLimit <= 0 {
		c.LaunchVelocityLimit = defaultLaunchVelocityLimit
	}
	if c.AddressVelocityLimit <= 0 {
		c.AddressVelocityLimit = defaultAddressVelocityLimit
	}
	if c.PriceChangePct <= 0 {
		c.PriceChangePct = defaultPriceChangePct
	}
	if c.WashMinTrades <= 0 {
		c.WashMinTrades = defaultWashMinTrades
	}
	if c.WashRatio <= 0 {
		c.WashRatio = defaultWashRatio
	}
	if c.VolumeMultiplier <= 0 {
		c.VolumeMultiplier = defaultVolumeMultiplier
	}
	if c.RepeatMinCount <= 0 {
		c.RepeatMinCount = defaultRepeatMinCount
	}
	if c.RepeatTolerancePct <= 0 {
		c.RepeatTolerancePct = defaultRepeatTolerancePct
	}
	if c.VolumeWindow <= 0 {
		c.VolumeWindow = defaultVolumeWindow
	}
	if c.WashWindow <= 0 {
		c.WashWindow = defaultWashWindow
	}
	if c.VelocityWindow <= 0 {
		c.VelocityWindow = defaultVelocityWindow
	}
	if c.PriceWindow <= 0 {
		c.PriceWindow = defaultPriceWindow
	}
	if c.AlertCooldown <= 0 {
		c.AlertCooldown = defaultAlertCooldown
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = defaultSweepInterval
	}
	if c.AlertRetention <= 0 {
		c.AlertRetention = defaultAlertRetention
	}
	if c.AlertBuffer <= 0 {
		c.AlertBuffer = defaultAlertBuffer
	}
	return c
}

// maxWindow returns the widest detector window; the sweeper retains raw
// trades and prices for twice this span.
func (c Config) maxWindow() time.Duration {
	maxW := c.VolumeWindow
	for _, w := range []time.Duration{c.WashWindow, c.VelocityWindow, c.PriceWindow} {
		if w > maxW {
			maxW = w
		}
	}
	return maxW
}
