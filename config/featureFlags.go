package config

import "time"

// RateLimitConfig enables the per-client request limiter backed by Redis.
//
// Set via env:
// - RATE_LIMIT_ENABLED=true
// - RATE_LIMIT_WINDOW_SECONDS=60
// - RATE_LIMIT_MAX_REQUESTS=600
type RateLimitConfig struct {
	Enabled     bool
	MaxRequests int64
	Window      time.Duration
}

func loadRateLimitConfig() RateLimitConfig {
	max := intFromEnv("RATE_LIMIT_MAX_REQUESTS", 600)
	if max <= 0 {
		max = 600
	}
	window := intFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)
	if window <= 0 {
		window = 60
	}
	return RateLimitConfig{
		Enabled:     boolFromEnv("RATE_LIMIT_ENABLED"),
		MaxRequests: int64(max),
		Window:      time.Duration(window) * time.Second,
	}
}

// ReportCacheTTLOrZero is the loss summary cache TTL, or zero when caching is off.
func (c *Config) ReportCacheTTLOrZero() time.Duration {
	if !c.ReportCacheOn {
		return 0
	}
	return c.ReportCacheTTL
}
