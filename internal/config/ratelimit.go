package config

import "time"

// RateLimitConfig drives the Redis token bucket in front of /v1.
type RateLimitConfig struct {
	Enabled        bool          `koanf:"rate_limit_enabled"`
	Capacity       int           `koanf:"rate_limit_capacity"`
	RefillTokens   int           `koanf:"rate_limit_refill_tokens"`
	RefillInterval time.Duration `koanf:"rate_limit_refill_interval"`
	TTL            time.Duration `koanf:"rate_limit_ttl"`
	KeyStrategy    string        `koanf:"rate_limit_key_strategy"` // ip | user | route | ip_user | ip_route | user_route | ip_user_route
	Prefix         string        `koanf:"rate_limit_prefix"`
	Debug          bool          `koanf:"rate_limit_debug"`
}

func defaultRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Enabled:        true,
		Capacity:       60,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_user_route",
		Prefix:         "rl",
	}
}

// normalize clamps values the limiter script cannot work with.
func (c *RateLimitConfig) normalize() {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
}
