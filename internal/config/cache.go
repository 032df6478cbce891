package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching is off.
// KeyStrategy determines which parts of the request contribute to the key.
type CacheConfig struct {
	Enabled      bool          `koanf:"cache_enabled"`
	MethodList   []string      `koanf:"cache_methods"`
	TTL          time.Duration `koanf:"cache_ttl"`
	KeyStrategy  string        `koanf:"cache_key_strategy"` // route | method_route | method_route_query | route_query
	Prefix       string        `koanf:"cache_prefix"`
	MaxBodyBytes int           `koanf:"cache_max_body_bytes"`

	// Methods is MethodList upper-cased, built by normalize.
	Methods map[string]bool `koanf:"-"`
}

func defaultCache() CacheConfig {
	return CacheConfig{
		Enabled:      true,
		MethodList:   []string{"GET"},
		TTL:          30 * time.Second,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
}

func (c *CacheConfig) normalize() {
	c.Methods = map[string]bool{}
	for _, m := range c.MethodList {
		if m = strings.TrimSpace(strings.ToUpper(m)); m != "" {
			c.Methods[m] = true
		}
	}
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
}
