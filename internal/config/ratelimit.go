package config

import "time"

// RateLimitConfig configures one Redis token bucket. Zero numeric and
// string fields are filled from the limiter's defaults by normalize, so
// both limiters share the type but not the defaults.
type RateLimitConfig struct {
	Enabled        bool          `env:"ENABLED" env-default:"true"`
	Capacity       int           `env:"CAPACITY"`
	RefillTokens   int           `env:"REFILL_TOKENS"`
	RefillInterval time.Duration `env:"REFILL_INTERVAL"`
	TTL            time.Duration `env:"TTL"`
	KeyStrategy    string        `env:"KEY_STRATEGY"`
	Prefix         string        `env:"PREFIX"`
	Debug          bool          `env:"DEBUG"`
}

// 100 requests per 15 minutes per client on the API as a whole.
var defaultAPILimit = RateLimitConfig{
	Capacity:       100,
	RefillTokens:   1,
	RefillInterval: 9 * time.Second,
	TTL:            15 * time.Minute,
	KeyStrategy:    "ip",
	Prefix:         "rl:api",
}

// 10 requests per 15 minutes per client on register and login.
var defaultAuthLimit = RateLimitConfig{
	Capacity:       10,
	RefillTokens:   1,
	RefillInterval: 90 * time.Second,
	TTL:            15 * time.Minute,
	KeyStrategy:    "ip_route",
	Prefix:         "rl:auth",
}

func (c *RateLimitConfig) normalize(def RateLimitConfig) {
	if c.Capacity == 0 {
		c.Capacity = def.Capacity
	}
	if c.RefillTokens == 0 {
		c.RefillTokens = def.RefillTokens
	}
	if c.RefillInterval == 0 {
		c.RefillInterval = def.RefillInterval
	}
	if c.TTL == 0 {
		c.TTL = def.TTL
	}
	if c.KeyStrategy == "" {
		c.KeyStrategy = def.KeyStrategy
	}
	if c.Prefix == "" {
		c.Prefix = def.Prefix
	}
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	minTTL := 5 * c.RefillInterval
	if c.TTL < minTTL {
		c.TTL = minTTL
	}
}
