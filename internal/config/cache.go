package config

import (
    "strings"
    "time"
)

// CacheConfig controls the Redis response cache applied to read-heavy
// listing routes. Disabled config or an absent Redis yields a
// pass-through.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    KeyStrategy  string
    Methods      map[string]bool
    MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* environment variables. By default only
// GET responses are cached, for thirty seconds, which is enough to take
// the consultant grid and review listings off the hot path without
// serving stale bookings for long.
func LoadCacheConfig() CacheConfig {
    methods := map[string]bool{}
    for _, m := range strings.Split(envStr("CACHE_METHODS", "GET"), ",") {
        if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
            methods[m] = true
        }
    }
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        Prefix:       envStr("CACHE_PREFIX", "cache"),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Methods:      methods,
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    if cfg.TTL <= 0 {
        cfg.TTL = 30 * time.Second
    }
    return cfg
}
