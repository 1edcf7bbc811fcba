package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the quota for one method and path. A Path ending in "/"
// covers every path below it with a single shared bucket.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int
	Window time.Duration
	// Burst defaults to Limit
	Burst int
}

// tier is one quota shared by a group of routes
type tier struct {
	limit  int
	window time.Duration
	burst  int
}

var (
	// generation drives three remote models and can hold a connection for minutes
	generationTier = tier{limit: 10, window: time.Hour, burst: 2}

	// history reads are single database queries
	historyTier = tier{limit: 120, window: time.Minute, burst: 20}
)

func (t tier) routes(method string, paths ...string) []EndpointConfig {
	out := make([]EndpointConfig, len(paths))
	for i, p := range paths {
		out[i] = EndpointConfig{Path: p, Method: method, Limit: t.limit, Window: t.window, Burst: t.burst}
	}
	return out
}

// DefaultEndpointConfigs returns the per-route quotas of the API
func DefaultEndpointConfigs() []EndpointConfig {
	return append(
		generationTier.routes("POST", "/run", "/run/stream"),
		historyTier.routes("GET", "/runs", "/runs/")...,
	)
}

// env reads RATE_LIMIT_* settings. Unset or unparsable values fall back.
type env func(string) string

func (e env) intOr(key string, fallback int) int {
	if n, err := strconv.Atoi(e(key)); err == nil {
		return n
	}
	return fallback
}

func (e env) boolOr(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(e(key)); err == nil {
		return b
	}
	return fallback
}

func (e env) durationOr(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(e(key)); err == nil {
		return d
	}
	return fallback
}

// ipSet parses a comma separated list of client IPs
func (e env) ipSet(key string) map[string]bool {
	out := make(map[string]bool)
	for _, ip := range strings.Split(e(key), ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			out[ip] = true
		}
	}
	return out
}

// LoadConfig builds the limiter configuration from RATE_LIMIT_* variables
func LoadConfig() *Config {
	return loadConfig(os.Getenv)
}

func loadConfig(e env) *Config {
	if !e.boolOr("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    e.intOr("RATE_LIMIT_DEFAULT_LIMIT", 1000),
		DefaultWindow:   e.durationOr("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: e.durationOr("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTimeout:     e.durationOr("RATE_LIMIT_IDLE_TIMEOUT", time.Hour),
		Whitelist:       e.ipSet("RATE_LIMIT_WHITELIST"),
		Blacklist:       e.ipSet("RATE_LIMIT_BLACKLIST"),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}
