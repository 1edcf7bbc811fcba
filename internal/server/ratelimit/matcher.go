package ratelimit

import (
	"strings"
)

// unlimited marks endpoints that are never throttled
var unlimited = EndpointConfig{}

// MatchEndpoint matches a request path and method to an endpoint configuration.
// Returns the matching EndpointConfig or nil if no match is found.
// Path matching supports prefix matching (e.g., "/runs/" matches "/runs/{id}").
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	// Probes and scrapes are unlimited
	if method == "GET" && (path == "/health" || path == "/metrics") {
		e := unlimited
		return &e
	}

	for i := range configs {
		config := &configs[i]
		if config.Path == path && config.Method == method {
			return config
		}
	}

	for i := range configs {
		config := &configs[i]
		if config.Method == method && strings.HasSuffix(config.Path, "/") {
			if strings.HasPrefix(path, config.Path) {
				return config
			}
		}
	}

	return nil
}

// key returns the bucket path for a request matched by this config.
// Prefix configs share a single bucket across every path they match.
func (c *EndpointConfig) key(path string) string {
	if strings.HasSuffix(c.Path, "/") {
		return c.Path
	}
	return path
}
