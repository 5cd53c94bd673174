package sse

import "time"

// Config holds configuration for event stream connections
type Config struct {
	// KeepAliveInterval is how often a comment line is sent to keep proxies
	// from closing an idle stream
	KeepAliveInterval time.Duration

	// IncludeIDs numbers every event with an id: field (debug builds)
	IncludeIDs bool
}

// DefaultConfig returns the default stream configuration.
// 10 seconds is safe for Vercel Edge Runtime and most proxies.
func DefaultConfig() *Config {
	return &Config{
		KeepAliveInterval: 10 * time.Second,
	}
}
