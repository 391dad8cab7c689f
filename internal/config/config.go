// Package config holds proxyd's server configuration, in the shape of the
// teacher's own Config/DefaultConfig (see config.go at the repository
// root), extended with the proxy-specific settings SPEC_FULL.md §4.8 adds.
package config

import "time"

// Config represents the proxy's server configuration options.
type Config struct {
	// Hostname is the address the listener binds to.
	Hostname string
	// Port is the TCP port the listener binds to.
	Port int

	// BasicAuthUser and BasicAuthPass, if both set, are the expected
	// Proxy-Authorization credential. Empty disables proxy authentication.
	BasicAuthUser string
	BasicAuthPass string

	// Backlog is the requested listen socket backlog size. netio.Listener
	// does not pass it to gnet.Run, so it has no effect on the listener.
	Backlog int

	// ReadTimeout is a configured limit for reading an entire request. No
	// read deadline is set from it; nothing in proxyd reads this field.
	ReadTimeout time.Duration
	// WriteTimeout is a configured limit for writing a response. No write
	// deadline is set from it; nothing in proxyd reads this field.
	WriteTimeout time.Duration
	// IdleTimeout is passed to gnet as the TCP keep-alive period for client
	// connections. Keep-alive only detects dead peers: an idle connection
	// whose peer is still reachable is not closed.
	IdleTimeout time.Duration

	// MaxHeaderBytes caps the accumulated header block size a single
	// HttpParser will accept before failing with ErrHeaderTooLarge.
	MaxHeaderBytes int

	// MaxPendingWriteBytes caps a Connection's outbound buffer; once
	// exceeded, the session stops reading the opposing peer until the
	// buffer drains below the cap (spec.md §5 backpressure).
	MaxPendingWriteBytes int

	// RateLimit is the allowed new connections per second per source IP;
	// 0 disables rate limiting. RateLimitBurst is the token bucket burst.
	RateLimit      int
	RateLimitBurst int

	// DisableStartupMessage suppresses the "listening on" line that
	// netio.Listener.Run logs at startup.
	DisableStartupMessage bool
}

// DefaultConfig returns a configuration suitable for local development:
//   - Hostname: 127.0.0.1, Port: 8899 (spec.md §6)
//   - ReadTimeout: 5s, WriteTimeout: 10s, IdleTimeout: 60s
//   - MaxHeaderBytes: 64KiB, MaxPendingWriteBytes: 4MiB
//   - RateLimit: 0 (disabled)
func DefaultConfig() Config {
	return Config{
		Hostname:             "127.0.0.1",
		Port:                 8899,
		Backlog:              512,
		ReadTimeout:          5 * time.Second,
		WriteTimeout:         10 * time.Second,
		IdleTimeout:          60 * time.Second,
		MaxHeaderBytes:       64 * 1024,
		MaxPendingWriteBytes: 4 * 1024 * 1024,
		RateLimit:            0,
		RateLimitBurst:       5,
	}
}

// BasicAuthConfigured reports whether proxy authentication is enabled.
func (c Config) BasicAuthConfigured() bool {
	return c.BasicAuthUser != "" && c.BasicAuthPass != ""
}
