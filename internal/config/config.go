// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Fetch    FetchConfig
	Sample   SampleConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing the response (default: 90s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"90s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// CompressLevel is the gzip level used by the response compressor (default: 5)
	CompressLevel int `env:"SERVER_COMPRESS_LEVEL" default:"5"`
}

// FetchConfig holds outbound request settings for sampled sources.
type FetchConfig struct {
	// Timeout bounds a single outbound request including body transfer (default: 30s)
	Timeout time.Duration `env:"FETCH_TIMEOUT" default:"30s"`

	// UserAgent is sent on every outbound request
	UserAgent string `env:"FETCH_USER_AGENT" default:"sourcefields/1.0"`

	// MaxBodyBytes caps fully-buffered responses such as ArcGIS metadata (default: 10MB)
	MaxBodyBytes int64 `env:"FETCH_MAX_BODY_BYTES" default:"10485760"`

	// MaxConcurrent is the maximum number of sources sampled in parallel (default: 20)
	MaxConcurrent int `env:"FETCH_MAX_CONCURRENT" default:"20"`

	// MaxWaitTime is how long a request waits for a sampling slot (default: 10s)
	MaxWaitTime time.Duration `env:"FETCH_MAX_WAIT_TIME" default:"10s"`
}

// SampleConfig holds preview extraction settings.
type SampleConfig struct {
	// Limit is the number of sample records returned per source (default: 10)
	Limit int `env:"SAMPLE_LIMIT" default:"10"`

	// CSVDelimiter is the single-character column separator (default: ,)
	CSVDelimiter string `env:"SAMPLE_CSV_DELIMITER" default:","`

	// CSVLazyQuotes tolerates bare quotes inside unquoted fields (default: true)
	CSVLazyQuotes bool `env:"SAMPLE_CSV_LAZY_QUOTES" default:"true"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Delimiter returns the CSV delimiter as a rune.
func (c *SampleConfig) Delimiter() rune {
	for _, r := range c.CSVDelimiter {
		return r
	}
	return ','
}
