// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache reads (hit/miss/stale, key, remaining TTL)
//   - Conditional request handling (ETag matches, 304 decisions)
//   - Warm-up worker progress
//
// Info: Normal operation events
//   - Server startup/shutdown
//   - Site invalidations (site id, entries removed)
//   - Cache warm-up completion
//
// Warn: Warning conditions that don't prevent operation
//   - Origin fetch retries
//   - Stale content served after an origin failure
//   - Cache store errors (fallback to origin fetch)
//
// Error: Error conditions requiring attention
//   - Origin fetch failures after retries
//   - Configuration errors
//
// Context Fields:
//   - site_id: published site identifier
//   - slug: page slug
//   - cache_key: full cache key
//   - cache_status: HIT, STALE, MISS, BYPASS
//   - etag: entry ETag
//   - ttl: remaining entry TTL
//   - duration: request or fetch duration
//   - status_code: origin HTTP status code
//   - error_class: origin error classification (client, server, network)
