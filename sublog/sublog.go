// Package sublog defines the structured logging surface every subray
// package depends on. There is no global logger: a zerolog.Logger is
// always passed in explicitly by the caller, matching the library's
// single-threaded, caller-owns-everything resource model.
package sublog

import (
	"io"

	"github.com/rs/zerolog"
)

// New returns a logger writing human-readable output to w, suitable
// for CLI tools and tests that embed this library.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
}

// Nop returns a logger that discards all output, for call sites that
// don't want to pass a real one through (unit tests, benchmarks).
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// Component tags a logger with the subray package emitting through it,
// e.g. sublog.Component(logger, "glyph").
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
