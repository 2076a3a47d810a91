// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logger builds the zerolog logger used for diagnostics. Per-file
// status lines are not logged here; they are printed to the command's
// output writer.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the logger.
type Options struct {
	// Level is one of trace, debug, info, warn, error (default info).
	Level string
	// Format is "console" (default) or "json".
	Format string
	// Writer receives log output (default os.Stderr).
	Writer io.Writer
}

// New builds a logger from opt. It never fails; unknown levels fall back to info.
func New(opt Options) zerolog.Logger {
	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}
	if strings.ToLower(strings.TrimSpace(opt.Format)) != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(ParseLevel(opt.Level)).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
