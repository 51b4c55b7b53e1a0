// Package common holds process-level helpers shared by every binary in
// this repository: logger construction and the build-time version string.
package common

import (
	"log/slog"
	"os"
)

// LoggingOpts configures the process logger.
type LoggingOpts struct {
	// Debug lowers the log level from Info to Debug.
	Debug bool

	// JSON switches the handler from human-readable text to JSON lines.
	JSON bool

	// Service is attached to every record as the "service" attribute.
	Service string

	// Version is attached to every record as the "version" attribute.
	Version string
}

// SetupLogger builds the slog logger every binary hands to its
// collaborators. Output goes to stdout so container runtimes collect it.
func SetupLogger(opts *LoggingOpts) (log *slog.Logger) {
	logLevel := slog.LevelInfo
	if opts.Debug {
		logLevel = slog.LevelDebug
	}

	if opts.JSON {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	} else {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	}

	if opts.Service != "" {
		log = log.With("service", opts.Service)
	}

	if opts.Version != "" {
		log = log.With("version", opts.Version)
	}

	return log
}
