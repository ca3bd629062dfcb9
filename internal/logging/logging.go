// Package logging builds the application logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Prefix is written ahead of every log message.
const Prefix = "stmtgen"

// Config selects the level, encoding and destination of log output.
type Config struct {
	// Level is one of debug, info, warn or error.
	Level string

	// Format is text, logfmt or json.
	Format string

	// File, when set, receives a copy of every message.
	File string

	// Output is the console destination. Defaults to os.Stderr.
	Output io.Writer
}

// New returns a logger for cfg and a closer for the log file, if any.
// The closer is never nil.
func New(cfg Config) (*log.Logger, io.Closer, error) {
	level := log.InfoLevel
	if cfg.Level != "" {
		lvl, err := log.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, nopCloser{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = lvl
	}

	formatter, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, nopCloser{}, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, nopCloser{}, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nopCloser{}, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(out, f)
		closer = f
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Prefix:          Prefix,
		Level:           level,
		Formatter:       formatter,
	})
	return logger, closer, nil
}

func parseFormat(format string) (log.Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text", "console":
		return log.TextFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	}
	return log.TextFormatter, fmt.Errorf("invalid log format %q", format)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
