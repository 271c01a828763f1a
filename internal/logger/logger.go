// Package logger configures the structured slog logger used across localmcp.
//
// All output goes to stderr by default so the stdio transport keeps stdout
// reserved for protocol frames.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat defines how log messages are formatted
type LogFormat int

// Log format constants
const (
	TEXT LogFormat = iota
	JSON
)

// LevelCritical sits above slog.LevelError for failures that stop the server.
const LevelCritical = slog.Level(12)

var levelNames = map[slog.Level]string{
	slog.LevelDebug: "DEBUG",
	slog.LevelInfo:  "INFO",
	slog.LevelWarn:  "WARNING",
	slog.LevelError: "ERROR",
	LevelCritical:   "CRITICAL",
}

// Config holds configuration options for the logger
type Config struct {
	Level       slog.Level
	Format      LogFormat
	Output      io.Writer
	DefaultTags map[string]interface{}
}

// DefaultConfig returns a default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:       slog.LevelInfo,
		Format:      TEXT,
		Output:      os.Stderr,
		DefaultTags: map[string]interface{}{"service": "localmcp"},
	}
}

// New creates a new logger with the given configuration
func New(config *Config) *slog.Logger {
	if config == nil {
		config = DefaultConfig()
	}

	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:       config.Level,
		AddSource:   config.Level <= slog.LevelDebug,
		ReplaceAttr: replaceLevelName,
	}

	var handler slog.Handler
	if config.Format == JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	for k, v := range config.DefaultTags {
		logger = logger.With(k, v)
	}
	return logger
}

// replaceLevelName renders the custom levels by name instead of "ERROR+4".
func replaceLevelName(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	a.Value = slog.StringValue(LevelName(level))
	return a
}

// LevelName returns the display name for a level
func LevelName(level slog.Level) string {
	if name, ok := levelNames[level]; ok {
		return name
	}
	return level.String()
}

// ParseLevel converts a level name to a slog.Level.
// Names are case-insensitive; WARN is accepted as an alias for WARNING.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARNING", "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	case "CRITICAL", "FATAL":
		return LevelCritical, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// ParseFormat converts a format name to a LogFormat
func ParseFormat(format string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text", "":
		return TEXT, nil
	case "json":
		return JSON, nil
	default:
		return TEXT, fmt.Errorf("unknown log format %q", format)
	}
}

// Critical logs msg at LevelCritical
func Critical(logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), LevelCritical, msg, args...)
}

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger *slog.Logger) {
	slog.SetDefault(logger)
}

// GetLogger returns the default logger tagged with a component name
func GetLogger(name string) *slog.Logger {
	return slog.Default().With("component", name)
}
