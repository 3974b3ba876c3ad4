// Package logging configures the zerolog logger shared by every component.
//
// The terminal belongs to the editor while it runs, so the default output is
// a log file rather than stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	Console    bool   `mapstructure:"console"`
	TimeFormat string `mapstructure:"time_format"`
}

// DefaultConfig logs at info level to DefaultFile.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		File:       DefaultFile(),
		TimeFormat: time.RFC3339,
	}
}

// DefaultFile returns $XDG_STATE_HOME/emoted/emoted.log, falling back to
// the user cache directory and then the temp directory.
func DefaultFile() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		if cache, err := os.UserCacheDir(); err == nil {
			dir = cache
		} else {
			dir = os.TempDir()
		}
	}
	return filepath.Join(dir, "emoted", "emoted.log")
}

// ParseLevel parses a level name case-insensitively. "warning" is accepted
// for warn. Unknown names return an error and info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		s = "warn"
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// Setup builds the logger described by cfg and installs it as the global
// zerolog logger. The returned closer releases the log file; it is a no-op
// when no file was opened.
func Setup(cfg Config) (zerolog.Logger, io.Closer) {
	var writers []io.Writer
	var closer io.Closer = nopCloser{}
	var fileErr error

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: cfg.TimeFormat})
	}

	if cfg.File != "" {
		file, err := openLogFile(cfg.File)
		if err != nil {
			fileErr = err
		} else {
			writers = append(writers, file)
			closer = file
		}
	}

	if len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: cfg.TimeFormat})
	}

	level, levelErr := ParseLevel(cfg.Level)

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()
	log.Logger = logger

	if fileErr != nil {
		logger.Error().Err(fileErr).Str("file", cfg.File).Msg("failed to open log file")
	}
	if levelErr != nil {
		logger.Warn().Str("configured_level", cfg.Level).Msg("invalid log level, defaulting to info")
	}
	logger.Debug().Str("level", level.String()).Msg("logger initialized")

	return logger, closer
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

// WithComponent returns logger with the component field set.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
