// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup sets the global level and output format. Console output is the
// default; json switches to one JSON object per line.
func Setup(level string, json bool) error {
	return SetupWriter(os.Stderr, level, json)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, level string, json bool) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if json {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return nil
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    true,
	}).With().Timestamp().Logger()
	return nil
}

// ParseLevel accepts debug, info, warn (or warning) and error. Empty means
// info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch level {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	switch lvl {
	case zerolog.DebugLevel, zerolog.InfoLevel, zerolog.WarnLevel, zerolog.ErrorLevel:
		return lvl, nil
	}
	return zerolog.NoLevel, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", level)
}
