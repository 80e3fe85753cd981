// Package logging provides structured logging for urlcorpus using zerolog.
package logging

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger *zerolog.Logger
	pretty atomic.Bool
)

func init() {
	// Default to JSON logging at info level
	l := zerolog.New(os.Stderr).With().Timestamp().Logger()
	logger = &l
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// Init configures the global logger.
// If debug is true, sets log level to Debug.
// If human is true, uses a human-friendly console writer and adds
// human-readable companions to byte and count fields.
func Init(debug bool, human bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var output zerolog.LevelWriter
	if human {
		output = zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			NoColor:    false,
		}}
	} else {
		output = zerolog.LevelWriterAdapter{Writer: os.Stderr}
	}

	l := zerolog.New(output).With().Timestamp().Logger()
	logger = &l
	pretty.Store(human)
}

// L returns the base logger.
func L() *zerolog.Logger {
	return logger
}

// WithPhase returns a logger with the phase field set.
func WithPhase(phase string) zerolog.Logger {
	return logger.With().Str("phase", phase).Logger()
}

// SetLogger allows overriding the global logger (useful for testing).
func SetLogger(l zerolog.Logger) {
	logger = &l
}

// SetPrettyMode toggles the *_h human-readable companion fields.
func SetPrettyMode(on bool) {
	pretty.Store(on)
}

// IsPrettyMode reports whether human-readable companion fields are emitted.
func IsPrettyMode() bool {
	return pretty.Load()
}
