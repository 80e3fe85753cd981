// Package logctx provides context-based logger injection and extraction.
//
// Commands attach a logger enriched with command-level fields (output path,
// run id) so that library code such as corpus writing and benchmark runs
// logs with the same fields without taking a logger parameter.
//
//	ctx := logctx.WithLogger(ctx, logging.WithPhase("generate"))
//	log := logctx.FromContext(ctx)
package logctx

import (
	"context"

	"github.com/eunmann/urlcorpus/pkg/logging"
	"github.com/rs/zerolog"
)

// loggerKey is the private key type for storing loggers in context.
type loggerKey struct{}

// DefaultLogger returns the process-wide logger configured by logging.Init.
func DefaultLogger() zerolog.Logger {
	return *logging.L()
}

// WithLogger returns a new context with the given logger attached.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext extracts the logger from the context. If the context is nil
// or does not contain a logger, returns the default logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return DefaultLogger()
	}
	if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return logger
	}
	return DefaultLogger()
}

// WithStr returns a new context with a logger that has the specified string field added.
func WithStr(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, logger)
}

// WithInt returns a new context with a logger that has the specified int field added.
func WithInt(ctx context.Context, key string, value int) context.Context {
	logger := FromContext(ctx).With().Int(key, value).Logger()
	return WithLogger(ctx, logger)
}
