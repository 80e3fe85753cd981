// Package corpus writes, reads and verifies files of synthetic benchmark URLs.
//
// A text corpus holds one URL per line, each terminated by '\n', with no
// header. Writing streams records through a bounded buffer, so memory use
// does not depend on the record count.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/eunmann/urlcorpus/internal/logctx"
	"github.com/eunmann/urlcorpus/pkg/fileutil"
	"github.com/eunmann/urlcorpus/pkg/logging"
	"github.com/eunmann/urlcorpus/pkg/urlgen"
)

// Defaults for the corpus generator invocation surface.
const (
	DefaultPath          = "random_urls.txt"
	DefaultCount         = 10_000_000
	DefaultDomainLength  = 30
	DefaultPathLength    = 100
	DefaultBufferSize    = 1 << 20
	DefaultProgressEvery = 1_000_000
)

// ctxCheckEvery is how many records are written between cancellation checks.
const ctxCheckEvery = 4096

// Config describes one corpus generation run.
type Config struct {
	// Path is the destination file. Existing content is replaced.
	Path string
	// Count is the number of URLs to write.
	Count int
	// Options shapes each generated URL.
	Options urlgen.Options
	// Format selects text or Parquet output.
	Format Format
	// Atomic writes to a temporary file and renames it into place on success.
	Atomic bool
	// TmpDir holds the temporary file for atomic writes. Empty means Path's directory.
	TmpDir string
	// BufferSize is the write buffer size for text output.
	BufferSize int
	// ProgressEvery logs a progress event every N records. 0 disables it.
	ProgressEvery int
}

// DefaultConfig returns the default generation run.
func DefaultConfig() Config {
	return Config{
		Path:  DefaultPath,
		Count: DefaultCount,
		Options: urlgen.Options{
			UseHTTPS:     true,
			DomainLength: DefaultDomainLength,
			PathLength:   DefaultPathLength,
		},
		Format:        FormatText,
		BufferSize:    DefaultBufferSize,
		ProgressEvery: DefaultProgressEvery,
	}
}

// Validate checks the configuration without touching the filesystem.
func (c Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("corpus path is empty: %w", ErrInvalidArgument)
	}
	if c.Count < 0 {
		return fmt.Errorf("url count must be non-negative, got %d: %w", c.Count, ErrInvalidArgument)
	}
	if err := c.Options.Validate(); err != nil {
		return err
	}
	if _, err := ParseFormat(string(c.Format)); err != nil {
		return err
	}
	return nil
}

// EstimatedBytes returns an upper bound on the text size of the corpus.
func (c Config) EstimatedBytes() int64 {
	return int64(c.Count) * int64(c.Options.MaxLen()+1)
}

// Result summarizes a completed generation run.
type Result struct {
	Path     string
	Format   Format
	Lines    int64
	Bytes    int64
	Duration time.Duration
}

// Write generates cfg.Count URLs from src and writes them to cfg.Path in order.
// A nil src uses a non-deterministic urlgen.Generator built from cfg.Options.
//
// Invalid configuration fails with ErrInvalidArgument before any I/O. File
// failures are returned as *IOError. Without cfg.Atomic a failed run may
// leave a partial file behind.
func Write(ctx context.Context, cfg Config, src urlgen.Source) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		g, err := urlgen.NewGenerator(cfg.Options, nil)
		if err != nil {
			return nil, err
		}
		src = g
	}
	// Validate accepted the spelling; writers only know the canonical names.
	cfg.Format, _ = ParseFormat(string(cfg.Format))
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}

	log := logctx.FromContext(ctx).With().Str("path", cfg.Path).Str("format", string(cfg.Format)).Logger()
	ctx = logctx.WithLogger(ctx, log)

	log.Info().
		Int("count", cfg.Count).
		Int("domain_length", cfg.Options.DomainLength).
		Int("path_length", cfg.Options.PathLength).
		Bool("atomic", cfg.Atomic).
		Msg("generating corpus")

	start := time.Now()
	var written int64

	writeTo := func(path string) error {
		n, err := writeRecords(ctx, path, cfg, src)
		written = n
		return err
	}

	var err error
	if cfg.Atomic {
		err = fileutil.WriteTmpThenMove(cfg.TmpDir, cfg.Path, writeTo)
		var ioe *IOError
		if err != nil && !errors.As(err, &ioe) && ctx.Err() == nil {
			err = ioErr("commit", cfg.Path, err)
		}
	} else {
		err = writeTo(cfg.Path)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{
		Path:     cfg.Path,
		Format:   cfg.Format,
		Lines:    int64(cfg.Count),
		Bytes:    written,
		Duration: time.Since(start),
	}

	logging.FileCreated(log, "generate", res.Duration).
		Count("lines", res.Lines).
		Bytes("bytes", res.Bytes).
		Throughput(res.Bytes).
		Log("corpus written")

	return res, nil
}

// writeRecords creates path, streams cfg.Count records into it and closes it.
// The file is closed on every return path.
func writeRecords(ctx context.Context, path string, cfg Config, src urlgen.Source) (written int64, err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, ioErr("create", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = ioErr("close", path, cerr)
		}
	}()

	cw := &countingWriter{w: f}
	rw, err := newRecordWriter(cfg.Format, cw, cfg.BufferSize)
	if err != nil {
		return 0, err
	}

	tracker := logging.NewProgressTracker("generate", int64(cfg.Count), int64(cfg.ProgressEvery), logctx.FromContext(ctx))
	buf := make([]byte, 0, cfg.Options.MaxLen())

	for i := 0; i < cfg.Count; i++ {
		if i%ctxCheckEvery == 0 && i > 0 {
			if err := ctx.Err(); err != nil {
				return cw.n, fmt.Errorf("generate %s: %w", path, err)
			}
			tracker.Add(ctxCheckEvery)
		}
		buf = src.AppendURL(buf[:0])
		if err := rw.WriteRecord(buf); err != nil {
			return cw.n, ioErr("write", path, err)
		}
	}

	tracker.Add(int64(cfg.Count) - tracker.Done())

	if err := rw.Close(); err != nil {
		return cw.n, ioErr("flush", path, err)
	}
	if err := f.Sync(); err != nil {
		return cw.n, ioErr("sync", path, err)
	}
	return cw.n, nil
}

// GenerateURLsFile writes n URLs with the given domain and path lengths to
// fileName, replacing its content. Each URL uses the https scheme.
func GenerateURLsFile(fileName string, n, domainLength, pathLength int) error {
	cfg := DefaultConfig()
	cfg.Path = fileName
	cfg.Count = n
	cfg.Options.DomainLength = domainLength
	cfg.Options.PathLength = pathLength
	cfg.ProgressEvery = 0

	_, err := Write(context.Background(), cfg, nil)
	return err
}
