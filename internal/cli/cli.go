// Package cli implements the command-line interface for urlcorpus.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eunmann/urlcorpus/internal/logctx"
	"github.com/eunmann/urlcorpus/pkg/corpus"
	"github.com/eunmann/urlcorpus/pkg/fileutil"
	"github.com/eunmann/urlcorpus/pkg/humanfmt"
	"github.com/eunmann/urlcorpus/pkg/kvbench"
	"github.com/eunmann/urlcorpus/pkg/logging"
	"github.com/eunmann/urlcorpus/pkg/membudget"
	"github.com/eunmann/urlcorpus/pkg/memdiag"
	"github.com/eunmann/urlcorpus/pkg/s3store"
	"github.com/eunmann/urlcorpus/pkg/sysres"
	"github.com/eunmann/urlcorpus/pkg/urlgen"
)

const usage = "usage: urlcorpus <command> [options]\ncommands: generate, verify, bench"

// stdout receives command output that is not logging. Tests replace it.
var stdout io.Writer = os.Stdout

func newS3Client(ctx context.Context) (*s3store.Client, error) {
	return s3store.NewClient(ctx, s3store.DefaultTransferConfig())
}

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	return RunContext(context.Background(), args)
}

// RunContext is Run with a caller-supplied context for cancellation.
func RunContext(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	switch args[0] {
	case "generate":
		return runGenerate(ctx, args[1:])
	case "verify":
		return runVerify(ctx, args[1:])
	case "bench":
		return runBench(ctx, args[1:])
	case "-h", "--help", "help":
		fmt.Fprintln(stdout, usage)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
}

// urlFlags registers the URL shape flags shared by generate and verify.
func urlFlags(fs *flag.FlagSet) func() urlgen.Options {
	domainLength := fs.Int("domain-length", corpus.DefaultDomainLength, "letters in the domain label")
	pathLength := fs.Int("path-length", corpus.DefaultPathLength, "characters in the path segment")
	useHTTP := fs.Bool("http", false, "use the http scheme instead of https")
	return func() urlgen.Options {
		return urlgen.Options{
			UseHTTPS:     !*useHTTP,
			DomainLength: *domainLength,
			PathLength:   *pathLength,
		}
	}
}

// logFlags registers -debug and -human and returns an initializer.
func logFlags(fs *flag.FlagSet) func() {
	debug := fs.Bool("debug", false, "enable debug logging")
	human := fs.Bool("human", false, "human-readable console logs instead of JSON")
	return func() {
		logging.Init(*debug, *human)
	}
}

func commandContext(ctx context.Context, phase string) (context.Context, zerolog.Logger) {
	log := logging.WithPhase(phase)
	return logctx.WithLogger(ctx, log), log
}

func runGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	out := fs.String("out", corpus.DefaultPath, "output file, or s3://bucket/key")
	n := fs.Int("n", corpus.DefaultCount, "number of URLs to write")
	opts := urlFlags(fs)
	seed := fs.Uint64("seed", 0, "random seed (0 = non-deterministic)")
	format := fs.String("format", string(corpus.FormatText), "output format: text or parquet")
	atomic := fs.Bool("atomic", false, "write to a temporary file and rename on success")
	tmpDir := fs.String("tmp", "", "directory for temporary files")
	source := fs.String("source", "synthetic", "URL source: synthetic or faker")
	manifest := fs.Bool("manifest", false, "write a checksum manifest next to the corpus")
	initLog := logFlags(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("--out is required")
	}
	initLog()
	ctx, log := commandContext(ctx, "generate")

	cfg := corpus.DefaultConfig()
	cfg.Count = *n
	cfg.Options = opts()
	cfg.Atomic = *atomic
	cfg.TmpDir = *tmpDir

	f, err := corpus.ParseFormat(*format)
	if err != nil {
		return err
	}
	cfg.Format = f

	src, err := newSource(*source, cfg.Options, *seed)
	if err != nil {
		return err
	}

	// Fail on bad arguments before touching disk or network.
	cfg.Path = *out
	if err := cfg.Validate(); err != nil {
		return err
	}

	var bucket, key string
	if s3store.IsS3URI(*out) {
		bucket, key, err = s3store.ParseS3URI(*out)
		if err != nil {
			return err
		}
		local, err := localStaging(*tmpDir, key)
		if err != nil {
			return err
		}
		defer os.Remove(local)
		cfg.Path = local
	} else if fileutil.IsNonEmpty(cfg.Path) {
		log.Info().Str("out", cfg.Path).Bool("atomic", cfg.Atomic).Msg("replacing existing corpus")
	}

	outDir := filepath.Dir(cfg.Path)
	warnIfLowDisk(log, outDir, cfg.EstimatedBytes())
	if cfg.Atomic {
		cleanDir := cfg.TmpDir
		if cleanDir == "" {
			cleanDir = outDir
		}
		if err := fileutil.CleanupTmpFiles(cleanDir); err != nil {
			log.Warn().Err(err).Str("dir", cleanDir).Msg("failed to remove stale temporary files")
		}
	}

	log.Debug().
		Str("out", *out).
		Str("scheme", cfg.Options.Scheme()).
		Str("source", *source).
		Uint64("seed", *seed).
		Msg("generate")

	res, err := corpus.Write(ctx, cfg, src)
	if err != nil {
		return err
	}

	uploads := map[string]string{res.Path: key}
	if *manifest {
		m, err := corpus.NewManifest(cfg, res, *source, *seed)
		if err != nil {
			return err
		}
		if err := corpus.WriteManifest(res.Path, m); err != nil {
			return err
		}
		log.Info().Str("checksum", m.Checksum).Str("path", corpus.ManifestPath(*out)).Msg("manifest written")
		if bucket != "" {
			local := corpus.ManifestPath(res.Path)
			defer os.Remove(local)
			uploads[local] = key + corpus.ManifestSuffix
		}
	}

	if bucket != "" {
		client, err := newS3Client(ctx)
		if err != nil {
			return err
		}
		for local, k := range uploads {
			tr, err := client.Upload(ctx, local, bucket, k)
			if err != nil {
				return err
			}
			logging.PhaseComplete(log, "upload", tr.Duration).
				Str("uri", "s3://"+bucket+"/"+k).
				Bytes("bytes", tr.Bytes).
				Throughput(tr.Bytes).
				Log("uploaded")
		}
	}

	fmt.Fprintf(stdout, "wrote %s URLs to %s (%s) in %s\n",
		humanfmt.Count(res.Lines), *out, humanfmt.Bytes(res.Bytes), humanfmt.Duration(res.Duration))
	return nil
}

func newSource(name string, opts urlgen.Options, seed uint64) (urlgen.Source, error) {
	switch name {
	case "synthetic", "":
		if seed == 0 {
			return urlgen.NewGenerator(opts, nil)
		}
		return urlgen.NewSeeded(opts, seed)
	case "faker":
		return urlgen.NewFakerSource(int64(seed)), nil
	default:
		return nil, fmt.Errorf("unknown --source %q (want synthetic or faker): %w", name, urlgen.ErrInvalidArgument)
	}
}

// localStaging returns a fresh local file path for a corpus bound for S3.
// The extension follows key so format detection works on the staged copy.
func localStaging(tmpDir, key string) (string, error) {
	f, err := os.CreateTemp(tmpDir, "urlcorpus-*"+filepath.Ext(key))
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("close staging file: %w", err)
	}
	return name, nil
}

func warnIfLowDisk(log zerolog.Logger, dir string, need int64) {
	free := sysres.FreeDisk(dir)
	if !free.Reliable {
		log.Debug().Str("dir", dir).Msg("free disk space unknown")
		return
	}
	if uint64(need) > free.Bytes {
		log.Warn().
			Str("dir", dir).
			Str("estimated", humanfmt.Bytes(need)).
			Str("free", humanfmt.Bytes(int64(free.Bytes))).
			Msg("corpus may not fit on disk")
	}
}

func runVerify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	in := fs.String("in", corpus.DefaultPath, "corpus file, or s3://bucket/key")
	opts := urlFlags(fs)
	tmpDir := fs.String("tmp", "", "directory for downloaded corpora")
	useManifest := fs.Bool("manifest", false, "check the corpus against its manifest and take the URL shape from it")
	initLog := logFlags(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("--in is required")
	}
	initLog()
	ctx, log := commandContext(ctx, "verify")

	path, cleanup, err := fetchInput(ctx, *in, *tmpDir)
	if err != nil {
		return err
	}
	defer cleanup()

	shape := opts()
	if *useManifest {
		m, err := loadManifest(ctx, *in, path)
		if err != nil {
			return err
		}
		if err := corpus.VerifyManifest(path, m); err != nil {
			return err
		}
		log.Info().Str("checksum", m.Checksum).Msg("manifest checksum matches")
		if m.Source != "synthetic" {
			fmt.Fprintf(stdout, "lines: %d\nchecksum: ok\n", m.Lines)
			return nil
		}
		shape = m.Options()
	}

	start := time.Now()
	stats, err := corpus.Verify(ctx, path, shape)
	if err != nil {
		return err
	}
	logging.PhaseComplete(log, "verify", time.Since(start)).
		Str("in", *in).
		Count("lines", stats.Lines).
		Count("malformed", stats.Malformed).
		Float64("chi_square", stats.ChiSquare()).
		Log("corpus verified")

	fmt.Fprintf(stdout, "lines: %d\nmalformed: %d\nchi-square (domain letters, 25 df): %.2f\n",
		stats.Lines, stats.Malformed, stats.ChiSquare())
	for _, tld := range urlgen.TLDs {
		fmt.Fprintf(stdout, "tld %s: %d\n", tld, stats.TLDs[tld])
	}
	if stats.Unterminated {
		fmt.Fprintln(stdout, "final record has no trailing newline")
	}
	if stats.Malformed > 0 {
		return fmt.Errorf("%d of %d records are malformed, first: %q",
			stats.Malformed, stats.Lines, stats.MalformedSamples[0])
	}
	return nil
}

// fetchInput resolves a local path for in, downloading it first when it is
// an S3 URI. cleanup removes any downloaded copy.
func fetchInput(ctx context.Context, in, tmpDir string) (path string, cleanup func(), err error) {
	if !s3store.IsS3URI(in) {
		return in, func() {}, nil
	}
	bucket, key, err := s3store.ParseS3URI(in)
	if err != nil {
		return "", nil, err
	}
	local, err := localStaging(tmpDir, key)
	if err != nil {
		return "", nil, err
	}
	cleanup = func() { os.Remove(local) }

	client, err := newS3Client(ctx)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	tr, err := client.Download(ctx, bucket, key, local)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	logging.PhaseComplete(logctx.FromContext(ctx), "download", tr.Duration).
		Str("uri", in).
		Bytes("bytes", tr.Bytes).
		Throughput(tr.Bytes).
		Log("corpus downloaded")
	return local, cleanup, nil
}

// loadManifest reads the manifest for in, fetching it from S3 when in is an
// S3 URI. local is where the corpus itself was staged.
func loadManifest(ctx context.Context, in, local string) (*corpus.Manifest, error) {
	if !s3store.IsS3URI(in) {
		if !fileutil.Exists(corpus.ManifestPath(local)) {
			return nil, fmt.Errorf("no manifest at %s (generate with -manifest): %w",
				corpus.ManifestPath(local), corpus.ErrIO)
		}
		return corpus.ReadManifest(local)
	}
	bucket, key, err := s3store.ParseS3URI(in)
	if err != nil {
		return nil, err
	}
	client, err := newS3Client(ctx)
	if err != nil {
		return nil, err
	}
	dest := corpus.ManifestPath(local)
	defer os.Remove(dest)
	if _, err := client.Download(ctx, bucket, key+corpus.ManifestSuffix, dest); err != nil {
		return nil, err
	}
	return corpus.ReadManifest(local)
}

func runBench(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	in := fs.String("in", "", "corpus file or s3://bucket/key to use as keys")
	n := fs.String("n", "", "generate this many keys in memory instead of reading -in; a comma list runs each count as its own scale")
	opts := urlFlags(fs)
	impls := fs.String("impl", strings.Join(kvbench.Implementations(), ","), "comma-separated implementations")
	runs := fs.Int("runs", 3, "runs per implementation")
	scale := fs.String("scale", "", "scale label for result rows (default derived from key count)")
	scan := fs.Bool("scan", true, "time bounded range scans on ordered implementations")
	jsonOut := fs.String("json", "", "write results as JSON to this file")
	csvOut := fs.String("csv", "", "write results as CSV to this file")
	memBudget := fs.String("mem-budget", "", "memory budget for keys, e.g. 4GiB (default 50% of RAM)")
	seed := fs.Uint64("seed", 42, "seed for in-memory key generation")
	tmpDir := fs.String("tmp", "", "directory for downloaded corpora")
	memDebug := fs.Bool("mem-debug", false, "log heap usage per phase and per store (shown with -debug)")
	pprofAddr := fs.String("pprof", "", "serve net/http/pprof on this address, e.g. localhost:6060")
	initLog := logFlags(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	counts, err := parseCounts(*n)
	if err != nil {
		return err
	}
	if (*in == "") == (len(counts) == 0) {
		return errors.New("exactly one of --in or --n is required")
	}
	if len(counts) > 1 && *scale != "" {
		return errors.New("--scale cannot label more than one --n count")
	}
	names := splitList(*impls)
	if len(names) == 0 {
		return errors.New("--impl must name at least one implementation")
	}
	initLog()
	ctx, log := commandContext(ctx, "bench")

	budget, err := membudget.Parse(*memBudget)
	if err != nil {
		return err
	}
	log.Info().
		Str("budget", humanfmt.Bytes(int64(budget.Total()))).
		Str("source", string(budget.Source())).
		Msg("memory budget")

	mem := memdiag.NewTracker(memdiag.Config{
		Enabled:   *memDebug || *pprofAddr != "",
		PprofAddr: *pprofAddr,
	}, log)
	mem.Start()
	defer mem.Stop()
	mem.SetPhase("load")

	// Every scale shares one run ID so the merged table reads as one run.
	benchCfg := kvbench.Config{
		Implementations: names,
		Runs:            *runs,
		Scale:           *scale,
		Scan:            *scan,
		RunID:           uuid.NewString(),
		Mem:             mem,
	}
	table := &kvbench.Table{RunID: benchCfg.RunID}
	bench := func(keys *kvbench.Keys, err error) error {
		if err != nil {
			return err
		}
		defer keys.Release()
		mem.LogWithBudget("keys_loaded", budget.InUse(), budget.Total())
		t, err := kvbench.Run(ctx, keys.Keys, benchCfg)
		if err != nil {
			return err
		}
		table.Merge(t)
		return nil
	}

	if *in != "" {
		path, cleanup, err := fetchInput(ctx, *in, *tmpDir)
		if err != nil {
			return err
		}
		defer cleanup()
		if err := bench(kvbench.LoadKeys(ctx, path, budget)); err != nil {
			return err
		}
	}
	for _, c := range counts {
		mem.SetPhase("load")
		if err := bench(kvbench.GenerateKeys(c, opts(), *seed, budget)); err != nil {
			return err
		}
	}

	if *jsonOut != "" {
		if err := writeResults(*jsonOut, table.WriteJSON); err != nil {
			return err
		}
	}
	if *csvOut != "" {
		if err := writeResults(*csvOut, table.WriteCSV); err != nil {
			return err
		}
	}
	return table.WriteText(stdout)
}

func writeResults(path string, write func(io.Writer) error) error {
	return fileutil.WriteTmpThenMove("", path, func(tmpPath string) error {
		f, err := os.Create(tmpPath)
		if err != nil {
			return err
		}
		if err := write(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

// parseCounts parses the -n list. Each count must be a positive integer.
func parseCounts(s string) ([]int, error) {
	var counts []int
	for _, part := range splitList(s) {
		c, err := strconv.Atoi(part)
		if err != nil || c <= 0 {
			return nil, fmt.Errorf("--n: %q is not a positive count", part)
		}
		counts = append(counts, c)
	}
	return counts, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
