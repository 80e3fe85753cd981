// Package kvbench times insert, lookup and remove over interchangeable key
// stores, plus a range scan on stores that keep keys ordered, and reports
// best, worst and average seconds per operation.
package kvbench

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eunmann/urlcorpus/internal/logctx"
	"github.com/eunmann/urlcorpus/pkg/humanfmt"
	"github.com/eunmann/urlcorpus/pkg/logging"
	"github.com/eunmann/urlcorpus/pkg/memdiag"
)

// Operation is a timed benchmark phase.
type Operation string

const (
	OpInsert Operation = "insert"
	OpScan   Operation = "scan"
	OpLookup Operation = "lookup"
	OpRemove Operation = "remove"
)

// Operations lists the timed phases in execution order. OpScan only runs on
// stores that implement Scanner.
var Operations = []Operation{OpInsert, OpScan, OpLookup, OpRemove}

// A scan starts at every scanStride-th key and visits up to scanLimit keys.
const (
	scanStride = 5
	scanLimit  = 10
)

// Scenario summarizes the per-run timings of one operation.
type Scenario string

const (
	ScenarioBest  Scenario = "best"
	ScenarioWorst Scenario = "worst"
	ScenarioAvg   Scenario = "avg"
)

// Scenarios lists the summaries emitted for every operation.
var Scenarios = []Scenario{ScenarioBest, ScenarioWorst, ScenarioAvg}

// Config controls a benchmark run.
type Config struct {
	// Implementations to benchmark, by NewStore name.
	Implementations []string
	// Runs per implementation. Must be positive.
	Runs int
	// Scale labels the rows. Empty means ScaleLabel(len(keys)).
	Scale string
	// Scan times OpScan on implementations that support it.
	Scan bool
	// RunID tags every row. Empty means a fresh UUID.
	RunID string
	// Mem, when enabled, tracks phases and logs the heap held by each store.
	Mem *memdiag.Tracker
}

// DefaultConfig benchmarks every implementation three times, scans included.
func DefaultConfig() Config {
	return Config{
		Implementations: Implementations(),
		Runs:            3,
		Scan:            true,
	}
}

var (
	// ErrLookupMiss is returned when a store fails to find a key it was given.
	ErrLookupMiss = errors.New("lookup missed an inserted key")
	// ErrScanMiss is returned when a scan from an inserted key does not
	// start at that key.
	ErrScanMiss = errors.New("scan did not start at an inserted key")
)

// Run benchmarks every configured implementation over keys.
func Run(ctx context.Context, keys []string, cfg Config) (*Table, error) {
	if cfg.Runs <= 0 {
		return nil, fmt.Errorf("runs must be positive, got %d", cfg.Runs)
	}
	if len(cfg.Implementations) == 0 {
		return nil, errors.New("no implementations selected")
	}
	for _, name := range cfg.Implementations {
		if _, ok := factories[name]; !ok {
			return nil, errUnknownImpl(name)
		}
	}

	scale := cfg.Scale
	if scale == "" {
		scale = ScaleLabel(len(keys))
	}

	log := logctx.FromContext(ctx)
	table := &Table{RunID: cfg.RunID}
	if table.RunID == "" {
		table.RunID = uuid.NewString()
	}
	start := time.Now()

	measure := cfg.Mem != nil && cfg.Mem.Enabled()

	for _, name := range cfg.Implementations {
		if cfg.Mem != nil {
			cfg.Mem.SetPhase(name)
		}
		samples := make(map[Operation][]float64, len(Operations))
		for run := 0; run < cfg.Runs; run++ {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("bench %s: %w", name, err)
			}
			timings, heap, err := runOnce(name, keys, cfg.Scan, measure)
			if err != nil {
				return nil, fmt.Errorf("bench %s run %d: %w", name, run+1, err)
			}
			if measure {
				log.Debug().
					Str("impl", name).
					Int("run", run+1).
					Str("store_heap", humanfmt.Bytes(int64(heap))).
					Msg("store memory")
			}
			for op, d := range timings {
				samples[op] = append(samples[op], d.Seconds())
			}
			log.Debug().
				Str("impl", name).
				Int("run", run+1).
				Dur("insert", timings[OpInsert]).
				Dur("scan", timings[OpScan]).
				Dur("lookup", timings[OpLookup]).
				Dur("remove", timings[OpRemove]).
				Msg("bench run")
		}

		for _, op := range Operations {
			if len(samples[op]) == 0 {
				continue
			}
			best, worst, avg := summarize(samples[op])
			table.add(name, scale, op, ScenarioBest, best)
			table.add(name, scale, op, ScenarioWorst, worst)
			table.add(name, scale, op, ScenarioAvg, avg)
		}
	}

	logging.PhaseComplete(log, "bench", time.Since(start)).
		Str("run_id", table.RunID).
		Count("keys", int64(len(keys))).
		Int("implementations", len(cfg.Implementations)).
		Int("runs", cfg.Runs).
		Log("benchmark complete")

	return table, nil
}

// runOnce builds a fresh store and times each operation over keys.
// Store construction is not timed. With measure set it also returns the heap
// growth from before construction to after insertion.
func runOnce(name string, keys []string, scan, measure bool) (map[Operation]time.Duration, uint64, error) {
	var before memdiag.Stats
	if measure {
		runtime.GC()
		before = memdiag.Read()
	}

	st, err := NewStore(name, keys)
	if err != nil {
		return nil, 0, err
	}
	timings := make(map[Operation]time.Duration, len(Operations))

	t0 := time.Now()
	for _, k := range keys {
		st.Insert(k)
	}
	timings[OpInsert] = time.Since(t0)

	var heap uint64
	if measure {
		heap = memdiag.HeapGrowth(before, memdiag.Read())
	}

	if sc, ok := st.(Scanner); ok && scan {
		d, err := timeScan(sc, keys)
		if err != nil {
			return nil, 0, err
		}
		timings[OpScan] = d
	}

	misses := 0
	t0 = time.Now()
	for _, k := range keys {
		if !st.Lookup(k) {
			misses++
		}
	}
	timings[OpLookup] = time.Since(t0)
	if misses > 0 {
		return nil, 0, fmt.Errorf("%d of %d keys: %w", misses, len(keys), ErrLookupMiss)
	}

	t0 = time.Now()
	for _, k := range keys {
		st.Remove(k)
	}
	timings[OpRemove] = time.Since(t0)
	if n := st.Len(); n != 0 {
		return nil, 0, fmt.Errorf("%d keys left after remove", n)
	}

	return timings, heap, nil
}

// timeScan runs a bounded scan from every scanStride-th key. Every key is
// present, so each scan must begin at its own start key.
func timeScan(sc Scanner, keys []string) (time.Duration, error) {
	misses := 0
	t0 := time.Now()
	for i := 0; i < len(keys); i += scanStride {
		from, first, limit := keys[i], true, scanLimit
		sc.Scan(from, func(key string) bool {
			if first && key != from {
				misses++
			}
			first = false
			limit--
			return limit > 0
		})
		if first {
			misses++
		}
	}
	d := time.Since(t0)
	if misses > 0 {
		return 0, fmt.Errorf("%d scans: %w", misses, ErrScanMiss)
	}
	return d, nil
}

func summarize(xs []float64) (best, worst, avg float64) {
	if len(xs) == 0 {
		return 0, 0, 0
	}
	best, worst = math.Inf(1), math.Inf(-1)
	var sum float64
	for _, x := range xs {
		best = math.Min(best, x)
		worst = math.Max(worst, x)
		sum += x
	}
	avg = sum / float64(len(xs))
	// Rounding can push the mean just outside [best, worst].
	avg = math.Min(math.Max(avg, best), worst)
	return best, worst, avg
}

// ScaleLabel formats a key count the way chart axes label it, e.g. 1E7.
func ScaleLabel(n int) string {
	s := strconv.FormatFloat(float64(n), 'E', -1, 64)
	s = strings.Replace(s, "E+0", "E", 1)
	return strings.Replace(s, "E+", "E", 1)
}
