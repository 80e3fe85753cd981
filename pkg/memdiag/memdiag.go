// Package memdiag samples the Go heap while benchmarks run.
//
// The bench command enables it with -mem-debug; -pprof additionally serves
// net/http/pprof on the given address for the lifetime of the tracker.
package memdiag

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"sync"
	"time"

	// pprof handlers on DefaultServeMux.
	_ "net/http/pprof"

	"github.com/rs/zerolog"

	"github.com/eunmann/urlcorpus/pkg/humanfmt"
)

// heapWarnFloor keeps the over-budget warning quiet for small key sets,
// where runtime overhead dominates the ratio.
const heapWarnFloor = 100 << 20

// Config selects what the tracker does. The zero value is disabled.
type Config struct {
	Enabled     bool
	PprofAddr   string
	LogInterval time.Duration
}

// DefaultConfig is disabled and samples every 5s once enabled.
func DefaultConfig() Config {
	return Config{LogInterval: 5 * time.Second}
}

// Stats is the subset of runtime.MemStats the bench reports.
type Stats struct {
	HeapAlloc uint64
	HeapInuse uint64
	Sys       uint64
	NumGC     uint32
}

// Read samples runtime.MemStats.
func Read() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Stats{HeapAlloc: m.HeapAlloc, HeapInuse: m.HeapInuse, Sys: m.Sys, NumGC: m.NumGC}
}

// HeapGrowth is after.HeapAlloc - before.HeapAlloc, floored at zero.
func HeapGrowth(before, after Stats) uint64 {
	if after.HeapAlloc <= before.HeapAlloc {
		return 0
	}
	return after.HeapAlloc - before.HeapAlloc
}

// Tracker logs heap samples tagged with the current bench phase and keeps
// the peak HeapAlloc it has seen. Every method is a no-op when disabled.
type Tracker struct {
	cfg Config
	log zerolog.Logger

	mu    sync.Mutex
	phase string
	peak  uint64

	once   sync.Once
	cancel context.CancelFunc
	wg     sync.WaitGroup
	srv    *http.Server
}

// NewTracker returns a tracker; nothing runs until Start.
func NewTracker(cfg Config, log zerolog.Logger) *Tracker {
	if cfg.LogInterval <= 0 {
		cfg.LogInterval = DefaultConfig().LogInterval
	}
	return &Tracker{cfg: cfg, log: log, phase: "init"}
}

// Enabled reports whether the tracker records anything.
func (t *Tracker) Enabled() bool { return t.cfg.Enabled }

// Start launches the periodic sampler and, if configured, the pprof server.
// Calls after the first are ignored.
func (t *Tracker) Start() {
	if !t.cfg.Enabled {
		return
	}
	t.once.Do(func() {
		t.log.Info().Dur("interval", t.cfg.LogInterval).Msg("memory diagnostics enabled")

		if t.cfg.PprofAddr != "" {
			t.srv = &http.Server{Addr: t.cfg.PprofAddr, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				t.log.Info().Str("addr", t.cfg.PprofAddr).Msg("starting pprof server")
				if err := t.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					t.log.Error().Err(err).Msg("pprof server failed")
				}
			}()
		}

		ctx, cancel := context.WithCancel(context.Background())
		t.cancel = cancel
		t.wg.Add(1)
		go t.loop(ctx)
	})
}

// Stop ends sampling after one final "shutdown" sample and closes the pprof
// server.
func (t *Tracker) Stop() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	t.wg.Wait()
	if t.srv != nil {
		_ = t.srv.Close()
	}
}

func (t *Tracker) loop(ctx context.Context) {
	defer t.wg.Done()
	tick := time.NewTicker(t.cfg.LogInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			t.LogNow("shutdown")
			return
		case <-tick.C:
			t.LogNow("periodic")
		}
	}
}

// SetPhase tags later samples with phase and logs a sample.
func (t *Tracker) SetPhase(phase string) {
	t.mu.Lock()
	t.phase = phase
	t.mu.Unlock()
	t.LogNow("phase_change")
}

// PeakHeap returns the largest HeapAlloc sampled so far.
func (t *Tracker) PeakHeap() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peak
}

func (t *Tracker) sample() (Stats, string, uint64) {
	s := Read()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peak = max(t.peak, s.HeapAlloc)
	return s, t.phase, t.peak
}

// LogNow logs a debug-level heap sample.
func (t *Tracker) LogNow(reason string) {
	if !t.cfg.Enabled {
		return
	}
	s, phase, peak := t.sample()
	t.log.Debug().
		Str("reason", reason).
		Str("phase", phase).
		Str("heap_alloc", humanfmt.Bytes(int64(s.HeapAlloc))).
		Str("heap_inuse", humanfmt.Bytes(int64(s.HeapInuse))).
		Str("sys_total", humanfmt.Bytes(int64(s.Sys))).
		Str("peak_heap", humanfmt.Bytes(int64(peak))).
		Uint32("num_gc", s.NumGC).
		Msg("memory stats")
}

// LogWithBudget compares the live heap with what the key loader reserved
// from the memory budget, warning when the heap exceeds twice the
// reservation.
func (t *Tracker) LogWithBudget(reason string, reserved, budget uint64) {
	if !t.cfg.Enabled {
		return
	}
	s, phase, peak := t.sample()
	var ratio float64
	if reserved > 0 {
		ratio = float64(s.HeapAlloc) / float64(reserved)
	}
	t.log.Debug().
		Str("reason", reason).
		Str("phase", phase).
		Str("heap_alloc", humanfmt.Bytes(int64(s.HeapAlloc))).
		Str("budget_inuse", humanfmt.Bytes(int64(reserved))).
		Str("budget_total", humanfmt.Bytes(int64(budget))).
		Float64("heap_vs_budget_ratio", ratio).
		Str("peak_heap", humanfmt.Bytes(int64(peak))).
		Msg("memory stats with budget")

	if ratio > 2 && reserved > heapWarnFloor {
		t.log.Warn().
			Str("heap_alloc", humanfmt.Bytes(int64(s.HeapAlloc))).
			Str("budget_inuse", humanfmt.Bytes(int64(reserved))).
			Float64("ratio", ratio).
			Msg("heap usage significantly exceeds memory budget reservations")
	}
}
