package logging

import (
	"sync/atomic"
	"time"

	"github.com/eunmann/urlcorpus/pkg/humanfmt"
	"github.com/rs/zerolog"
)

// ProgressTracker counts records through a long phase (generate, read) and
// logs a "progress" event each time the count crosses a multiple of every.
// Add may be called from several goroutines.
type ProgressTracker struct {
	phase string
	log   zerolog.Logger
	start time.Time
	total int64
	every int64
	done  atomic.Int64
	next  atomic.Int64
}

// NewProgressTracker starts tracking total records. every <= 0 disables
// progress events.
func NewProgressTracker(phase string, total, every int64, log zerolog.Logger) *ProgressTracker {
	pt := &ProgressTracker{phase: phase, log: log, start: time.Now(), total: total, every: every}
	pt.next.Store(every)
	return pt
}

// Add counts n more records. A single Add that crosses several boundaries
// logs once.
func (pt *ProgressTracker) Add(n int64) {
	done := pt.done.Add(n)
	if pt.every <= 0 {
		return
	}
	next := pt.next.Load()
	if done < next || !pt.next.CompareAndSwap(next, (done/pt.every+1)*pt.every) {
		return
	}
	elapsed := time.Since(pt.start)
	NewCompletionEvent(pt.log, "progress", pt.phase, elapsed).
		Progress(done, pt.total, pt.eta(done, elapsed)).
		Rate("rate", done).
		Log("progress")
}

// Done returns the records counted so far.
func (pt *ProgressTracker) Done() int64 { return pt.done.Load() }

func (pt *ProgressTracker) eta(done int64, elapsed time.Duration) time.Duration {
	left := pt.total - done
	if done <= 0 || left <= 0 {
		return 0
	}
	return elapsed / time.Duration(done) * time.Duration(left)
}

type field struct {
	key string
	val interface{}
}

// CompletionEvent accumulates fields for one structured phase event. Fields
// are emitted in the order they were added; in pretty mode sizes, counts and
// rates also get a human-readable "_h" companion.
type CompletionEvent struct {
	log     zerolog.Logger
	event   string
	phase   string
	elapsed time.Duration
	fields  []field
}

// NewCompletionEvent starts an event named event for phase.
func NewCompletionEvent(log zerolog.Logger, event, phase string, elapsed time.Duration) *CompletionEvent {
	return &CompletionEvent{log: log, event: event, phase: phase, elapsed: elapsed}
}

func (ce *CompletionEvent) add(key string, val interface{}) *CompletionEvent {
	ce.fields = append(ce.fields, field{key, val})
	return ce
}

func (ce *CompletionEvent) human(key string, render func() string) *CompletionEvent {
	if IsPrettyMode() {
		ce.add(key, render())
	}
	return ce
}

// Str adds a string field.
func (ce *CompletionEvent) Str(key, val string) *CompletionEvent { return ce.add(key, val) }

// Int adds an int field.
func (ce *CompletionEvent) Int(key string, val int) *CompletionEvent { return ce.add(key, val) }

// Float64 adds a float field.
func (ce *CompletionEvent) Float64(key string, val float64) *CompletionEvent { return ce.add(key, val) }

// Bytes adds a byte count.
func (ce *CompletionEvent) Bytes(key string, n int64) *CompletionEvent {
	return ce.add(key, n).human(key+"_h", func() string { return humanfmt.Bytes(n) })
}

// Count adds a record count.
func (ce *CompletionEvent) Count(key string, n int64) *CompletionEvent {
	return ce.add(key, n).human(key+"_h", func() string { return humanfmt.Count(n) })
}

// Progress adds done/total, a percentage, and the ETA when one is known.
func (ce *CompletionEvent) Progress(done, total int64, eta time.Duration) *CompletionEvent {
	ce.add("done", done).add("total", total)
	if total > 0 {
		ce.add("progress_pct", float64(done)*100/float64(total))
	}
	if eta > 0 {
		ce.add("eta_ms", eta.Milliseconds()).human("eta_h", func() string { return humanfmt.Duration(eta) })
	}
	return ce
}

// Rate adds key_per_sec for n items over the event's elapsed time.
func (ce *CompletionEvent) Rate(key string, n int64) *CompletionEvent {
	if ce.elapsed <= 0 {
		return ce
	}
	return ce.add(key+"_per_sec", float64(n)/ce.elapsed.Seconds()).
		human(key+"_h", func() string { return humanfmt.Rate(n, ce.elapsed) })
}

// Throughput adds bytes per second over the event's elapsed time.
func (ce *CompletionEvent) Throughput(bytes int64) *CompletionEvent {
	if ce.elapsed <= 0 {
		return ce
	}
	return ce.add("throughput_bps", float64(bytes)/ce.elapsed.Seconds()).
		human("throughput_h", func() string { return humanfmt.Throughput(bytes, ce.elapsed) })
}

// Log emits the event at info level.
func (ce *CompletionEvent) Log(msg string) {
	e := ce.log.Info().
		Str("event", ce.event).
		Str("phase", ce.phase).
		Int64("duration_ms", ce.elapsed.Milliseconds())
	if IsPrettyMode() {
		e = e.Str("duration_h", humanfmt.Duration(ce.elapsed))
	}
	for _, f := range ce.fields {
		e = e.Interface(f.key, f.val)
	}
	e.Msg(msg)
}

// PhaseComplete starts a "phase_completed" event.
func PhaseComplete(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "phase_completed", phase, elapsed)
}

// FileCreated starts a "file_created" event.
func FileCreated(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "file_created", phase, elapsed)
}
