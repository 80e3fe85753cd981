// Package membudget bounds the memory the benchmark harness may spend on
// loading corpus keys.
//
// Callers reserve an estimate before allocating and release it when the
// allocation is dropped; a reservation that would exceed the budget fails
// instead of letting the process run out of memory mid-benchmark.
package membudget

import (
	"fmt"
	"sync/atomic"

	"github.com/eunmann/urlcorpus/pkg/humanfmt"
	"github.com/eunmann/urlcorpus/pkg/sysres"
)

// DefaultBudgetBytes is the fallback memory budget when system RAM cannot be detected.
const DefaultBudgetBytes uint64 = 8 * 1024 * 1024 * 1024

// BudgetSource indicates how the memory budget was determined.
type BudgetSource string

const (
	// BudgetSourceAuto50Pct indicates the budget was set to 50% of detected RAM.
	BudgetSourceAuto50Pct BudgetSource = "auto-50pct"
	// BudgetSourceDefault indicates the budget used the fallback default.
	BudgetSourceDefault BudgetSource = "default"
	// BudgetSourceCLI indicates the budget was set via CLI flag.
	BudgetSourceCLI BudgetSource = "cli"
)

// Budget tracks reserved bytes against a fixed total.
// Budget is safe for concurrent use.
type Budget struct {
	total  uint64
	inUse  atomic.Uint64
	source BudgetSource
}

// Config holds configuration for creating a Budget.
type Config struct {
	// TotalBytes is the total memory budget in bytes.
	TotalBytes uint64

	// Source indicates how the budget was determined.
	Source BudgetSource
}

// New creates a new Budget with the given configuration.
func New(cfg Config) *Budget {
	return &Budget{
		total:  cfg.TotalBytes,
		source: cfg.Source,
	}
}

// NewFromSystemRAM creates a Budget set to 50% of system RAM.
// If RAM cannot be detected, uses DefaultBudgetBytes.
func NewFromSystemRAM() *Budget {
	result := sysres.Total()
	if !result.Reliable {
		return New(Config{TotalBytes: DefaultBudgetBytes, Source: BudgetSourceDefault})
	}
	return New(Config{TotalBytes: result.Bytes / 2, Source: BudgetSourceAuto50Pct})
}

// Parse builds a budget from a CLI value such as "4GiB".
// An empty value falls back to NewFromSystemRAM.
func Parse(flagValue string) (*Budget, error) {
	if flagValue == "" {
		return NewFromSystemRAM(), nil
	}
	n, err := humanfmt.ParseSize(flagValue)
	if err != nil {
		return nil, fmt.Errorf("invalid --mem-budget %q: %w", flagValue, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("invalid --mem-budget %q: must be positive", flagValue)
	}
	return New(Config{TotalBytes: n, Source: BudgetSourceCLI}), nil
}

// Total returns the total budget in bytes.
func (b *Budget) Total() uint64 {
	return b.total
}

// InUse returns the currently reserved bytes.
func (b *Budget) InUse() uint64 {
	return b.inUse.Load()
}

// Available returns the available bytes (total - inUse).
func (b *Budget) Available() uint64 {
	inUse := b.inUse.Load()
	if inUse >= b.total {
		return 0
	}
	return b.total - inUse
}

// Source returns how the budget was determined.
func (b *Budget) Source() BudgetSource {
	return b.source
}

// TryReserve attempts to reserve n bytes.
// Returns true if successful, false if it would exceed the budget.
func (b *Budget) TryReserve(n uint64) bool {
	for {
		current := b.inUse.Load()
		newTotal := current + n
		if newTotal > b.total {
			return false
		}
		if b.inUse.CompareAndSwap(current, newTotal) {
			return true
		}
	}
}

// Reserve is TryReserve with a descriptive error naming what was being loaded.
func (b *Budget) Reserve(n uint64, what string) error {
	if b.TryReserve(n) {
		return nil
	}
	return fmt.Errorf("%s needs ~%s but only %s of the %s memory budget is available",
		what, humanfmt.Bytes(int64(n)), humanfmt.Bytes(int64(b.Available())), humanfmt.Bytes(int64(b.total)))
}

// Release returns n bytes to the available pool.
// Releasing more than is reserved clamps InUse at zero.
func (b *Budget) Release(n uint64) {
	for {
		current := b.inUse.Load()
		next := uint64(0)
		if n < current {
			next = current - n
		}
		if b.inUse.CompareAndSwap(current, next) {
			return
		}
	}
}
