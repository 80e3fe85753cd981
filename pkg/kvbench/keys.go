package kvbench

import (
	"context"
	"fmt"

	"github.com/eunmann/urlcorpus/pkg/corpus"
	"github.com/eunmann/urlcorpus/pkg/membudget"
	"github.com/eunmann/urlcorpus/pkg/urlgen"
)

// keyOverhead approximates the per-key cost beyond its bytes: the string
// header in the key slice plus a share of store bookkeeping.
const keyOverhead = 64

// reserveEvery batches budget reservations while loading from a file.
const reserveEvery = 1 << 16

// EstimateKeyBytes approximates the memory held by n keys totalling keyBytes.
func EstimateKeyBytes(n int, keyBytes int64) uint64 {
	return uint64(keyBytes) + uint64(n)*keyOverhead
}

// Keys is a loaded key set and the budget it holds.
type Keys struct {
	Keys     []string
	reserved uint64
	budget   *membudget.Budget
}

// Release returns the key set's reservation to the budget.
func (k *Keys) Release() {
	if k.budget != nil {
		k.budget.Release(k.reserved)
		k.reserved = 0
	}
}

// Reserved returns the bytes currently reserved for the key set.
func (k *Keys) Reserved() uint64 {
	return k.reserved
}

// GenerateKeys produces n synthetic URLs from a seeded generator, reserving
// their estimated size from budget up front.
func GenerateKeys(n int, opts urlgen.Options, seed uint64, budget *membudget.Budget) (*Keys, error) {
	if n < 0 {
		return nil, fmt.Errorf("key count must be non-negative, got %d: %w", n, urlgen.ErrInvalidArgument)
	}
	g, err := urlgen.NewSeeded(opts, seed)
	if err != nil {
		return nil, err
	}

	need := EstimateKeyBytes(n, int64(n)*int64(opts.MaxLen()))
	if err := budget.Reserve(need, fmt.Sprintf("%d generated keys", n)); err != nil {
		return nil, err
	}

	keys := make([]string, n)
	for i := range keys {
		keys[i] = g.URL()
	}
	return &Keys{Keys: keys, reserved: need, budget: budget}, nil
}

// LoadKeys reads every record of the corpus at path, reserving memory from
// budget as it goes. It fails once the budget is exhausted.
func LoadKeys(ctx context.Context, path string, budget *membudget.Budget) (*Keys, error) {
	k := &Keys{budget: budget}
	var pending int64
	pendingN := 0

	flush := func() error {
		if pendingN == 0 {
			return nil
		}
		need := EstimateKeyBytes(pendingN, pending)
		if err := budget.Reserve(need, fmt.Sprintf("keys from %s", path)); err != nil {
			return err
		}
		k.reserved += need
		pending, pendingN = 0, 0
		return nil
	}

	err := corpus.Read(ctx, path, func(url string) error {
		k.Keys = append(k.Keys, url)
		pending += int64(len(url))
		pendingN++
		if pendingN >= reserveEvery {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		k.Release()
		return nil, err
	}
	return k, nil
}
