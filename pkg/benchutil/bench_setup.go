package benchutil

import (
	"os"
	"testing"
)

// LongBenchEnv gates long-running benchmarks.
const LongBenchEnv = "URLCORPUS_LONG_BENCH"

// SkipIfNoLongBench skips the benchmark if URLCORPUS_LONG_BENCH is not set.
func SkipIfNoLongBench(b *testing.B) {
	if os.Getenv(LongBenchEnv) == "" {
		b.Skip("set " + LongBenchEnv + "=1 to run scaling benchmark")
	}
}
