package benchutil

// Shared constants for benchmarks across packages.

// BenchmarkSeed is the default seed for reproducible benchmark data generation.
const BenchmarkSeed = 42

// Standard benchmark sizes for quick runs.
var BenchmarkSizes = []int{1000, 10000, 100000}

// ScalingSizes are larger sizes for comprehensive scaling tests.
// Used with URLCORPUS_LONG_BENCH=1 environment variable.
var ScalingSizes = []int{100000, 1000000, 10000000}

// KeyShapes are the standard key shapes for benchmarking:
//   - default: https, 10-letter domain, 15-char path
//   - short: 3-letter domain, 5-char path; many near collisions in prefix
//   - long: 30-letter domain, 100-char path
//   - faker: gofakeit URLs with realistic words
var KeyShapes = []string{
	"default",
	"short",
	"long",
	"faker",
}
