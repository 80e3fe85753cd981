package kvbench

import (
	"fmt"
	"testing"

	"github.com/eunmann/urlcorpus/pkg/benchutil"
)

/*
Benchmark Categories for key stores:

1. BenchmarkInsert / BenchmarkLookup / BenchmarkScan - per-key cost for each
   implementation (scan only for ordered stores)
   - Key shapes: default, short, long, faker
   - Sizes: 1k, 10k, 100k keys

2. BenchmarkRun_LargeScale - full harness at 1E5..1E7 (gated)
   - Run separately with: go test -bench=LargeScale -benchtime=1x
*/

func BenchmarkInsert(b *testing.B) {
	for _, shape := range benchutil.KeyShapes {
		for _, size := range benchutil.BenchmarkSizes {
			keys := benchutil.GenerateKeys(size, shape)
			for _, impl := range Implementations() {
				b.Run(fmt.Sprintf("%s/%s/size=%d", impl, shape, size), func(b *testing.B) {
					b.ReportAllocs()
					for i := 0; i < b.N; i++ {
						b.StopTimer()
						st, err := NewStore(impl, keys)
						if err != nil {
							b.Fatal(err)
						}
						b.StartTimer()
						for _, k := range keys {
							st.Insert(k)
						}
					}
					b.ReportMetric(float64(size*b.N)/b.Elapsed().Seconds(), "keys/s")
				})
			}
		}
	}
}

func BenchmarkLookup(b *testing.B) {
	for _, size := range benchutil.BenchmarkSizes {
		keys := benchutil.GenerateKeys(size, "default")
		for _, impl := range Implementations() {
			st, err := NewStore(impl, keys)
			if err != nil {
				b.Fatal(err)
			}
			for _, k := range keys {
				st.Insert(k)
			}
			b.Run(fmt.Sprintf("%s/size=%d", impl, size), func(b *testing.B) {
				for i := 0; i < b.N; i++ {
					if !st.Lookup(keys[i%len(keys)]) {
						b.Fatal("miss")
					}
				}
			})
		}
	}
}

func BenchmarkScan(b *testing.B) {
	for _, size := range benchutil.BenchmarkSizes {
		keys := benchutil.GenerateKeys(size, "default")
		st, err := NewStore(ImplRadix, keys)
		if err != nil {
			b.Fatal(err)
		}
		for _, k := range keys {
			st.Insert(k)
		}
		sc := st.(Scanner)
		b.Run(fmt.Sprintf("%s/size=%d", ImplRadix, size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				limit := scanLimit
				sc.Scan(keys[i%len(keys)], func(string) bool {
					limit--
					return limit > 0
				})
			}
		})
	}
}

// BenchmarkRun_LargeScale runs the full harness once per scale.
// Run separately with: go test -bench=LargeScale -benchtime=1x ./pkg/kvbench/...
func BenchmarkRun_LargeScale(b *testing.B) {
	benchutil.SkipIfNoLongBench(b)

	for _, size := range benchutil.ScalingSizes {
		keys := benchutil.GenerateKeys(size, "default")
		b.Run(ScaleLabel(size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := Run(b.Context(), keys, Config{Implementations: Implementations(), Runs: 1, Scan: true}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
