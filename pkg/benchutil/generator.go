// Package benchutil provides synthetic key generation for benchmarks and testing.
package benchutil

import (
	"fmt"

	"github.com/eunmann/urlcorpus/pkg/urlgen"
)

// ShapeOptions returns the URL options for a synthetic key shape.
// The faker shape has no options and reports false.
func ShapeOptions(shape string) (urlgen.Options, bool) {
	switch shape {
	case "default":
		return urlgen.DefaultOptions(), true
	case "short":
		return urlgen.Options{UseHTTPS: true, DomainLength: 3, PathLength: 5}, true
	case "long":
		return urlgen.Options{UseHTTPS: true, DomainLength: 30, PathLength: 100}, true
	default:
		return urlgen.Options{}, false
	}
}

// NewSource returns a seeded URL source for shape.
func NewSource(shape string, seed uint64) (urlgen.Source, error) {
	if shape == "faker" {
		return urlgen.NewFakerSource(int64(seed)), nil
	}
	opts, ok := ShapeOptions(shape)
	if !ok {
		return nil, fmt.Errorf("unknown key shape %q", shape)
	}
	return urlgen.NewSeeded(opts, seed)
}

// GenerateKeys returns n reproducible keys of the given shape.
// It panics on an unknown shape.
func GenerateKeys(n int, shape string) []string {
	src, err := NewSource(shape, BenchmarkSeed)
	if err != nil {
		panic(err)
	}
	keys := make([]string, n)
	var buf []byte
	for i := range keys {
		buf = src.AppendURL(buf[:0])
		keys[i] = string(buf)
	}
	return keys
}
