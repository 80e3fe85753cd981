package benchutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateKeysReproducible(t *testing.T) {
	for _, shape := range KeyShapes {
		t.Run(shape, func(t *testing.T) {
			a := GenerateKeys(100, shape)
			b := GenerateKeys(100, shape)
			require.Len(t, a, 100)
			require.Equal(t, a, b)
		})
	}
}

func TestShapeOptionsMatchPattern(t *testing.T) {
	for _, shape := range []string{"default", "short", "long"} {
		opts, ok := ShapeOptions(shape)
		require.True(t, ok, shape)
		re := opts.Pattern()
		for _, k := range GenerateKeys(50, shape) {
			require.Regexp(t, re, k)
		}
	}
}

func TestNewSourceUnknownShape(t *testing.T) {
	_, err := NewSource("nope", 1)
	require.Error(t, err)
}
