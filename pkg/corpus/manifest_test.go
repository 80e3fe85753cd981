package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eunmann/urlcorpus/pkg/urlgen"
)

func writeSeeded(t *testing.T, path string, n int, seed uint64) (Config, *Result) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Path = path
	cfg.Count = n
	cfg.Options = urlgen.Options{UseHTTPS: false, DomainLength: 6, PathLength: 9}
	g, err := urlgen.NewSeeded(cfg.Options, seed)
	require.NoError(t, err)
	res, err := Write(context.Background(), cfg, g)
	require.NoError(t, err)
	return cfg, res
}

func TestManifestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	cfg, res := writeSeeded(t, path, 40, 8)

	m, err := NewManifest(cfg, res, "synthetic", 8)
	require.NoError(t, err)
	require.Equal(t, int64(40), m.Lines)
	require.Equal(t, "http", m.Scheme)
	require.Len(t, m.Checksum, 64)
	require.NoError(t, WriteManifest(path, m))

	got, err := ReadManifest(path)
	require.NoError(t, err)
	require.Equal(t, m.Checksum, got.Checksum)
	require.Equal(t, cfg.Options, got.Options())
	require.Equal(t, uint64(8), got.Seed)
	require.NoError(t, VerifyManifest(path, got))
}

func TestVerifyManifestDetectsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	cfg, res := writeSeeded(t, path, 10, 1)
	m, err := NewManifest(cfg, res, "synthetic", 1)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len("http://")] ^= 0x01
	require.NoError(t, os.WriteFile(path, data, 0o644))
	require.ErrorContains(t, VerifyManifest(path, m), "checksum mismatch")

	require.NoError(t, os.WriteFile(path, data[:len(data)-1], 0o644))
	require.ErrorContains(t, VerifyManifest(path, m), "size mismatch")
}

func TestReadManifestMissing(t *testing.T) {
	_, err := ReadManifest(filepath.Join(t.TempDir(), "none.txt"))
	require.ErrorIs(t, err, ErrIO)
}

func TestReadManifestBadVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(ManifestPath(path), []byte(`{"version": 99}`), 0o644))
	_, err := ReadManifest(path)
	require.ErrorContains(t, err, "unsupported version")
}
