package urlgen

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestURLMatchesPattern(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"defaults", DefaultOptions()},
		{"http", Options{UseHTTPS: false, DomainLength: 10, PathLength: 15}},
		{"single char", Options{UseHTTPS: true, DomainLength: 1, PathLength: 1}},
		{"long", Options{UseHTTPS: true, DomainLength: 30, PathLength: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewSeeded(tt.opts, 42)
			require.NoError(t, err)

			re := tt.opts.Pattern()
			for i := 0; i < 1000; i++ {
				u := g.URL()
				require.Regexp(t, re, u)
			}
		})
	}
}

func TestURLExactLength(t *testing.T) {
	opts := Options{UseHTTPS: true, DomainLength: 8, PathLength: 12}
	g, err := NewSeeded(opts, 7)
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		u := g.URL()
		tld := u[strings.LastIndexByte(u[:len(u)-opts.PathLength-1], '.')+1 : len(u)-opts.PathLength-1]
		require.Len(t, u, opts.Len(tld), "url %q", u)
		require.LessOrEqual(t, len(u), opts.MaxLen())
	}
}

func TestHTTPScheme(t *testing.T) {
	g, err := NewSeeded(Options{UseHTTPS: false, DomainLength: 5, PathLength: 5}, 1)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		u := g.URL()
		require.True(t, strings.HasPrefix(u, "http://"), "got %q", u)
		require.False(t, strings.HasPrefix(u, "https://"), "got %q", u)
	}
}

func TestInvalidLengths(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"zero domain", Options{UseHTTPS: true, DomainLength: 0, PathLength: 15}},
		{"negative domain", Options{UseHTTPS: true, DomainLength: -3, PathLength: 15}},
		{"zero path", Options{UseHTTPS: true, DomainLength: 10, PathLength: 0}},
		{"negative path", Options{UseHTTPS: true, DomainLength: 10, PathLength: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGenerator(tt.opts, nil)
			require.Error(t, err)
			require.Nil(t, g)
			require.True(t, errors.Is(err, ErrInvalidArgument), "got %v", err)
		})
	}

	_, err := GenerateURL(true, 0, 15)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGenerateURL(t *testing.T) {
	u, err := GenerateURL(true, 10, 15)
	require.NoError(t, err)
	require.Regexp(t, DefaultOptions().Pattern(), u)
}

func TestSeededReproducible(t *testing.T) {
	opts := DefaultOptions()
	a, err := NewSeeded(opts, 99)
	require.NoError(t, err)
	b, err := NewSeeded(opts, 99)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		require.Equal(t, a.URL(), b.URL())
	}
}

func TestAppendURLMatchesURL(t *testing.T) {
	opts := Options{UseHTTPS: true, DomainLength: 12, PathLength: 20}
	a, err := NewSeeded(opts, 5)
	require.NoError(t, err)
	b, err := NewSeeded(opts, 5)
	require.NoError(t, err)

	buf := []byte("prefix:")
	for i := 0; i < 100; i++ {
		buf = b.AppendURL(buf[:len("prefix:")])
		require.Equal(t, "prefix:"+a.URL(), string(buf))
	}
}

// Domain letters should be uniform over a-z. With 25 degrees of freedom the
// chi-square critical value at p=0.001 is about 52.6.
func TestDomainLetterUniformity(t *testing.T) {
	const (
		samples      = 100_000
		domainLength = 10
	)
	opts := Options{UseHTTPS: true, DomainLength: domainLength, PathLength: 1}
	g, err := NewSeeded(opts, 2024)
	require.NoError(t, err)

	var counts [26]int
	prefix := len(opts.Scheme()) + len("://")
	buf := make([]byte, 0, opts.MaxLen())
	for i := 0; i < samples; i++ {
		buf = g.AppendURL(buf[:0])
		for _, c := range buf[prefix : prefix+domainLength] {
			counts[c-'a']++
		}
	}

	expected := float64(samples*domainLength) / 26
	var chi2 float64
	for _, c := range counts {
		d := float64(c) - expected
		chi2 += d * d / expected
	}
	require.Less(t, chi2, 52.6, "domain letters not uniform: chi2=%.2f counts=%v", chi2, counts)
}

func TestTLDCoverage(t *testing.T) {
	g, err := NewSeeded(DefaultOptions(), 3)
	require.NoError(t, err)

	seen := make(map[string]int)
	for i := 0; i < 6000; i++ {
		u := g.URL()
		rest := u[len("https://")+10+1:]
		seen[rest[:strings.IndexByte(rest, '/')]]++
	}
	require.Len(t, seen, len(TLDs))
	for _, tld := range TLDs {
		require.Greater(t, seen[tld], 700, "tld %s underrepresented", tld)
	}
}

func TestFakerSource(t *testing.T) {
	f := NewFakerSource(11)
	for i := 0; i < 50; i++ {
		u := string(f.AppendURL(nil))
		require.True(t, strings.HasPrefix(u, "http"), "got %q", u)
	}
}
