// Package urlgen generates synthetic URL-shaped strings for use as benchmark keys.
//
// Every generated URL has the form <scheme>://<domain>.<tld>/<path> where the
// domain is drawn from lowercase letters, the TLD from a small fixed set and the
// path from ASCII letters and digits. Characters are sampled independently and
// uniformly with replacement; generated URLs are not deduplicated.
package urlgen

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/exp/rand"
)

// ErrInvalidArgument is returned when generation parameters are out of range.
var ErrInvalidArgument = errors.New("invalid argument")

const (
	domainAlphabet = "abcdefghijklmnopqrstuvwxyz"
	pathAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// TLDs is the closed set of top-level domains a generated URL can end in.
var TLDs = []string{"com", "net", "org", "io", "ru", "to"}

// Options configures the shape of generated URLs.
type Options struct {
	// UseHTTPS selects the "https" scheme; otherwise "http" is used.
	UseHTTPS bool
	// DomainLength is the number of letters in the domain label.
	DomainLength int
	// PathLength is the number of characters in the path segment.
	PathLength int
}

// DefaultOptions returns the default URL shape: https, 10-letter domain, 15-char path.
func DefaultOptions() Options {
	return Options{
		UseHTTPS:     true,
		DomainLength: 10,
		PathLength:   15,
	}
}

// Validate rejects non-positive lengths.
func (o Options) Validate() error {
	if o.DomainLength <= 0 {
		return fmt.Errorf("domain length must be positive, got %d: %w", o.DomainLength, ErrInvalidArgument)
	}
	if o.PathLength <= 0 {
		return fmt.Errorf("path length must be positive, got %d: %w", o.PathLength, ErrInvalidArgument)
	}
	return nil
}

// Scheme returns the URL scheme selected by UseHTTPS.
func (o Options) Scheme() string {
	if o.UseHTTPS {
		return "https"
	}
	return "http"
}

// Len returns the exact length of a URL generated with these options and the given TLD.
func (o Options) Len(tld string) int {
	return len(o.Scheme()) + len("://") + o.DomainLength + 1 + len(tld) + 1 + o.PathLength
}

// MaxLen returns the length of the longest URL these options can produce.
func (o Options) MaxLen() int {
	longest := 0
	for _, tld := range TLDs {
		if len(tld) > longest {
			longest = len(tld)
		}
	}
	return len(o.Scheme()) + len("://") + o.DomainLength + 1 + longest + 1 + o.PathLength
}

// Pattern returns a regular expression matching exactly the URLs these options produce.
func (o Options) Pattern() *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(
		`^%s://[a-z]{%d}\.(com|net|org|io|ru|to)/[A-Za-z0-9]{%d}$`,
		o.Scheme(), o.DomainLength, o.PathLength,
	))
}

// Source produces URL records by appending them to a byte slice.
type Source interface {
	AppendURL(dst []byte) []byte
}

// Generator produces URLs from an injected random source.
// A Generator is not safe for concurrent use.
type Generator struct {
	opts Options
	rng  *rand.Rand
}

// NewGenerator validates opts and returns a generator drawing from src.
// A nil src is replaced by a time-seeded PCG source.
func NewGenerator(opts Options, src rand.Source) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}
	return &Generator{
		opts: opts,
		rng:  rand.New(src),
	}, nil
}

// NewSeeded returns a generator whose output is fully determined by seed.
func NewSeeded(opts Options, seed uint64) (*Generator, error) {
	return NewGenerator(opts, rand.NewSource(seed))
}

// Options returns the generator's URL shape.
func (g *Generator) Options() Options {
	return g.opts
}

// URL returns one synthetic URL.
func (g *Generator) URL() string {
	return string(g.AppendURL(make([]byte, 0, g.opts.MaxLen())))
}

// AppendURL appends one synthetic URL to dst and returns the extended slice.
// It consumes the random stream exactly as URL does.
func (g *Generator) AppendURL(dst []byte) []byte {
	dst = append(dst, g.opts.Scheme()...)
	dst = append(dst, "://"...)
	for i := 0; i < g.opts.DomainLength; i++ {
		dst = append(dst, domainAlphabet[g.rng.Intn(len(domainAlphabet))])
	}
	dst = append(dst, '.')
	dst = append(dst, TLDs[g.rng.Intn(len(TLDs))]...)
	dst = append(dst, '/')
	for i := 0; i < g.opts.PathLength; i++ {
		dst = append(dst, pathAlphabet[g.rng.Intn(len(pathAlphabet))])
	}
	return dst
}

// GenerateURL returns a single URL from a fresh non-deterministic source.
func GenerateURL(useHTTPS bool, domainLength, pathLength int) (string, error) {
	g, err := NewGenerator(Options{
		UseHTTPS:     useHTTPS,
		DomainLength: domainLength,
		PathLength:   pathLength,
	}, nil)
	if err != nil {
		return "", err
	}
	return g.URL(), nil
}
