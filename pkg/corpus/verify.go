package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/eunmann/urlcorpus/pkg/urlgen"
)

const maxMalformedSamples = 5

// Stats describes the contents of a corpus file.
type Stats struct {
	Lines     int64
	Malformed int64
	// MalformedSamples holds the first few malformed records.
	MalformedSamples []string
	Schemes          map[string]int64
	TLDs             map[string]int64
	// LetterCounts is the histogram of domain letters over well-formed records.
	LetterCounts [26]int64
	// Unterminated is set when a text corpus does not end with a newline.
	Unterminated bool
}

// ChiSquare returns the chi-square statistic of LetterCounts against a
// uniform distribution over 26 letters (25 degrees of freedom).
func (s *Stats) ChiSquare() float64 {
	var total int64
	for _, c := range s.LetterCounts {
		total += c
	}
	if total == 0 {
		return 0
	}
	expected := float64(total) / 26
	var chi2 float64
	for _, c := range s.LetterCounts {
		d := float64(c) - expected
		chi2 += d * d / expected
	}
	return chi2
}

// Verify reads the corpus at path and checks every record against the
// structure produced by opts. In a text corpus every record, including the
// last, must end in a bare '\n'; a record carrying '\r' or missing its
// newline counts as malformed.
func Verify(ctx context.Context, path string, opts urlgen.Options) (*Stats, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	v := &verifier{
		opts:        opts,
		re:          opts.Pattern(),
		domainStart: len(opts.Scheme()) + len("://"),
		stats: &Stats{
			Schemes: make(map[string]int64),
			TLDs:    make(map[string]int64),
		},
	}

	// Records are checked one behind the reader so the final record can be
	// judged once the reader knows whether it was newline terminated.
	var pending string
	havePending := false
	for i := 0; ; i++ {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("verify %s: %w", path, err)
			}
		}
		url, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, ioErr("read", path, err)
		}
		if havePending {
			v.check(pending, false)
		}
		pending, havePending = url, true
	}
	if havePending {
		tr, ok := r.(interface{ Unterminated() bool })
		v.stats.Unterminated = ok && tr.Unterminated()
		v.check(pending, v.stats.Unterminated)
	}
	return v.stats, nil
}

type verifier struct {
	opts        urlgen.Options
	re          *regexp.Regexp
	domainStart int
	stats       *Stats
}

func (v *verifier) check(url string, forceMalformed bool) {
	s := v.stats
	s.Lines++
	if i := strings.Index(url, "://"); i > 0 {
		s.Schemes[url[:i]]++
	}
	if forceMalformed || !v.re.MatchString(url) {
		s.Malformed++
		if len(s.MalformedSamples) < maxMalformedSamples {
			s.MalformedSamples = append(s.MalformedSamples, url)
		}
		return
	}

	domain := url[v.domainStart : v.domainStart+v.opts.DomainLength]
	for i := 0; i < len(domain); i++ {
		s.LetterCounts[domain[i]-'a']++
	}
	tldEnd := len(url) - v.opts.PathLength - 1
	s.TLDs[url[v.domainStart+v.opts.DomainLength+1:tldEnd]]++
}
