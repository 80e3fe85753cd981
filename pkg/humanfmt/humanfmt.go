// Package humanfmt renders corpus sizes, record counts, durations and
// generation rates for log fields and CLI summaries, and parses the size
// strings accepted by --mem-budget.
package humanfmt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IEC byte units.
const (
	KiB = 1 << 10
	MiB = 1 << 20
	GiB = 1 << 30
	TiB = 1 << 40
)

type unit struct {
	size   float64
	suffix string
}

// Largest first; scaled picks the first unit v reaches.
var (
	byteUnits  = []unit{{TiB, " TiB"}, {GiB, " GiB"}, {MiB, " MiB"}, {KiB, " KiB"}}
	countUnits = []unit{{1e9, "B"}, {1e6, "M"}, {1e3, "K"}}
)

func scaled(v float64, units []unit) (string, bool) {
	for _, u := range units {
		if v >= u.size {
			return strconv.FormatFloat(v/u.size, 'f', 2, 64) + u.suffix, true
		}
	}
	return "", false
}

// Bytes renders b as "1.23 GiB"; values under 1 KiB stay exact.
func Bytes(b int64) string {
	if s, ok := scaled(float64(b), byteUnits); ok {
		return s
	}
	return strconv.FormatInt(b, 10) + " B"
}

// Count renders n as "1.23M"; values under 1000 stay exact.
func Count(n int64) string {
	if s, ok := scaled(float64(n), countUnits); ok {
		return s
	}
	return strconv.FormatInt(n, 10)
}

// Throughput renders bytes over d as "123.45 MiB/s".
func Throughput(bytes int64, d time.Duration) string {
	if d <= 0 {
		return "∞"
	}
	perSec := float64(bytes) / d.Seconds()
	if s, ok := scaled(perSec, byteUnits); ok {
		return s + "/s"
	}
	return strconv.FormatFloat(perSec, 'f', 0, 64) + " B/s"
}

// Rate renders n items over d as "1.52M/s".
func Rate(n int64, d time.Duration) string {
	if d <= 0 {
		return "∞"
	}
	return Count(int64(float64(n)/d.Seconds())) + "/s"
}

// Duration renders d at the coarsest useful resolution: "2h15m", "1m30s",
// "1.23s", "45.6ms", "789.0µs" or "500ns".
func Duration(d time.Duration) string {
	switch {
	case d < 0:
		return d.String()
	case d >= time.Minute:
		big, small, bigSuffix, smallSuffix := d/time.Minute, (d%time.Minute)/time.Second, "m", "s"
		if d >= time.Hour {
			big, small, bigSuffix, smallSuffix = d/time.Hour, (d%time.Hour)/time.Minute, "h", "m"
		}
		if small == 0 {
			return fmt.Sprintf("%d%s", big, bigSuffix)
		}
		return fmt.Sprintf("%d%s%d%s", big, bigSuffix, small, smallSuffix)
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fµs", float64(d)/float64(time.Microsecond))
	}
	return fmt.Sprintf("%dns", d.Nanoseconds())
}

var sizeSuffixes = map[string]float64{
	"": 1, "B": 1,
	"K": KiB, "KiB": KiB, "KB": 1e3,
	"M": MiB, "MiB": MiB, "MB": 1e6,
	"G": GiB, "GiB": GiB, "GB": 1e9,
	"T": TiB, "TiB": TiB, "TB": 1e12,
}

// ParseSize parses sizes such as "4GiB", "512MB" or "1.5K". Bare suffixes
// K/M/G/T are binary; KB/MB/GB/TB are decimal.
func ParseSize(s string) (uint64, error) {
	if s == "" {
		return 0, errors.New("empty size string")
	}
	split := strings.IndexFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' })
	if split < 0 {
		split = len(s)
	}
	num, err := strconv.ParseFloat(s[:split], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %q", s[:split])
	}
	mult, ok := sizeSuffixes[s[split:]]
	if !ok {
		return 0, fmt.Errorf("unknown size suffix: %q", s[split:])
	}
	return uint64(num * mult), nil
}
