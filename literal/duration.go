package literal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// DurationGrammar is the day-time ISO 8601 duration accepted by Edm.Duration
type DurationGrammar struct {
	Negative bool            `parser:"@'-'?"`
	Days     *string         `parser:"'P' (@Number 'D')?"`
	Time     []*DurationPart `parser:"('T' @@+)?"`
}

// DurationPart is one hour, minute or second component
type DurationPart struct {
	Value string `parser:"@Number"`
	Unit  string `parser:"@('H' | 'M' | 'S')"`
}

var durationParser = participle.MustBuild[DurationGrammar](
	participle.Lexer(lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Number", Pattern: `\d+(?:\.\d+)?`},
		{Name: "Designator", Pattern: `[-PDTHMS]`},
	})),
)

// ParseDuration parses an ISO 8601 day-time duration such as "P1DT2H30M"
func ParseDuration(s string) (time.Duration, error) {
	g, err := durationParser.ParseString("", s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration '%s': %w", s, err)
	}
	if g.Days == nil && len(g.Time) == 0 {
		return 0, fmt.Errorf("invalid duration '%s': no components", s)
	}

	var total time.Duration
	if g.Days != nil {
		days, err := strconv.ParseInt(*g.Days, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration '%s': days must be an integer", s)
		}
		total += time.Duration(days) * 24 * time.Hour
	}

	seen := map[string]bool{}
	order := map[string]int{"H": 0, "M": 1, "S": 2}
	last := -1
	for _, part := range g.Time {
		if seen[part.Unit] || order[part.Unit] < last {
			return 0, fmt.Errorf("invalid duration '%s': unexpected '%s' component", s, part.Unit)
		}
		seen[part.Unit] = true
		last = order[part.Unit]

		if part.Unit == "S" {
			d, err := parseSeconds(part.Value)
			if err != nil {
				return 0, fmt.Errorf("invalid duration '%s': %w", s, err)
			}
			total += d
			continue
		}

		n, err := strconv.ParseInt(part.Value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration '%s': only seconds may be fractional", s)
		}
		if part.Unit == "H" {
			total += time.Duration(n) * time.Hour
		} else {
			total += time.Duration(n) * time.Minute
		}
	}

	if g.Negative {
		total = -total
	}
	return total, nil
}

func parseSeconds(v string) (time.Duration, error) {
	whole, frac, _ := strings.Cut(v, ".")
	sec, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	d := time.Duration(sec) * time.Second
	if frac != "" {
		if len(frac) > 9 {
			return 0, fmt.Errorf("seconds precision exceeds nanoseconds")
		}
		ns, err := strconv.ParseInt(frac+strings.Repeat("0", 9-len(frac)), 10, 64)
		if err != nil {
			return 0, err
		}
		d += time.Duration(ns)
	}
	return d, nil
}

// FormatDuration renders d in the form ParseDuration accepts, e.g. "-P1DT2H0.5S"
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}

	var sb strings.Builder
	u := uint64(d)
	if d < 0 {
		sb.WriteByte('-')
		u = uint64(-(d + 1)) + 1
	}
	sb.WriteByte('P')

	const (
		second = uint64(time.Second)
		minute = uint64(time.Minute)
		hour   = uint64(time.Hour)
		day    = 24 * hour
	)

	if days := u / day; days > 0 {
		sb.WriteString(strconv.FormatUint(days, 10))
		sb.WriteByte('D')
	}
	u %= day
	if u == 0 {
		return sb.String()
	}

	sb.WriteByte('T')
	if h := u / hour; h > 0 {
		sb.WriteString(strconv.FormatUint(h, 10))
		sb.WriteByte('H')
	}
	u %= hour
	if m := u / minute; m > 0 {
		sb.WriteString(strconv.FormatUint(m, 10))
		sb.WriteByte('M')
	}
	u %= minute
	if u > 0 {
		sb.WriteString(strconv.FormatUint(u/second, 10))
		if ns := u % second; ns > 0 {
			sb.WriteByte('.')
			sb.WriteString(strings.TrimRight(fmt.Sprintf("%09d", ns), "0"))
		}
		sb.WriteByte('S')
	}
	return sb.String()
}
