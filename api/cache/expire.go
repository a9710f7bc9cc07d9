package cache

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/morikuni/failure/v2"
)

var relativeTerm = regexp.MustCompile(`^([+-]?)\s*(\d+)\s*([a-z]+)$`)

var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ResolveExpiration turns an expiration expression into an absolute time.
//
// An empty expression is Permanent. Accepted forms are "now", "today",
// "midnight", "tomorrow", relative terms such as "+1 day" or
// "+1 week -2 hours", "@<unix seconds>" and absolute dates in RFC 3339,
// "2006-01-02 15:04:05" or "2006-01-02" layouts (local time).
func ResolveExpiration(expr string, now time.Time) (time.Time, error) {
	expr = strings.ToLower(strings.TrimSpace(expr))
	if expr == "" {
		return Permanent, nil
	}

	switch expr {
	case "now":
		return now, nil
	case "today", "midnight":
		return midnight(now), nil
	case "tomorrow":
		return midnight(now).AddDate(0, 0, 1), nil
	}

	if strings.HasPrefix(expr, "@") {
		sec, err := strconv.ParseInt(expr[1:], 10, 64)
		if err != nil {
			return time.Time{}, invalidExpiration(expr)
		}
		return time.Unix(sec, 0), nil
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, expr, now.Location()); err == nil {
			return t, nil
		}
		if t, err := time.ParseInLocation(layout, strings.ToUpper(expr), now.Location()); err == nil {
			return t, nil
		}
	}

	return resolveRelative(expr, now)
}

func resolveRelative(expr string, now time.Time) (time.Time, error) {
	terms := splitTerms(expr)
	if len(terms) == 0 {
		return time.Time{}, invalidExpiration(expr)
	}

	t := now
	for _, term := range terms {
		m := relativeTerm.FindStringSubmatch(term)
		if m == nil {
			return time.Time{}, invalidExpiration(expr)
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return time.Time{}, invalidExpiration(expr)
		}
		if m[1] == "-" {
			n = -n
		}

		switch strings.TrimSuffix(m[3], "s") {
		case "sec", "second":
			t = t.Add(time.Duration(n) * time.Second)
		case "min", "minute":
			t = t.Add(time.Duration(n) * time.Minute)
		case "hour":
			t = t.Add(time.Duration(n) * time.Hour)
		case "day":
			t = t.AddDate(0, 0, n)
		case "week":
			t = t.AddDate(0, 0, 7*n)
		case "month":
			t = t.AddDate(0, n, 0)
		case "year":
			t = t.AddDate(n, 0, 0)
		default:
			return time.Time{}, invalidExpiration(expr)
		}
	}
	return t, nil
}

// splitTerms splits "+1 week 2 days" into ["+1 week", "2 days"]
func splitTerms(expr string) []string {
	fields := strings.Fields(expr)
	var terms []string
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		// "+1day" or "+1" followed by the unit
		if relativeTerm.MatchString(f) {
			terms = append(terms, f)
			continue
		}
		if i+1 < len(fields) {
			terms = append(terms, f+" "+fields[i+1])
			i++
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func invalidExpiration(expr string) error {
	return failure.New(ErrInvalidExpiration,
		failure.Message("Invalid cache expiration"),
		failure.Context{"expired": expr},
	)
}
