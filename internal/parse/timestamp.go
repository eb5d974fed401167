package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layouts accepted for form and API timestamps, tried in order. Values
// without a zone are read in the caller's location.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// compactDurationRe matches [+-]?(\d+)([hdwmy]), e.g. "+6m" for six months.
var compactDurationRe = regexp.MustCompile(`^([+-]?)(\d+)([hdwmy])$`)

// maxCompactCount bounds each unit to roughly a hundred years.
var maxCompactCount = map[string]int{
	"h": 100 * 366 * 24,
	"d": 100 * 366,
	"w": 100 * 53,
	"m": 100 * 12,
	"y": 100,
}

// Timestamp parses an optional timestamp. Blank input yields nil. Besides the
// absolute layouts, a datetime-local value ("2024-05-02T07:30") and a compact
// duration relative to now ("+3m", "-1d") are accepted.
func Timestamp(raw string, now time.Time) (*time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	if t, ok, err := compactDuration(s, now); err != nil {
		return nil, err
	} else if ok {
		return &t, nil
	}

	// datetime-local inputs use a T separator without a zone.
	if !strings.ContainsAny(s, "Zz+") && strings.Count(s, "-") == 2 {
		s = strings.Replace(s, "T", " ", 1)
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unable to parse timestamp: %q", raw)
}

func compactDuration(s string, now time.Time) (time.Time, bool, error) {
	m := compactDurationRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false, nil
	}
	n, err := strconv.Atoi(m[2])
	if err != nil || n > maxCompactCount[m[3]] {
		return time.Time{}, false, fmt.Errorf("duration out of range: %q", s)
	}
	if m[1] == "-" {
		n = -n
	}
	switch m[3] {
	case "h":
		return now.Add(time.Duration(n) * time.Hour), true, nil
	case "d":
		return now.AddDate(0, 0, n), true, nil
	case "w":
		return now.AddDate(0, 0, 7*n), true, nil
	case "m":
		return now.AddDate(0, n, 0), true, nil
	default:
		return now.AddDate(n, 0, 0), true, nil
	}
}

// ID parses a positive integer identifier from a path or form value.
func ID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id: %q", raw)
	}
	return id, nil
}
