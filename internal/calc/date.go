package calc

import (
	"math"
	"regexp"
	"time"
)

const dateLayout = "2006-01-02"

var dayFirst = regexp.MustCompile(`^(\d{1,2})[-/](\d{1,2})[-/](\d{4})$`)

// NormalizeDate rewrites DD-MM-YYYY and DD/MM/YYYY to YYYY-MM-DD. Any other
// input is returned unchanged.
func NormalizeDate(s string) string {
	m := dayFirst.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return m[3] + "-" + pad2(m[2]) + "-" + pad2(m[1])
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// ParseDate normalizes s and parses it as a calendar day.
func ParseDate(s string) (time.Time, bool) {
	n := NormalizeDate(s)
	for _, layout := range []string{dateLayout, "2006-1-2"} {
		if t, err := time.Parse(layout, n); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysBetween returns the whole days from a to b. It is negative when b is
// before a and false when either date is invalid.
func DaysBetween(a, b string) (int, bool) {
	from, ok := ParseDate(a)
	if !ok {
		return 0, false
	}
	to, ok := ParseDate(b)
	if !ok {
		return 0, false
	}
	return int(math.Round(to.Sub(from).Hours() / 24)), true
}
