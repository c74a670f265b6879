// Package timefmt renders timestamps and counters for display.
package timefmt

import (
	"fmt"
	"strconv"
	"time"
)

// Never labels a timestamp that has not happened yet.
const Never = "Never"

// Dash labels a value that does not apply.
const Dash = "—"

// Relative describes t relative to now: "Just now", "5 min ago",
// "3 hours ago", "2 days ago", "1 week ago", and month/year beyond 30 days.
// Instants in the future are described as "in 5 min", "in 3 hours" and so on.
func Relative(t, now time.Time) string {
	diff := now.Sub(t)
	if diff < 0 {
		return future(-diff, t)
	}

	sec := int64(diff / time.Second)
	mins := sec / 60
	hours := mins / 60
	days := hours / 24

	switch {
	case sec < 60:
		return "Just now"
	case mins < 60:
		return fmt.Sprintf("%d min ago", mins)
	case hours < 24:
		return plural(hours, "hour") + " ago"
	case days < 7:
		return plural(days, "day") + " ago"
	case days < 30:
		return plural(days/7, "week") + " ago"
	default:
		return t.Format("Jan 2006")
	}
}

func future(diff time.Duration, t time.Time) string {
	sec := int64(diff / time.Second)
	mins := sec / 60
	hours := mins / 60
	days := hours / 24

	switch {
	case sec < 60:
		return "Any moment"
	case mins < 60:
		return fmt.Sprintf("in %d min", mins)
	case hours < 24:
		return "in " + plural(hours, "hour")
	case days < 7:
		return "in " + plural(days, "day")
	case days < 30:
		return "in " + plural(days/7, "week")
	default:
		return t.Format("Jan 2006")
	}
}

func plural(n int64, unit string) string {
	if n > 1 {
		return fmt.Sprintf("%d %ss", n, unit)
	}
	return fmt.Sprintf("%d %s", n, unit)
}

// RelativeOrNever formats t, or returns Never when t is nil.
func RelativeOrNever(t *time.Time, now time.Time) string {
	if t == nil {
		return Never
	}
	return Relative(*t, now)
}

// Number groups thousands with commas: 1234567 -> "1,234,567".
func Number(n int) string {
	s := strconv.Itoa(n)
	neg := n < 0
	if neg {
		s = s[1:]
	}

	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}

	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// OneDecimal renders v with exactly one decimal place.
func OneDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// Clock is a wall-clock marker such as "15:04:05".
func Clock(t time.Time) string {
	return t.Format("15:04:05")
}
