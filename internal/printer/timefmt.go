package printer

import (
	"fmt"
	"time"
)

const timestampLayout = "2006-01-02 15:04 UTC"

// Ago returns how long ago t happened relative to now, e.g. "3 hours ago".
func Ago(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}

	d := now.Sub(t)
	if d < 0 {
		return "just now"
	}
	return humanDuration(d) + " ago"
}

// Due describes a due date relative to now, e.g. "in 2 days" or "3 hours overdue".
func Due(due *time.Time, now time.Time) string {
	if due == nil {
		return "-"
	}

	d := due.Sub(now)
	if d < 0 {
		return humanDuration(-d) + " overdue"
	}
	return "in " + humanDuration(d)
}

// FormatTimestamp returns t formatted in UTC.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timestampLayout)
}

func humanDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return plural(int(d.Seconds()), "second")
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
