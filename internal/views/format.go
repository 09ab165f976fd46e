package views

import (
	"fmt"
	"time"
)

// FormatVisited renders a last-visited stamp for display. Anything older
// than three months reads as not visited recently.
func FormatVisited(visited, now time.Time) string {
	if visited.IsZero() || visited.Before(now.AddDate(0, -3, 0)) {
		return "Not visited recently"
	}

	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
	switch day(visited) {
	case day(now):
		return "Visited: Today"
	case day(now.AddDate(0, 0, -1)):
		return "Visited: Yesterday"
	}

	elapsed := now.Sub(visited)
	if months := int(elapsed.Hours() / (24 * 30)); months >= 1 {
		return fmt.Sprintf("Visited: %d months ago", months)
	}
	if days := int(elapsed.Hours() / 24); days >= 1 {
		return fmt.Sprintf("Visited: %d days ago", days)
	}
	return "Visited: " + visited.Format("1/2/2006")
}

// FormatStatusTime renders how long ago a roster entry checked in.
func FormatStatusTime(joined, now time.Time) string {
	if joined.IsZero() {
		return ""
	}
	elapsed := now.Sub(joined)
	switch {
	case elapsed < 5*time.Second:
		return "just now"
	case elapsed < time.Minute:
		return fmt.Sprintf("%ds ago", int(elapsed.Seconds()))
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed.Minutes()))
	}
	return joined.Format("3:04 PM")
}
