package pkg

import (
	"fmt"
	"time"
)

// TimeAgo returns a short human label for how long ago t happened, relative
// to now. Used for the notification feeds, computed at read time, never stored.
func TimeAgo(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	default:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

// DateOnly strips the clock off t, keeping its location. Every place
// that reasons about "today" goes through this, a UTC Truncate shifts
// the date for anyone east of Greenwich.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayLabel humanizes a calendar date against today: "today", "yesterday",
// "N days ago", or the locale date for anything older than a week.
func DayLabel(t, now time.Time) string {
	day := DateOnly(t)
	today := DateOnly(now)
	daysAgo := int(today.Sub(day).Hours() / 24)
	switch {
	case daysAgo <= 0:
		return "today"
	case daysAgo == 1:
		return "yesterday"
	case daysAgo < 7:
		return fmt.Sprintf("%d days ago", daysAgo)
	default:
		return t.Format("Jan 2, 2006")
	}
}
