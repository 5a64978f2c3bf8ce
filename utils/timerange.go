package utils

import (
	"fmt"
	"strconv"
	"time"
)

// TimeRange is a half-open [Start, End) window.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// GetLastDaysRange returns the window from the start of the day N days ago until now.
func GetLastDaysRange(now time.Time, days int) TimeRange {
	startDaysAgo := now.AddDate(0, 0, -days)
	startOfDay := time.Date(startDaysAgo.Year(), startDaysAgo.Month(), startDaysAgo.Day(), 0, 0, 0, 0, startDaysAgo.Location())
	return TimeRange{Start: startOfDay, End: now}
}

// GetTimeRangeLabel describes a last-N-days window.
func GetTimeRangeLabel(days int) string {
	switch days {
	case 1:
		return "last day"
	default:
		return "last " + strconv.Itoa(days) + " days"
	}
}

// FormatLatency renders a response latency for humans.
func FormatLatency(d time.Duration) string {
	if d <= 0 {
		return "n/a"
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
