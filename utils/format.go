package utils

import (
	"fmt"
	"time"
)

const (
	TimestampRelative = "relative"
	TimestampShort    = "short"
	TimestampFull     = "full"
)

// TruncateText cuts text to maxLength runes, appending "..." when cut.
func TruncateText(text string, maxLength int, ellipsis bool) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	truncated := string(runes[:maxLength])
	if ellipsis {
		truncated += "..."
	}
	return truncated
}

// FormatTimestamp renders t relative to now ("3 hours ago"), short
// ("Jan 02, 2006") or full ("January 02, 2006 03:04 PM").
func FormatTimestamp(t time.Time, format string, now time.Time) string {
	if t.IsZero() {
		return "N/A"
	}

	switch format {
	case TimestampRelative:
		return relativeTime(now.Sub(t))
	case TimestampShort:
		return t.Format("Jan 02, 2006")
	case TimestampFull:
		return t.Format("January 02, 2006 03:04 PM")
	}
	return t.String()
}

func relativeTime(d time.Duration) string {
	seconds := int64(d.Seconds())
	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return plural(seconds/60, "minute")
	case seconds < 86400:
		return plural(seconds/3600, "hour")
	case seconds < 604800:
		return plural(seconds/86400, "day")
	case seconds < 2592000:
		return plural(seconds/604800, "week")
	}
	return plural(seconds/2592000, "month")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
