// Package reltime renders "time ago" labels for conversation lists.
package reltime

import (
	"fmt"
	"time"
)

// AbsoluteLayout is the fr-FR short date used once a timestamp is a week old.
const AbsoluteLayout = "02/01/2006"

// Format buckets now-t. Minutes, hours and days are all rounded down.
func Format(t, now time.Time) string {
	diff := now.Sub(t)
	mins := int(diff / time.Minute)
	hours := int(diff / time.Hour)
	days := int(diff / (24 * time.Hour))

	switch {
	case mins < 1:
		return "just now"
	case mins < 60:
		return fmt.Sprintf("%d min ago", mins)
	case hours < 24:
		if hours > 1 {
			return fmt.Sprintf("%d hours ago", hours)
		}
		return fmt.Sprintf("%d hour ago", hours)
	case days == 1:
		return "yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format(AbsoluteLayout)
	}
}
