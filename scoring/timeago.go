// Package scoring computes the health score of a repository and the
// derived display fields from its raw metadata.
// Every function takes the reference instant explicitly and never reads the wall clock.
package scoring

import (
	"fmt"
	"math"
	"time"
)

const millisecondsPerDay = 24 * 60 * 60 * 1000

// DaysSince return the number of whole days between instant and now, rounded up.
// The difference is absolute, so future instants never give a negative count
func DaysSince(instant, now time.Time) int {
	diff := now.Sub(instant).Milliseconds()
	if diff < 0 {
		diff = -diff
	}

	return int(math.Ceil(float64(diff) / millisecondsPerDay))
}

// TimeAgo render the elapsed time since instant as an english relative time
func TimeAgo(instant, now time.Time) string {
	days := DaysSince(instant, now)

	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "1 day ago"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return plural(days/7, "week")
	case days < 365:
		return plural(days/30, "month")
	default:
		return plural(days/365, "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}

	return fmt.Sprintf("%d %ss ago", n, unit)
}
