package presence

import (
	"fmt"
	"strings"
	"time"
)

// ReadableDuration formats d as "1d 2h 3m 4s", omitting zero days, hours and minutes.
func ReadableDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}

	var b strings.Builder
	days, secs := secs/86400, secs%86400
	if days != 0 {
		fmt.Fprintf(&b, "%dd ", days)
	}
	hours, secs := secs/3600, secs%3600
	if hours != 0 {
		fmt.Fprintf(&b, "%dh ", hours)
	}
	minutes, secs := secs/60, secs%60
	if minutes != 0 {
		fmt.Fprintf(&b, "%dm ", minutes)
	}
	fmt.Fprintf(&b, "%ds", secs)
	return b.String()
}
