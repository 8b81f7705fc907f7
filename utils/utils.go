package utils

import (
	"fmt"
	"time"
)

// FormatTime formats time.Duration output to a human readable value.
// Durations below one second keep millisecond precision.
func FormatTime(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm:%ds", int64(d.Minutes()), int64(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh:%dm:%ds", int64(d.Hours()), int64(d.Minutes())%60, int64(d.Seconds())%60)
}
