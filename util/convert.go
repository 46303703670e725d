package util

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
)

// ParseTime parses a timestamp in any of the formats people type at a
// prompt: RFC 3339, "2024-01-02", "Jan 2 2024 15:04" and so on. Strings
// without a zone are interpreted in local time.
func ParseTime(value string) (time.Time, error) {
	t, err := dateparse.ParseLocal(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse %q as a time: %w", value, err)
	}

	return t, nil
}

// FormatBytes renders a byte count with binary unit prefixes, the way the
// backup tool itself reports sizes.
func FormatBytes(c uint64) string {
	b := float64(c)
	switch {
	case c >= 1<<40:
		return fmt.Sprintf("%.3f TiB", b/(1<<40))
	case c >= 1<<30:
		return fmt.Sprintf("%.3f GiB", b/(1<<30))
	case c >= 1<<20:
		return fmt.Sprintf("%.3f MiB", b/(1<<20))
	case c >= 1<<10:
		return fmt.Sprintf("%.3f KiB", b/(1<<10))
	default:
		return fmt.Sprintf("%d B", c)
	}
}

// FormatDuration renders an elapsed time as h:mm:ss, dropping the hour part
// when it is zero.
func FormatDuration(d time.Duration) string {
	sec := int64(d.Round(time.Second).Seconds())
	if sec < 0 {
		sec = 0
	}

	hours := sec / 3600
	minutes := (sec % 3600) / 60
	seconds := sec % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}

	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
