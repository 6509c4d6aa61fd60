package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// notAvailable is shown for cells whose value is the MetricNotAvailable sentinel.
const notAvailable = "---"

// FormatDistanceKM formats a distance in meters as kilometres with comma-separated
// thousands and two decimal places.
// Example: 5000 → "5.00 km", 1234567 → "1,234.57 km".
// Negative values (sentinel MetricNotAvailable) return "---".
func FormatDistanceKM(meters float64) string {
	if meters < 0 || math.IsNaN(meters) {
		return notAvailable
	}
	return formatCommaFloat(meters/1000, 2) + " km"
}

// FormatSpeed formats a speed already expressed in km/h with one decimal place.
// Example: 18.52 → "18.5 km/h".
// Negative values (sentinel MetricNotAvailable) return "---".
func FormatSpeed(kmh float64) string {
	if kmh < 0 || math.IsNaN(kmh) {
		return notAvailable
	}
	return fmt.Sprintf("%.1f km/h", kmh)
}

// FormatBattery formats a battery level as a whole percentage.
// Negative values (sentinel MetricNotAvailable) return "---".
func FormatBattery(level float64) string {
	if level < 0 || math.IsNaN(level) {
		return notAvailable
	}
	return fmt.Sprintf("%.0f%%", level)
}

// FormatCoord formats a latitude/longitude pair with five decimal places
// (about one metre).
func FormatCoord(lat, lon float64) string {
	return fmt.Sprintf("%.5f, %.5f", lat, lon)
}

// FormatAge formats the time elapsed between t and now, coarsened to the
// largest whole unit. A zero t returns "---"; future times return "now".
// Example: 95s → "1m ago", 3h10m → "3h ago".
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return notAvailable
	}
	d := now.Sub(t)
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	}
}

// FormatClock formats a wall-clock time as HH:MM:SS.
func FormatClock(t time.Time) string {
	return t.Format("15:04:05")
}

// FormatNumber formats an integer with locale-style comma separators.
// Example: 12345678 → "12,345,678".
// Uses strconv.FormatInt directly to avoid abs64 overflow for math.MinInt64.
func FormatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	if n < 0 {
		// s starts with "-"; strip it, insert commas, restore sign.
		return "-" + insertCommas(s[1:])
	}
	return insertCommas(s)
}

// FormatPercent formats a percentage with one decimal place.
// Example: 34.5 → "34.5%".
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// formatCommaFloat formats a float with comma-separated thousands and the
// given number of decimal places.
func formatCommaFloat(f float64, decimals int) string {
	formatted := strconv.FormatFloat(f, 'f', decimals, 64)
	// Strip leading minus before inserting commas, then restore it
	sign := ""
	if len(formatted) > 0 && formatted[0] == '-' {
		sign = "-"
		formatted = formatted[1:]
	}
	parts := strings.SplitN(formatted, ".", 2)
	intPart := insertCommas(parts[0])
	if len(parts) == 2 {
		return sign + intPart + "." + parts[1]
	}
	return sign + intPart
}

// insertCommas inserts comma separators into a digit string every 3 digits from the right.
func insertCommas(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var buf strings.Builder
	lead := n % 3
	if lead > 0 {
		buf.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(s[i : i+3])
	}
	return buf.String()
}
