package format

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDistanceKM(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{"zero", 0, "0.00 km"},
		{"five_km", 5000, "5.00 km"},
		{"meters", 250, "0.25 km"},
		{"thousands", 1234567, "1,234.57 km"},
		{"millions", 2500000000, "2,500,000.00 km"},
		{"not_available", -1, "---"},
		{"nan", math.NaN(), "---"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatDistanceKM(tc.input))
		})
	}
}

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{"zero", 0, "0.0 km/h"},
		{"ten_knots_converted", 10 * 1.852, "18.5 km/h"},
		{"highway", 112.34, "112.3 km/h"},
		{"not_available", -1, "---"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatSpeed(tc.input))
		})
	}
}

func TestFormatBattery(t *testing.T) {
	assert.Equal(t, "87%", FormatBattery(87))
	assert.Equal(t, "0%", FormatBattery(0))
	assert.Equal(t, "100%", FormatBattery(100))
	assert.Equal(t, "---", FormatBattery(-1))
}

func TestFormatCoord(t *testing.T) {
	assert.Equal(t, "13.90000, 100.50000", FormatCoord(13.9, 100.5))
	assert.Equal(t, "-33.86882, 151.20930", FormatCoord(-33.86882, 151.2093))
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "---"},
		{"future", now.Add(time.Minute), "now"},
		{"same", now, "now"},
		{"seconds", now.Add(-42 * time.Second), "42s ago"},
		{"minutes", now.Add(-95 * time.Second), "1m ago"},
		{"hours", now.Add(-(3*time.Hour + 10*time.Minute)), "3h ago"},
		{"days", now.Add(-50 * time.Hour), "2d ago"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatAge(tc.t, now))
		})
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "07:05:09", FormatClock(time.Date(2026, 1, 1, 7, 5, 9, 0, time.UTC)))
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name  string
		input int64
		want  string
	}{
		{"zero", 0, "0"},
		{"small", 42, "42"},
		{"three_digits", 999, "999"},
		{"four_digits", 1000, "1,000"},
		{"six_digits", 123456, "123,456"},
		{"seven_digits", 1234567, "1,234,567"},
		{"nine_digits", 12345678, "12,345,678"},
		{"negative", -12345, "-12,345"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatNumber(tc.input))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{"zero", 0, "0.0%"},
		{"small", 1.5, "1.5%"},
		{"typical", 34.5, "34.5%"},
		{"hundred", 100.0, "100.0%"},
		{"fractional", 67.89, "67.9%"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatPercent(tc.input))
		})
	}
}
