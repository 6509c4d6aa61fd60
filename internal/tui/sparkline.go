package tui

import (
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// sparkBlocks is the 8-level block character set for sparklines.
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderSparkline converts values into a block sparkline of exactly width
// cells, colored with color.
//
// Values are scaled between the window's minimum and maximum so slowly
// growing series such as odometer totals still show movement. When the
// minimum is positive and all values are equal the line sits at the top;
// an all-zero window sits on the floor.
//
// Values longer than width keep the last width values; fewer values are
// left-padded with spaces.
func RenderSparkline(values []float64, width int, color lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	if len(values) == 0 {
		return strings.Repeat(" ", width)
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	minVal, maxVal := slices.Min(values), slices.Max(values)
	// Counts start from zero unless the series never gets near it.
	if minVal > 0 && minVal < maxVal/2 {
		minVal = 0
	}
	span := maxVal - minVal

	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", width-len(values)))
	for _, v := range values {
		idx := 0
		switch {
		case span > 0:
			idx = int((v - minVal) / span * 7)
		case maxVal > 0:
			idx = 7
		}
		idx = max(0, min(idx, 7))
		sb.WriteRune(sparkBlocks[idx])
	}

	return lipgloss.NewStyle().Foreground(color).Render(sb.String())
}
