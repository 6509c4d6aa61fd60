package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/dm/fleetmon-go/internal/format"
)

// renderMetricCard renders a single trend card with title, value, and sparkline.
//
// Layout (3 rows inside a rounded border):
//
//	╭──────────────────╮
//	│ Title            │
//	│ 1,204.3 km       │
//	│ ▁▂▃▅▇█▇▅▃▂       │
//	╰──────────────────╯
func renderMetricCard(title, value string, sparkValues []float64, cardWidth int, color lipgloss.Color, titleStyle lipgloss.Style) string {
	const minCardWidth = 8
	if cardWidth < minCardWidth {
		cardWidth = minCardWidth
	}

	// Content width = card width minus border (2) and padding (2), less the
	// padding lipgloss counts inside Width().
	innerWidth := cardWidth - 6
	if innerWidth < 1 {
		innerWidth = 1
	}

	valueStyle := lipgloss.NewStyle().Bold(true).Foreground(color)

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorGray).
		Padding(0, 1).
		Width(cardWidth - 4)

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title),
		valueStyle.Render(value),
		RenderSparkline(sparkValues, innerWidth, color),
	))
}

// renderMetricsRow renders the four fleet trend cards (Online, Offline,
// Total Distance, On Map) under a "Fleet Trends" label.
// Wide terminals (>= 80 cols): 1x4 horizontal row.
// Narrow terminals (< 80 cols): 2x2 grid.
// Returns empty string when no data is available.
func renderMetricsRow(app *App) string {
	if app.current == nil {
		return ""
	}

	agg := app.agg
	offTitle := titleStyle(offlineSeverity(agg))

	build := func(cardWidth int) []string {
		return []string{
			renderMetricCard("Online", format.FormatNumber(int64(agg.OnlineCount)), app.history.Values("online"), cardWidth, colorGreen, StyleDim),
			renderMetricCard("Offline", format.FormatNumber(int64(agg.OfflineCount)), app.history.Values("offline"), cardWidth, colorRed, offTitle),
			renderMetricCard("Total Distance", format.FormatDistanceKM(agg.TotalDistance), app.history.Values("totalDistance"), cardWidth, colorPurple, StyleDim),
			renderMetricCard("On Map", fmt.Sprintf("%d", len(agg.MapPositions)), app.history.Values("mappable"), cardWidth, colorCyan, StyleDim),
		}
	}

	if app.width > 0 && app.width < 80 {
		// Each card renders at cardWidth-2 columns; two of them fill app.width.
		cardWidth := (app.width + 4) / 2
		if cardWidth < 8 {
			return ""
		}
		cards := build(cardWidth)
		label := StyleDim.MaxWidth(app.width).Render("Fleet Trends")
		top := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1])
		bottom := lipgloss.JoinHorizontal(lipgloss.Top, cards[2], cards[3])
		return lipgloss.JoinVertical(lipgloss.Left, label, top, bottom)
	}

	cardWidth := (app.width + 8) / 4
	if cardWidth < 20 {
		cardWidth = 20
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, build(cardWidth)...)
	return lipgloss.JoinVertical(lipgloss.Left, StyleDim.Render("Fleet Trends"), row)
}
