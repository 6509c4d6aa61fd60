package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dm/fleetmon-go/internal/format"
)

// renderOverview renders the 7-card KPI bar.
// Wide terminals (>= 80 cols): all 7 cards in a single horizontal row.
// Narrow terminals (< 80 cols): cards stacked in rows of 2 (2+2+2+1).
// Returns empty string if no snapshot is available yet.
func renderOverview(app *App) string {
	if app.current == nil {
		return ""
	}

	width := app.width
	if width <= 0 {
		width = 80
	}

	narrowMode := width < 80

	var cardWidth int
	if narrowMode {
		cardWidth = (width - 4) / 2
		if cardWidth < 10 {
			cardWidth = 10
		}
	} else {
		cardWidth = (width - 14) / 7
		if cardWidth < 8 {
			cardWidth = 8
		}
	}

	barWidth := cardWidth - 4
	if barWidth < 4 {
		barWidth = 4
	}

	agg := app.agg

	card1 := StyleOverviewCard.
		Foreground(colorBlue).
		Width(cardWidth).
		Render(fmt.Sprintf("%d", agg.DeviceCount) + "\nDevices")

	onlinePct := 0.0
	if agg.DeviceCount > 0 {
		onlinePct = float64(agg.OnlineCount) / float64(agg.DeviceCount) * 100
	}
	card2 := StyleOverviewCard.
		Foreground(colorGreen).
		Width(cardWidth).
		Render(fmt.Sprintf("%d", agg.OnlineCount) + "\n" + renderMiniBar(onlinePct, barWidth) + "\nOnline")

	offSev := offlineSeverity(agg)
	offVal := fmt.Sprintf("%d", agg.OfflineCount)
	if offSev == severityCritical {
		offVal += "!"
	}
	card3 := StyleOverviewCard.
		Foreground(severityFg(offSev, colorGray)).
		Width(cardWidth).
		Render(offVal + "\nOffline")

	card4 := StyleOverviewCard.
		Foreground(colorGray).
		Width(cardWidth).
		Render(fmt.Sprintf("%d", agg.UnknownCount) + "\nUnknown")

	card5 := StyleOverviewCard.
		Foreground(colorCyan).
		Width(cardWidth).
		Render(fmt.Sprintf("%d", agg.MovingCount) + "\nMoving")

	card6 := StyleOverviewCard.
		Foreground(colorPurple).
		Width(cardWidth).
		Render(format.FormatDistanceKM(agg.TotalDistance) + "\nDistance")

	card7 := StyleOverviewCard.
		Foreground(colorIndigo).
		Width(cardWidth).
		Render(fmt.Sprintf("%d/%d", len(agg.MapPositions), agg.DeviceCount) + "\nOn Map")

	if narrowMode {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, card1, card2)
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, card3, card4)
		row3 := lipgloss.JoinHorizontal(lipgloss.Top, card5, card6)
		return lipgloss.JoinVertical(lipgloss.Left, row1, row2, row3, card7)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, card1, card2, card3, card4, card5, card6, card7)
}

// renderMiniBar renders a mini progress bar using Unicode block characters.
// Fills proportionally using "█" for filled and "░" for empty cells.
func renderMiniBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100.0 * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
