package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dm/fleetmon-go/internal/format"
	"github.com/dm/fleetmon-go/internal/model"
)

// renderRanking renders the distance leaderboard: one line per ranked device
// with a bar scaled to the leader.
func renderRanking(ranking []model.RankEntry, width int) string {
	if width <= 0 {
		width = 80
	}
	title := StyleDim.Render("Top Distance")
	if len(ranking) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, StyleDim.Render("  (no distance reported)"))
	}

	const nameWidth, valueWidth = 18, 16
	barWidth := width - nameWidth - valueWidth - 8
	if barWidth < 4 {
		barWidth = 4
	}

	leader := ranking[0].TotalDistance
	lines := []string{title}
	for i, r := range ranking {
		pct := 0.0
		if leader > 0 {
			pct = r.TotalDistance / leader * 100
		}
		name := truncateName(sanitize(r.Name), nameWidth)
		line := fmt.Sprintf("  %d. %s%s %s %s",
			i+1,
			StatusStyle(r.Status).Render(name),
			strings.Repeat(" ", nameWidth-lipgloss.Width(name)),
			StylePurple.Render(renderMiniBar(pct, barWidth)),
			fmt.Sprintf("%*s", valueWidth, format.FormatDistanceKM(r.TotalDistance)),
		)
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
