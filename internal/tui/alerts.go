package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/dm/fleetmon-go/internal/model"
)

// alertCategories is the display order of alert groups.
var alertCategories = []model.AlertCategory{
	model.CategoryConnectivity,
	model.CategoryFetch,
	model.CategoryBattery,
	model.CategoryStaleness,
}

// categoryLabel returns the display name for an alert category.
func categoryLabel(cat model.AlertCategory) string {
	switch cat {
	case model.CategoryConnectivity:
		return "Connectivity"
	case model.CategoryFetch:
		return "Position Fetches"
	case model.CategoryBattery:
		return "Battery"
	case model.CategoryStaleness:
		return "Stale Positions"
	default:
		return "Other"
	}
}

// severityBadge returns a colored, fixed-width badge for the given severity.
func severityBadge(sev model.AlertSeverity) string {
	switch sev {
	case model.SeverityCritical:
		return StyleRed.Bold(true).Render("[CRITICAL]")
	case model.SeverityWarning:
		return StyleYellow.Bold(true).Render("[WARN]    ")
	default:
		return StyleDim.Bold(true).Render("[INFO]    ")
	}
}

// wrapText wraps text at maxWidth rune-columns, breaking at word boundaries.
// Returns the original string unchanged when it fits within maxWidth.
func wrapText(text string, maxWidth int) string {
	if maxWidth <= 0 || utf8.RuneCountInString(text) <= maxWidth {
		return text
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}
	var lines []string
	var current strings.Builder
	currentLen := 0
	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)
		switch {
		case currentLen == 0:
			current.WriteString(word)
			currentLen = wordLen
		case currentLen+1+wordLen <= maxWidth:
			current.WriteByte(' ')
			current.WriteString(word)
			currentLen += 1 + wordLen
		default:
			lines = append(lines, current.String())
			current.Reset()
			current.WriteString(word)
			currentLen = wordLen
		}
	}
	if currentLen > 0 {
		lines = append(lines, current.String())
	}
	return strings.Join(lines, "\n")
}

// alertCounts returns the number of critical and warning alerts.
func alertCounts(alerts []model.Alert) (critical, warning int) {
	for _, a := range alerts {
		switch a.Severity {
		case model.SeverityCritical:
			critical++
		case model.SeverityWarning:
			warning++
		}
	}
	return critical, warning
}

// renderAlertSummary is the one-line alert digest on the main screen.
func renderAlertSummary(alerts []model.Alert) string {
	crit, warn := alertCounts(alerts)
	if crit == 0 && warn == 0 {
		if len(alerts) > 0 {
			return StyleGreen.Render(fmt.Sprintf("● %d notices", len(alerts))) + StyleDim.Render("  [a: details]")
		}
		return StyleGreen.Render("● No alerts")
	}
	var parts []string
	if crit > 0 {
		parts = append(parts, StyleRed.Bold(true).Render(fmt.Sprintf("%d critical", crit)))
	}
	if warn > 0 {
		parts = append(parts, StyleYellow.Bold(true).Render(fmt.Sprintf("%d warning", warn)))
	}
	return "● " + strings.Join(parts, "  ") + StyleDim.Render("  [a: details]")
}

// buildAlertLines returns every rendered content line of the alerts view.
// Shared by rendering and the scroll bound in Update.
func buildAlertLines(alerts []model.Alert, width int) []string {
	var lines []string
	if len(alerts) == 0 {
		lines = append(lines, "")
		lines = append(lines, "  "+StyleGreen.Bold(true).Render("No alerts, fleet looks healthy"))
		lines = append(lines, "")
		return lines
	}
	for _, cat := range alertCategories {
		var group []model.Alert
		for _, a := range alerts {
			if a.Category == cat {
				group = append(group, a)
			}
		}
		if len(group) == 0 {
			continue
		}
		lines = append(lines, "")
		lines = append(lines, "  "+StyleDim.Bold(true).Underline(true).Render(categoryLabel(cat)))
		for _, a := range group {
			lines = append(lines, fmt.Sprintf("  %s %s", severityBadge(a.Severity), sanitize(a.Title)))
			if a.Detail != "" {
				for _, dl := range strings.Split(wrapText(sanitize(a.Detail), width-6), "\n") {
					lines = append(lines, "    "+dl)
				}
			}
		}
	}
	return lines
}

// renderAlertsTitle renders the title bar of the alerts screen.
func renderAlertsTitle(width int) string {
	const titleText = "Alerts"
	hint := StyleDim.Render("[a/esc: back]  [↑↓: scroll]")
	gap := width - 2 - lipgloss.Width(titleText) - lipgloss.Width(hint)
	if gap < 1 {
		gap = 1
	}
	return StyleHeader.Width(width).MaxWidth(width).Render(titleText + strings.Repeat(" ", gap) + hint)
}

// renderedHeight is the line count of a rendered block.
func renderedHeight(s string) int {
	if s == "" {
		return 0
	}
	return lipgloss.Height(s)
}

// alertsLayout returns the content lines, the visible content height and the
// maximum scroll offset for the current app state.
func alertsLayout(app *App) (lines []string, contentH, maxOffset int) {
	width := app.width
	if width <= 0 {
		width = 80
	}
	height := app.height
	if height <= 0 {
		height = 24
	}
	availH := height -
		renderedHeight(renderHeader(app)) -
		renderedHeight(renderAlertsTitle(width)) -
		renderedHeight(renderFooter(app))
	if availH < 1 {
		availH = 1
	}

	lines = buildAlertLines(app.alerts, width)
	contentH = availH
	// Reserve the last line for a scroll hint when content overflows.
	if len(lines) > availH && contentH > 1 {
		contentH--
	}
	maxOffset = len(lines) - contentH
	if maxOffset < 0 {
		maxOffset = 0
	}
	return lines, contentH, maxOffset
}

// alertsMaxOffset returns the largest valid scroll offset.
func alertsMaxOffset(app *App) int {
	_, _, m := alertsLayout(app)
	return m
}

// renderAlerts renders the alerts title bar followed by the scrollable list.
func renderAlerts(app *App) string {
	width := app.width
	if width <= 0 {
		width = 80
	}
	lines, contentH, maxOffset := alertsLayout(app)
	overflows := len(lines) > contentH

	offset := app.alertOffset
	if offset > maxOffset {
		offset = maxOffset
	}
	end := offset + contentH
	if end > len(lines) {
		end = len(lines)
	}
	var visible []string
	if offset < len(lines) {
		visible = append(visible, lines[offset:end]...)
	}
	for len(visible) < contentH {
		visible = append(visible, "")
	}

	if overflows {
		switch {
		case offset == 0:
			visible = append(visible, StyleDim.Render("  ↓ scroll for more"))
		case offset >= maxOffset:
			visible = append(visible, StyleDim.Render("  ↑ scroll up"))
		default:
			visible = append(visible, StyleDim.Render("  ↑↓ scroll"))
		}
	}

	return renderAlertsTitle(width) + "\n" + strings.Join(visible, "\n")
}
