package tui

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/dm/fleetmon-go/internal/model"
)

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "Battery", categoryLabel(model.CategoryBattery))
	assert.Equal(t, "Connectivity", categoryLabel(model.CategoryConnectivity))
	assert.Equal(t, "Stale Positions", categoryLabel(model.CategoryStaleness))
	assert.Equal(t, "Position Fetches", categoryLabel(model.CategoryFetch))
	assert.Equal(t, "Other", categoryLabel(model.AlertCategory(99)))
}

func TestSeverityBadge(t *testing.T) {
	assert.Contains(t, stripANSI(severityBadge(model.SeverityCritical)), "CRITICAL")
	assert.Contains(t, stripANSI(severityBadge(model.SeverityWarning)), "WARN")
	assert.Contains(t, stripANSI(severityBadge(model.SeverityNormal)), "INFO")
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, "short", wrapText("short", 20))
	assert.Equal(t, "one two\nthree", wrapText("one two three", 8))
	assert.Equal(t, "unbreakableword", wrapText("unbreakableword", 5))

	long := strings.Repeat("word ", 30)
	for _, line := range strings.Split(wrapText(long, 22), "\n") {
		assert.LessOrEqual(t, utf8.RuneCountInString(line), 22)
	}
}

func TestAlertCounts(t *testing.T) {
	crit, warn := alertCounts([]model.Alert{
		{Severity: model.SeverityCritical},
		{Severity: model.SeverityWarning},
		{Severity: model.SeverityWarning},
		{Severity: model.SeverityNormal},
	})
	assert.Equal(t, 1, crit)
	assert.Equal(t, 2, warn)
}

func TestRenderAlertSummary(t *testing.T) {
	assert.Contains(t, stripANSI(renderAlertSummary(nil)), "No alerts")
	assert.Contains(t, stripANSI(renderAlertSummary([]model.Alert{{Severity: model.SeverityNormal}})), "1 notices")

	out := stripANSI(renderAlertSummary([]model.Alert{
		{Severity: model.SeverityCritical},
		{Severity: model.SeverityWarning},
	}))
	assert.Contains(t, out, "1 critical")
	assert.Contains(t, out, "1 warning")
}

func TestBuildAlertLines_GroupsByCategory(t *testing.T) {
	lines := buildAlertLines([]model.Alert{
		{Severity: model.SeverityWarning, Category: model.CategoryStaleness, Title: "Stale position", Detail: "van-2 last position is 1h0m0s old."},
		{Severity: model.SeverityCritical, Category: model.CategoryBattery, Title: "Critical battery", Detail: "van-2 battery at 5%."},
		{Severity: model.SeverityCritical, Category: model.CategoryConnectivity, Title: "All devices offline"},
	}, 80)
	text := stripANSI(strings.Join(lines, "\n"))

	conn := strings.Index(text, "Connectivity")
	batt := strings.Index(text, "Battery")
	stale := strings.Index(text, "Stale Positions")
	assert.True(t, conn >= 0 && conn < batt && batt < stale, "categories in display order")
	assert.Contains(t, text, "van-2 battery at 5%.")
	assert.NotContains(t, text, "Position Fetches", "empty groups are skipped")
}

func TestBuildAlertLines_Empty(t *testing.T) {
	text := stripANSI(strings.Join(buildAlertLines(nil, 80), "\n"))
	assert.Contains(t, text, "No alerts")
}

func TestRenderAlerts_ScrollHint(t *testing.T) {
	app := newTestApp(newFakeSource())
	app.width, app.height = 80, 8
	app.Update(UpdateMsg{Update: makeUpdate(makeFixtureSnapshot(1))})

	out := stripANSI(renderAlerts(app))
	assert.Contains(t, out, "scroll for more")

	app.alertOffset = alertsMaxOffset(app)
	assert.Contains(t, stripANSI(renderAlerts(app)), "scroll up")

	app.alertOffset = 1000
	assert.Contains(t, stripANSI(renderAlerts(app)), "scroll up", "offset is clamped when rendering")
}

func TestRenderAlerts_FitsTallTerminal(t *testing.T) {
	app := newTestApp(newFakeSource())
	app.width, app.height = 80, 60
	app.Update(UpdateMsg{Update: makeUpdate(makeFixtureSnapshot(1))})

	assert.Zero(t, alertsMaxOffset(app))
	out := stripANSI(renderAlerts(app))
	assert.NotContains(t, out, "scroll for more")
	assert.NotContains(t, out, "scroll up")
}
