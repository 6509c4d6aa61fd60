package tui

import (
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dm/fleetmon-go/internal/engine"
	"github.com/dm/fleetmon-go/internal/model"
)

// severity represents the display level for a value.
type severity int

const (
	severityNormal   severity = iota
	severityWarning           // yellow
	severityCritical          // red
)

// batterySeverity grades a battery percentage. An unknown level is normal.
func batterySeverity(pct float64, th engine.AlertThresholds) severity {
	switch {
	case pct < 0:
		return severityNormal
	case pct < th.BatteryCritical:
		return severityCritical
	case pct < th.BatteryWarning:
		return severityWarning
	default:
		return severityNormal
	}
}

// staleSeverity returns Warning when last is older than th.StaleAfter.
func staleSeverity(last, now time.Time, th engine.AlertThresholds) severity {
	if last.IsZero() || th.StaleAfter <= 0 {
		return severityNormal
	}
	if now.Sub(last) > th.StaleAfter {
		return severityWarning
	}
	return severityNormal
}

// offlineSeverity grades the offline share of the fleet: any offline device
// is a warning, all of them is critical.
func offlineSeverity(agg model.Aggregate) severity {
	switch {
	case agg.DeviceCount == 0 || agg.OfflineCount == 0:
		return severityNormal
	case agg.OnlineCount == 0:
		return severityCritical
	default:
		return severityWarning
	}
}

// alertSeverity maps an alert to the display severity.
func alertSeverity(s model.AlertSeverity) severity {
	switch s {
	case model.SeverityCritical:
		return severityCritical
	case model.SeverityWarning:
		return severityWarning
	default:
		return severityNormal
	}
}

// severityToStyle maps a severity level to the appropriate lipgloss style.
func severityToStyle(s severity) lipgloss.Style {
	switch s {
	case severityWarning:
		return StyleYellow
	case severityCritical:
		return StyleRed
	default:
		return lipgloss.NewStyle()
	}
}

// severityFg returns the foreground color for s, falling back to def.
func severityFg(s severity, def lipgloss.Color) lipgloss.Color {
	switch s {
	case severityWarning:
		return colorYellow
	case severityCritical:
		return colorRed
	default:
		return def
	}
}

// titleStyle is the card title style for s: dim when normal.
func titleStyle(s severity) lipgloss.Style {
	if s == severityNormal {
		return StyleDim
	}
	return severityToStyle(s).Bold(true)
}
