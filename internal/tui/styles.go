package tui

import "github.com/charmbracelet/lipgloss"

// Fleet dashboard palette.
var (
	colorGreen      = lipgloss.Color("#10b981")
	colorYellow     = lipgloss.Color("#f59e0b")
	colorRed        = lipgloss.Color("#ef4444")
	colorGray       = lipgloss.Color("#6b7280")
	colorBlue       = lipgloss.Color("#3b82f6")
	colorCyan       = lipgloss.Color("#06b6d4")
	colorPurple     = lipgloss.Color("#8b5cf6")
	colorIndigo     = lipgloss.Color("#6366f1")
	colorOrange     = lipgloss.Color("#f97316")
	colorWhite      = lipgloss.Color("#f8fafc")
	colorDark       = lipgloss.Color("#1e293b")
	colorAlt        = lipgloss.Color("#0f172a")
	colorSelectedBg = lipgloss.Color("#334155")
)

// Device status styles.
var (
	StyleStatusOnline  = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	StyleStatusOffline = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	StyleStatusUnknown = lipgloss.NewStyle().Foreground(colorGray)
	StyleStatusOther   = lipgloss.NewStyle().Foreground(colorYellow)
)

// StyleHeader is the full-width dark header bar.
var StyleHeader = lipgloss.NewStyle().
	Background(colorDark).
	Foreground(colorWhite).
	Padding(0, 1)

// StyleOverviewCard is the card used in the KPI overview bar.
var StyleOverviewCard = lipgloss.NewStyle().
	Background(colorAlt).
	Foreground(colorWhite).
	Padding(0, 1).
	Margin(0).
	Align(lipgloss.Center)

// Utility styles.
var (
	StyleError = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	StyleDim   = lipgloss.NewStyle().Foreground(colorGray)
)

// Named color styles for cell coloring.
var (
	StyleGreen  = lipgloss.NewStyle().Foreground(colorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(colorYellow)
	StyleOrange = lipgloss.NewStyle().Foreground(colorOrange)
	StyleBlue   = lipgloss.NewStyle().Foreground(colorBlue)
	StyleCyan   = lipgloss.NewStyle().Foreground(colorCyan)
	StylePurple = lipgloss.NewStyle().Foreground(colorPurple)
	StyleRed    = lipgloss.NewStyle().Foreground(colorRed)
)

// StatusStyle returns the style for a device status string. Only the exact
// string "online" is green; an empty status is unknown.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "online":
		return StyleStatusOnline
	case "offline":
		return StyleStatusOffline
	case "":
		return StyleStatusUnknown
	default:
		return StyleStatusOther
	}
}

// statusColor is the foreground color of StatusStyle(status).
func statusColor(status string) lipgloss.Color {
	switch status {
	case "online":
		return colorGreen
	case "offline":
		return colorRed
	case "":
		return colorGray
	default:
		return colorYellow
	}
}
