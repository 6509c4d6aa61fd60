package tui

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/lipgloss"

	"github.com/dm/fleetmon-go/internal/client"
	"github.com/dm/fleetmon-go/internal/format"
)

// maxErrLen caps error text shown in the header.
const maxErrLen = 40

// renderHeader renders the top header bar.
//
// Layout:
//
//	left:   "Fleet <base URL>" (or "Connecting to <URL>..." before the first cycle)
//	center: "● LIVE", "● REFRESHING" or "● REGISTRY UNREACHABLE  <reason>"
//	right:  wall clock, time of the last applied cycle and poll interval
func renderHeader(app *App) string {
	width := app.width
	if width <= 0 {
		width = 80
	}

	var left, center, right string

	baseURL := sanitize(app.cfg.BaseURL)
	if app.current == nil {
		left = "Connecting to " + baseURL + "..."
	} else {
		left = "Fleet " + baseURL
	}

	switch {
	case app.lastErr != nil:
		center = StyleError.Render("● REGISTRY UNREACHABLE  " + classifyError(app.lastErr))
	case app.refreshing:
		center = StyleCyan.Bold(true).Render("● REFRESHING")
	case app.current != nil:
		center = StyleStatusOnline.Render("● LIVE")
	default:
		center = StyleDim.Render("● NO DATA YET")
	}

	clock := "--:--:--"
	if !app.clock.IsZero() {
		clock = format.FormatClock(app.clock)
	}
	last := "---"
	if !app.lastUpdated.IsZero() {
		last = format.FormatClock(app.lastUpdated)
	}
	right = StyleDim.Render(fmt.Sprintf("%s  Last: %s  Poll: %s", clock, last, formatDuration(app.interval())))
	if app.lastErr != nil {
		right = StyleError.Render(fmt.Sprintf("%s  r: retry now", clock))
	}

	// StyleHeader has Padding(0, 1) so inner content width = total width - 2.
	innerWidth := width - 2
	leftVW := lipgloss.Width(left)
	centerVW := lipgloss.Width(center)
	rightVW := lipgloss.Width(right)

	// Trim the left label first so the header stays on one line.
	if over := leftVW + centerVW + rightVW - innerWidth; over > 0 {
		keep := leftVW - over
		if keep < 0 {
			keep = 0
		}
		left = truncateName(left, keep)
		leftVW = lipgloss.Width(left)
	}

	spacing := innerWidth - leftVW - centerVW - rightVW
	if spacing < 0 {
		spacing = 0
	}
	leftSpacing := spacing / 2
	rightSpacing := spacing - leftSpacing

	row := left +
		strings.Repeat(" ", leftSpacing) +
		center +
		strings.Repeat(" ", rightSpacing) +
		right

	return StyleHeader.Width(width).MaxWidth(width).MaxHeight(1).Render(row)
}

// classifyError returns a short operator-facing reason for err.
func classifyError(err error) string {
	if err == nil {
		return ""
	}
	switch status := client.StatusOf(err); {
	case status == 401 || status == 403:
		return fmt.Sprintf("Authentication failed (%d)", status)
	case status > 0:
		return fmt.Sprintf("HTTP %d", status)
	}
	if kind, ok := client.KindOf(err); ok {
		switch kind {
		case client.FailureContentType:
			return "Not a JSON response"
		case client.FailureDecode:
			return "Malformed response"
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Timeout"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"):
		return "Connection refused"
	case strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout"):
		return "Timeout"
	case isTLSError(err):
		return "TLS error"
	case strings.Contains(msg, "no such host"):
		return "Unknown host"
	}
	return truncateName(sanitize(err.Error()), maxErrLen)
}

// isTLSError reports whether err looks like a certificate or handshake failure.
func isTLSError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "x509") ||
		strings.Contains(msg, "tls") ||
		strings.Contains(msg, "certificate")
}

// sanitize strips terminal escape sequences and control characters from
// server-provided text before it is rendered.
func sanitize(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == 0x1b {
			i = skipEscape(runes, i)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// skipEscape returns the index of the last rune of the escape sequence that
// starts at runes[i].
func skipEscape(runes []rune, i int) int {
	if i+1 >= len(runes) {
		return i
	}
	switch runes[i+1] {
	case '[': // CSI: parameters then a final byte in 0x40-0x7e
		for j := i + 2; j < len(runes); j++ {
			if runes[j] >= 0x40 && runes[j] <= 0x7e {
				return j
			}
		}
		return len(runes) - 1
	case ']': // OSC: terminated by BEL or ESC \
		for j := i + 2; j < len(runes); j++ {
			if runes[j] == 0x07 {
				return j
			}
			if runes[j] == 0x1b && j+1 < len(runes) && runes[j+1] == '\\' {
				return j + 1
			}
		}
		return len(runes) - 1
	default:
		return i + 1
	}
}

// formatDuration formats a poll interval compactly, e.g. "10s", "2m" or "1m30s".
func formatDuration(d time.Duration) string {
	if d >= time.Minute {
		m := int(d / time.Minute)
		s := int((d % time.Minute) / time.Second)
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
