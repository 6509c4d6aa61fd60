package tui

import "fmt"

// renderFooter renders the key binding help footer at full terminal width.
// When app.showHelp is true, shows all key bindings; otherwise a brief hint
// and the number of active alerts.
func renderFooter(app *App) string {
	width := app.width
	if width <= 0 {
		width = 80
	}
	text := "? for help"
	if app.showHelp {
		text = helpText
	} else if n := len(app.alerts); n > 0 {
		text = fmt.Sprintf("? for help  a: %d alerts", n)
	}
	return StyleDim.Width(width).MaxWidth(width).Render(text)
}
