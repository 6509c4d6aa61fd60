package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dm/fleetmon-go/internal/engine"
)

// UpdateMsg delivers a completed refresh cycle to the TUI.
type UpdateMsg struct {
	engine.Update
}

// ClockMsg advances the wall clock shown in the header.
type ClockMsg time.Time

// updatesClosedMsg signals that the update channel was closed.
type updatesClosedMsg struct{}

// waitForUpdate blocks on ch and returns the next cycle as an UpdateMsg.
func waitForUpdate(ch <-chan engine.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return updatesClosedMsg{}
		}
		return UpdateMsg{Update: u}
	}
}

// clockCmd fires on the next whole second.
func clockCmd() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return ClockMsg(t)
	})
}

// offerLatest sends u on ch, discarding the oldest queued update when ch is
// full. The sender never blocks.
func offerLatest(ch chan engine.Update, u engine.Update) {
	for {
		select {
		case ch <- u:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
