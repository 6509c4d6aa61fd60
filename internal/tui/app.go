package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dm/fleetmon-go/internal/engine"
	"github.com/dm/fleetmon-go/internal/model"
)

// updateBuffer is how many undelivered cycles the TUI queues before dropping
// the oldest.
const updateBuffer = 4

// Source is the refresh loop the dashboard observes. *engine.Scheduler
// satisfies it.
type Source interface {
	Snapshot() *model.Snapshot
	Interval() time.Duration
	TriggerNow()
	Subscribe(fn func(engine.Update)) (unsubscribe func())
}

// Config holds display settings for the App.
type Config struct {
	// BaseURL is shown in the header.
	BaseURL    string
	Thresholds engine.AlertThresholds
	// HistorySize is the number of cycles kept for sparklines.
	HistorySize int
	// Now defaults to time.Now.
	Now func() time.Time
}

// App is the root Bubble Tea model for fleetmon. It never fetches anything
// itself: cycles arrive from the Source subscription.
type App struct {
	src         Source
	cfg         Config
	updates     chan engine.Update
	unsubscribe func()

	// Cycle state
	current          *model.Snapshot
	agg              model.Aggregate
	alerts           []model.Alert
	history          *model.FleetHistory
	lastErr          error
	consecutiveFails int
	lastUpdated      time.Time
	refreshing       bool // r pressed, no cycle delivered since

	// Wall clock, advanced every second independently of cycles.
	clock time.Time

	// Layout
	width, height int

	// UI state
	showHelp    bool
	showAlerts  bool
	alertOffset int
	devices     DeviceTableModel
}

// NewApp subscribes to src and returns the dashboard model. A snapshot the
// source already holds is shown immediately.
func NewApp(src Source, cfg Config) *App {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Thresholds == (engine.AlertThresholds{}) {
		var interval time.Duration
		if src != nil {
			interval = src.Interval()
		}
		cfg.Thresholds = engine.DefaultAlertThresholds(interval)
	}

	app := &App{
		src:     src,
		cfg:     cfg,
		updates: make(chan engine.Update, updateBuffer),
		history: model.NewFleetHistory(cfg.HistorySize),
		alerts:  []model.Alert{},
		devices: NewDeviceTable(cfg.Thresholds),
		clock:   cfg.Now(),
	}
	if src == nil {
		return app
	}

	if snap := src.Snapshot(); snap != nil && snap.Loaded {
		app.apply(engine.Update{Snapshot: snap, Aggregate: engine.CalcAggregate(snap), Completed: snap.FetchedAt})
	}
	ch := app.updates
	app.unsubscribe = src.Subscribe(func(u engine.Update) {
		offerLatest(ch, u)
	})
	return app
}

// Close detaches the App from its source.
func (app *App) Close() {
	if app.unsubscribe != nil {
		app.unsubscribe()
		app.unsubscribe = nil
	}
}

// Init implements tea.Model. Starts listening for cycles and the clock.
func (app *App) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(app.updates), clockCmd())
}

// Update implements tea.Model. It is the only place App state changes.
func (app *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		app.width = msg.Width
		app.height = msg.Height

	case UpdateMsg:
		app.apply(msg.Update)
		return app, waitForUpdate(app.updates)

	case updatesClosedMsg:
		return app, nil

	case ClockMsg:
		app.clock = time.Time(msg)
		// Staleness depends on the current time, not only on new cycles.
		app.refreshAlerts()
		return app, clockCmd()

	case tea.KeyMsg:
		return app, app.handleKey(msg)

	default:
		// textinput cursor blink and similar.
		var cmd tea.Cmd
		app.devices, cmd = app.devices.Update(msg)
		return app, cmd
	}

	return app, nil
}

func (app *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	// Typing into the search box must not trigger global bindings.
	if app.devices.searching && !app.showAlerts {
		var cmd tea.Cmd
		app.devices, cmd = app.devices.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(msg, keys.Quit):
		app.Close()
		return tea.Quit
	case key.Matches(msg, keys.Refresh):
		if app.src != nil {
			app.refreshing = true
			app.src.TriggerNow()
		}
		return nil
	case key.Matches(msg, keys.Help):
		app.showHelp = !app.showHelp
		return nil
	case key.Matches(msg, keys.Alerts):
		app.showAlerts = !app.showAlerts
		app.alertOffset = 0
		return nil
	}

	if app.showAlerts {
		switch {
		case key.Matches(msg, keys.Escape):
			app.showAlerts = false
			app.alertOffset = 0
		case key.Matches(msg, keys.Up):
			if app.alertOffset > 0 {
				app.alertOffset--
			}
		case key.Matches(msg, keys.Down):
			if app.alertOffset < alertsMaxOffset(app) {
				app.alertOffset++
			}
		}
		return nil
	}

	var cmd tea.Cmd
	app.devices, cmd = app.devices.Update(msg)
	return cmd
}

// apply folds a completed cycle into the view state. A registry failure keeps
// the last good snapshot on screen and only records the error.
func (app *App) apply(u engine.Update) {
	app.refreshing = false
	if u.Err != nil {
		app.lastErr = u.Err
		app.consecutiveFails++
	} else {
		app.lastErr = nil
		app.consecutiveFails = 0
	}

	if u.Snapshot == nil || !u.Snapshot.Loaded {
		return
	}
	if u.Err == nil {
		app.history.PushAggregate(u.Aggregate)
		app.lastUpdated = u.Completed
	}
	app.current = u.Snapshot
	app.agg = u.Aggregate
	app.devices.SetData(engine.CalcDeviceRows(u.Snapshot))
	app.refreshAlerts()
}

func (app *App) refreshAlerts() {
	app.alerts = engine.CalcAlerts(app.current, app.agg, app.cfg.Thresholds, app.cfg.Now())
}

// interval returns the source's poll interval.
func (app *App) interval() time.Duration {
	if app.src == nil {
		return 0
	}
	return app.src.Interval()
}

// View implements tea.Model. Renders the full TUI.
func (app *App) View() string {
	if app.showAlerts {
		return strings.Join([]string{renderHeader(app), renderAlerts(app), renderFooter(app)}, "\n")
	}

	var parts []string
	parts = append(parts, renderHeader(app))
	if o := renderOverview(app); o != "" {
		parts = append(parts, o)
	}
	if m := renderMetricsRow(app); m != "" {
		parts = append(parts, m)
	}
	if app.current != nil {
		width := app.width
		if width <= 0 {
			width = 80
		}
		parts = append(parts,
			lipgloss.JoinVertical(lipgloss.Left,
				renderRanking(app.agg.Ranking, width),
				renderAlertSummary(app.alerts),
			),
			app.devices.renderTable(width, app.cfg.Now()),
		)
	}
	parts = append(parts, renderFooter(app))

	return strings.Join(parts, "\n")
}
