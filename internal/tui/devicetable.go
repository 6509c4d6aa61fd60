package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/dm/fleetmon-go/internal/engine"
	"github.com/dm/fleetmon-go/internal/format"
	"github.com/dm/fleetmon-go/internal/model"
)

// DeviceTableModel is a sortable, paginated, searchable table of devices.
type DeviceTableModel struct {
	tableModel
	thresholds  engine.AlertThresholds
	allRows     []model.DeviceRow // registry order
	displayRows []model.DeviceRow // after filter + sort
}

// NewDeviceTable returns a DeviceTableModel in registry order.
func NewDeviceTable(th engine.AlertThresholds) DeviceTableModel {
	cols := []columnDef{
		{Title: "Device", Width: 20},
		{Title: "Status", Width: 9},
		{Title: "Speed", Width: 11, SortDesc: true},
		{Title: "Battery", Width: 8},
		{Title: "Distance", Width: 14, SortDesc: true},
		{Title: "Position", Width: 21},
		{Title: "Updated", Width: 9, SortDesc: true},
	}
	return DeviceTableModel{
		tableModel: newTableModel(cols),
		thresholds: th,
	}
}

// SetData replaces the rows, re-applying the current filter and sort.
func (m *DeviceTableModel) SetData(rows []model.DeviceRow) {
	m.allRows = rows
	m.apply()
}

func (m *DeviceTableModel) apply() {
	filtered := filterDeviceRows(m.allRows, m.search)
	m.displayRows = sortDeviceRows(filtered, m.sortCol, m.sortDesc)
	m.clampPage(len(m.displayRows))
	m.clampCursor(m.currentPageRowCount(len(m.displayRows)))
}

// Update delegates to the embedded tableModel and re-applies filter and sort
// when they change.
func (m DeviceTableModel) Update(msg tea.Msg) (DeviceTableModel, tea.Cmd) {
	prevSort, prevDesc, prevSearch := m.sortCol, m.sortDesc, m.search

	base, cmd := m.tableModel.Update(msg)
	m.tableModel = base

	if m.sortCol != prevSort || m.sortDesc != prevDesc || m.search != prevSearch {
		m.apply()
		return m, cmd
	}
	m.clampPage(len(m.displayRows))
	m.clampCursor(m.currentPageRowCount(len(m.displayRows)))
	return m, cmd
}

// Selected returns the row under the cursor.
func (m *DeviceTableModel) Selected() (model.DeviceRow, bool) {
	idx := m.page*m.pageSize + m.cursor
	if idx < 0 || idx >= len(m.displayRows) {
		return model.DeviceRow{}, false
	}
	return m.displayRows[idx], true
}

// renderTable renders the "Devices" section for the given width.
func (m *DeviceTableModel) renderTable(width int, now time.Time) string {
	pc := pageCount(len(m.displayRows), m.pageSize)
	hdr := m.renderHeader(m.page+1, pc)

	var colWidths []int
	if width > 0 {
		colWidths = columnWidths(width, m.columns)
	}

	headers := make([]string, len(m.columns))
	for i, c := range m.columns {
		title := c.Title
		if i == m.sortCol {
			if m.sortDesc {
				title += "↓"
			} else {
				title += "↑"
			}
		}
		if len(colWidths) == len(m.columns) {
			if n := len([]rune(title)); n < colWidths[i] {
				title += strings.Repeat(" ", colWidths[i]-n)
			}
		}
		headers[i] = title
	}

	allIdx := make([]int, len(m.displayRows))
	for i := range m.displayRows {
		allIdx[i] = i
	}
	pageIdx := currentPageIndices(allIdx, m.page, m.pageSize)
	if len(pageIdx) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, hdr, StyleDim.Render("  (no devices)"))
	}

	pageRows := make([]model.DeviceRow, len(pageIdx))
	for i, idx := range pageIdx {
		pageRows[i] = m.displayRows[idx]
	}

	sortCol, focused, cursor, th := m.sortCol, m.focused, m.cursor, m.thresholds
	t := ltable.New().
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				if col == sortCol {
					return lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
				}
				return lipgloss.NewStyle().Bold(true).Foreground(colorGray)
			}
			base := lipgloss.NewStyle()
			if focused && row == cursor {
				base = base.Background(colorSelectedBg)
			} else if row%2 == 0 {
				base = base.Background(colorAlt)
			}
			if row < 0 || row >= len(pageRows) {
				return base.Foreground(colorWhite)
			}
			r := pageRows[row]
			switch col {
			case colStatus:
				return base.Foreground(statusColor(r.Status))
			case colSpeed:
				return base.Foreground(colorCyan)
			case colBattery:
				return base.Foreground(severityFg(batterySeverity(r.Battery, th), colorGreen))
			case colDistance:
				return base.Foreground(colorPurple)
			case colPosition:
				if !r.Mappable {
					return base.Foreground(colorGray)
				}
				return base.Foreground(colorBlue)
			case colLastUpdate:
				return base.Foreground(severityFg(staleSeverity(r.LastUpdate, now, th), colorWhite))
			default:
				return base.Foreground(colorWhite)
			}
		}).
		BorderStyle(lipgloss.NewStyle().Foreground(colorGray)).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(true).
		BorderColumn(false)

	if width > 0 {
		t = t.Width(width)
	}

	for _, r := range pageRows {
		cells := make([]string, len(m.columns))
		for col := range m.columns {
			cells[col] = deviceCellValue(r, col, now)
		}
		if len(colWidths) > 0 {
			cells[colName] = truncateName(cells[colName], colWidths[colName])
		}
		t = t.Row(cells...)
	}

	parts := []string{hdr, t.String()}
	if m.focused && m.cursor < len(pageRows) {
		r := pageRows[m.cursor]
		parts = append(parts, StyleDim.Render(fmt.Sprintf("  #%d  %s  %s", r.ID, sanitize(r.Name), deviceCellValue(r, colPosition, now))))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderHeader renders the title bar with search/sort/page hints.
func (m *DeviceTableModel) renderHeader(page, pages int) string {
	pageInfo := fmt.Sprintf("Page %d/%d", page, pages)
	count := fmt.Sprintf("%d/%d", len(m.displayRows), len(m.allRows))

	var right string
	switch {
	case m.searching:
		right = "Search: " + m.input.View()
	case m.search != "":
		right = fmt.Sprintf("filter=%q  %s  %s", m.search, count, pageInfo)
	default:
		right = fmt.Sprintf("[/: search]  [1-7: sort]  [←→: page]  %s", pageInfo)
	}
	return StyleDim.Render("Devices  " + right)
}

// deviceCellValue formats a DeviceRow field for a given column index.
func deviceCellValue(r model.DeviceRow, col int, now time.Time) string {
	switch col {
	case colName:
		return sanitize(r.Name)
	case colStatus:
		if r.Status == "" {
			return "unknown"
		}
		return sanitize(r.Status)
	case colSpeed:
		return format.FormatSpeed(r.SpeedKmh)
	case colBattery:
		return format.FormatBattery(r.Battery)
	case colDistance:
		return format.FormatDistanceKM(r.TotalDistance)
	case colPosition:
		if !r.Mappable {
			if r.HasPosition {
				return "no fix"
			}
			return "---"
		}
		return format.FormatCoord(r.Latitude, r.Longitude)
	case colLastUpdate:
		return format.FormatAge(r.LastUpdate, now)
	default:
		return ""
	}
}
