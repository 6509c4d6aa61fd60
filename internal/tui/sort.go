package tui

import (
	"sort"
	"strconv"
	"strings"

	"github.com/dm/fleetmon-go/internal/model"
)

// Device table column indices.
const (
	colName = iota
	colStatus
	colSpeed
	colBattery
	colDistance
	colPosition
	colLastUpdate
)

// sortDeviceRows returns a sorted copy of rows. col -1 keeps registry order.
// Ties are broken by Name ascending, then by ID.
func sortDeviceRows(rows []model.DeviceRow, col int, desc bool) []model.DeviceRow {
	out := make([]model.DeviceRow, len(rows))
	copy(out, rows)

	if col < 0 {
		return out
	}

	byName := func(a, b model.DeviceRow) bool {
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if an != bn {
			return an < bn
		}
		return a.ID < b.ID
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		var less bool
		switch col {
		case colName:
			less = byName(a, b)
		case colStatus:
			if a.Status == b.Status {
				return byName(a, b)
			}
			less = a.Status < b.Status
		case colSpeed:
			if a.SpeedKmh == b.SpeedKmh {
				return byName(a, b)
			}
			less = a.SpeedKmh < b.SpeedKmh
		case colBattery:
			if a.Battery == b.Battery {
				return byName(a, b)
			}
			less = a.Battery < b.Battery
		case colDistance:
			if a.TotalDistance == b.TotalDistance {
				return byName(a, b)
			}
			less = a.TotalDistance < b.TotalDistance
		case colPosition:
			if a.Mappable == b.Mappable {
				return byName(a, b)
			}
			less = !a.Mappable
		case colLastUpdate:
			if a.LastUpdate.Equal(b.LastUpdate) {
				return byName(a, b)
			}
			less = a.LastUpdate.Before(b.LastUpdate)
		default:
			return false
		}
		if desc {
			return !less
		}
		return less
	})

	return out
}

// filterDeviceRows returns rows whose name, status or id contains term
// (case-insensitive). An empty term returns all rows.
func filterDeviceRows(rows []model.DeviceRow, term string) []model.DeviceRow {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return rows
	}
	var out []model.DeviceRow
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.Name), term) ||
			strings.Contains(strings.ToLower(r.Status), term) ||
			strings.Contains(strconv.FormatInt(r.ID, 10), term) {
			out = append(out, r)
		}
	}
	return out
}
