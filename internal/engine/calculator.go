package engine

import (
	"math"
	"sort"
	"strings"

	"github.com/dm/fleetmon-go/internal/client"
	"github.com/dm/fleetmon-go/internal/model"
)

// rankingLimit is the number of devices kept in the distance ranking.
const rankingLimit = 5

// finite reports whether f is neither NaN nor infinite.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// deviceDistance returns the totalDistance attribute of the device's stored
// position in meters, or 0 when there is no position or no numeric figure.
func deviceDistance(snap *model.Snapshot, id int64) float64 {
	p, ok := snap.Position(id)
	if !ok {
		return 0
	}
	d, ok := p.TotalDistance()
	if !ok {
		return 0
	}
	return d
}

// mappable reports whether p has two finite coordinates.
func mappable(p client.Position) bool {
	return p.Mappable() && finite(*p.Latitude) && finite(*p.Longitude)
}

// CalcAggregate derives the fleet figures from snap. It is pure: the same
// snapshot always yields an equal Aggregate.
//
// The ranking holds devices with a positive distance, longest first, capped
// at five. Equal distances keep registry order. MapPositions lists every
// stored position with both coordinates, in snapshot PositionIDs order.
func CalcAggregate(snap *model.Snapshot) model.Aggregate {
	agg := model.Aggregate{
		Ranking:      []model.RankEntry{},
		MapPositions: []client.Position{},
	}
	if snap == nil {
		return agg
	}

	agg.DeviceCount = len(snap.Devices)
	agg.Cycle = snap.Cycle
	agg.ComputedFrom = snap.FetchedAt

	ranked := make([]model.RankEntry, 0, len(snap.Devices))
	for _, d := range snap.Devices {
		if d.Online() {
			agg.OnlineCount++
		} else if strings.TrimSpace(d.Status) == "" {
			agg.UnknownCount++
		}

		dist := deviceDistance(snap, d.ID)
		agg.TotalDistance += dist
		if dist > 0 {
			ranked = append(ranked, model.RankEntry{
				DeviceID:      d.ID,
				Name:          d.DisplayName(),
				Status:        d.Status,
				TotalDistance: dist,
			})
		}

		if p, ok := snap.Position(d.ID); ok {
			if moving, ok := p.Motion(); ok && moving {
				agg.MovingCount++
			}
		}
	}
	agg.OfflineCount = agg.DeviceCount - agg.OnlineCount

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalDistance > ranked[j].TotalDistance
	})
	if len(ranked) > rankingLimit {
		ranked = ranked[:rankingLimit]
	}
	agg.Ranking = ranked

	for _, id := range snap.PositionIDs() {
		if p := snap.Positions[id]; mappable(p) {
			agg.MapPositions = append(agg.MapPositions, p)
		}
	}

	return agg
}

// CalcDeviceRows builds one table row per registry device, in registry order.
func CalcDeviceRows(snap *model.Snapshot) []model.DeviceRow {
	if snap == nil {
		return []model.DeviceRow{}
	}
	rows := make([]model.DeviceRow, 0, len(snap.Devices))
	for _, d := range snap.Devices {
		row := model.DeviceRow{
			ID:            d.ID,
			Name:          d.DisplayName(),
			Status:        d.Status,
			Online:        d.Online(),
			SpeedKmh:      model.MetricNotAvailable,
			Battery:       model.MetricNotAvailable,
			TotalDistance: model.MetricNotAvailable,
		}
		if d.LastUpdate != nil {
			row.LastUpdate = *d.LastUpdate
		}
		if p, ok := snap.Position(d.ID); ok {
			row.HasPosition = true
			row.SpeedKmh = p.Speed
			if b, ok := p.BatteryLevel(); ok {
				row.Battery = b
			}
			if dist, ok := p.TotalDistance(); ok {
				row.TotalDistance = dist
			}
			if mappable(p) {
				row.Mappable = true
				row.Latitude = *p.Latitude
				row.Longitude = *p.Longitude
			}
			if ts, ok := p.Timestamp(); ok && ts.After(row.LastUpdate) {
				row.LastUpdate = ts
			}
		}
		rows = append(rows, row)
	}
	return rows
}
