package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/dm/fleetmon-go/internal/model"
)

// AlertThresholds configures CalcAlerts.
type AlertThresholds struct {
	BatteryWarning  float64 // percent
	BatteryCritical float64 // percent
	StaleAfter      time.Duration
}

// DefaultAlertThresholds returns thresholds for the given poll interval.
// Positions older than ten intervals count as stale.
func DefaultAlertThresholds(interval time.Duration) AlertThresholds {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return AlertThresholds{
		BatteryWarning:  20,
		BatteryCritical: 10,
		StaleAfter:      10 * interval,
	}
}

// CalcAlerts derives operator alerts from the snapshot. Alerts are ordered
// critical first; within a severity, fleet-wide alerts come before per-device
// ones, and per-device ones follow registry order.
// Returns an empty (non-nil) slice when snap is nil or not yet loaded.
func CalcAlerts(snap *model.Snapshot, agg model.Aggregate, th AlertThresholds, now time.Time) []model.Alert {
	result := []model.Alert{}
	if snap == nil || !snap.Loaded {
		return result
	}

	if agg.DeviceCount > 0 && agg.OnlineCount == 0 {
		result = append(result, model.Alert{
			Severity: model.SeverityCritical,
			Category: model.CategoryConnectivity,
			Title:    "All devices offline",
			Detail:   fmt.Sprintf("None of the %d registered devices reports status online.", agg.DeviceCount),
		})
	}

	if snap.Stats.Failed > 0 {
		result = append(result, model.Alert{
			Severity: model.SeverityWarning,
			Category: model.CategoryFetch,
			Title:    "Position fetches failed",
			Detail: fmt.Sprintf("%d of %d position requests failed in cycle %d; last known positions are shown for them.",
				snap.Stats.Failed, snap.Stats.Devices, snap.Cycle),
		})
	}

	for _, d := range snap.Devices {
		name := d.DisplayName()
		p, ok := snap.Position(d.ID)
		if !ok {
			result = append(result, model.Alert{
				Severity: model.SeverityNormal,
				Category: model.CategoryConnectivity,
				DeviceID: d.ID,
				Title:    "No position yet",
				Detail:   fmt.Sprintf("%s has not reported a position.", name),
			})
			continue
		}

		if b, ok := p.BatteryLevel(); ok {
			switch {
			case b < th.BatteryCritical:
				result = append(result, model.Alert{
					Severity: model.SeverityCritical,
					Category: model.CategoryBattery,
					DeviceID: d.ID,
					Title:    "Critical battery",
					Detail:   fmt.Sprintf("%s battery at %.0f%%.", name, b),
				})
			case b < th.BatteryWarning:
				result = append(result, model.Alert{
					Severity: model.SeverityWarning,
					Category: model.CategoryBattery,
					DeviceID: d.ID,
					Title:    "Low battery",
					Detail:   fmt.Sprintf("%s battery at %.0f%%.", name, b),
				})
			}
		}

		if th.StaleAfter > 0 {
			if ts, ok := p.Timestamp(); ok && now.Sub(ts) > th.StaleAfter {
				result = append(result, model.Alert{
					Severity: model.SeverityWarning,
					Category: model.CategoryStaleness,
					DeviceID: d.ID,
					Title:    "Stale position",
					Detail:   fmt.Sprintf("%s last position is %s old.", name, now.Sub(ts).Truncate(time.Second)),
				})
			}
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Severity > result[j].Severity
	})
	return result
}
