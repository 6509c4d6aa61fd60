package api

import (
	"time"

	"github.com/dm/fleetmon-go/internal/client"
	"github.com/dm/fleetmon-go/internal/engine"
	"github.com/dm/fleetmon-go/internal/format"
	"github.com/dm/fleetmon-go/internal/model"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status    string    `json:"status"`
	State     string    `json:"state"`
	Loaded    bool      `json:"loaded"`
	Cycle     uint64    `json:"cycle"`
	FetchedAt time.Time `json:"fetchedAt,omitempty"`
}

// CycleStatsResponse mirrors model.CycleStats.
type CycleStatsResponse struct {
	Devices    int     `json:"devices"`
	Updated    int     `json:"updated"`
	Absent     int     `json:"absent"`
	Failed     int     `json:"failed"`
	Evicted    int     `json:"evicted"`
	DurationMs float64 `json:"durationMs"`
	FailedIDs  []int64 `json:"failedIds"`
}

// SnapshotResponse is the raw merged view: registry plus latest positions.
type SnapshotResponse struct {
	Cycle     uint64             `json:"cycle"`
	Loaded    bool               `json:"loaded"`
	FetchedAt time.Time          `json:"fetchedAt"`
	Devices   []client.Device    `json:"devices"`
	Positions []client.Position  `json:"positions"`
	Stats     CycleStatsResponse `json:"stats"`
}

// MapPosition is one map marker.
type MapPosition struct {
	DeviceID  int64   `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	SpeedKmh  float64 `json:"speed"`
}

// AggregateResponse carries the fleet figures with display strings.
type AggregateResponse struct {
	Cycle                uint64            `json:"cycle"`
	Loaded               bool              `json:"loaded"`
	ComputedFrom         time.Time         `json:"computedFrom"`
	DeviceCount          int               `json:"deviceCount"`
	OnlineCount          int               `json:"onlineCount"`
	OfflineCount         int               `json:"offlineCount"`
	UnknownCount         int               `json:"unknownCount"`
	MovingCount          int               `json:"movingCount"`
	TotalDistance        float64           `json:"totalDistance"` // meters
	TotalDistanceDisplay string            `json:"totalDistanceDisplay"`
	Ranking              []model.RankEntry `json:"ranking"`
	MapPositions         []MapPosition     `json:"mapPositions"`
}

// DeviceResponse is one device row. Optional figures are omitted when the
// device has no position or the attribute is missing.
type DeviceResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Status        string    `json:"status"`
	Online        bool      `json:"online"`
	HasPosition   bool      `json:"hasPosition"`
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
	SpeedKmh      *float64  `json:"speed,omitempty"`
	SpeedDisplay  string    `json:"speedDisplay"`
	Battery       *float64  `json:"battery,omitempty"`
	TotalDistance *float64  `json:"totalDistance,omitempty"`
	LastUpdate    time.Time `json:"lastUpdate,omitempty"`
}

// AlertResponse is one alert with string-valued enums.
type AlertResponse struct {
	Severity string `json:"severity"`
	Category string `json:"category"`
	DeviceID int64  `json:"deviceId,omitempty"`
	Title    string `json:"title"`
	Detail   string `json:"detail"`
}

// StreamMessage is pushed to websocket clients once per completed cycle.
type StreamMessage struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"` // "cycle", "ping"
	Trigger   string             `json:"trigger,omitempty"`
	Error     string             `json:"error,omitempty"`
	Aggregate *AggregateResponse `json:"aggregate,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

func toStatsResponse(st model.CycleStats) CycleStatsResponse {
	ids := st.FailedIDs
	if ids == nil {
		ids = []int64{}
	}
	return CycleStatsResponse{
		Devices:    st.Devices,
		Updated:    st.Updated,
		Absent:     st.Absent,
		Failed:     st.Failed,
		Evicted:    st.Evicted,
		DurationMs: float64(st.Duration.Microseconds()) / 1000,
		FailedIDs:  ids,
	}
}

func toSnapshotResponse(snap *model.Snapshot) SnapshotResponse {
	resp := SnapshotResponse{
		Devices:   []client.Device{},
		Positions: []client.Position{},
	}
	if snap == nil {
		return resp
	}
	resp.Cycle = snap.Cycle
	resp.Loaded = snap.Loaded
	resp.FetchedAt = snap.FetchedAt
	resp.Stats = toStatsResponse(snap.Stats)
	if snap.Devices != nil {
		resp.Devices = snap.Devices
	}
	for _, id := range snap.PositionIDs() {
		resp.Positions = append(resp.Positions, snap.Positions[id])
	}
	return resp
}

func toAggregateResponse(snap *model.Snapshot, agg model.Aggregate) AggregateResponse {
	names := make(map[int64]string, snap.DeviceCount())
	if snap != nil {
		for _, d := range snap.Devices {
			names[d.ID] = d.DisplayName()
		}
	}

	markers := make([]MapPosition, 0, len(agg.MapPositions))
	for _, p := range agg.MapPositions {
		name, ok := names[p.DeviceID]
		if !ok {
			name = client.Device{ID: p.DeviceID}.DisplayName()
		}
		markers = append(markers, MapPosition{
			DeviceID:  p.DeviceID,
			Name:      name,
			Latitude:  *p.Latitude,
			Longitude: *p.Longitude,
			SpeedKmh:  p.Speed,
		})
	}

	ranking := agg.Ranking
	if ranking == nil {
		ranking = []model.RankEntry{}
	}

	return AggregateResponse{
		Cycle:                agg.Cycle,
		Loaded:               snap != nil && snap.Loaded,
		ComputedFrom:         agg.ComputedFrom,
		DeviceCount:          agg.DeviceCount,
		OnlineCount:          agg.OnlineCount,
		OfflineCount:         agg.OfflineCount,
		UnknownCount:         agg.UnknownCount,
		MovingCount:          agg.MovingCount,
		TotalDistance:        agg.TotalDistance,
		TotalDistanceDisplay: format.FormatDistanceKM(agg.TotalDistance),
		Ranking:              ranking,
		MapPositions:         markers,
	}
}

func optional(v float64) *float64 {
	if v == model.MetricNotAvailable {
		return nil
	}
	return &v
}

func toDeviceResponse(r model.DeviceRow) DeviceResponse {
	resp := DeviceResponse{
		ID:            r.ID,
		Name:          r.Name,
		Status:        r.Status,
		Online:        r.Online,
		HasPosition:   r.HasPosition,
		SpeedKmh:      optional(r.SpeedKmh),
		SpeedDisplay:  format.FormatSpeed(r.SpeedKmh),
		Battery:       optional(r.Battery),
		TotalDistance: optional(r.TotalDistance),
		LastUpdate:    r.LastUpdate,
	}
	if r.Mappable {
		lat, lon := r.Latitude, r.Longitude
		resp.Latitude = &lat
		resp.Longitude = &lon
	}
	return resp
}

func toAlertResponses(alerts []model.Alert) []AlertResponse {
	out := make([]AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, AlertResponse{
			Severity: a.Severity.String(),
			Category: a.Category.String(),
			DeviceID: a.DeviceID,
			Title:    a.Title,
			Detail:   a.Detail,
		})
	}
	return out
}

func toStreamMessage(id string, u engine.Update) StreamMessage {
	msg := StreamMessage{
		ID:        id,
		Type:      "cycle",
		Trigger:   string(u.Trigger),
		Timestamp: u.Completed,
	}
	if u.Err != nil {
		msg.Error = u.Err.Error()
	}
	agg := toAggregateResponse(u.Snapshot, u.Aggregate)
	msg.Aggregate = &agg
	return msg
}
