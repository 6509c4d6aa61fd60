package publish

import (
	"time"

	"github.com/google/uuid"

	"github.com/dm/fleetmon-go/internal/engine"
	"github.com/dm/fleetmon-go/internal/model"
)

// Event types carried in CloudEvent.Type.
const (
	TypeCycleCompleted  = "com.fleetmon.telemetry.cycle.completed"
	TypeRegistryFailure = "com.fleetmon.telemetry.cycle.registry_failure"
)

// CloudEvent represents a CloudEvents v1.0 compliant event.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// CycleEventData is the payload of a cycle event.
type CycleEventData struct {
	Cycle         uint64            `json:"cycle"`
	Trigger       string            `json:"trigger"`
	Loaded        bool              `json:"loaded"`
	Error         string            `json:"error,omitempty"`
	Devices       int               `json:"devices"`
	Online        int               `json:"online"`
	Offline       int               `json:"offline"`
	Unknown       int               `json:"unknown"`
	Moving        int               `json:"moving"`
	MapPositions  int               `json:"mapPositions"`
	TotalDistance float64           `json:"totalDistance"` // meters
	Ranking       []model.RankEntry `json:"ranking"`
	Updated       int               `json:"updated"`
	Absent        int               `json:"absent"`
	Failed        int               `json:"failed"`
	FailedIDs     []int64           `json:"failedIds,omitempty"`
	DurationMs    float64           `json:"durationMs"`
	Timestamp     time.Time         `json:"timestamp"`
}

// NewCycleEvent wraps a scheduler update in a CloudEvent.
func NewCycleEvent(source, subject string, u engine.Update) CloudEvent {
	agg := u.Aggregate
	data := CycleEventData{
		Trigger:       string(u.Trigger),
		Devices:       agg.DeviceCount,
		Online:        agg.OnlineCount,
		Offline:       agg.OfflineCount,
		Unknown:       agg.UnknownCount,
		Moving:        agg.MovingCount,
		MapPositions:  len(agg.MapPositions),
		TotalDistance: agg.TotalDistance,
		Ranking:       agg.Ranking,
		Timestamp:     u.Completed,
	}
	if data.Ranking == nil {
		data.Ranking = []model.RankEntry{}
	}
	if snap := u.Snapshot; snap != nil {
		data.Cycle = snap.Cycle
		data.Loaded = snap.Loaded
		data.Updated = snap.Stats.Updated
		data.Absent = snap.Stats.Absent
		data.Failed = snap.Stats.Failed
		data.FailedIDs = snap.Stats.FailedIDs
		data.DurationMs = float64(snap.Stats.Duration.Microseconds()) / 1000
	}

	eventType := TypeCycleCompleted
	if u.Err != nil {
		eventType = TypeRegistryFailure
		data.Error = u.Err.Error()
	}

	ts := u.Completed
	return CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          source,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         subject,
		Time:            &ts,
		Data:            data,
	}
}
