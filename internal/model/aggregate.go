package model

import (
	"time"

	"github.com/dm/fleetmon-go/internal/client"
)

// Aggregate holds the fleet-level figures derived from one Snapshot.
type Aggregate struct {
	DeviceCount  int
	OnlineCount  int
	OfflineCount int
	// UnknownCount is the subset of OfflineCount with an empty status.
	UnknownCount  int
	TotalDistance float64 // meters
	Ranking       []RankEntry
	MapPositions  []client.Position
	MovingCount   int
	Cycle         uint64
	ComputedFrom  time.Time
}

// RankEntry is one row of the distance ranking.
type RankEntry struct {
	DeviceID      int64   `json:"id"`
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	TotalDistance float64 `json:"totalDistance"` // meters
}

// DeviceRow holds display-ready data for a single row in the device table.
type DeviceRow struct {
	ID            int64
	Name          string
	Status        string
	Online        bool
	HasPosition   bool
	Mappable      bool
	Latitude      float64
	Longitude     float64
	SpeedKmh      float64 // MetricNotAvailable when no position
	Battery       float64 // percent; MetricNotAvailable when unknown
	TotalDistance float64 // meters; MetricNotAvailable when unknown
	LastUpdate    time.Time
}

// MetricNotAvailable marks a numeric cell with no data.
const MetricNotAvailable = -1.0
