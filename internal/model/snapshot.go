package model

import (
	"sort"
	"time"

	"github.com/dm/fleetmon-go/internal/client"
)

// Snapshot is the merged view of the device registry and each device's latest
// known position. A Snapshot is never modified after it has been published;
// each cycle builds a new one.
type Snapshot struct {
	Devices   []client.Device
	Positions map[int64]client.Position
	FetchedAt time.Time
	Cycle     uint64
	// Loaded is false until a cycle has applied a registry response. An
	// unloaded snapshot means "no data yet", not "no devices".
	Loaded bool
	Stats  CycleStats
}

// CycleStats summarises the per-device outcomes of the cycle that produced a
// snapshot.
type CycleStats struct {
	Devices  int
	Updated  int // a new position replaced the stored one
	Absent   int // the server had no usable position
	Failed   int // the fetch failed; any previous position was retained
	Evicted  int
	Duration time.Duration
	// FailedIDs lists devices whose fetch failed, in registry order.
	FailedIDs []int64
}

// EmptySnapshot returns the process-start snapshot.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Devices:   []client.Device{},
		Positions: map[int64]client.Position{},
	}
}

// Position returns the stored position for id.
func (s *Snapshot) Position(id int64) (client.Position, bool) {
	if s == nil {
		return client.Position{}, false
	}
	p, ok := s.Positions[id]
	return p, ok
}

// DeviceCount returns the number of devices in the registry.
func (s *Snapshot) DeviceCount() int {
	if s == nil {
		return 0
	}
	return len(s.Devices)
}

// PositionIDs returns the position keys in a stable order: registry order
// first, then ids no longer in the registry in ascending order.
func (s *Snapshot) PositionIDs() []int64 {
	if s == nil {
		return nil
	}
	ids := make([]int64, 0, len(s.Positions))
	seen := make(map[int64]struct{}, len(s.Devices))
	for _, d := range s.Devices {
		if _, ok := s.Positions[d.ID]; ok {
			if _, dup := seen[d.ID]; !dup {
				ids = append(ids, d.ID)
				seen[d.ID] = struct{}{}
			}
		}
	}
	var stale []int64
	for id := range s.Positions {
		if _, ok := seen[id]; !ok {
			stale = append(stale, id)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i] < stale[j] })
	return append(ids, stale...)
}
