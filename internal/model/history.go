package model

import "time"

const defaultHistoryCap = 60

// FleetPoint is a single per-cycle data point stored in the ring buffer.
type FleetPoint struct {
	Timestamp       time.Time
	Online          float64
	Offline         float64
	TotalDistanceKm float64
	Mappable        float64
}

// FleetHistory is a fixed-size ring buffer of FleetPoints.
// When the buffer is full, new pushes overwrite the oldest entry.
type FleetHistory struct {
	buf  []FleetPoint
	head int // index of the next write position
	size int // number of valid entries
}

// NewFleetHistory creates a FleetHistory with the given capacity.
// If capacity <= 0, defaultHistoryCap (60) is used.
func NewFleetHistory(capacity int) *FleetHistory {
	if capacity <= 0 {
		capacity = defaultHistoryCap
	}
	return &FleetHistory{
		buf: make([]FleetPoint, capacity),
	}
}

// Push appends a new point to the history, overwriting the oldest if full.
func (h *FleetHistory) Push(p FleetPoint) {
	h.buf[h.head] = p
	h.head = (h.head + 1) % len(h.buf)
	if h.size < len(h.buf) {
		h.size++
	}
}

// PushAggregate records the headline figures of agg.
func (h *FleetHistory) PushAggregate(agg Aggregate) {
	h.Push(FleetPoint{
		Timestamp:       agg.ComputedFrom,
		Online:          float64(agg.OnlineCount),
		Offline:         float64(agg.OfflineCount),
		TotalDistanceKm: agg.TotalDistance / 1000,
		Mappable:        float64(len(agg.MapPositions)),
	})
}

// Len returns the number of valid entries in the history.
func (h *FleetHistory) Len() int {
	return h.size
}

// Clear resets the history to empty.
func (h *FleetHistory) Clear() {
	h.head = 0
	h.size = 0
}

// Values returns a slice of float64 for the named field in chronological order
// (oldest first). Valid field names: "online", "offline", "totalDistance",
// "mappable".
func (h *FleetHistory) Values(field string) []float64 {
	out := make([]float64, h.size)
	// oldest entry sits at (head - size + cap) % cap
	start := (h.head - h.size + len(h.buf)) % len(h.buf)
	for i := 0; i < h.size; i++ {
		p := h.buf[(start+i)%len(h.buf)]
		switch field {
		case "online":
			out[i] = p.Online
		case "offline":
			out[i] = p.Offline
		case "totalDistance":
			out[i] = p.TotalDistanceKm
		case "mappable":
			out[i] = p.Mappable
		}
	}
	return out
}
