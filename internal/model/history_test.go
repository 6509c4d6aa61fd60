package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dm/fleetmon-go/internal/client"
)

func TestFleetHistory_PushAndLen(t *testing.T) {
	h := NewFleetHistory(5)
	assert.Equal(t, 0, h.Len())

	h.Push(FleetPoint{Timestamp: time.Now(), Online: 1})
	assert.Equal(t, 1, h.Len())

	h.Push(FleetPoint{Timestamp: time.Now(), Online: 2})
	h.Push(FleetPoint{Timestamp: time.Now(), Online: 3})
	assert.Equal(t, 3, h.Len())
}

func TestFleetHistory_OverwritesOldest(t *testing.T) {
	h := NewFleetHistory(3)

	h.Push(FleetPoint{Online: 10})
	h.Push(FleetPoint{Online: 20})
	h.Push(FleetPoint{Online: 30})
	require.Equal(t, 3, h.Len())

	h.Push(FleetPoint{Online: 40})
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, []float64{20, 30, 40}, h.Values("online"))

	h.Push(FleetPoint{Online: 50})
	assert.Equal(t, []float64{30, 40, 50}, h.Values("online"))
}

func TestFleetHistory_Values_AllFields(t *testing.T) {
	h := NewFleetHistory(2)
	h.Push(FleetPoint{Online: 1, Offline: 2, TotalDistanceKm: 3.5, Mappable: 4})

	assert.Equal(t, []float64{1}, h.Values("online"))
	assert.Equal(t, []float64{2}, h.Values("offline"))
	assert.Equal(t, []float64{3.5}, h.Values("totalDistance"))
	assert.Equal(t, []float64{4}, h.Values("mappable"))
	assert.Equal(t, []float64{0}, h.Values("bogusField"))
}

func TestFleetHistory_PushAggregate(t *testing.T) {
	lat, lon := 1.0, 2.0
	h := NewFleetHistory(4)
	h.PushAggregate(Aggregate{
		OnlineCount:   3,
		OfflineCount:  1,
		TotalDistance: 12500,
		MapPositions:  []client.Position{{Latitude: &lat, Longitude: &lon}},
	})

	require.Equal(t, 1, h.Len())
	assert.Equal(t, []float64{3}, h.Values("online"))
	assert.Equal(t, []float64{1}, h.Values("offline"))
	assert.Equal(t, []float64{12.5}, h.Values("totalDistance"))
	assert.Equal(t, []float64{1}, h.Values("mappable"))
}

func TestFleetHistory_ClearAndDefaultCapacity(t *testing.T) {
	h := NewFleetHistory(0)
	for i := 0; i < 65; i++ {
		h.Push(FleetPoint{Online: float64(i)})
	}
	assert.Equal(t, 60, h.Len())
	vals := h.Values("online")
	assert.Equal(t, float64(5), vals[0])
	assert.Equal(t, float64(64), vals[59])

	h.Clear()
	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.Values("online"))

	h.Push(FleetPoint{Online: 99})
	assert.Equal(t, []float64{99}, h.Values("online"))
}
