package engine

import (
	"context"
	"errors"

	"github.com/dm/fleetmon-go/internal/client"
)

// MockFleetClient implements client.FleetClient for testing.
type MockFleetClient struct {
	DevicesFn  func(ctx context.Context) ([]client.Device, error)
	PositionFn func(ctx context.Context, deviceID int64) (*client.Position, error)
}

func (m *MockFleetClient) GetDevices(ctx context.Context) ([]client.Device, error) {
	if m.DevicesFn != nil {
		return m.DevicesFn(ctx)
	}
	return []client.Device{{ID: 1, Name: "truck-1", Status: client.StatusOnline}}, nil
}

func (m *MockFleetClient) GetLatestPosition(ctx context.Context, deviceID int64) (*client.Position, error) {
	if m.PositionFn != nil {
		return m.PositionFn(ctx, deviceID)
	}
	return nil, nil
}

func (m *MockFleetClient) Ping(ctx context.Context) error {
	return nil
}

func (m *MockFleetClient) BaseURL() string {
	return "http://mock:8082/api"
}

var errMockFailure = errors.New("mock failure")

func f64(v float64) *float64 { return &v }

// pos builds a mappable position with the given attributes.
func pos(id int64, lat, lon, speed float64, attrs map[string]any) *client.Position {
	return &client.Position{
		DeviceID:   id,
		Latitude:   f64(lat),
		Longitude:  f64(lon),
		Speed:      speed,
		Attributes: attrs,
	}
}
