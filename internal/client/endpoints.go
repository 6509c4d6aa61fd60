package client

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	endpointDevices   = "/devices"
	endpointPositions = "/positions?deviceId=%d&limit=1"
)

// GetDevices fetches the full device registry from /devices.
// An empty array (or JSON null) is a valid result meaning no devices are
// configured.
func (c *DefaultClient) GetDevices(ctx context.Context) ([]Device, error) {
	body, err := c.doGet(ctx, endpointDevices)
	if err != nil {
		return nil, fmt.Errorf("GetDevices: %w", err)
	}

	var result []Device
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("GetDevices: %w", &Failure{
			Kind: FailureDecode,
			URL:  c.config.BaseURL + endpointDevices,
			Err:  err,
		})
	}
	if result == nil {
		result = []Device{}
	}
	return result, nil
}

// GetLatestPosition fetches the most recent position of one device from
// /positions. A (nil, nil) return means the device has no usable position:
// the list was empty, the body was not JSON, or its content was malformed.
// Only network and HTTP status problems are reported as errors.
func (c *DefaultClient) GetLatestPosition(ctx context.Context, deviceID int64) (*Position, error) {
	body, err := c.doGet(ctx, fmt.Sprintf(endpointPositions, deviceID))
	if err != nil {
		if kind, ok := KindOf(err); ok && kind == FailureContentType {
			return nil, nil
		}
		return nil, fmt.Errorf("GetLatestPosition(%d): %w", deviceID, err)
	}

	var result []Position
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, nil
	}
	if len(result) == 0 {
		return nil, nil
	}

	pos := result[0]
	if pos.DeviceID == 0 {
		pos.DeviceID = deviceID
	}
	if c.config.SpeedUnit != SpeedKmh {
		pos.Speed *= knotsToKmh
	}
	return &pos, nil
}
