package client

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// StatusOnline is the only device status counted as online. The match is
// exact and case-sensitive.
const StatusOnline = "online"

// Device represents a single entry from GET /devices.
type Device struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name,omitempty"`
	Status     string     `json:"status"`
	LastUpdate *time.Time `json:"lastUpdate,omitempty"`
}

// DisplayName returns Name, falling back to the identifier.
func (d Device) DisplayName() string {
	if strings.TrimSpace(d.Name) != "" {
		return d.Name
	}
	return strconv.FormatInt(d.ID, 10)
}

// Online reports whether the device status is exactly "online".
func (d Device) Online() bool {
	return d.Status == StatusOnline
}

// Position represents the latest position entry from GET /positions.
// Speed is always km/h once a Position leaves the client.
type Position struct {
	DeviceID   int64          `json:"deviceId"`
	Latitude   *float64       `json:"latitude,omitempty"`
	Longitude  *float64       `json:"longitude,omitempty"`
	Speed      float64        `json:"speed"`
	ServerTime *time.Time     `json:"serverTime,omitempty"`
	FixTime    *time.Time     `json:"fixTime,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Mappable reports whether both coordinates are present.
func (p Position) Mappable() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Timestamp returns the server time, falling back to the fix time.
func (p Position) Timestamp() (time.Time, bool) {
	if p.ServerTime != nil && !p.ServerTime.IsZero() {
		return *p.ServerTime, true
	}
	if p.FixTime != nil && !p.FixTime.IsZero() {
		return *p.FixTime, true
	}
	return time.Time{}, false
}

// TotalDistance returns attributes.totalDistance in meters. Numeric strings
// are accepted; anything else reports false.
func (p Position) TotalDistance() (float64, bool) {
	return p.numericAttr("totalDistance")
}

// BatteryLevel returns attributes.batteryLevel as a percentage.
func (p Position) BatteryLevel() (float64, bool) {
	return p.numericAttr("batteryLevel")
}

// Motion returns attributes.motion when it is a boolean.
func (p Position) Motion() (bool, bool) {
	v, ok := p.Attributes["motion"].(bool)
	return v, ok
}

func (p Position) numericAttr(key string) (float64, bool) {
	raw, ok := p.Attributes[key]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
