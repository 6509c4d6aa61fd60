package model

// AlertSeverity indicates the urgency level of an alert.
type AlertSeverity int

const (
	SeverityNormal AlertSeverity = iota
	SeverityWarning
	SeverityCritical
)

func (s AlertSeverity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "normal"
	}
}

// AlertCategory groups related alerts.
type AlertCategory int

const (
	CategoryBattery AlertCategory = iota
	CategoryConnectivity
	CategoryStaleness
	CategoryFetch
)

func (c AlertCategory) String() string {
	switch c {
	case CategoryBattery:
		return "battery"
	case CategoryConnectivity:
		return "connectivity"
	case CategoryStaleness:
		return "staleness"
	case CategoryFetch:
		return "fetch"
	default:
		return "other"
	}
}

// Alert is a single condition worth an operator's attention, derived from a
// snapshot.
type Alert struct {
	Severity AlertSeverity `json:"severity"`
	Category AlertCategory `json:"category"`
	DeviceID int64         `json:"deviceId,omitempty"`
	Title    string        `json:"title"`
	Detail   string        `json:"detail"`
}
