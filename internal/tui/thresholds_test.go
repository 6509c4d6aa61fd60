package tui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dm/fleetmon-go/internal/engine"
	"github.com/dm/fleetmon-go/internal/model"
)

func TestThreshold_Battery(t *testing.T) {
	th := engine.DefaultAlertThresholds(30 * time.Second)
	cases := []struct {
		pct  float64
		want severity
	}{
		{model.MetricNotAvailable, severityNormal},
		{0, severityCritical},
		{9.9, severityCritical},
		{10, severityWarning}, // boundary: <10 is critical
		{19.9, severityWarning},
		{20, severityNormal}, // boundary: <20 is warning
		{100, severityNormal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, batterySeverity(tc.pct, th), "battery %v", tc.pct)
	}
}

func TestThreshold_Stale(t *testing.T) {
	th := engine.AlertThresholds{StaleAfter: 5 * time.Minute}
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, severityNormal, staleSeverity(time.Time{}, now, th), "never updated is not stale")
	assert.Equal(t, severityNormal, staleSeverity(now.Add(-5*time.Minute), now, th))
	assert.Equal(t, severityWarning, staleSeverity(now.Add(-6*time.Minute), now, th))
	assert.Equal(t, severityNormal, staleSeverity(now.Add(-time.Hour), now, engine.AlertThresholds{}), "disabled")
}

func TestThreshold_Offline(t *testing.T) {
	assert.Equal(t, severityNormal, offlineSeverity(model.Aggregate{}))
	assert.Equal(t, severityNormal, offlineSeverity(model.Aggregate{DeviceCount: 3, OnlineCount: 3}))
	assert.Equal(t, severityWarning, offlineSeverity(model.Aggregate{DeviceCount: 3, OnlineCount: 2, OfflineCount: 1}))
	assert.Equal(t, severityCritical, offlineSeverity(model.Aggregate{DeviceCount: 3, OfflineCount: 3}))
}

func TestThreshold_AlertSeverityMapping(t *testing.T) {
	assert.Equal(t, severityNormal, alertSeverity(model.SeverityNormal))
	assert.Equal(t, severityWarning, alertSeverity(model.SeverityWarning))
	assert.Equal(t, severityCritical, alertSeverity(model.SeverityCritical))
}

func TestSeverityFg(t *testing.T) {
	assert.Equal(t, colorBlue, severityFg(severityNormal, colorBlue))
	assert.Equal(t, colorYellow, severityFg(severityWarning, colorBlue))
	assert.Equal(t, colorRed, severityFg(severityCritical, colorBlue))
}
