package client

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient creates a DefaultClient pointed at the given test server URL.
func newTestClient(t *testing.T, baseURL string) *DefaultClient {
	t.Helper()
	c, err := NewDefaultClient(ClientConfig{
		BaseURL:        baseURL,
		RequestTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewDefaultClient: %v", err)
	}
	return c
}

func jsonHandler(t *testing.T, wantPath, body string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != wantPath {
			t.Errorf("unexpected path %q, want %q", r.URL.Path, wantPath)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}
}

func TestNewDefaultClient_RequiresBaseURL(t *testing.T) {
	if _, err := NewDefaultClient(ClientConfig{}); err == nil {
		t.Fatal("expected error for empty BaseURL")
	}
}

func TestNewDefaultClient_Defaults(t *testing.T) {
	c, err := NewDefaultClient(ClientConfig{BaseURL: "http://traccar:8082/api"})
	if err != nil {
		t.Fatalf("NewDefaultClient: %v", err)
	}
	if c.http.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", c.http.Timeout)
	}
	if c.config.SpeedUnit != SpeedKnots {
		t.Errorf("SpeedUnit = %q, want knots", c.config.SpeedUnit)
	}
	if c.BaseURL() != "http://traccar:8082/api" {
		t.Errorf("BaseURL = %q", c.BaseURL())
	}
}

func TestGetDevices(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, "/api/devices",
		`[{"id":1,"name":"Truck 1","status":"online","lastUpdate":"2025-05-01T10:00:00Z"},{"id":2,"status":"offline"}]`))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/api/")
	devices, err := c.GetDevices(context.Background())
	if err != nil {
		t.Fatalf("GetDevices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("len(devices) = %d, want 2", len(devices))
	}
	if devices[0].ID != 1 || devices[0].Name != "Truck 1" || !devices[0].Online() {
		t.Errorf("devices[0] = %+v", devices[0])
	}
	if devices[0].LastUpdate == nil || devices[0].LastUpdate.Year() != 2025 {
		t.Errorf("devices[0].LastUpdate = %v", devices[0].LastUpdate)
	}
	if devices[1].DisplayName() != "2" {
		t.Errorf("devices[1].DisplayName() = %q, want %q", devices[1].DisplayName(), "2")
	}
	if devices[1].Online() {
		t.Error("devices[1] should not be online")
	}
}

func TestGetDevices_EmptyIsValid(t *testing.T) {
	for _, body := range []string{`[]`, `null`} {
		srv := httptest.NewServer(jsonHandler(t, "/devices", body))
		c := newTestClient(t, srv.URL)
		devices, err := c.GetDevices(context.Background())
		srv.Close()
		if err != nil {
			t.Fatalf("body %s: GetDevices: %v", body, err)
		}
		if devices == nil || len(devices) != 0 {
			t.Errorf("body %s: devices = %#v, want empty non-nil slice", body, devices)
		}
	}
}

func TestGetDevices_Failures(t *testing.T) {
	cases := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantKind    FailureKind
		wantStatus  int
	}{
		{"server error", http.StatusInternalServerError, "application/json", `{"error":"boom"}`, FailureStatus, 500},
		{"unauthorized", http.StatusUnauthorized, "text/plain", "nope", FailureStatus, 401},
		{"html body", http.StatusOK, "text/html", "<html></html>", FailureContentType, 200},
		{"missing content type", http.StatusOK, "", "[]", FailureContentType, 200},
		{"wrong shape", http.StatusOK, "application/json", `{"id":1}`, FailureDecode, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tc.contentType != "" {
					w.Header().Set("Content-Type", tc.contentType)
				} else {
					w.Header()["Content-Type"] = nil
				}
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL)
			_, err := c.GetDevices(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			kind, ok := KindOf(err)
			if !ok {
				t.Fatalf("error %v does not carry a *Failure", err)
			}
			if kind != tc.wantKind {
				t.Errorf("kind = %v, want %v", kind, tc.wantKind)
			}
			if got := StatusOf(err); got != tc.wantStatus {
				t.Errorf("StatusOf = %d, want %d", got, tc.wantStatus)
			}
		})
	}
}

func TestGetDevices_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	_, err := c.GetDevices(context.Background())
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	kind, ok := KindOf(err)
	if !ok || kind != FailureNetwork {
		t.Errorf("kind = %v (ok=%v), want network", kind, ok)
	}
	if StatusOf(err) != 0 {
		t.Errorf("StatusOf = %d, want 0", StatusOf(err))
	}
}

func TestGetDevices_BasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			t.Errorf("BasicAuth = %q/%q (ok=%v)", user, pass, ok)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := NewDefaultClient(ClientConfig{BaseURL: srv.URL, Username: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("NewDefaultClient: %v", err)
	}
	if _, err := c.GetDevices(context.Background()); err != nil {
		t.Fatalf("GetDevices: %v", err)
	}
}

func TestGetLatestPosition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/positions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("deviceId") != "1" || q.Get("limit") != "1" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"deviceId":1,"latitude":13.9,"longitude":100.5,"speed":10,
			"serverTime":"2025-05-01T10:00:00Z","attributes":{"totalDistance":5000,"batteryLevel":87,"motion":true}}]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	pos, err := c.GetLatestPosition(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetLatestPosition: %v", err)
	}
	if pos == nil {
		t.Fatal("expected a position")
	}
	if !pos.Mappable() || *pos.Latitude != 13.9 || *pos.Longitude != 100.5 {
		t.Errorf("coordinates = %v/%v", pos.Latitude, pos.Longitude)
	}
	if math.Abs(pos.Speed-18.52) > 1e-9 {
		t.Errorf("Speed = %v, want 18.52 km/h", pos.Speed)
	}
	if d, ok := pos.TotalDistance(); !ok || d != 5000 {
		t.Errorf("TotalDistance = %v (ok=%v), want 5000", d, ok)
	}
	if b, ok := pos.BatteryLevel(); !ok || b != 87 {
		t.Errorf("BatteryLevel = %v (ok=%v), want 87", b, ok)
	}
	if m, ok := pos.Motion(); !ok || !m {
		t.Errorf("Motion = %v (ok=%v), want true", m, ok)
	}
	if ts, ok := pos.Timestamp(); !ok || ts.Hour() != 10 {
		t.Errorf("Timestamp = %v (ok=%v)", ts, ok)
	}
}

func TestGetLatestPosition_KmhPassThrough(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, "/positions", `[{"deviceId":3,"speed":42}]`))
	defer srv.Close()

	c, err := NewDefaultClient(ClientConfig{BaseURL: srv.URL, SpeedUnit: SpeedKmh})
	if err != nil {
		t.Fatalf("NewDefaultClient: %v", err)
	}
	pos, err := c.GetLatestPosition(context.Background(), 3)
	if err != nil || pos == nil {
		t.Fatalf("GetLatestPosition: pos=%v err=%v", pos, err)
	}
	if pos.Speed != 42 {
		t.Errorf("Speed = %v, want 42", pos.Speed)
	}
	if pos.Mappable() {
		t.Error("position without coordinates must not be mappable")
	}
}

func TestGetLatestPosition_FillsDeviceID(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, "/positions", `[{"latitude":1,"longitude":2}]`))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	pos, err := c.GetLatestPosition(context.Background(), 77)
	if err != nil || pos == nil {
		t.Fatalf("GetLatestPosition: pos=%v err=%v", pos, err)
	}
	if pos.DeviceID != 77 {
		t.Errorf("DeviceID = %d, want 77", pos.DeviceID)
	}
}

func TestGetLatestPosition_AbsenceIsNotAnError(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		body        string
	}{
		{"empty list", "application/json", `[]`},
		{"null", "application/json", `null`},
		{"non-JSON content", "text/html", `<html>login</html>`},
		{"malformed JSON", "application/json", `[{"deviceId":`},
		{"object instead of list", "application/json", `{"deviceId":1}`},
		{"string latitude", "application/json", `[{"deviceId":1,"latitude":"north"}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL)
			pos, err := c.GetLatestPosition(context.Background(), 1)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if pos != nil {
				t.Errorf("expected nil position, got %+v", pos)
			}
		})
	}
}

func TestGetLatestPosition_StatusFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	pos, err := c.GetLatestPosition(context.Background(), 9)
	if err == nil {
		t.Fatal("expected error")
	}
	if pos != nil {
		t.Errorf("expected nil position, got %+v", pos)
	}
	if StatusOf(err) != http.StatusBadGateway {
		t.Errorf("StatusOf = %d, want 502", StatusOf(err))
	}
	if !strings.Contains(err.Error(), "GetLatestPosition(9)") {
		t.Errorf("error %q should name the operation", err)
	}
}

func TestGetLatestPosition_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewDefaultClient(ClientConfig{BaseURL: srv.URL, RequestTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewDefaultClient: %v", err)
	}

	start := time.Now()
	_, err = c.GetLatestPosition(context.Background(), 1)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if kind, _ := KindOf(err); kind != FailureNetwork {
		t.Errorf("kind = %v, want network", kind)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("request took %v, timeout not applied", elapsed)
	}
}

func TestGetLatestPosition_ContextCancelled(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, srv.URL)
	_, err := c.GetLatestPosition(ctx, 1)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error %v should wrap context.Canceled", err)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, "/devices", `[]`))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestIsJSON(t *testing.T) {
	cases := []struct {
		ct   string
		want bool
	}{
		{"application/json", true},
		{"application/json; charset=utf-8", true},
		{"APPLICATION/JSON", true},
		{"application/vnd.api+json", true},
		{"text/html", false},
		{"text/plain; charset=utf-8", false},
		{"", false},
		{";;;", false},
	}
	for _, tc := range cases {
		if got := isJSON(tc.ct); got != tc.want {
			t.Errorf("isJSON(%q) = %v, want %v", tc.ct, got, tc.want)
		}
	}
}

func TestParseSpeedUnit(t *testing.T) {
	cases := []struct {
		in      string
		want    SpeedUnit
		wantErr bool
	}{
		{"knots", SpeedKnots, false},
		{"", SpeedKnots, false},
		{"KMH", SpeedKmh, false},
		{"km/h", SpeedKmh, false},
		{"mph", "", true},
	}
	for _, tc := range cases {
		got, err := ParseSpeedUnit(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseSpeedUnit(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseSpeedUnit(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPosition_NumericAttributes(t *testing.T) {
	cases := []struct {
		name   string
		attrs  map[string]any
		want   float64
		wantOK bool
	}{
		{"float", map[string]any{"totalDistance": 1234.5}, 1234.5, true},
		{"int", map[string]any{"totalDistance": 10}, 10, true},
		{"numeric string", map[string]any{"totalDistance": " 42.5 "}, 42.5, true},
		{"garbage string", map[string]any{"totalDistance": "far"}, 0, false},
		{"NaN string", map[string]any{"totalDistance": "NaN"}, 0, false},
		{"NaN float", map[string]any{"totalDistance": math.NaN()}, 0, false},
		{"bool", map[string]any{"totalDistance": true}, 0, false},
		{"nil", map[string]any{"totalDistance": nil}, 0, false},
		{"absent", map[string]any{}, 0, false},
		{"nil map", nil, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Position{Attributes: tc.attrs}.TotalDistance()
			if ok != tc.wantOK || got != tc.want {
				t.Errorf("TotalDistance = %v (ok=%v), want %v (ok=%v)", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestPosition_TimestampFallsBackToFixTime(t *testing.T) {
	fix := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	p := Position{FixTime: &fix}
	ts, ok := p.Timestamp()
	if !ok || !ts.Equal(fix) {
		t.Errorf("Timestamp = %v (ok=%v), want %v", ts, ok, fix)
	}
	if _, ok := (Position{}).Timestamp(); ok {
		t.Error("empty position should have no timestamp")
	}
}

func TestFailure_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("connection reset")
	f := &Failure{Kind: FailureNetwork, URL: "http://x/devices", Err: inner}
	if !errors.Is(f, inner) {
		t.Error("Failure should unwrap to its cause")
	}
	if !strings.Contains(f.Error(), "network failure") {
		t.Errorf("Error() = %q", f.Error())
	}
	f = &Failure{Kind: FailureStatus, URL: "http://x/devices", Status: 503, Err: inner}
	if !strings.Contains(f.Error(), "status 503") {
		t.Errorf("Error() = %q", f.Error())
	}
	if StatusOf(errors.New("plain")) != 0 {
		t.Error("StatusOf(plain error) should be 0")
	}
}
