package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

// FleetClient defines the interface for reading device and position data
// from a Traccar-compatible fleet server.
type FleetClient interface {
	GetDevices(ctx context.Context) ([]Device, error)
	GetLatestPosition(ctx context.Context, deviceID int64) (*Position, error)
	Ping(ctx context.Context) error
	BaseURL() string
}

// SpeedUnit is the unit the upstream server reports position speed in.
type SpeedUnit string

const (
	SpeedKnots SpeedUnit = "knots"
	SpeedKmh   SpeedUnit = "kmh"
)

// knotsToKmh converts knots to km/h.
const knotsToKmh = 1.852

// ParseSpeedUnit validates a speed unit name.
func ParseSpeedUnit(s string) (SpeedUnit, error) {
	switch SpeedUnit(strings.ToLower(strings.TrimSpace(s))) {
	case SpeedKnots, "":
		return SpeedKnots, nil
	case SpeedKmh, "km/h":
		return SpeedKmh, nil
	default:
		return "", fmt.Errorf("unknown speed unit %q (want knots or kmh)", s)
	}
}

// ClientConfig holds configuration for DefaultClient.
type ClientConfig struct {
	BaseURL            string
	Username           string
	Password           string
	InsecureSkipVerify bool
	RequestTimeout     time.Duration
	// SpeedUnit is the unit of the upstream speed field. Positions returned
	// by the client always carry km/h.
	SpeedUnit SpeedUnit
}

// DefaultClient implements FleetClient using the standard net/http package.
type DefaultClient struct {
	http   *http.Client
	config ClientConfig
}

// NewDefaultClient constructs a DefaultClient from the given config.
// It configures TLS skip-verify and request timeout from the config.
// Returns an error if BaseURL is empty.
func NewDefaultClient(cfg ClientConfig) (*DefaultClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.SpeedUnit == "" {
		cfg.SpeedUnit = SpeedKnots
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	}

	return &DefaultClient{
		http: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		config: cfg,
	}, nil
}

// BaseURL returns the configured base URL of the fleet API.
func (c *DefaultClient) BaseURL() string {
	return c.config.BaseURL
}

// doGet performs a GET request to the given path (relative to BaseURL).
// Every failure mode comes back as a *Failure: network errors and timeouts,
// non-2xx statuses, and responses whose content type is not JSON.
func (c *DefaultClient) doGet(ctx context.Context, path string) ([]byte, error) {
	url := strings.TrimRight(c.config.BaseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Failure{Kind: FailureNetwork, URL: url, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")

	if c.config.Username != "" || c.config.Password != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Failure{Kind: FailureNetwork, URL: url, Err: err}
	}
	defer resp.Body.Close()

	const maxResponseBytes = 16 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Failure{Kind: FailureNetwork, URL: url, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Failure{
			Kind:   FailureStatus,
			URL:    url,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200)),
		}
	}

	if !isJSON(resp.Header.Get("Content-Type")) {
		return nil, &Failure{
			Kind:   FailureContentType,
			URL:    url,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("non-JSON content type %q", resp.Header.Get("Content-Type")),
		}
	}

	return body, nil
}

// Ping checks connectivity by listing devices with a 2s timeout.
func (c *DefaultClient) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err := c.doGet(pingCtx, endpointDevices)
	return err
}

// isJSON reports whether a Content-Type header names a JSON media type,
// including vendor types such as application/vnd.api+json.
func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
