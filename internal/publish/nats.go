// Package publish emits one event per completed refresh cycle to NATS.
package publish

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/dm/fleetmon-go/internal/engine"
)

const (
	DefaultSubject = "fleet.telemetry.cycle"
	DefaultSource  = "fleetmon/scheduler"
)

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Config configures Connect.
type Config struct {
	URL      string
	Subject  string
	Source   string
	Username string
	Password string
}

// NATSPublisher publishes cycle events with core NATS (at most once). A
// publish never blocks the scheduler; failures are logged and counted.
type NATSPublisher struct {
	conn    Conn
	subject string
	source  string
	logger  zerolog.Logger

	published atomic.Uint64
	failed    atomic.Uint64
}

// Connect dials cfg.URL and returns a publisher that reconnects forever.
func Connect(cfg Config, logger zerolog.Logger) (*NATSPublisher, error) {
	logger = logger.With().Str("component", "publish").Logger()

	opts := []nats.Option{
		nats.Name("fleetmon"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("Reconnected to NATS")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Debug().Msg("NATS connection closed")
		}),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")

	return New(nc, cfg.Subject, cfg.Source, logger), nil
}

// New wraps an existing connection. Empty subject or source take defaults.
func New(conn Conn, subject, source string, logger zerolog.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if source == "" {
		source = DefaultSource
	}
	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		source:  source,
		logger:  logger,
	}
}

// Subject returns the subject events are published on.
func (p *NATSPublisher) Subject() string {
	return p.subject
}

// PublishUpdate publishes u. It is meant to be passed to Scheduler.Subscribe.
func (p *NATSPublisher) PublishUpdate(u engine.Update) {
	if err := p.Publish(NewCycleEvent(p.source, p.subject, u)); err != nil {
		p.failed.Add(1)
		p.logger.Warn().Err(err).Str("subject", p.subject).Msg("Failed to publish cycle event")
		return
	}
	p.published.Add(1)
}

// Publish marshals event and publishes it on the configured subject.
func (p *NATSPublisher) Publish(event CloudEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal cycle event: %w", err)
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("failed to publish cycle event: %w", err)
	}
	p.logger.Debug().Str("id", event.ID).Str("type", event.Type).Msg("Published cycle event")
	return nil
}

// Counts returns how many events were published and how many failed.
func (p *NATSPublisher) Counts() (published, failed uint64) {
	return p.published.Load(), p.failed.Load()
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
