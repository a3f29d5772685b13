// Package events publishes run-lifecycle notifications over NATS on
// the three pipeline lifecycle subjects: run opened, stage completed,
// run closed.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectRunOpened      = "pipeline.run.opened"
	SubjectStageCompleted = "pipeline.stage.completed"
	SubjectRunClosed      = "pipeline.run.closed"
)

// Config holds the NATS connection parameters.
type Config struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
}

// Publisher wraps a NATS connection for the pipeline's lifecycle events.
type Publisher struct {
	conn *nats.Conn
}

// Connect dials NATS with reconnect and error log handlers attached.
func Connect(cfg Config) (*Publisher, error) {
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 10
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Printf("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Printf("nats error: %v", err)
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("events: connect: %w", err)
	}
	log.Printf("connected to nats at %s", cfg.URL)
	return &Publisher{conn: conn}, nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Drain()
		p.conn.Close()
	}
}

// RunOpened is the payload published when a run starts.
type RunOpened struct {
	RunID   string    `json:"run_id"`
	GSTIN   string    `json:"gstin"`
	Channel string    `json:"channel"`
	Month   string    `json:"month"`
	At      time.Time `json:"at"`
}

// StageCompleted is the payload published after each stage transition.
type StageCompleted struct {
	RunID     string    `json:"run_id"`
	Stage     string    `json:"stage"`
	Success   bool      `json:"success"`
	Processed int       `json:"processed"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// RunClosed is the payload published when a run reaches a terminal status.
type RunClosed struct {
	RunID  string    `json:"run_id"`
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

func (p *Publisher) publish(subject string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", subject, err)
	}
	return p.conn.Publish(subject, raw)
}

func (p *Publisher) PublishRunOpened(ctx context.Context, e RunOpened) error {
	return p.publish(SubjectRunOpened, e)
}

func (p *Publisher) PublishStageCompleted(ctx context.Context, e StageCompleted) error {
	return p.publish(SubjectStageCompleted, e)
}

func (p *Publisher) PublishRunClosed(ctx context.Context, e RunClosed) error {
	return p.publish(SubjectRunClosed, e)
}

// NoopPublisher satisfies the same call sites as Publisher without a
// live NATS connection, for local/offline runs.
type NoopPublisher struct{}

func (NoopPublisher) PublishRunOpened(ctx context.Context, e RunOpened) error           { return nil }
func (NoopPublisher) PublishStageCompleted(ctx context.Context, e StageCompleted) error { return nil }
func (NoopPublisher) PublishRunClosed(ctx context.Context, e RunClosed) error           { return nil }

// Emitter is the interface the Run Coordinator depends on, satisfied
// by both Publisher and NoopPublisher.
type Emitter interface {
	PublishRunOpened(ctx context.Context, e RunOpened) error
	PublishStageCompleted(ctx context.Context, e StageCompleted) error
	PublishRunClosed(ctx context.Context, e RunClosed) error
}
