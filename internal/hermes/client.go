package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects for ticket outcomes.
const (
	SubjectTicketWritten = "tickets.ics.written"
	SubjectTicketFailed  = "tickets.failed"

	SubjectAgentRegistered = "swarm.agent.ticketcal.registered"
)

// TicketWritten is published after a calendar file has been written.
type TicketWritten struct {
	RunID  string `json:"run_id"`
	Path   string `json:"path"`
	Output string `json:"output"`
}

// TicketFailed is published when a ticket is skipped.
type TicketFailed struct {
	RunID string `json:"run_id"`
	Path  string `json:"path"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("ticketcal"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Close() {
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}
