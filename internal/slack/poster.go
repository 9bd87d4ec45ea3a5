package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/ticketcal/internal/hermes"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// Poster posts ticket outcomes to a Slack channel.
type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// Publish formats a ticket outcome and posts it. It accepts the same
// payloads that go out on the bus, so it can sit next to the NATS client.
func (p *Poster) Publish(subject string, data any) error {
	text, err := formatOutcome(data)
	if err != nil {
		return err
	}
	ts, err := p.PostMessage(context.Background(), text)
	if err != nil {
		return err
	}
	p.logger.Debug("posted ticket outcome to slack", "subject", subject, "ts", ts)
	return nil
}

// PostMessage posts text to the channel and returns the message timestamp.
func (p *Poster) PostMessage(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatOutcome(data any) (string, error) {
	var sb strings.Builder
	switch msg := data.(type) {
	case hermes.TicketWritten:
		fmt.Fprintf(&sb, ":calendar: *Calendar written:* `%s`\n", filepath.Base(msg.Output))
		fmt.Fprintf(&sb, "Ticket: `%s`", filepath.Base(msg.Path))
	case hermes.TicketFailed:
		fmt.Fprintf(&sb, ":warning: *Ticket skipped* (%s stage)\n", msg.Stage)
		fmt.Fprintf(&sb, "Ticket: `%s`\n", filepath.Base(msg.Path))
		fmt.Fprintf(&sb, "Error: %s", msg.Error)
	default:
		return "", fmt.Errorf("unsupported slack payload %T", data)
	}
	return sb.String(), nil
}
