package slack

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/ticketcal/internal/hermes"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFormatOutcome_Written(t *testing.T) {
	msg, err := formatOutcome(hermes.TicketWritten{RunID: "r1", Path: "/in/tickets/jazz.pdf", Output: "/out/Jazz_Night.ics"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, check := range []string{"Calendar written", "Jazz_Night.ics", "jazz.pdf"} {
		if !strings.Contains(msg, check) {
			t.Errorf("expected message to contain %q, got %q", check, msg)
		}
	}
	if strings.Contains(msg, "/in/tickets") {
		t.Errorf("message should use base names, got %q", msg)
	}
}

func TestFormatOutcome_Failed(t *testing.T) {
	msg, err := formatOutcome(hermes.TicketFailed{Path: "/in/opera.pdf", Stage: "query", Error: "status 401"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, check := range []string{"Ticket skipped", "query stage", "opera.pdf", "status 401"} {
		if !strings.Contains(msg, check) {
			t.Errorf("expected message to contain %q, got %q", check, msg)
		}
	}
}

func TestFormatOutcome_Unsupported(t *testing.T) {
	if _, err := formatOutcome(map[string]string{"x": "y"}); err == nil {
		t.Fatal("expected error for unsupported payload")
	}
}

func TestPublish_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer xoxb-test" {
			t.Errorf("expected Bearer xoxb-test, got %q", r.Header.Get("Authorization"))
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body["channel"] != "C123" {
			t.Errorf("expected channel C123, got %v", body["channel"])
		}
		if !strings.Contains(body["text"].(string), "Jazz_Night.ics") {
			t.Errorf("unexpected text %v", body["text"])
		}

		json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "1234.5678"})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C123", discardLogger())
	p.apiURL = server.URL

	err := p.Publish(hermes.SubjectTicketWritten, hermes.TicketWritten{Path: "/in/jazz.pdf", Output: "/out/Jazz_Night.ics"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPublish_SlackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C999", discardLogger())
	p.apiURL = server.URL

	err := p.Publish(hermes.SubjectTicketFailed, hermes.TicketFailed{Path: "/in/x.pdf", Stage: "render", Error: "broken"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "channel_not_found") {
		t.Errorf("expected channel_not_found in error, got %v", err)
	}
}
