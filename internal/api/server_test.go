package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MikeSquared-Agency/ticketcal/internal/metrics"
	"github.com/MikeSquared-Agency/ticketcal/internal/processor"
	"github.com/MikeSquared-Agency/ticketcal/internal/store"
)

type fixedStatus processor.Status

func (f fixedStatus) Status() processor.Status { return processor.Status(f) }

func newTestServer(st processor.Status) *Server {
	return NewServer(8760, fixedStatus(st), prometheus.NewRegistry())
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(processor.Status{State: processor.StateIdle})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(processor.Status{
		State:      processor.StateProcessing,
		Current:    "/in/jazz.pdf",
		Processed:  3,
		Failed:     1,
		LastOutput: "/out/Opera.ics",
	})

	req := httptest.NewRequest("GET", "/api/v1/ticketcal/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["agent"] != "ticketcal" {
		t.Errorf("expected agent ticketcal, got %v", body["agent"])
	}
	if body["state"] != "processing" {
		t.Errorf("expected state processing, got %v", body["state"])
	}
	if body["current"] != "/in/jazz.pdf" {
		t.Errorf("unexpected current %v", body["current"])
	}
	if body["processed"] != float64(3) || body["failed"] != float64(1) {
		t.Errorf("unexpected counters %v / %v", body["processed"], body["failed"])
	}
	if body["last_output"] != "/out/Opera.ics" {
		t.Errorf("unexpected last_output %v", body["last_output"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Tickets.WithLabelValues(metrics.OutcomeWritten).Inc()
	srv := NewServer(8760, fixedStatus{State: processor.StateIdle}, reg)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `ticketcal_tickets_total{outcome="written"} 1`) {
		t.Errorf("metrics output missing ticket counter:\n%s", w.Body.String())
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(processor.Status{})

	req := httptest.NewRequest("GET", "/nonexistent", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

type memRuns struct {
	runs []store.TicketRun
	err  error
}

func (m *memRuns) RecentRuns(_ context.Context, limit int) ([]store.TicketRun, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func (m *memRuns) GetRun(_ context.Context, id uuid.UUID) (*store.TicketRun, error) {
	for i := range m.runs {
		if m.runs[i].ID == id {
			return &m.runs[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func sampleRuns() []store.TicketRun {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return []store.TicketRun{
		{ID: uuid.New(), Path: "/in/b.pdf", Status: metrics.OutcomeQueryFailed, Error: "timeout", StartedAt: now, FinishedAt: now.Add(time.Second)},
		{ID: uuid.New(), Path: "/in/a.pdf", Status: metrics.OutcomeWritten, OutputFile: "/out/A.ics", StartedAt: now, FinishedAt: now},
	}
}

func TestRunsEndpoints(t *testing.T) {
	runs := sampleRuns()
	srv := newTestServer(processor.Status{})
	srv.SetRuns(&memRuns{runs: runs})

	tests := []struct {
		name  string
		path  string
		code  int
		count int
	}{
		{"list default", "/api/v1/ticketcal/runs", http.StatusOK, 2},
		{"list limited", "/api/v1/ticketcal/runs?limit=1", http.StatusOK, 1},
		{"bad limit", "/api/v1/ticketcal/runs?limit=abc", http.StatusBadRequest, -1},
		{"zero limit", "/api/v1/ticketcal/runs?limit=0", http.StatusBadRequest, -1},
		{"get", "/api/v1/ticketcal/runs/" + runs[1].ID.String(), http.StatusOK, -1},
		{"get unknown", "/api/v1/ticketcal/runs/" + uuid.NewString(), http.StatusNotFound, -1},
		{"get bad id", "/api/v1/ticketcal/runs/nope", http.StatusBadRequest, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.router.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))

			if w.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
			if tt.count < 0 {
				return
			}
			var body runsResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body.Count != tt.count || len(body.Runs) != tt.count {
				t.Errorf("expected %d runs, got %d (%d)", tt.count, body.Count, len(body.Runs))
			}
		})
	}
}

func TestGetRunBody(t *testing.T) {
	runs := sampleRuns()
	srv := newTestServer(processor.Status{})
	srv.SetRuns(&memRuns{runs: runs})

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/ticketcal/runs/"+runs[1].ID.String(), nil))

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "written" || body["output_file"] != "/out/A.ics" {
		t.Errorf("unexpected run %v", body)
	}
	if _, ok := body["error"]; ok {
		t.Errorf("error should be omitted for a written run: %v", body)
	}
}

func TestRunsWithoutJournal(t *testing.T) {
	srv := newTestServer(processor.Status{})

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/ticketcal/runs", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestRunsStoreError(t *testing.T) {
	srv := newTestServer(processor.Status{})
	srv.SetRuns(&memRuns{err: errors.New("db down")})

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/ticketcal/runs", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}
