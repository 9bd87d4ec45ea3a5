package ics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/ticketcal/internal/event"
)

func jazzNight() event.CalendarEvent {
	return event.CalendarEvent{
		ID:        "event_1760535910",
		CreatedAt: time.Date(2025, time.October, 15, 13, 45, 10, 0, time.UTC),
		Summary:   "Jazz Night",
		Location:  "Blue Note",
		Start:     time.Date(2025, time.June, 15, 20, 0, 0, 0, time.Local),
		End:       time.Date(2025, time.June, 15, 22, 0, 0, 0, time.Local),
	}
}

func TestRender_Properties(t *testing.T) {
	out := Render(jazzNight())

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"BEGIN:VEVENT",
		"UID:event_1760535910",
		"CREATED:20251015T134510Z",
		"DTSTAMP:20251015T134510Z",
		"SUMMARY:Jazz Night",
		"LOCATION:Blue Note",
		"DTSTART:20250615T200000\r\n",
		"DTEND:20250615T220000\r\n",
		"END:VEVENT\r\n",
		"END:VCALENDAR\r\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered calendar missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "BEGIN:VEVENT") != 1 {
		t.Errorf("expected exactly one VEVENT:\n%s", out)
	}
}

func TestRender_CRLFLineEndings(t *testing.T) {
	out := Render(jazzNight())

	if !strings.HasSuffix(out, "END:VCALENDAR\r\n") {
		t.Errorf("calendar should end with CRLF after END:VCALENDAR: %q", out[max(0, len(out)-20):])
	}
	if bare := strings.Count(out, "\n") - strings.Count(out, "\r\n"); bare != 0 {
		t.Errorf("found %d bare LF line endings:\n%q", bare, out)
	}
}

func TestRender_RoundTrip(t *testing.T) {
	ev := jazzNight()

	got, err := Parse([]byte(Render(ev)))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.ID != ev.ID {
		t.Errorf("ID = %q, want %q", got.ID, ev.ID)
	}
	if got.Summary != ev.Summary {
		t.Errorf("Summary = %q, want %q", got.Summary, ev.Summary)
	}
	if got.Location != ev.Location {
		t.Errorf("Location = %q, want %q", got.Location, ev.Location)
	}
	if !got.Start.Equal(ev.Start) {
		t.Errorf("Start = %v, want %v", got.Start, ev.Start)
	}
	if !got.End.Equal(ev.End) {
		t.Errorf("End = %v, want %v", got.End, ev.End)
	}
	if !got.CreatedAt.Equal(ev.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, ev.CreatedAt)
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := Parse(nil); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		summary string
		want    string
	}{
		{"Jazz Night", "Jazz_Night.ics"},
		{"Cup  Final\t2025", "Cup_Final_2025.ics"},
		{"AC/DC Live", "AC_DC_Live.ics"},
		{"Solo", "Solo.ics"},
		{"", ".ics"},
	}
	for _, tt := range tests {
		if got := FileName(tt.summary); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.summary, got, tt.want)
		}
	}
}

func TestWrite_OverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "Jazz_Night.ics")
	if err := os.WriteFile(target, []byte("stale"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	path, err := Write(dir, jazzNight())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if path != target {
		t.Errorf("path = %q, want %q", path, target)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	if !strings.HasPrefix(string(data), "BEGIN:VCALENDAR") {
		t.Errorf("expected calendar content, got %q", data)
	}
}

func TestWrite_MissingDirectoryFails(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")

	if _, err := Write(dir, jazzNight()); err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
}
