package ics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ical "github.com/arran4/golang-ical"

	"github.com/MikeSquared-Agency/ticketcal/internal/event"
)

const (
	Extension = ".ics"
	productID = "-//ticketcal//ticket to calendar//EN"

	// utcLayout is the basic UTC form used for CREATED and DTSTAMP.
	utcLayout = "20060102T150405Z"
	// floatingLayout is the basic local form without zone suffix used for
	// DTSTART and DTEND.
	floatingLayout = "20060102T150405"
)

// Render serializes one event into a single-event VCALENDAR with CRLF
// line endings.
func Render(ev event.CalendarEvent) string {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)

	ve := cal.AddEvent(ev.ID)
	ve.SetCreatedTime(ev.CreatedAt)
	ve.SetDtStampTime(ev.CreatedAt)
	ve.SetSummary(ev.Summary)
	ve.SetLocation(ev.Location)
	ve.SetProperty(ical.ComponentPropertyDtStart, ev.Start.Format(floatingLayout))
	ve.SetProperty(ical.ComponentPropertyDtEnd, ev.End.Format(floatingLayout))

	return cal.Serialize(ical.WithNewLineWindows)
}

// FileName derives the output file name from the event summary: whitespace
// runs and path separators become underscores. An empty summary gives ".ics".
func FileName(summary string) string {
	name := strings.Join(strings.Fields(summary), "_")
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	return name + Extension
}

// Write renders ev into dir, replacing any file with the same name, and
// returns the written path.
func Write(dir string, ev event.CalendarEvent) (string, error) {
	path := filepath.Join(dir, FileName(ev.Summary))
	if err := os.WriteFile(path, []byte(Render(ev)), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
