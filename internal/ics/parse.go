package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/MikeSquared-Agency/ticketcal/internal/event"
)

// Parse reads back a file produced by Render. Only the first VEVENT is used.
func Parse(data []byte) (event.CalendarEvent, error) {
	if len(data) == 0 {
		return event.CalendarEvent{}, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return event.CalendarEvent{}, fmt.Errorf("parse calendar: %w", err)
	}
	events := cal.Events()
	if len(events) == 0 {
		return event.CalendarEvent{}, errors.New("no VEVENT in calendar")
	}
	ve := events[0]

	var out event.CalendarEvent
	out.ID = propValue(ve, ical.ComponentPropertyUniqueId)
	if out.ID == "" {
		return out, errors.New("missing UID")
	}
	out.Summary = unescapeText(propValue(ve, ical.ComponentPropertySummary))
	out.Location = unescapeText(propValue(ve, ical.ComponentPropertyLocation))

	if v := propValue(ve, ical.ComponentPropertyCreated); v != "" {
		if out.CreatedAt, err = time.Parse(utcLayout, v); err != nil {
			return out, fmt.Errorf("CREATED: %w", err)
		}
	}
	if out.Start, err = parseFloating(propValue(ve, ical.ComponentPropertyDtStart)); err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}
	if out.End, err = parseFloating(propValue(ve, ical.ComponentPropertyDtEnd)); err != nil {
		return out, fmt.Errorf("DTEND: %w", err)
	}
	return out, nil
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return prop.Value
	}
	return ""
}

func parseFloating(v string) (time.Time, error) {
	return time.ParseInLocation(floatingLayout, strings.TrimSpace(v), time.Local)
}

var textUnescaper = strings.NewReplacer(`\\`, `\`, `\;`, `;`, `\,`, `,`, `\n`, "\n", `\N`, "\n")

func unescapeText(v string) string {
	return textUnescaper.Replace(v)
}
