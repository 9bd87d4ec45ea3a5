// Package schedule turns the loosely formatted date strings read off a
// ticket into a start and end time. Timestamps are naive: they are parsed
// in time.Local and carry no zone information downstream.
package schedule

import "time"

const (
	// StartLayout is hour:day:month:year, e.g. "20:15:06:2025".
	StartLayout = "15:02:01:2006"
	// EndLayout is day:month, e.g. "15:01".
	EndLayout = "02:01"

	DefaultDuration = 2 * time.Hour
)

// Schedule is the normalized start/end pair. End is always after Start.
type Schedule struct {
	Start time.Time
	End   time.Time
}

// Normalize never fails. An unparsable start falls back to now; an
// unparsable or missing end falls back to Start + DefaultDuration.
//
// The end string has no year. It takes the start's year and rolls forward
// one year when that would put it before the start (a ticket valid from
// 30 Dec to 02 Jan ends in the following year).
func Normalize(startRaw, endRaw string, now time.Time) Schedule {
	start := parseStart(startRaw, now)
	end, ok := parseEnd(endRaw, start)
	if !ok {
		end = start.Add(DefaultDuration)
	}
	return Schedule{Start: start, End: end}
}

func parseStart(raw string, now time.Time) time.Time {
	t, err := time.ParseInLocation(StartLayout, raw, time.Local)
	if err != nil {
		return now
	}
	return t
}

func parseEnd(raw string, start time.Time) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	dm, err := time.ParseInLocation(EndLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, false
	}

	end := endOfDay(start.Year(), dm.Month(), dm.Day(), start.Location())
	if !end.After(start) {
		end = endOfDay(start.Year()+1, dm.Month(), dm.Day(), start.Location())
	}
	if !end.After(start) {
		return time.Time{}, false
	}
	return end, true
}

func endOfDay(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, 23, 59, 59, 0, loc)
}
