package event

import (
	"strconv"
	"time"

	"github.com/MikeSquared-Agency/ticketcal/internal/extractor"
	"github.com/MikeSquared-Agency/ticketcal/internal/schedule"
)

// CalendarEvent is one ticket's calendar entry. It is built once and not
// modified afterwards.
type CalendarEvent struct {
	ID        string
	CreatedAt time.Time
	Summary   string
	Location  string
	Start     time.Time
	End       time.Time
}

// Clock returns the current time.
type Clock func() time.Time

// Synthesize builds the event from the extracted fields and schedule.
// The ID has one-second resolution, so two tickets synthesized in the same
// second share an ID.
func Synthesize(f extractor.Fields, s schedule.Schedule, now Clock) CalendarEvent {
	created := now()
	return CalendarEvent{
		ID:        "event_" + strconv.FormatInt(created.Unix(), 10),
		CreatedAt: created,
		Summary:   f.EventName,
		Location:  f.Location,
		Start:     s.Start,
		End:       s.End,
	}
}
