package calendar

import (
	"time"

	ics "github.com/arran4/golang-ical"

	"www.github.com/Wanderer0074348/EventSync/src/models"
)

const (
	productID = "-//EventSync//Events//EN"
	uidDomain = "@eventsync"

	externalIDProperty = ics.ComponentProperty("X-EVENTSYNC-EXTERNAL-ID")
)

// ExportICS renders events as an iCalendar feed.
func ExportICS(name string, events []models.Event, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, event := range events {
		vevent := cal.AddEvent(event.ID + uidDomain)
		vevent.SetDtStampTime(stamp.UTC())
		vevent.SetStartAt(event.Start.UTC())
		vevent.SetEndAt(event.End.UTC())
		vevent.SetSummary(event.Title)
		if event.ExternalEventID != "" {
			vevent.SetProperty(externalIDProperty, event.ExternalEventID)
		}
	}

	return cal.Serialize()
}
