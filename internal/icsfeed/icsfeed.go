// Package icsfeed renders calendar events as an iCalendar feed so the
// unified calendar can be subscribed to from any calendar client.
package icsfeed

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/njoerd114/lifesync/internal/model"
)

const productID = "-//lifesync//calendar//EN"

// Options controls feed rendering.
type Options struct {
	// BaseURL, if set, is prefixed to each event's in-app route.
	BaseURL string
	// Now stamps DTSTAMP. Defaults to time.Now.
	Now func() time.Time
}

// Render serialises events as a VCALENDAR. Each event's CATEGORIES carries
// its source tag and its URL points back to the source entity's page.
func Render(events []model.CalendarEvent, opts Options) string {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	stamp := now().UTC()

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID + "@lifesync")
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(ev.StartTime.UTC())
		ve.SetEndAt(model.EndOrDefault(ev.StartTime, &ev.EndTime).UTC())
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		ve.AddProperty(ical.ComponentPropertyCategories, string(ev.Source))
		ve.SetURL(strings.TrimRight(opts.BaseURL, "/") + ev.Route())
	}
	return cal.Serialize()
}
