package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const googleTimeLocal = "2006-01-02T15:04:05"

// GoogleCalendarSource reads the authoritative event set from a single
// Google calendar. It never writes.
type GoogleCalendarSource struct {
	service    *calendar.Service
	calendarID string
}

func NewGoogleCalendarSource(ctx context.Context, client *http.Client, calendarID string) (*GoogleCalendarSource, error) {
	if calendarID == "" {
		return nil, fmt.Errorf("google_calendar_id is not configured")
	}
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &GoogleCalendarSource{
		service:    service,
		calendarID: calendarID,
	}, nil
}

// FetchWindow lists every timed event instance starting within
// center±radius. Recurring events arrive pre-expanded into single
// occurrences, and only the first-listed attendee is consulted: an event
// that attendee declined is not mirrored.
//
// A nil error with an empty result means the source really has no events
// in the window, which is not the same thing as a failed fetch.
func (g *GoogleCalendarSource) FetchWindow(ctx context.Context, center time.Time, radius time.Duration) ([]Event, error) {
	timeMin := center.Add(-radius).Format(time.RFC3339)
	timeMax := center.Add(radius).Format(time.RFC3339)

	var events []Event
	pageToken := ""
	for {
		call := g.service.Events.List(g.calendarID).
			TimeMin(timeMin).
			TimeMax(timeMax).
			SingleEvents(true).
			OrderBy("startTime").
			EventTypes("default").
			MaxAttendees(1).
			MaxResults(2500).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list events: %w", err)
		}

		for _, item := range page.Items {
			event, ok, err := convertGoogleEvent(item)
			if err != nil {
				log.WithField("event", item.Id).Warnf("skipping unusable source event: %v", err)
				continue
			}
			if ok {
				events = append(events, event)
			}
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return events, nil
}

// convertGoogleEvent maps one API record onto the core Event shape. The
// bool result is false for records this engine does not mirror: all-day
// events (date without time-of-day on either endpoint), untitled events,
// and events whose first-listed attendee declined.
func convertGoogleEvent(item *calendar.Event) (Event, bool, error) {
	if item.Start == nil || item.Start.DateTime == "" ||
		item.End == nil || item.End.DateTime == "" {
		return Event{}, false, nil
	}
	if item.Summary == "" {
		return Event{}, false, nil
	}
	if len(item.Attendees) > 0 && item.Attendees[0].ResponseStatus == "declined" {
		return Event{}, false, nil
	}

	start, err := resolveGoogleTime(item.Start)
	if err != nil {
		return Event{}, false, err
	}
	end, err := resolveGoogleTime(item.End)
	if err != nil {
		return Event{}, false, err
	}

	return Event{Start: start, End: end, Summary: item.Summary}, true, nil
}

// resolveGoogleTime parses an EventDateTime. The API may omit the UTC
// offset when the record names a timezone; those values resolve through the
// same wall-clock path as zone-relative calendar records, with the same
// AmbiguousLocalTime failure mode around DST transitions.
func resolveGoogleTime(dt *calendar.EventDateTime) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
		return t.UTC(), nil
	}
	if dt.TimeZone == "" {
		return time.Time{}, fmt.Errorf("unparseable event time %q", dt.DateTime)
	}
	return resolveWallClock(dt.DateTime, googleTimeLocal, dt.TimeZone)
}
