package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// newTestSource points a GoogleCalendarSource at a stub API server.
func newTestSource(t *testing.T, handler http.HandlerFunc) *GoogleCalendarSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	service, err := calendar.NewService(context.Background(),
		option.WithEndpoint(srv.URL),
		option.WithoutAuthentication())
	require.NoError(t, err)

	return &GoogleCalendarSource{service: service, calendarID: "primary"}
}

func TestFetchWindowFiltersDeclinedAllDayAndUntitled(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"items": [
				{
					"id": "keep",
					"summary": "Standup",
					"start": {"dateTime": "2024-06-10T09:00:00Z"},
					"end": {"dateTime": "2024-06-10T09:30:00Z"}
				},
				{
					"id": "declined-first",
					"summary": "Skipped meeting",
					"start": {"dateTime": "2024-06-10T10:00:00Z"},
					"end": {"dateTime": "2024-06-10T11:00:00Z"},
					"attendees": [{"email": "me@example.com", "responseStatus": "declined"}]
				},
				{
					"id": "accepted-first",
					"summary": "Kept meeting",
					"start": {"dateTime": "2024-06-10T11:00:00Z"},
					"end": {"dateTime": "2024-06-10T12:00:00Z"},
					"attendees": [
						{"email": "me@example.com", "responseStatus": "accepted"},
						{"email": "other@example.com", "responseStatus": "declined"}
					]
				},
				{
					"id": "all-day",
					"summary": "Holiday",
					"start": {"date": "2024-06-11"},
					"end": {"date": "2024-06-12"}
				},
				{
					"id": "half-timed",
					"summary": "No real end",
					"start": {"dateTime": "2024-06-10T13:00:00Z"},
					"end": {"date": "2024-06-11"}
				},
				{
					"id": "untitled",
					"start": {"dateTime": "2024-06-10T14:00:00Z"},
					"end": {"dateTime": "2024-06-10T15:00:00Z"}
				}
			]
		}`)
	})

	events, err := source.FetchWindow(context.Background(), time.Now(), 7*24*time.Hour)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "Standup", events[0].Summary)
	assert.Equal(t, "Kept meeting", events[1].Summary, "only the first attendee's status counts")
}

func TestFetchWindowQueryParameters(t *testing.T) {
	center := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	radius := 7 * 24 * time.Hour

	var query map[string]string
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		fmt.Fprint(w, `{"items": []}`)
	})

	events, err := source.FetchWindow(context.Background(), center, radius)
	require.NoError(t, err)
	assert.Empty(t, events)

	assert.Equal(t, center.Add(-radius).Format(time.RFC3339), query["timeMin"])
	assert.Equal(t, center.Add(radius).Format(time.RFC3339), query["timeMax"])
	assert.Equal(t, "true", query["singleEvents"])
	assert.Equal(t, "startTime", query["orderBy"])
	assert.Equal(t, "default", query["eventTypes"])
	assert.Equal(t, "1", query["maxAttendees"])
	assert.Equal(t, "2500", query["maxResults"])
}

func TestFetchWindowFollowsPagination(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("pageToken") {
		case "":
			fmt.Fprint(w, `{
				"nextPageToken": "page-2",
				"items": [{
					"id": "a",
					"summary": "First page",
					"start": {"dateTime": "2024-06-10T09:00:00Z"},
					"end": {"dateTime": "2024-06-10T10:00:00Z"}
				}]
			}`)
		case "page-2":
			fmt.Fprint(w, `{
				"items": [{
					"id": "b",
					"summary": "Second page",
					"start": {"dateTime": "2024-06-11T09:00:00Z"},
					"end": {"dateTime": "2024-06-11T10:00:00Z"}
				}]
			}`)
		default:
			http.Error(w, "unexpected page token", http.StatusBadRequest)
		}
	})

	events, err := source.FetchWindow(context.Background(), time.Now(), 7*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "First page", events[0].Summary)
	assert.Equal(t, "Second page", events[1].Summary)
}

func TestFetchWindowEmptyIsNotAnError(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": []}`)
	})

	events, err := source.FetchWindow(context.Background(), time.Now(), 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFetchWindowServerErrorPropagates(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 500}}`, http.StatusInternalServerError)
	})

	_, err := source.FetchWindow(context.Background(), time.Now(), 24*time.Hour)
	assert.Error(t, err)
}

func TestFetchWindowResolvesZoneRelativeTimes(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"items": [{
				"id": "zoned",
				"summary": "Winter morning",
				"start": {"dateTime": "2024-01-01T10:00:00", "timeZone": "America/New_York"},
				"end": {"dateTime": "2024-01-01T11:00:00", "timeZone": "America/New_York"}
			}]
		}`)
	})

	events, err := source.FetchWindow(context.Background(), time.Now(), 7*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC), events[0].Start)
	assert.Equal(t, time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC), events[0].End)
}

func TestFetchWindowSkipsUnresolvableTimes(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"items": [
				{
					"id": "gap",
					"summary": "Impossible",
					"start": {"dateTime": "2024-03-10T02:30:00", "timeZone": "America/New_York"},
					"end": {"dateTime": "2024-03-10T03:30:00", "timeZone": "America/New_York"}
				},
				{
					"id": "fine",
					"summary": "Possible",
					"start": {"dateTime": "2024-03-10T09:00:00Z"},
					"end": {"dateTime": "2024-03-10T10:00:00Z"}
				}
			]
		}`)
	})

	events, err := source.FetchWindow(context.Background(), time.Now(), 7*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Possible", events[0].Summary)
}
