package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"www.github.com/Wanderer0074348/EventSync/src/config"
	"www.github.com/Wanderer0074348/EventSync/src/models"
)

type staticTokens struct {
	err error
}

func (s staticTokens) TokenSource(ctx context.Context, ownerID string) (oauth2.TokenSource, error) {
	if s.err != nil {
		return nil, s.err
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "access-" + ownerID}), nil
}

type recorded struct {
	method string
	path   string
	query  map[string]string
	body   map[string]any
	auth   string
}

func setupCalendarServer(t *testing.T) (*httptest.Server, *[]recorded) {
	calls := &[]recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  map[string]string{},
			auth:   r.Header.Get("Authorization"),
		}
		for k := range r.URL.Query() {
			rec.query[k] = r.URL.Query().Get(k)
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.body)
		}
		*calls = append(*calls, rec)

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/calendars/primary/events":
			w.Write([]byte(`{"items":[
				{"id":"g1","summary":"Standup","start":{"dateTime":"2030-01-01T09:00:00Z"},"end":{"dateTime":"2030-01-01T09:30:00Z"}},
				{"id":"g2","summary":"Holiday","start":{"date":"2030-01-02"},"end":{"date":"2030-01-03"}},
				{"id":"g3","start":{"dateTime":"2030-01-01T10:00:00Z"},"end":{"dateTime":"2030-01-01T11:00:00Z"}},
				{"id":"g4","summary":"Offset","start":{"dateTime":"2030-01-01T12:00:00+02:00"},"end":{"dateTime":"2030-01-01T13:00:00+02:00"}}
			]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/calendars/primary/events":
			w.Write([]byte(`{"id":"g-new"}`))
		case r.Method == http.MethodPatch && r.URL.Path == "/calendars/primary/events/g1":
			w.Write([]byte(`{"id":"g1"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/calendars/primary/events/g1":
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/calendars/primary/events/gone":
			w.WriteHeader(http.StatusGone)
			w.Write([]byte(`{"error":{"code":410,"message":"Resource has been deleted"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func newTestClient(srv *httptest.Server, tokens models.TokenProvider) *GoogleClient {
	cfg := &config.GoogleConfig{CalendarID: "primary"}
	return NewGoogleClient(tokens, cfg, option.WithEndpoint(srv.URL+"/"))
}

func TestGoogleClient_ListUpcomingFiltersIncompleteItems(t *testing.T) {
	srv, calls := setupCalendarServer(t)
	client := newTestClient(srv, staticTokens{})

	timeMin := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	events, err := client.ListUpcoming(context.Background(), "u1", timeMin, 100)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "g1", events[0].ID)
	assert.Equal(t, "Standup", events[0].Summary)
	assert.Equal(t, time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC), events[0].Start)
	assert.Equal(t, "g4", events[1].ID)
	assert.Equal(t, time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC), events[1].Start)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "Bearer access-u1", call.auth)
	assert.Equal(t, "100", call.query["maxResults"])
	assert.Equal(t, "true", call.query["singleEvents"])
	assert.Equal(t, "startTime", call.query["orderBy"])
	assert.Equal(t, "2030-01-01T00:00:00Z", call.query["timeMin"])
}

func TestGoogleClient_InsertSendsUTC(t *testing.T) {
	srv, calls := setupCalendarServer(t)
	client := newTestClient(srv, staticTokens{})

	loc := time.FixedZone("CET", 3600)
	event := &models.Event{
		Title: "Lunch",
		Start: time.Date(2030, 1, 1, 13, 0, 0, 0, loc),
		End:   time.Date(2030, 1, 1, 14, 0, 0, 0, loc),
	}

	id, err := client.Insert(context.Background(), "u1", event)
	require.NoError(t, err)
	assert.Equal(t, "g-new", id)

	require.Len(t, *calls, 1)
	body := (*calls)[0].body
	assert.Equal(t, "Lunch", body["summary"])
	start := body["start"].(map[string]any)
	assert.Equal(t, "2030-01-01T12:00:00Z", start["dateTime"])
	assert.Equal(t, "UTC", start["timeZone"])
}

func TestGoogleClient_PatchAndDelete(t *testing.T) {
	srv, calls := setupCalendarServer(t)
	client := newTestClient(srv, staticTokens{})
	ctx := context.Background()

	event := &models.Event{
		Title: "Renamed",
		Start: time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, client.Patch(ctx, "u1", "g1", event))
	require.NoError(t, client.Delete(ctx, "u1", "g1"))

	require.Len(t, *calls, 2)
	assert.Equal(t, http.MethodPatch, (*calls)[0].method)
	assert.Equal(t, "Renamed", (*calls)[0].body["summary"])
	assert.Equal(t, http.MethodDelete, (*calls)[1].method)
}

func TestGoogleClient_MissingEventMapsToSentinel(t *testing.T) {
	srv, _ := setupCalendarServer(t)
	client := newTestClient(srv, staticTokens{})
	ctx := context.Background()

	event := &models.Event{Title: "x", Start: time.Now(), End: time.Now().Add(time.Hour)}

	err := client.Patch(ctx, "u1", "missing", event)
	assert.True(t, errors.Is(err, models.ErrExternalEventNotFound))

	err = client.Delete(ctx, "u1", "gone")
	assert.True(t, errors.Is(err, models.ErrExternalEventNotFound))
}

func TestGoogleClient_NotLinked(t *testing.T) {
	srv, calls := setupCalendarServer(t)
	client := newTestClient(srv, staticTokens{err: models.ErrNotLinked})

	_, err := client.ListUpcoming(context.Background(), "u1", time.Now(), 10)
	assert.ErrorIs(t, err, models.ErrNotLinked)
	assert.Empty(t, *calls)
}
