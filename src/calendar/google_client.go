package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"www.github.com/Wanderer0074348/EventSync/src/config"
	"www.github.com/Wanderer0074348/EventSync/src/models"
)

const DefaultMaxResults int64 = 100

// GoogleClient is a thin wrapper over the Calendar v3 events endpoint.
// Every call fetches a fresh token from the owner's token source, which
// refreshes it silently when it has expired.
type GoogleClient struct {
	tokens     models.TokenProvider
	calendarID string
	options    []option.ClientOption
}

func NewGoogleClient(tokens models.TokenProvider, cfg *config.GoogleConfig, opts ...option.ClientOption) *GoogleClient {
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	options := make([]option.ClientOption, 0, len(opts)+1)
	if cfg.Endpoint != "" {
		options = append(options, option.WithEndpoint(cfg.Endpoint))
	}
	options = append(options, opts...)

	return &GoogleClient{
		tokens:     tokens,
		calendarID: calendarID,
		options:    options,
	}
}

func (g *GoogleClient) service(ctx context.Context, ownerID string) (*gcal.Service, error) {
	source, err := g.tokens.TokenSource(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh google token: %w", err)
	}

	opts := append([]option.ClientOption{option.WithTokenSource(oauth2.StaticTokenSource(token))}, g.options...)
	service, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return service, nil
}

func (g *GoogleClient) ListUpcoming(ctx context.Context, ownerID string, timeMin time.Time, maxResults int64) ([]models.ExternalEvent, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	service, err := g.service(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	resp, err := service.Events.List(g.calendarID).
		TimeMin(timeMin.UTC().Format(time.RFC3339)).
		MaxResults(maxResults).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	result := make([]models.ExternalEvent, 0, len(resp.Items))
	for _, item := range resp.Items {
		if event, ok := fromGoogleEvent(item); ok {
			result = append(result, event)
		}
	}
	return result, nil
}

func (g *GoogleClient) Insert(ctx context.Context, ownerID string, event *models.Event) (string, error) {
	service, err := g.service(ctx, ownerID)
	if err != nil {
		return "", err
	}

	created, err := service.Events.Insert(g.calendarID, toGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}
	return created.Id, nil
}

func (g *GoogleClient) Patch(ctx context.Context, ownerID, externalID string, event *models.Event) error {
	service, err := g.service(ctx, ownerID)
	if err != nil {
		return err
	}

	if _, err := service.Events.Patch(g.calendarID, externalID, toGoogleEvent(event)).Context(ctx).Do(); err != nil {
		if isGone(err) {
			return fmt.Errorf("failed to update event %s: %w", externalID, models.ErrExternalEventNotFound)
		}
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

func (g *GoogleClient) Delete(ctx context.Context, ownerID, externalID string) error {
	service, err := g.service(ctx, ownerID)
	if err != nil {
		return err
	}

	if err := service.Events.Delete(g.calendarID, externalID).Context(ctx).Do(); err != nil {
		if isGone(err) {
			return fmt.Errorf("failed to delete event %s: %w", externalID, models.ErrExternalEventNotFound)
		}
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// fromGoogleEvent keeps only timed events with a title; all-day entries
// (date instead of dateTime) and untitled ones are dropped.
func fromGoogleEvent(item *gcal.Event) (models.ExternalEvent, bool) {
	if item == nil || item.Summary == "" || item.Start == nil || item.End == nil {
		return models.ExternalEvent{}, false
	}
	if item.Start.DateTime == "" || item.End.DateTime == "" {
		return models.ExternalEvent{}, false
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return models.ExternalEvent{}, false
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return models.ExternalEvent{}, false
	}

	return models.ExternalEvent{
		ID:      item.Id,
		Summary: item.Summary,
		Start:   start.UTC(),
		End:     end.UTC(),
	}, true
}

func toGoogleEvent(event *models.Event) *gcal.Event {
	return &gcal.Event{
		Summary: event.Title,
		Start: &gcal.EventDateTime{
			DateTime: event.Start.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &gcal.EventDateTime{
			DateTime: event.End.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
	}
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}
