package events

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"www.github.com/Wanderer0074348/EventSync/src/cache"
	"www.github.com/Wanderer0074348/EventSync/src/calendar"
	"www.github.com/Wanderer0074348/EventSync/src/models"
	"www.github.com/Wanderer0074348/EventSync/src/utils"
)

const syncWarning = "Saved, but syncing with Google Calendar failed"

// Lifecycle is the part of the session manager user mutations go through.
type Lifecycle interface {
	BeginOperation(userID string) func()
	IsLinked(userID string) bool
}

type MutationResult struct {
	Event       *models.Event `json:"event"`
	SyncWarning string        `json:"sync_warning,omitempty"`
}

type ListResult struct {
	Events []models.Event `json:"events"`
	Stale  bool           `json:"stale,omitempty"`
}

type Service struct {
	store     models.EventStore
	pusher    models.Pusher
	lifecycle Lifecycle
	cache     models.LocalCache
	location  *time.Location
}

func NewService(store models.EventStore, pusher models.Pusher, lifecycle Lifecycle, localCache models.LocalCache, location *time.Location) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		store:     store,
		pusher:    pusher,
		lifecycle: lifecycle,
		cache:     localCache,
		location:  location,
	}
}

func (s *Service) Location() *time.Location {
	return s.location
}

// Validate checks a submitted form. Messages are the ones the event form
// shows next to each field.
func Validate(input models.EventInput) models.ValidationErrors {
	var errs models.ValidationErrors
	if strings.TrimSpace(input.Title) == "" {
		errs = append(errs, models.ValidationError{Field: "title", Message: "Name is required"})
	}
	if input.Start.IsZero() {
		errs = append(errs, models.ValidationError{Field: "start", Message: "Start time is required"})
	}
	if input.End.IsZero() {
		errs = append(errs, models.ValidationError{Field: "end", Message: "End time is required"})
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !utils.IsDateAfter(input.Start, input.End) {
		errs = append(errs, models.ValidationError{Field: "end", Message: "Ending time should be later than start time"})
	}
	return errs
}

// Defaults is the prefill of a new event form.
func Defaults(now time.Time) models.EventInput {
	start := now.Truncate(time.Minute)
	return models.EventInput{Start: start, End: utils.DefaultEnd(start)}
}

func (s *Service) Create(ctx context.Context, ownerID string, input models.EventInput) (*MutationResult, error) {
	if errs := Validate(input); len(errs) > 0 {
		return nil, errs
	}

	done := s.lifecycle.BeginOperation(ownerID)
	defer done()

	stored, err := s.store.Add(ctx, &models.Event{
		Title:   strings.TrimSpace(input.Title),
		Start:   input.Start.UTC(),
		End:     input.End.UTC(),
		OwnerID: ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	result := &MutationResult{Event: stored}
	s.push(ctx, ownerID, models.SyncRequest{Event: stored, Op: models.SyncAdd, Mirror: input.Mirror}, result)
	return result, nil
}

func (s *Service) Update(ctx context.Context, ownerID, eventID string, input models.EventInput) (*MutationResult, error) {
	if errs := Validate(input); len(errs) > 0 {
		return nil, errs
	}

	done := s.lifecycle.BeginOperation(ownerID)
	defer done()

	existing, err := s.store.Get(ctx, ownerID, eventID)
	if err != nil {
		return nil, err
	}

	existing.Title = strings.TrimSpace(input.Title)
	existing.Start = input.Start.UTC()
	existing.End = input.End.UTC()

	stored, err := s.store.Update(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	result := &MutationResult{Event: stored}
	s.push(ctx, ownerID, models.SyncRequest{Event: stored, Op: models.SyncUpdate}, result)
	return result, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, eventID string) (*MutationResult, error) {
	done := s.lifecycle.BeginOperation(ownerID)
	defer done()

	existing, err := s.store.Get(ctx, ownerID, eventID)
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, ownerID, eventID); err != nil {
		return nil, fmt.Errorf("failed to delete event: %w", err)
	}

	result := &MutationResult{Event: existing}
	s.push(ctx, ownerID, models.SyncRequest{Event: existing, Op: models.SyncDelete}, result)
	return result, nil
}

// push forwards a stored mutation to the external calendar. A failure
// leaves the store write in place and is reported as a warning.
func (s *Service) push(ctx context.Context, ownerID string, req models.SyncRequest, result *MutationResult) {
	if !s.lifecycle.IsLinked(ownerID) {
		return
	}

	pushed, err := s.pusher.Push(ctx, req)
	if err != nil {
		log.Printf("⚠️  Push of %s %s for %s failed: %v", req.Op, req.Event.ID, ownerID, err)
		result.SyncWarning = syncWarning
		return
	}
	if pushed != nil && req.Op != models.SyncDelete {
		result.Event = pushed
	}
}

// List returns the owner's events. When the store is unreachable the last
// cached snapshot is served and marked stale.
func (s *Service) List(ctx context.Context, ownerID string) (*ListResult, error) {
	events, err := s.store.Query(ctx, ownerID, models.EventFilter{})
	if err == nil {
		return &ListResult{Events: events}, nil
	}

	cached, ok, cacheErr := cache.LoadEvents(ctx, s.cache, ownerID)
	if cacheErr != nil || !ok {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	log.Printf("⚠️  Serving cached events for %s: %v", ownerID, err)
	utils.SortByStart(cached)
	return &ListResult{Events: cached, Stale: true}, nil
}

func (s *Service) ListDay(ctx context.Context, ownerID string, day time.Time) (*ListResult, error) {
	result, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	result.Events = utils.FilterDay(result.Events, day, s.location)
	return result, nil
}

// MarkedDates returns the yyyy-MM-dd days of month that have events.
func (s *Service) MarkedDates(ctx context.Context, ownerID string, month time.Time) ([]string, error) {
	result, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return utils.MarkedDatesInMonth(result.Events, month, s.location), nil
}

func (s *Service) ExportICS(ctx context.Context, ownerID, name string) (string, error) {
	result, err := s.List(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return calendar.ExportICS(name, result.Events, time.Now()), nil
}
