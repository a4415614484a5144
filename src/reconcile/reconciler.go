package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"www.github.com/Wanderer0074348/EventSync/src/calendar"
	"www.github.com/Wanderer0074348/EventSync/src/config"
	"www.github.com/Wanderer0074348/EventSync/src/models"
)

// Reconciler keeps the store's mirrored events in line with the external
// calendar (pull) and forwards local mutations outward (push).
type Reconciler struct {
	store      models.EventStore
	calendar   models.CalendarClient
	policy     PushPolicy
	maxResults int64
	lookback   time.Duration
	now        func() time.Time
}

func NewReconciler(store models.EventStore, client models.CalendarClient, policy PushPolicy, cfg *config.SyncConfig) *Reconciler {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = calendar.DefaultMaxResults
	}

	return &Reconciler{
		store:      store,
		calendar:   client,
		policy:     policy,
		maxResults: maxResults,
		lookback:   cfg.Lookback,
		now:        time.Now,
	}
}

// Pull runs one reconciliation pass and logs any failure. Periodic pulls
// never surface errors to the user.
func (r *Reconciler) Pull(ctx context.Context, ownerID string) {
	if _, err := r.PullOnce(ctx, ownerID); err != nil {
		log.Printf("⚠️  Pull for %s failed: %v", ownerID, err)
	}
}

func (r *Reconciler) PullOnce(ctx context.Context, ownerID string) (*models.PullResult, error) {
	timeMin := r.now().Add(-r.lookback)
	external, err := r.calendar.ListUpcoming(ctx, ownerID, timeMin, r.maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to list external events: %w", err)
	}

	stored, err := r.store.Query(ctx, ownerID, models.EventFilter{ExternalOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to query mirrored events: %w", err)
	}

	window := pullWindow{from: timeMin}
	if len(external) > 0 && int64(len(external)) >= r.maxResults {
		window.until = external[len(external)-1].Start
	}

	ops, result := planPull(ownerID, external, stored, window)
	if len(ops) == 0 {
		return result, nil
	}

	if err := r.store.Batch(ctx, ownerID, ops); err != nil {
		return nil, fmt.Errorf("failed to commit pull batch: %w", err)
	}

	log.Printf("✓ Pulled calendar for %s: %d created, %d updated, %d deleted",
		ownerID, result.Created, result.Updated, result.Deleted)
	return result, nil
}

// pullWindow is the span a listing covers: events ending after from and,
// when the listing hit max results, starting before until. A mirrored event
// outside it is absent from the listing without being gone from the calendar.
type pullWindow struct {
	from  time.Time
	until time.Time
}

func (w pullWindow) covers(event models.Event) bool {
	if !event.End.After(w.from) {
		return false
	}
	return w.until.IsZero() || event.Start.Before(w.until)
}

// planPull joins the listing with the mirrored events on the external id.
// Only events with is_external_event set ever reach it, so local events are
// never touched.
func planPull(ownerID string, external []models.ExternalEvent, stored []models.Event, window pullWindow) ([]models.BatchOp, *models.PullResult) {
	result := &models.PullResult{}
	var ops []models.BatchOp

	byID := make([]models.Event, len(stored))
	copy(byID, stored)
	sort.Slice(byID, func(i, j int) bool { return byID[i].ID < byID[j].ID })

	mirrored := make(map[string]models.Event, len(byID))
	for _, event := range byID {
		if !event.IsExternalEvent {
			continue
		}
		_, duplicate := mirrored[event.ExternalEventID]
		if event.ExternalEventID == "" || duplicate {
			ops = append(ops, models.BatchOp{Kind: models.BatchDelete, Event: event})
			result.Deleted++
			continue
		}
		mirrored[event.ExternalEventID] = event
	}

	listed := make(map[string]bool, len(external))
	for _, ext := range external {
		if ext.ID == "" || listed[ext.ID] {
			continue
		}
		listed[ext.ID] = true

		existing, ok := mirrored[ext.ID]
		if !ok {
			ops = append(ops, models.BatchOp{Kind: models.BatchCreate, Event: models.Event{
				Title:           ext.Summary,
				Start:           ext.Start,
				End:             ext.End,
				OwnerID:         ownerID,
				IsExternalEvent: true,
				ExternalEventID: ext.ID,
			}})
			result.Created++
			continue
		}

		if existing.Title == ext.Summary && existing.Start.Equal(ext.Start) && existing.End.Equal(ext.End) {
			continue
		}
		existing.Title = ext.Summary
		existing.Start = ext.Start
		existing.End = ext.End
		ops = append(ops, models.BatchOp{Kind: models.BatchUpdate, Event: existing})
		result.Updated++
	}

	for _, event := range byID {
		kept, ok := mirrored[event.ExternalEventID]
		if !ok || kept.ID != event.ID || listed[event.ExternalEventID] || !window.covers(event) {
			continue
		}
		ops = append(ops, models.BatchOp{Kind: models.BatchDelete, Event: event})
		result.Deleted++
	}

	return ops, result
}

// Push forwards a local mutation when the policy allows it. The returned
// event is the stored state after the push; a mirrored creation comes back
// carrying its external id.
func (r *Reconciler) Push(ctx context.Context, req models.SyncRequest) (*models.Event, error) {
	decision := r.policy.Decide(req)
	if !decision.Forward {
		return req.Event, nil
	}

	event := req.Event
	switch decision.Action {
	case ActionInsert:
		externalID, err := r.calendar.Insert(ctx, event.OwnerID, event)
		if err != nil {
			return event, fmt.Errorf("failed to mirror event: %w", err)
		}

		linked := *event
		linked.IsExternalEvent = true
		linked.ExternalEventID = externalID
		stored, err := r.store.Update(ctx, &linked)
		if err != nil {
			return event, fmt.Errorf("failed to link event %s to %s: %w", event.ID, externalID, err)
		}
		return stored, nil

	case ActionPatch:
		if err := r.calendar.Patch(ctx, event.OwnerID, event.ExternalEventID, event); err != nil {
			return event, fmt.Errorf("failed to update external event: %w", err)
		}

	case ActionDelete:
		err := r.calendar.Delete(ctx, event.OwnerID, event.ExternalEventID)
		if err != nil && !errors.Is(err, models.ErrExternalEventNotFound) {
			return event, fmt.Errorf("failed to delete external event: %w", err)
		}
	}

	return event, nil
}
