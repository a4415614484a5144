package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"www.github.com/Wanderer0074348/EventSync/src/models"
	"www.github.com/Wanderer0074348/EventSync/src/utils"
)

const (
	eventKeyPrefix      = "event:"
	ownerIndexPrefix    = "owner_events:"
	changeChannelPrefix = "events_changed:"
)

// ErrConcurrentModification is returned when a batch raced another writer and was not applied.
var ErrConcurrentModification = errors.New("events modified concurrently, batch not applied")

// EventStore keeps events as JSON documents in Redis, indexed per owner.
// Every mutation publishes a notification on the owner's change channel.
type EventStore struct {
	client *redis.Client
}

func NewEventStore(client *redis.Client) *EventStore {
	return &EventStore{
		client: client,
	}
}

func eventKey(eventID string) string {
	return eventKeyPrefix + eventID
}

func ownerIndexKey(ownerID string) string {
	return ownerIndexPrefix + ownerID
}

func changeChannel(ownerID string) string {
	return changeChannelPrefix + ownerID
}

func (s *EventStore) Query(ctx context.Context, ownerID string, filter models.EventFilter) ([]models.Event, error) {
	ids, err := s.client.SMembers(ctx, ownerIndexKey(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events, err := s.loadMany(ctx, s.client, ownerID, ids)
	if err != nil {
		return nil, err
	}

	result := make([]models.Event, 0, len(events))
	for _, event := range events {
		if filter.ExternalOnly && !event.IsExternalEvent {
			continue
		}
		result = append(result, event)
	}

	utils.SortByStart(result)
	return result, nil
}

func (s *EventStore) Get(ctx context.Context, ownerID, eventID string) (*models.Event, error) {
	if eventID == "" {
		return nil, models.ErrEventNotFound
	}

	data, err := s.client.Get(ctx, eventKey(eventID)).Result()
	if err == redis.Nil {
		return nil, models.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	var event models.Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	// Foreign events are indistinguishable from missing ones.
	if event.OwnerID != ownerID {
		return nil, models.ErrEventNotFound
	}

	return &event, nil
}

func (s *EventStore) Add(ctx context.Context, event *models.Event) (*models.Event, error) {
	if event.OwnerID == "" {
		return nil, fmt.Errorf("event has no owner")
	}

	created := *event
	created.ID = uuid.New().String()

	data, err := json.Marshal(created)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, eventKey(created.ID), data, 0)
		pipe.SAdd(ctx, ownerIndexKey(created.OwnerID), created.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save event: %w", err)
	}

	s.notify(ctx, created.OwnerID)
	return &created, nil
}

func (s *EventStore) Update(ctx context.Context, event *models.Event) (*models.Event, error) {
	existing, err := s.Get(ctx, event.OwnerID, event.ID)
	if err != nil {
		return nil, err
	}

	updated := *event
	updated.OwnerID = existing.OwnerID

	data, err := json.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := s.client.Set(ctx, eventKey(updated.ID), data, 0).Err(); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	s.notify(ctx, updated.OwnerID)
	return &updated, nil
}

func (s *EventStore) Delete(ctx context.Context, ownerID, eventID string) error {
	if _, err := s.Get(ctx, ownerID, eventID); err != nil {
		return err
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, eventKey(eventID))
		pipe.SRem(ctx, ownerIndexKey(ownerID), eventID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	s.notify(ctx, ownerID)
	return nil
}

// Batch validates every op against the owner's current documents and then
// applies all of them in one MULTI/EXEC. The touched documents are WATCHed,
// so a concurrent write aborts the whole batch instead of half-applying it.
func (s *EventStore) Batch(ctx context.Context, ownerID string, ops []models.BatchOp) error {
	if len(ops) == 0 {
		return nil
	}

	watched := make([]string, 0, len(ops))
	targets := make([]string, 0, len(ops))
	for _, op := range ops {
		if op.Kind == models.BatchUpdate || op.Kind == models.BatchDelete {
			watched = append(watched, eventKey(op.Event.ID))
			targets = append(targets, op.Event.ID)
		}
	}

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		existing, err := s.loadMany(ctx, tx, ownerID, targets)
		if err != nil {
			return err
		}
		if len(existing) != len(targets) {
			return fmt.Errorf("batch references %d missing event(s): %w", len(targets)-len(existing), models.ErrEventNotFound)
		}

		writes := make(map[string][]byte, len(ops))
		for i := range ops {
			op := &ops[i]
			switch op.Kind {
			case models.BatchCreate:
				op.Event.ID = uuid.New().String()
				op.Event.OwnerID = ownerID
			case models.BatchUpdate:
				op.Event.OwnerID = ownerID
			case models.BatchDelete:
				continue
			default:
				return fmt.Errorf("unknown batch op %q", op.Kind)
			}
			data, err := json.Marshal(op.Event)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			writes[op.Event.ID] = data
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, op := range ops {
				switch op.Kind {
				case models.BatchCreate:
					pipe.Set(ctx, eventKey(op.Event.ID), writes[op.Event.ID], 0)
					pipe.SAdd(ctx, ownerIndexKey(ownerID), op.Event.ID)
				case models.BatchUpdate:
					pipe.Set(ctx, eventKey(op.Event.ID), writes[op.Event.ID], 0)
				case models.BatchDelete:
					pipe.Del(ctx, eventKey(op.Event.ID))
					pipe.SRem(ctx, ownerIndexKey(ownerID), op.Event.ID)
				}
			}
			return nil
		})
		return err
	}, watched...)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrConcurrentModification
	}
	if err != nil {
		return fmt.Errorf("failed to apply batch: %w", err)
	}

	s.notify(ctx, ownerID)
	return nil
}

// Subscribe delivers the owner's snapshot right away and again after every
// change notification. Callbacks run one at a time on a single goroutine, in
// the order notifications arrive. The returned function stops delivery and
// returns once no callback is running; it must not be called from the
// callback.
func (s *EventStore) Subscribe(ctx context.Context, ownerID string, callback func([]models.Event)) (func(), error) {
	pubsub := s.client.Subscribe(ctx, changeChannel(ownerID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to events: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	notifications := pubsub.Channel()

	deliver := func() {
		events, err := s.Query(subCtx, ownerID, models.EventFilter{})
		if err != nil {
			if subCtx.Err() == nil {
				log.Printf("⚠️  Failed to load event snapshot for %s: %v", ownerID, err)
			}
			return
		}
		if subCtx.Err() != nil {
			return
		}
		callback(events)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		deliver()
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-notifications:
				if !ok {
					return
				}
				// Coalesce notifications that piled up while the last snapshot loaded.
				for drained := false; !drained; {
					select {
					case _, ok := <-notifications:
						if !ok {
							return
						}
					default:
						drained = true
					}
				}
				deliver()
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancel()
			pubsub.Close()
		})
		<-done
	}

	go func() {
		<-subCtx.Done()
		unsubscribe()
	}()

	return unsubscribe, nil
}

func (s *EventStore) notify(ctx context.Context, ownerID string) {
	if err := s.client.Publish(ctx, changeChannel(ownerID), "changed").Err(); err != nil {
		log.Printf("⚠️  Failed to publish event change for %s: %v", ownerID, err)
	}
}

// multiGetter is satisfied by both *redis.Client and *redis.Tx.
type multiGetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

// loadMany reads the documents behind ids, skipping dangling index entries
// and documents of other owners.
func (s *EventStore) loadMany(ctx context.Context, cmd multiGetter, ownerID string, ids []string) ([]models.Event, error) {
	if len(ids) == 0 {
		return []models.Event{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = eventKey(id)
	}

	values, err := cmd.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	events := make([]models.Event, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var event models.Event
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		if event.OwnerID != ownerID {
			continue
		}
		events = append(events, event)
	}

	return events, nil
}
