package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"www.github.com/Wanderer0074348/EventSync/src/models"
)

const (
	identityKeyPrefix = "identity:"
	eventsKeyPrefix   = "events:"
)

func IdentityKey(userID string) string {
	return identityKeyPrefix + userID
}

func EventsKey(userID string) string {
	return eventsKeyPrefix + userID
}

// SaveEvents stores the last known event list of a user.
func SaveEvents(ctx context.Context, c models.LocalCache, userID string, events []models.Event) error {
	if events == nil {
		events = []models.Event{}
	}
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	return c.SetItem(ctx, EventsKey(userID), string(data))
}

// LoadEvents returns the cached event list; ok is false when nothing was cached.
func LoadEvents(ctx context.Context, c models.LocalCache, userID string) ([]models.Event, bool, error) {
	data, ok, err := c.GetItem(ctx, EventsKey(userID))
	if err != nil || !ok {
		return nil, false, err
	}

	var events []models.Event
	if err := json.Unmarshal([]byte(data), &events); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal events: %w", err)
	}
	return events, true, nil
}

func SaveIdentity(ctx context.Context, c models.LocalCache, userID string, identity any) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	return c.SetItem(ctx, IdentityKey(userID), string(data))
}

// LoadIdentity decodes the cached identity blob into out.
func LoadIdentity(ctx context.Context, c models.LocalCache, userID string, out any) (bool, error) {
	data, ok, err := c.GetItem(ctx, IdentityKey(userID))
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return false, fmt.Errorf("failed to unmarshal identity: %w", err)
	}
	return true, nil
}

// Purge removes everything cached for a user. Both removals are attempted.
func Purge(ctx context.Context, c models.LocalCache, userID string) error {
	return errors.Join(
		c.RemoveItem(ctx, IdentityKey(userID)),
		c.RemoveItem(ctx, EventsKey(userID)),
	)
}
