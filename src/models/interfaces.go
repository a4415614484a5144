package models

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// EventStore is the remote document collection of events, always scoped by owner.
type EventStore interface {
	Query(ctx context.Context, ownerID string, filter EventFilter) ([]Event, error)
	Get(ctx context.Context, ownerID, eventID string) (*Event, error)
	Add(ctx context.Context, event *Event) (*Event, error)
	Update(ctx context.Context, event *Event) (*Event, error)
	Delete(ctx context.Context, ownerID, eventID string) error
	// Batch applies every op or none of them.
	Batch(ctx context.Context, ownerID string, ops []BatchOp) error
	// Subscribe delivers the current snapshot and then a fresh one after every change.
	Subscribe(ctx context.Context, ownerID string, callback func([]Event)) (func(), error)
}

// CalendarClient talks to the external calendar provider on behalf of an owner.
type CalendarClient interface {
	ListUpcoming(ctx context.Context, ownerID string, timeMin time.Time, maxResults int64) ([]ExternalEvent, error)
	Insert(ctx context.Context, ownerID string, event *Event) (string, error)
	Patch(ctx context.Context, ownerID, externalID string, event *Event) error
	Delete(ctx context.Context, ownerID, externalID string) error
}

// LocalCache is a durable string key-value store.
type LocalCache interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	Close() error
}

// TokenProvider hands out a silently refreshing token source for an owner's Google grant.
type TokenProvider interface {
	TokenSource(ctx context.Context, ownerID string) (oauth2.TokenSource, error)
}

type Puller interface {
	PullOnce(ctx context.Context, ownerID string) (*PullResult, error)
}

type Pusher interface {
	Push(ctx context.Context, req SyncRequest) (*Event, error)
}
