package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"www.github.com/Wanderer0074348/EventSync/src/models"
)

func setupTestStore(t *testing.T) (*EventStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return NewEventStore(client), mr
}

func at(hour int) time.Time {
	return time.Date(2024, 1, 1, hour, 0, 0, 0, time.UTC)
}

func TestEventStore_AddAndGet(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	created, err := store.Add(ctx, &models.Event{Title: "Lunch", Start: at(12), End: at(13), OwnerID: "u1"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := store.Get(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lunch", got.Title)
	assert.True(t, at(12).Equal(got.Start))
}

func TestEventStore_AddRequiresOwner(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.Add(context.Background(), &models.Event{Title: "Orphan"})
	assert.Error(t, err)
}

func TestEventStore_OwnerIsolation(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	mine, err := store.Add(ctx, &models.Event{Title: "Mine", Start: at(9), End: at(10), OwnerID: "u1"})
	require.NoError(t, err)
	_, err = store.Add(ctx, &models.Event{Title: "Theirs", Start: at(9), End: at(10), OwnerID: "u2"})
	require.NoError(t, err)

	events, err := store.Query(ctx, "u1", models.EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Mine", events[0].Title)

	_, err = store.Get(ctx, "u2", mine.ID)
	assert.ErrorIs(t, err, models.ErrEventNotFound)

	err = store.Delete(ctx, "u2", mine.ID)
	assert.ErrorIs(t, err, models.ErrEventNotFound)
}

func TestEventStore_QueryExternalOnlySorted(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_, _ = store.Add(ctx, &models.Event{Title: "Local", Start: at(8), End: at(9), OwnerID: "u1"})
	_, _ = store.Add(ctx, &models.Event{Title: "Later", Start: at(15), End: at(16), OwnerID: "u1", IsExternalEvent: true, ExternalEventID: "g2"})
	_, _ = store.Add(ctx, &models.Event{Title: "Earlier", Start: at(10), End: at(11), OwnerID: "u1", IsExternalEvent: true, ExternalEventID: "g1"})

	events, err := store.Query(ctx, "u1", models.EventFilter{ExternalOnly: true})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Earlier", events[0].Title)
	assert.Equal(t, "Later", events[1].Title)
}

func TestEventStore_UpdateKeepsOwner(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	created, err := store.Add(ctx, &models.Event{Title: "Draft", Start: at(9), End: at(10), OwnerID: "u1"})
	require.NoError(t, err)

	changed := *created
	changed.Title = "Final"
	updated, err := store.Update(ctx, &changed)
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, "u1", updated.OwnerID)

	hijack := *created
	hijack.OwnerID = "u2"
	_, err = store.Update(ctx, &hijack)
	assert.ErrorIs(t, err, models.ErrEventNotFound)
}

func TestEventStore_Delete(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	created, err := store.Add(ctx, &models.Event{Title: "Gone", Start: at(9), End: at(10), OwnerID: "u1"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "u1", created.ID))

	_, err = store.Get(ctx, "u1", created.ID)
	assert.ErrorIs(t, err, models.ErrEventNotFound)
	assert.False(t, mr.Exists(eventKey(created.ID)))
}

func TestEventStore_BatchAppliesAll(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	keep, _ := store.Add(ctx, &models.Event{Title: "Old", Start: at(9), End: at(10), OwnerID: "u1", IsExternalEvent: true, ExternalEventID: "g1"})
	drop, _ := store.Add(ctx, &models.Event{Title: "Drop", Start: at(11), End: at(12), OwnerID: "u1", IsExternalEvent: true, ExternalEventID: "g2"})

	renamed := *keep
	renamed.Title = "New"

	err := store.Batch(ctx, "u1", []models.BatchOp{
		{Kind: models.BatchUpdate, Event: renamed},
		{Kind: models.BatchDelete, Event: *drop},
		{Kind: models.BatchCreate, Event: models.Event{Title: "Fresh", Start: at(13), End: at(14), IsExternalEvent: true, ExternalEventID: "g3"}},
	})
	require.NoError(t, err)

	events, err := store.Query(ctx, "u1", models.EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "New", events[0].Title)
	assert.Equal(t, keep.ID, events[0].ID)
	assert.Equal(t, "Fresh", events[1].Title)
	assert.Equal(t, "u1", events[1].OwnerID)
}

func TestEventStore_BatchIsAllOrNothing(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	existing, _ := store.Add(ctx, &models.Event{Title: "Stay", Start: at(9), End: at(10), OwnerID: "u1"})

	err := store.Batch(ctx, "u1", []models.BatchOp{
		{Kind: models.BatchCreate, Event: models.Event{Title: "Never", Start: at(11), End: at(12)}},
		{Kind: models.BatchDelete, Event: *existing},
		{Kind: models.BatchUpdate, Event: models.Event{ID: "missing", Title: "Ghost"}},
	})
	assert.ErrorIs(t, err, models.ErrEventNotFound)

	events, err := store.Query(ctx, "u1", models.EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Stay", events[0].Title)
}

func TestEventStore_Subscribe(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, &models.Event{Title: "Before", Start: at(9), End: at(10), OwnerID: "u1"})
	require.NoError(t, err)

	snapshots := make(chan []models.Event, 10)
	unsubscribe, err := store.Subscribe(ctx, "u1", func(events []models.Event) {
		snapshots <- events
	})
	require.NoError(t, err)
	defer unsubscribe()

	select {
	case initial := <-snapshots:
		require.Len(t, initial, 1)
		assert.Equal(t, "Before", initial[0].Title)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial snapshot")
	}

	_, err = store.Add(ctx, &models.Event{Title: "After", Start: at(11), End: at(12), OwnerID: "u1"})
	require.NoError(t, err)

	select {
	case next := <-snapshots:
		assert.Len(t, next, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after change")
	}

	unsubscribe()
	unsubscribe()
}

func TestEventStore_UnsubscribeWaitsForRunningCallback(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, &models.Event{Title: "x", Start: at(9), End: at(10), OwnerID: "u1"})
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	var once sync.Once
	unsubscribe, err := store.Subscribe(ctx, "u1", func(events []models.Event) {
		once.Do(func() { close(entered) })
		<-release
		finished.Store(true)
	})
	require.NoError(t, err)

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("no initial snapshot")
	}

	returned := make(chan struct{})
	go func() {
		unsubscribe()
		close(returned)
	}()

	select {
	case <-returned:
		t.Fatal("unsubscribe returned while a callback was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("unsubscribe never returned")
	}
	assert.True(t, finished.Load())
}
