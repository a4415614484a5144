package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"www.github.com/Wanderer0074348/EventSync/src/models"
)

func TestSaveAndLoadEvents(t *testing.T) {
	cache := setupTestSQLite(t)
	ctx := context.Background()

	events := []models.Event{{
		ID:      "e1",
		Title:   "Standup",
		Start:   time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		End:     time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC),
		OwnerID: "u1",
	}}

	require.NoError(t, SaveEvents(ctx, cache, "u1", events))

	loaded, ok, err := LoadEvents(ctx, cache, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Standup", loaded[0].Title)
	assert.True(t, events[0].Start.Equal(loaded[0].Start))

	_, ok, err = LoadEvents(ctx, cache, "someone-else")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPurge_RemovesIdentityAndEvents(t *testing.T) {
	cache := setupTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, SaveIdentity(ctx, cache, "u1", map[string]string{"id": "u1"}))
	require.NoError(t, SaveEvents(ctx, cache, "u1", nil))

	require.NoError(t, Purge(ctx, cache, "u1"))

	var identity map[string]string
	ok, err := LoadIdentity(ctx, cache, "u1", &identity)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = LoadEvents(ctx, cache, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}
