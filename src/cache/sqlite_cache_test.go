package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestSQLite(t *testing.T) *SQLiteCache {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewSQLiteCache(db)
}

func TestSQLiteCache_SetGetRemove(t *testing.T) {
	cache := setupTestSQLite(t)
	ctx := context.Background()

	_, ok, err := cache.GetItem(ctx, "events:u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.SetItem(ctx, "events:u1", "[]"))
	require.NoError(t, cache.SetItem(ctx, "events:u1", `[{"id":"e1"}]`))

	value, ok, err := cache.GetItem(ctx, "events:u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"e1"}]`, value)

	require.NoError(t, cache.RemoveItem(ctx, "events:u1"))
	_, ok, err = cache.GetItem(ctx, "events:u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.db")
	ctx := context.Background()

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, NewSQLiteCache(db).SetItem(ctx, "identity:u1", `{"id":"u1"}`))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	value, ok, err := NewSQLiteCache(db).GetItem(ctx, "identity:u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"u1"}`, value)

	var version int
	require.NoError(t, db.QueryRow("SELECT version FROM db_version WHERE name = ?", schemaName).Scan(&version))
	assert.Equal(t, 1, version)
}
