package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaName = "eventsync"

// OpenSQLite opens (creating if needed) the device database and brings its
// schema to the latest version. The same file holds the local cache and the
// OAuth grants.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS db_version (
		name TEXT PRIMARY KEY,
		version INTEGER
	)`)
	if err != nil {
		return fmt.Errorf("failed to create db_version table: %w", err)
	}

	var version int
	err = db.QueryRow("SELECT version FROM db_version WHERE name = ?", schemaName).Scan(&version)
	if err == sql.ErrNoRows {
		if _, err := db.Exec("INSERT INTO db_version (name, version) VALUES (?, 0)", schemaName); err != nil {
			return fmt.Errorf("failed to initialize db_version table: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version < 1 {
		_, err = db.Exec(`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`)
		if err != nil {
			return fmt.Errorf("failed to create kv table: %w", err)
		}

		_, err = db.Exec(`CREATE TABLE IF NOT EXISTS tokens (
			account_name TEXT PRIMARY KEY,
			token TEXT NOT NULL
		)`)
		if err != nil {
			return fmt.Errorf("failed to create tokens table: %w", err)
		}

		if _, err := db.Exec("UPDATE db_version SET version = 1 WHERE name = ?", schemaName); err != nil {
			return fmt.Errorf("failed to update db_version table: %w", err)
		}
	}

	return nil
}

// SQLiteCache is the durable file-backed local cache.
type SQLiteCache struct {
	db *sql.DB
}

func NewSQLiteCache(db *sql.DB) *SQLiteCache {
	return &SQLiteCache{db: db}
}

func (c *SQLiteCache) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := c.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (c *SQLiteCache) SetItem(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO kv (key, value, updated_at) VALUES (?, ?, ?)",
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (c *SQLiteCache) RemoveItem(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Close is a no-op: the database is shared with the grant store and closed by its owner.
func (c *SQLiteCache) Close() error {
	return nil
}
