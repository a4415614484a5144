package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig([]byte(`
client_id = "id"
client_secret = "secret"
verbosity_level = 2
`))
	require.NoError(t, err)

	assert.Equal(t, "primary", cfg.CalendarID)
	assert.Equal(t, "localhost:6379", cfg.RedisAddress)
	assert.Equal(t, int64(100), cfg.MaxResults)
	assert.Equal(t, 2, verbosityLevel)
	assert.Equal(t, 30*24*time.Hour, cfg.sync().Lookback)
}

func TestParseConfig_Overrides(t *testing.T) {
	cfg, err := parseConfig([]byte(`
client_id = "id"
client_secret = "secret"
calendar_id = "team@group.calendar.google.com"
database_path = "/tmp/eventsync.db"
lookback = "24h"
max_results = 250
`))
	require.NoError(t, err)

	assert.Equal(t, "team@group.calendar.google.com", cfg.google().CalendarID)
	assert.Equal(t, 24*time.Hour, cfg.sync().Lookback)
	assert.Equal(t, int64(250), cfg.sync().MaxResults)
}

func TestParseConfig_Errors(t *testing.T) {
	_, err := parseConfig([]byte(`client_id = "id"`))
	assert.Error(t, err)

	_, err = parseConfig([]byte(`client_id = "id"
client_secret = "secret"
lookback = "yesterday"`))
	assert.Error(t, err)

	_, err = parseConfig([]byte(`client_id = `))
	assert.Error(t, err)
}
