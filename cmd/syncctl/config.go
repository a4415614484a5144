package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"www.github.com/Wanderer0074348/EventSync/src/config"
)

const configFile = ".eventsync.toml"

type Config struct {
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	CalendarID     string `toml:"calendar_id"`
	RedisAddress   string `toml:"redis_address"`
	RedisPassword  string `toml:"redis_password"`
	DatabasePath   string `toml:"database_path"`
	Lookback       string `toml:"lookback"`
	MaxResults     int64  `toml:"max_results"`
	VerbosityLevel int    `toml:"verbosity_level"`
}

var verbosityLevel int

// readConfig looks in the working directory first, then in
// $HOME/.config/eventsync/.
func readConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return nil, err
		}
		data, err = os.ReadFile(filepath.Join(home, ".config", "eventsync", filename))
		if err != nil {
			return nil, err
		}
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*Config, error) {
	cfg := Config{
		CalendarID:   "primary",
		RedisAddress: "localhost:6379",
		DatabasePath: ".eventsync.db",
		Lookback:     "720h",
		MaxResults:   100,
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configFile, err)
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client_id and client_secret are required in %s", configFile)
	}
	if _, err := cfg.lookback(); err != nil {
		return nil, err
	}

	verbosityLevel = cfg.VerbosityLevel
	return &cfg, nil
}

func (c *Config) lookback() (time.Duration, error) {
	if c.Lookback == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Lookback)
	if err != nil {
		return 0, fmt.Errorf("invalid lookback %q: %w", c.Lookback, err)
	}
	return d, nil
}

func (c *Config) google() *config.GoogleConfig {
	return &config.GoogleConfig{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		CalendarID:   c.CalendarID,
		RevokeURL:    "https://oauth2.googleapis.com/revoke",
	}
}

func (c *Config) redis() *config.RedisConfig {
	return &config.RedisConfig{
		Address:  c.RedisAddress,
		Password: c.RedisPassword,
	}
}

func (c *Config) sync() *config.SyncConfig {
	lookback, _ := c.lookback()
	return &config.SyncConfig{
		PullInterval: 10 * time.Second,
		MaxResults:   c.MaxResults,
		Lookback:     lookback,
	}
}

// printVerbosely prints when verbosity is at or below the configured level.
// 0 prints nothing but errors, 1 prints summaries, 2 prints every event.
func printVerbosely(verbosity int, format string, a ...interface{}) {
	if verbosity <= verbosityLevel {
		fmt.Printf(format, a...)
	}
}
