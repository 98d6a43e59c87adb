// Package config defines the planner's process configuration.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/morywal/CalendarApp/internal/domain/model"
	"github.com/morywal/CalendarApp/internal/domain/scoring"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogJSON switches the log handler to JSON.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Store selects the storage backend: memory or sqlite.
	Store  string `koanf:"store"`
	DBPath string `koanf:"db_path"`

	// Timezone names the IANA zone calendar days are computed in. "Local"
	// uses the host zone.
	Timezone string `koanf:"timezone"`

	// HorizonDays is how many days after today a run covers.
	HorizonDays int `koanf:"horizon_days"`

	// Default preferences for users that have not stored their own.
	ActiveWindowStart    string `koanf:"active_window_start"`
	ActiveWindowEnd      string `koanf:"active_window_end"`
	MinBlockMinutes      int    `koanf:"min_block_minutes"`
	PreferredTaskMinutes int    `koanf:"preferred_task_minutes"`

	// QueueSize bounds the run request queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of scheduling workers.
	WorkerCount int `koanf:"worker_count"`

	// RescheduleCron is the sweep schedule; empty disables it.
	RescheduleCron string `koanf:"reschedule_cron"`

	ScoreBase              float64 `koanf:"score_base"`
	ScorePriorityStep      float64 `koanf:"score_priority_step"`
	ScoreUtilizationWeight float64 `koanf:"score_utilization_weight"`

	EstimateDefaultMinutes    int `koanf:"estimate_default_minutes"`
	EstimateHistoryMinSamples int `koanf:"estimate_history_min_samples"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:                  "info",
		Addr:                      ":9080",
		Store:                     StoreMemory,
		DBPath:                    "calendar.db",
		Timezone:                  "Local",
		HorizonDays:               7,
		ActiveWindowStart:         "08:00",
		ActiveWindowEnd:           "22:00",
		MinBlockMinutes:           model.DefaultMinBlockMinutes,
		PreferredTaskMinutes:      model.DefaultPreferredTaskMinutes,
		QueueSize:                 1024,
		WorkerCount:               runtime.NumCPU(),
		RescheduleCron:            "0 5 * * *",
		ScoreBase:                 scoring.DefaultBase,
		ScorePriorityStep:         scoring.DefaultPriorityStep,
		ScoreUtilizationWeight:    scoring.DefaultUtilizationWeight,
		EstimateDefaultMinutes:    60,
		EstimateHistoryMinSamples: 5,
	}
}

// Validate checks every field and wraps failures in ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.Store != StoreMemory && c.Store != StoreSQLite:
		return invalid("store %q: want %s or %s", c.Store, StoreMemory, StoreSQLite)
	case c.Store == StoreSQLite && c.DBPath == "":
		return invalid("db_path is required for the sqlite store")
	case c.HorizonDays < 0:
		return invalid("horizon_days must not be negative, got %d", c.HorizonDays)
	case c.QueueSize <= 0:
		return invalid("queue_size must be positive, got %d", c.QueueSize)
	case c.WorkerCount <= 0:
		return invalid("worker_count must be positive, got %d", c.WorkerCount)
	case c.EstimateDefaultMinutes <= 0:
		return invalid("estimate_default_minutes must be positive, got %d", c.EstimateDefaultMinutes)
	case c.EstimateHistoryMinSamples <= 0:
		return invalid("estimate_history_min_samples must be positive, got %d", c.EstimateHistoryMinSamples)
	}
	if _, err := c.Location(); err != nil {
		return invalid("timezone %q: %v", c.Timezone, err)
	}
	if _, err := c.Preferences(); err != nil {
		return invalid("%v", err)
	}
	if c.RescheduleCron != "" {
		if _, err := cron.ParseStandard(c.RescheduleCron); err != nil {
			return invalid("reschedule_cron %q: %v", c.RescheduleCron, err)
		}
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Preferences returns the default per-user preferences.
func (c *Config) Preferences() (model.Preferences, error) {
	start, err := model.ParseClock(c.ActiveWindowStart)
	if err != nil {
		return model.Preferences{}, fmt.Errorf("active_window_start: %w", err)
	}
	end, err := model.ParseClock(c.ActiveWindowEnd)
	if err != nil {
		return model.Preferences{}, fmt.Errorf("active_window_end: %w", err)
	}
	p := model.Preferences{
		ActiveStart:          start,
		ActiveEnd:            end,
		MinBlockMinutes:      c.MinBlockMinutes,
		PreferredTaskMinutes: c.PreferredTaskMinutes,
	}
	if err := p.Validate(); err != nil {
		return model.Preferences{}, err
	}
	return p, nil
}

// ScoringOptions returns the scorer weights.
func (c *Config) ScoringOptions() []scoring.Option {
	return []scoring.Option{
		scoring.WithBase(c.ScoreBase),
		scoring.WithPriorityStep(c.ScorePriorityStep),
		scoring.WithUtilizationWeight(c.ScoreUtilizationWeight),
	}
}
