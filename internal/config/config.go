// Package config defines service configuration and its loading.
//
// Conventions:
//   - New returns a Config holding every default.
//   - Load layers a file and the environment on top of New.
//   - Validate reports every invalid field at once, wrapped in ErrInvalidConfig.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
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

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory schedule job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of matching workers.
	WorkerCount int `koanf:"worker_count"`

	// Store selects where finished schedules live: memory or sqlite.
	Store string `koanf:"store"`

	// SQLitePath is the database file for the sqlite store.
	SQLitePath string `koanf:"sqlite_path"`

	// Seed fixes the matcher seed for plans that do not carry one. Zero
	// means a time-based seed per run.
	Seed int64 `koanf:"seed"`

	// MaxIterations caps proposals per run; zero disables the cap.
	MaxIterations int `koanf:"max_iterations"`

	// DefaultQuota applies to plans without a quota.
	DefaultQuota int `koanf:"default_quota"`

	// MaxListLimit caps GET /schedules?limit.
	MaxListLimit int `koanf:"max_list_limit"`

	// MaxStoredSchedules bounds the memory store; finished schedules are
	// evicted oldest first. Zero keeps everything.
	MaxStoredSchedules int `koanf:"max_stored_schedules"`

	// Preference weights.
	NeedBonus            float64 `koanf:"need_bonus"`
	GapWeight            float64 `koanf:"gap_weight"`
	LoadWeight           float64 `koanf:"load_weight"`
	PracticeOrderPenalty float64 `koanf:"practice_order_penalty"`

	// MeanGapWeight adds the mean gap to the minimum gap when teams compare
	// schedules; zero compares on the minimum gap alone.
	MeanGapWeight float64 `koanf:"mean_gap_weight"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		QueueSize:            1_000,
		WorkerCount:          runtime.NumCPU(),
		Store:                StoreMemory,
		SQLitePath:           "slotmatch.db",
		MaxIterations:        100_000,
		DefaultQuota:         3,
		MaxListLimit:         100,
		MaxStoredSchedules:   10_000,
		NeedBonus:            1_000_000,
		GapWeight:            1,
		LoadWeight:           10,
		PracticeOrderPenalty: 500,
		MeanGapWeight:        0,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	if c.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("queue_size must be positive, got %d", c.QueueSize))
	}
	if c.WorkerCount < 1 {
		errs = append(errs, fmt.Errorf("worker_count must be positive, got %d", c.WorkerCount))
	}
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite_path must not be empty for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store must be %s or %s, got %q", StoreMemory, StoreSQLite, c.Store))
	}
	if c.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("max_iterations must not be negative, got %d", c.MaxIterations))
	}
	if c.DefaultQuota < 1 {
		errs = append(errs, fmt.Errorf("default_quota must be at least 1, got %d", c.DefaultQuota))
	}
	if c.MaxListLimit < 1 {
		errs = append(errs, fmt.Errorf("max_list_limit must be positive, got %d", c.MaxListLimit))
	}
	if c.MaxStoredSchedules < 0 {
		errs = append(errs, fmt.Errorf("max_stored_schedules must not be negative, got %d", c.MaxStoredSchedules))
	}
	for name, w := range map[string]float64{
		"need_bonus":             c.NeedBonus,
		"gap_weight":             c.GapWeight,
		"load_weight":            c.LoadWeight,
		"practice_order_penalty": c.PracticeOrderPenalty,
		"mean_gap_weight":        c.MeanGapWeight,
	} {
		if w < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %g", name, w))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
