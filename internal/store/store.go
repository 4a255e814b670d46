// Package store persists per-project memory settings.
package store

import (
	"errors"
	"sort"
	"time"

	"github.com/psantana5/frc/internal/jsruntime"
)

var (
	// ErrNotFound is returned when no configuration exists for a project
	ErrNotFound = errors.New("project config not found")
)

// ProjectConfig is the saved memory setting of one project
type ProjectConfig struct {
	ProjectID string         `json:"project_id" yaml:"project_id"`
	Runtime   jsruntime.Kind `json:"runtime" yaml:"runtime"`
	MemoryMB  int            `json:"memory_mb" yaml:"memory_mb"`
	LastUsed  time.Time      `json:"last_used" yaml:"last_used"`
}

// Store is the project-keyed configuration store.
// Implementations read and rewrite their whole backing state per operation;
// concurrent writers in other processes are not coordinated.
type Store interface {
	// Get returns the config for a project or ErrNotFound
	Get(projectID string) (*ProjectConfig, error)
	// Put inserts or replaces a config. A zero LastUsed is set to now.
	Put(cfg ProjectConfig) error
	// Delete removes a config or returns ErrNotFound
	Delete(projectID string) error
	// List returns all configs, most recently used first
	List() ([]ProjectConfig, error)
	// Prune removes configs last used before now-olderThan and returns the count
	Prune(olderThan time.Duration) (int, error)
}

// Option configures a store
type Option func(*options)

type options struct {
	now       func() time.Time
	onWarning func(error)
}

func defaultOptions() options {
	return options{
		now:       time.Now,
		onWarning: func(error) {},
	}
}

// WithClock overrides the time source used for LastUsed and pruning
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithWarningHandler receives recoverable problems such as a corrupt state file
func WithWarningHandler(fn func(error)) Option {
	return func(o *options) {
		if fn != nil {
			o.onWarning = fn
		}
	}
}

// normalize applies the timestamp granularity of the persisted format
func normalize(cfg ProjectConfig, now func() time.Time) ProjectConfig {
	if cfg.LastUsed.IsZero() {
		cfg.LastUsed = now()
	}
	cfg.LastUsed = time.Unix(cfg.LastUsed.Unix(), 0)
	return cfg
}

// sortByLastUsed orders configs newest first, ties broken by project id
func sortByLastUsed(configs []ProjectConfig) {
	sort.Slice(configs, func(i, j int) bool {
		if configs[i].LastUsed.Equal(configs[j].LastUsed) {
			return configs[i].ProjectID < configs[j].ProjectID
		}
		return configs[i].LastUsed.After(configs[j].LastUsed)
	})
}
