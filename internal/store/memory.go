package store

import (
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of the config store
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]ProjectConfig
	opts     options
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{
		projects: make(map[string]ProjectConfig),
		opts:     o,
	}
}

// Get retrieves a config by project id
func (s *MemoryStore) Get(projectID string) (*ProjectConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.projects[projectID]
	if !ok {
		return nil, ErrNotFound
	}
	return &cfg, nil
}

// Put inserts or replaces a config
func (s *MemoryStore) Put(cfg ProjectConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.projects[cfg.ProjectID] = normalize(cfg, s.opts.now)
	return nil
}

// Delete removes a config
func (s *MemoryStore) Delete(projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[projectID]; !ok {
		return ErrNotFound
	}
	delete(s.projects, projectID)
	return nil
}

// List returns all configs, most recently used first
func (s *MemoryStore) List() ([]ProjectConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	configs := make([]ProjectConfig, 0, len(s.projects))
	for _, cfg := range s.projects {
		configs = append(configs, cfg)
	}
	sortByLastUsed(configs)
	return configs, nil
}

// Prune removes configs last used before now-olderThan
func (s *MemoryStore) Prune(olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.opts.now().Add(-olderThan)
	removed := 0
	for id, cfg := range s.projects {
		if cfg.LastUsed.Before(cutoff) {
			delete(s.projects, id)
			removed++
		}
	}
	return removed, nil
}
