package manager

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/psantana5/frc/internal/jsruntime"
	"github.com/psantana5/frc/internal/project"
	"github.com/psantana5/frc/internal/recommend"
	"github.com/psantana5/frc/internal/store"
)

// DefaultCleanupDays is the age limit used by cleanup without --days
const DefaultCleanupDays = 30

// ProjectView describes the project of a directory and its saved config
type ProjectView struct {
	ID     string               `json:"id" yaml:"id"`
	Name   string               `json:"name" yaml:"name"`
	Config *store.ProjectConfig `json:"config,omitempty" yaml:"config,omitempty"`
}

// Project resolves dir (empty: current directory) and returns its saved config, if any
func (m *Manager) Project(dir string) (*ProjectView, error) {
	id, err := m.resolve(dir)
	if err != nil {
		return nil, err
	}

	view := &ProjectView{ID: id, Name: project.Name(id)}
	cfg, err := m.store.Get(id)
	switch {
	case err == nil:
		view.Config = cfg
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}
	return view, nil
}

// Projects returns every saved config, most recently used first
func (m *Manager) Projects() ([]store.ProjectConfig, error) {
	return m.store.List()
}

// ForgetResult reports what Forget did
type ForgetResult struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Removed bool   `json:"removed" yaml:"removed"`
}

// Forget removes the saved config of path, or of the project containing dir
// when path is empty. A path is taken literally as a project id after being
// made absolute.
func (m *Manager) Forget(path, dir string) (*ForgetResult, error) {
	var id string
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		id = abs
	} else {
		resolved, err := m.resolve(dir)
		if err != nil {
			return nil, err
		}
		id = resolved
	}

	res := &ForgetResult{ID: id, Name: project.Name(id)}
	err := m.store.Delete(id)
	switch {
	case err == nil:
		res.Removed = true
		m.logger.Info("project config removed", map[string]interface{}{"project": id})
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}
	return res, nil
}

// Cleanup removes configs not used in the last days days and returns the count
func (m *Manager) Cleanup(days int) (int, error) {
	if days < 0 {
		return 0, fmt.Errorf("days must not be negative, got %d", days)
	}
	removed, err := m.store.Prune(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return 0, err
	}
	m.logger.Info("stale project configs pruned", map[string]interface{}{
		"days":    days,
		"removed": removed,
	})
	return removed, nil
}

// RecommendationView is the memory advice for one runtime on this machine
type RecommendationView struct {
	Runtime       jsruntime.Kind `json:"runtime" yaml:"runtime"`
	SystemGB      int            `json:"system_gb" yaml:"system_gb"`
	SupportsLimit bool           `json:"supports_limit" yaml:"supports_limit"`
	DefaultMB     int            `json:"default_mb,omitempty" yaml:"default_mb,omitempty"`
	LargeMB       int            `json:"large_mb,omitempty" yaml:"large_mb,omitempty"`
	Advice        string         `json:"advice" yaml:"advice"`
	Example       string         `json:"example,omitempty" yaml:"example,omitempty"`
}

// Recommendation returns the memory advice for kind
func (m *Manager) Recommendation(kind jsruntime.Kind) *RecommendationView {
	view := &RecommendationView{
		Runtime:       kind,
		SystemGB:      m.advisor.SystemGB(),
		SupportsLimit: kind.SupportsMemoryLimit(),
		Advice:        m.advisor.Recommendation(kind),
	}
	if view.SupportsLimit {
		view.DefaultMB = m.advisor.Default()
		view.LargeMB = recommend.RecommendMemory(m.advisor.SystemMB(), recommend.Large)
		view.Example = fmt.Sprintf("frc -m %d %s script.js", view.DefaultMB, kind)
	}
	return view
}

func (m *Manager) resolve(dir string) (string, error) {
	if dir == "" {
		wd, err := m.getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	return m.resolver.Resolve(dir)
}
