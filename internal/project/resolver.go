// Package project derives a stable project identifier from a working directory.
package project

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultMarkers are the files and directories that mark a project root
var DefaultMarkers = []string{
	"package.json",
	"deno.json",
	"deno.jsonc",
	"bunfig.toml",
	"pnpm-workspace.yaml",
	"lerna.json",
	"nx.json",
	".git",
}

// Resolver maps a working directory to a project identifier
type Resolver interface {
	Resolve(dir string) (string, error)
}

// MarkerResolver walks up from the working directory until a marker is found.
// Without a marker the working directory itself is the project.
type MarkerResolver struct {
	Markers []string
}

// NewMarkerResolver creates a resolver using DefaultMarkers
func NewMarkerResolver() *MarkerResolver {
	return &MarkerResolver{Markers: DefaultMarkers}
}

// Resolve returns the absolute path of the project root containing dir
func (r *MarkerResolver) Resolve(dir string) (string, error) {
	start, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	markers := r.Markers
	if len(markers) == 0 {
		markers = DefaultMarkers
	}

	for current := start; ; {
		for _, marker := range markers {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return current, nil
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return start, nil
}

// ResolverFunc adapts a function to the Resolver interface
type ResolverFunc func(dir string) (string, error)

// Resolve calls f(dir)
func (f ResolverFunc) Resolve(dir string) (string, error) {
	return f(dir)
}

// Name returns the display name of a project (its directory name)
func Name(id string) string {
	name := filepath.Base(filepath.Clean(id))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "unknown"
	}
	return name
}
