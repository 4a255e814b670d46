package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/psantana5/frc/internal/frcerr"
	"github.com/psantana5/frc/internal/jsruntime"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

const (
	projectsKey = "projects"
	corruptExt  = ".corrupt"
)

var emptyDocument = []byte(`{}`)

// FileStore keeps all project configs in a single JSON document:
//
//	{"projects": {"/abs/path": {"runtime": "node", "memory_mb": 4096, "last_used": 1760000000}}}
//
// Edits go through JSON paths on the raw document, so keys written by newer
// versions survive a rewrite by this one.
type FileStore struct {
	path string
	mu   sync.Mutex
	opts options
}

// NewFileStore creates a store backed by the file at path.
// The file and its directory are created on the first write.
func NewFileStore(path string, opts ...Option) *FileStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &FileStore{
		path: path,
		opts: o,
	}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Get retrieves a config by project id
func (s *FileStore) Get(projectID string) (*ProjectConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	entry := gjson.GetBytes(doc, entryPath(projectID))
	cfg, ok := decodeEntry(projectID, entry)
	if !ok {
		return nil, ErrNotFound
	}
	return &cfg, nil
}

// Put inserts or replaces a config and rewrites the file
func (s *FileStore) Put(cfg ProjectConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg = normalize(cfg, s.opts.now)
	doc := s.load()
	base := entryPath(cfg.ProjectID)

	var err error
	if gjson.GetBytes(doc, base+".memory").Exists() {
		// Legacy string field, superseded by memory_mb
		if doc, err = sjson.DeleteBytes(doc, base+".memory"); err != nil {
			return s.writeErr("encode", err)
		}
	}

	fields := []struct {
		key   string
		value any
	}{
		{"runtime", string(cfg.Runtime)},
		{"memory_mb", cfg.MemoryMB},
		{"last_used", cfg.LastUsed.Unix()},
	}
	for _, f := range fields {
		if doc, err = sjson.SetBytes(doc, base+"."+f.key, f.value); err != nil {
			return s.writeErr("encode", err)
		}
	}

	return s.save(doc)
}

// Delete removes a config and rewrites the file
func (s *FileStore) Delete(projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	path := entryPath(projectID)
	if !gjson.GetBytes(doc, path).Exists() {
		return ErrNotFound
	}

	doc, err := sjson.DeleteBytes(doc, path)
	if err != nil {
		return s.writeErr("encode", err)
	}
	return s.save(doc)
}

// List returns all configs, most recently used first
func (s *FileStore) List() ([]ProjectConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs := decodeAll(s.load())
	sortByLastUsed(configs)
	return configs, nil
}

// Prune removes configs last used before now-olderThan
func (s *FileStore) Prune(olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.opts.now().Add(-olderThan)
	doc := s.load()

	removed := 0
	for _, cfg := range decodeAll(doc) {
		if !cfg.LastUsed.Before(cutoff) {
			continue
		}
		next, err := sjson.DeleteBytes(doc, entryPath(cfg.ProjectID))
		if err != nil {
			return removed, s.writeErr("encode", err)
		}
		doc = next
		removed++
	}

	if removed == 0 {
		return 0, nil
	}
	if err := s.save(doc); err != nil {
		return 0, err
	}
	return removed, nil
}

// load reads the whole document. A missing file is an empty store; an
// unreadable or malformed one is reported, moved aside and treated as empty.
func (s *FileStore) load() []byte {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.opts.onWarning(frcerr.New(frcerr.KindConfigReadCorrupt, "read state", s.path, err))
		}
		return emptyDocument
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return emptyDocument
	}

	if problem := validate(data); problem != "" {
		s.quarantine(problem)
		return emptyDocument
	}
	return data
}

func validate(data []byte) string {
	if !gjson.ValidBytes(data) {
		return "invalid JSON"
	}
	if !gjson.ParseBytes(data).IsObject() {
		return "document is not a JSON object"
	}
	if projects := gjson.GetBytes(data, projectsKey); projects.Exists() && !projects.IsObject() {
		return `"projects" is not an object`
	}
	return ""
}

// quarantine moves a corrupt file out of the way so the next write starts clean
func (s *FileStore) quarantine(problem string) {
	backup := s.path + corruptExt
	warning := frcerr.Newf(frcerr.KindConfigReadCorrupt, "parse state", s.path,
		"%s, starting with an empty config (old file kept at %s)", problem, backup)

	if err := os.Rename(s.path, backup); err != nil {
		warning = frcerr.Newf(frcerr.KindConfigReadCorrupt, "parse state", s.path,
			"%s, starting with an empty config (could not move it aside: %v)", problem, err)
	}
	s.opts.onWarning(warning)
}

// save writes the document atomically: temp file in the same directory, then rename
func (s *FileStore) save(doc []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return s.writeErr("create state directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-")
	if err != nil {
		return s.writeErr("create temp state file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(pretty.Pretty(doc)); err != nil {
		tmp.Close()
		return s.writeErr("write temp state file", err)
	}
	if err := tmp.Close(); err != nil {
		return s.writeErr("close temp state file", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return s.writeErr("chmod temp state file", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return s.writeErr("rename temp state file", err)
	}
	return nil
}

func (s *FileStore) writeErr(op string, err error) error {
	return frcerr.New(frcerr.KindConfigWriteFailure, op, s.path, err)
}

// entryPath is the JSON path of one project entry; ids are filesystem paths
// and need escaping.
func entryPath(projectID string) string {
	return projectsKey + "." + gjson.Escape(projectID)
}

func decodeAll(doc []byte) []ProjectConfig {
	var configs []ProjectConfig
	gjson.GetBytes(doc, projectsKey).ForEach(func(key, value gjson.Result) bool {
		if cfg, ok := decodeEntry(key.String(), value); ok {
			configs = append(configs, cfg)
		}
		return true
	})
	return configs
}

// decodeEntry reads one entry, ignoring unknown fields. Entries without a
// positive memory value do not count as a saved config.
func decodeEntry(projectID string, entry gjson.Result) (ProjectConfig, bool) {
	if !entry.IsObject() {
		return ProjectConfig{}, false
	}

	memory := entry.Get("memory_mb")
	if !memory.Exists() {
		memory = entry.Get("memory")
	}
	memoryMB := int(memory.Int())
	if memoryMB <= 0 {
		return ProjectConfig{}, false
	}

	return ProjectConfig{
		ProjectID: projectID,
		Runtime:   jsruntime.Kind(entry.Get("runtime").String()),
		MemoryMB:  memoryMB,
		LastUsed:  decodeTime(entry.Get("last_used")),
	}, true
}

func decodeTime(v gjson.Result) time.Time {
	if v.Type == gjson.String {
		if t, err := time.Parse(time.RFC3339, v.Str); err == nil {
			return t
		}
	}
	if secs := v.Int(); secs > 0 {
		return time.Unix(secs, 0)
	}
	return time.Time{}
}

// String describes the store for log lines
func (s *FileStore) String() string {
	return fmt.Sprintf("file:%s", s.path)
}
